package settings

import (
	"fmt"
	"os"
	"path/filepath"
)

// dataMarker is a file every game data directory ships with.
const dataMarker = "options.dat"

// Resolve returns rel joined onto the data directory.
func (s *Settings) Resolve(rel string) string {
	return filepath.Join(s.DataPath, rel)
}

// CheckPath reports whether rel exists under the data directory.
func (s *Settings) CheckPath(rel string) bool {
	_, err := os.Stat(s.Resolve(rel))
	return err == nil
}

// ObjectPalettePath is the palette used for vehicles and other objects.
func (s *Settings) ObjectPalettePath() string {
	return s.Resolve(filepath.Join("resource", "pal", "objects.pal"))
}

// CheckDataPath verifies that DataPath points at the game resources. Load
// does not call it: loading reads the settings file and nothing else.
func (s *Settings) CheckDataPath() error {
	if !s.CheckPath(dataMarker) {
		return fmt.Errorf("%w: %q has no %s", ErrDataPath, s.DataPath, dataMarker)
	}
	return nil
}
