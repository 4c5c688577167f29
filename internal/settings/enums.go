package settings

import (
	"fmt"
	"strings"
)

// View is the camera projection.
type View int

const (
	ViewFlat View = iota
	ViewPerspective
)

var viewNames = []string{"Flat", "Perspective"}

func (v View) String() string { return enumName(viewNames, int(v), "View") }

func (v View) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

// SpawnAt chooses where non-player vehicles appear.
type SpawnAt int

const (
	SpawnRandom SpawnAt = iota
	SpawnPlayer
)

var spawnAtNames = []string{"Random", "Player"}

func (s SpawnAt) String() string { return enumName(spawnAtNames, int(s), "SpawnAt") }

func (s SpawnAt) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// CarColor is the paint scheme of the player vehicle.
type CarColor int

const (
	ColorDummy CarColor = iota
	ColorRed
	ColorBlue
	ColorYellow
	ColorGray
	ColorGreen
)

var carColorNames = []string{"Dummy", "Red", "Blue", "Yellow", "Gray", "Green"}

func (c CarColor) String() string { return enumName(carColorNames, int(c), "CarColor") }

func (c CarColor) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// Backend is the GPU API requested from the windowing layer.
type Backend int

const (
	BackendAuto Backend = iota
	BackendVulkan
	BackendMetal
	BackendDX12
	BackendDX11
)

var backendNames = []string{"Auto", "Vulkan", "Metal", "DX12", "DX11"}

func (b Backend) String() string { return enumName(backendNames, int(b), "Backend") }

func (b Backend) MarshalText() ([]byte, error) { return []byte(b.String()), nil }

func enumName(names []string, i int, typ string) string {
	if i < 0 || i >= len(names) {
		return fmt.Sprintf("%s(%d)", typ, i)
	}
	return names[i]
}

// lookupEnum matches tag case-sensitively against names.
func lookupEnum(names []string, tag string) (int, bool) {
	for i, name := range names {
		if name == tag {
			return i, true
		}
	}
	return 0, false
}

func oneOf(names []string) string {
	return "one of " + strings.Join(names, ", ")
}
