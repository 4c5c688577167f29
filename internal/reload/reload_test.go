package reload

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/vangers-settings/internal/settings"
	"github.com/eugenenazirov/vangers-settings/internal/store"
)

func readTemplate(t *testing.T) string {
	t.Helper()

	data, err := os.ReadFile(filepath.Join("..", "settings", "testdata", "settings.yaml"))
	if err != nil {
		t.Fatalf("read template: %v", err)
	}
	return string(data)
}

// writeSettings writes the template with the level replaced.
func writeSettings(t *testing.T, path, level string) {
	t.Helper()

	src := strings.Replace(readTemplate(t), `level: "Fostral"`, `level: "`+level+`"`, 1)
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("write settings: %v", err)
	}
}

func setup(t *testing.T, opts ...Option) (*Reloader, *store.Snapshot, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	writeSettings(t, path, "Fostral")

	initial, err := settings.Load(path)
	if err != nil {
		t.Fatalf("initial load: %v", err)
	}
	snap, err := store.NewSnapshot(initial)
	if err != nil {
		t.Fatalf("new snapshot: %v", err)
	}
	return New(path, snap, zaptest.NewLogger(t), opts...), snap, path
}

func TestReloadPublishesNewSettings(t *testing.T) {
	t.Parallel()

	r, snap, path := setup(t)
	writeSettings(t, path, "Glorx")

	got, err := r.Reload(context.Background())
	if err != nil {
		t.Fatalf("Reload returned error: %v", err)
	}
	if got.Game.Level != "Glorx" {
		t.Fatalf("expected level Glorx, got %q", got.Game.Level)
	}
	if snap.Current() != got {
		t.Fatalf("expected reloaded settings to be current")
	}
	if snap.Version() != 2 {
		t.Fatalf("expected version 2, got %d", snap.Version())
	}
	if r.Path() != path {
		t.Fatalf("expected path %q, got %q", path, r.Path())
	}
}

func TestReloadKeepsPreviousSettingsOnFailure(t *testing.T) {
	t.Parallel()

	r, snap, path := setup(t)
	before := snap.Current()

	src := strings.Replace(readTemplate(t), "size: [1280, 800]", "size: [0, 800]", 1)
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("write settings: %v", err)
	}

	_, err := r.Reload(context.Background())
	if !errors.Is(err, settings.ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue, got %v", err)
	}
	if snap.Current() != before || snap.Version() != 1 {
		t.Fatalf("expected previous settings to stay in effect")
	}

	if err := os.Remove(path); err != nil {
		t.Fatalf("remove settings: %v", err)
	}
	if _, err := r.Reload(context.Background()); !errors.Is(err, settings.ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
	if snap.Current() != before {
		t.Fatalf("expected previous settings to stay in effect")
	}
}

func TestReloadThrottles(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	r, snap, _ := setup(t, WithLimit(0.001, 1), WithLoader(func(path string) (*settings.Settings, error) {
		calls.Add(1)
		return settings.Load(path)
	}))

	if _, err := r.Reload(context.Background()); err != nil {
		t.Fatalf("first reload returned error: %v", err)
	}
	if _, err := r.Reload(context.Background()); !errors.Is(err, ErrThrottled) {
		t.Fatalf("expected ErrThrottled, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single load, got %d", calls.Load())
	}
	if snap.Version() != 2 {
		t.Fatalf("expected throttled reload to leave the store alone, version %d", snap.Version())
	}
}

func TestWithLimitZeroDisablesThrottling(t *testing.T) {
	t.Parallel()

	r, _, _ := setup(t, WithLimit(1, 1), WithLimit(0, 0))
	for i := 0; i < 3; i++ {
		if _, err := r.Reload(context.Background()); err != nil {
			t.Fatalf("reload %d returned error: %v", i, err)
		}
	}
}

func TestReloadHonoursCancelledContext(t *testing.T) {
	t.Parallel()

	r, snap, _ := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := r.Reload(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if snap.Version() != 1 {
		t.Fatalf("expected store to be unchanged")
	}
}

func TestFocus(t *testing.T) {
	t.Parallel()

	r, snap, path := setup(t)
	writeSettings(t, path, "Necross")

	got, err := r.Focus(context.Background())
	if err != nil {
		t.Fatalf("Focus returned error: %v", err)
	}
	if got.Game.Level != "Necross" || snap.Current() != got {
		t.Fatalf("expected focus to reload settings")
	}
}

func TestFocusDisabled(t *testing.T) {
	t.Parallel()

	r, snap, path := setup(t)
	src := strings.Replace(readTemplate(t), "reload_on_focus: true", "reload_on_focus: false", 1)
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("write settings: %v", err)
	}
	if _, err := r.Reload(context.Background()); err != nil {
		t.Fatalf("Reload returned error: %v", err)
	}

	writeSettings(t, path, "Glorx")
	if _, err := r.Focus(context.Background()); !errors.Is(err, ErrReloadDisabled) {
		t.Fatalf("expected ErrReloadDisabled, got %v", err)
	}
	if snap.Current().Game.Level != "Fostral" {
		t.Fatalf("expected focus not to reload, level %q", snap.Current().Game.Level)
	}
}

func TestWatchReloadsOnWrite(t *testing.T) {
	t.Parallel()

	r, snap, path := setup(t, WithSettle(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- r.Watch(ctx)
	}()

	// The watcher may not be registered yet, so keep writing until it notices.
	deadline := time.After(5 * time.Second)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for snap.Current().Game.Level != "Glorx" {
		select {
		case <-deadline:
			cancel()
			t.Fatalf("watcher did not reload the settings")
		case <-ticker.C:
			writeSettings(t, path, "Glorx")
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Watch returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Watch did not stop after cancel")
	}
}

func TestWatchMissingDirectory(t *testing.T) {
	t.Parallel()

	r, _, _ := setup(t)
	r.path = filepath.Join(t.TempDir(), "missing", "settings.yaml")

	if err := r.Watch(context.Background()); err == nil {
		t.Fatalf("expected error for a missing directory")
	}
}

type recordingObserver struct {
	mu         sync.Mutex
	reloads    []string
	rejections []string
	version    uint64
}

func (o *recordingObserver) ObserveReload(trigger, result string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reloads = append(o.reloads, trigger+"/"+result)
}

func (o *recordingObserver) ObserveRejection(kind string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rejections = append(o.rejections, kind)
}

func (o *recordingObserver) SetVersion(v uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.version = v
}

func TestObserverSeesOutcomes(t *testing.T) {
	t.Parallel()

	obs := &recordingObserver{}
	r, _, path := setup(t, WithObserver(obs))
	if obs.version != 1 {
		t.Fatalf("expected initial version 1, got %d", obs.version)
	}

	if _, err := r.Reload(context.Background()); err != nil {
		t.Fatalf("Reload returned error: %v", err)
	}

	src := strings.Replace(readTemplate(t), "backend: Auto", "backend: Glide", 1)
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("write settings: %v", err)
	}
	if _, err := r.Focus(context.Background()); !errors.Is(err, settings.ErrUnknownVariant) {
		t.Fatalf("expected ErrUnknownVariant, got %v", err)
	}

	want := []string{"manual/ok", "focus/rejected"}
	if strings.Join(obs.reloads, ",") != strings.Join(want, ",") {
		t.Fatalf("expected %v, got %v", want, obs.reloads)
	}
	if len(obs.rejections) != 1 || obs.rejections[0] != "unknown_variant" {
		t.Fatalf("unexpected rejections %v", obs.rejections)
	}
	if obs.version != 2 {
		t.Fatalf("expected version 2, got %d", obs.version)
	}
}
