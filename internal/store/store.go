package store

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/eugenenazirov/vangers-settings/internal/settings"
)

var (
	// ErrNilSettings indicates an attempt to publish a nil settings value.
	ErrNilSettings = errors.New("settings snapshot must not be nil")
)

// Store provides access to the settings currently in effect.
type Store interface {
	Current() *settings.Settings
	Swap(next *settings.Settings) (*settings.Settings, error)
	Version() uint64
	UpdatedAt() time.Time
}

type snapshot struct {
	settings  *settings.Settings
	version   uint64
	updatedAt time.Time
}

// Snapshot publishes settings through a single atomic pointer. Readers get
// either the old or the new value in full, and a published value is never
// modified afterwards.
type Snapshot struct {
	current atomic.Pointer[snapshot]
	now     func() time.Time
}

// NewSnapshot initialises the store with the settings loaded at startup.
func NewSnapshot(initial *settings.Settings) (*Snapshot, error) {
	if initial == nil {
		return nil, ErrNilSettings
	}

	s := &Snapshot{now: time.Now}
	s.current.Store(&snapshot{settings: initial, version: 1, updatedAt: s.now()})
	return s, nil
}

// Current returns the settings in effect. The value must be treated as read-only.
func (s *Snapshot) Current() *settings.Settings {
	return s.current.Load().settings
}

// Swap publishes next and returns the value it replaced.
func (s *Snapshot) Swap(next *settings.Settings) (*settings.Settings, error) {
	if next == nil {
		return nil, ErrNilSettings
	}

	for {
		prev := s.current.Load()
		candidate := &snapshot{settings: next, version: prev.version + 1, updatedAt: s.now()}
		if s.current.CompareAndSwap(prev, candidate) {
			return prev.settings, nil
		}
	}
}

// Version counts successful publications, starting at 1 for the initial value.
func (s *Snapshot) Version() uint64 {
	return s.current.Load().version
}

// UpdatedAt reports when the current value was published.
func (s *Snapshot) UpdatedAt() time.Time {
	return s.current.Load().updatedAt
}
