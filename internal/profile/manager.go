package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// StorageKey is the key the profile document is stored under.
const StorageKey = "cogniweave-profile"

// ErrNoProfile is returned when no profile has been stored yet.
var ErrNoProfile = errors.New("no profile stored")

// ProfileStore defines the storage operations the Manager needs.
// Implemented by storage.Store. A missing key is reported as an error that
// the isNotFound func given to NewManager recognises.
type ProfileStore interface {
	SetProfileKey(key, value string) error
	GetProfileKey(key string) (string, error)
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Manager holds the single profile record. Reads are cached; every write
// goes straight to the store and invalidates the cache.
type Manager struct {
	store    ProfileStore
	notFound func(error) bool
	clock    Clock
	ttl      time.Duration
	logger   *slog.Logger

	// writeMu serialises read-modify-write sequences (Merge, Reset, Set).
	writeMu sync.Mutex

	mu       sync.RWMutex
	cached   *Profile
	cachedAt time.Time
}

// NewManager creates a Manager with a 60-second cache TTL. isNotFound reports
// whether an error from GetProfileKey means the key is absent.
func NewManager(store ProfileStore, isNotFound func(error) bool) *Manager {
	return NewManagerWithClock(store, isNotFound, realClock{}, 60*time.Second)
}

// NewManagerWithClock creates a Manager with a custom clock (for testing).
func NewManagerWithClock(store ProfileStore, isNotFound func(error) bool, clock Clock, ttl time.Duration) *Manager {
	if isNotFound == nil {
		isNotFound = func(error) bool { return false }
	}
	return &Manager{
		store:    store,
		notFound: isNotFound,
		clock:    clock,
		ttl:      ttl,
		logger:   slog.Default(),
	}
}

// Get returns the stored profile, or ErrNoProfile if there is none. A stored
// document that no longer parses is logged and replaced by Default.
func (m *Manager) Get() (Profile, error) {
	m.mu.RLock()
	if m.cached != nil && m.clock.Now().Before(m.cachedAt.Add(m.ttl)) {
		p := *m.cached
		m.mu.RUnlock()
		return p, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cached != nil && m.clock.Now().Before(m.cachedAt.Add(m.ttl)) {
		return *m.cached, nil
	}

	raw, err := m.store.GetProfileKey(StorageKey)
	if err != nil {
		if m.notFound(err) {
			return Profile{}, ErrNoProfile
		}
		return Profile{}, fmt.Errorf("loading profile: %w", err)
	}
	if raw == "" {
		return Profile{}, ErrNoProfile
	}

	p, err := Parse([]byte(raw))
	if err != nil {
		m.logger.Warn("stored profile is malformed, using defaults", "error", err)
		p = Default()
	}

	m.cached = &p
	m.cachedAt = m.clock.Now()
	return p, nil
}

// Set validates and persists a complete profile.
func (m *Manager) Set(p Profile) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return m.set(p)
}

func (m *Manager) set(p Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshalling profile: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.SetProfileKey(StorageKey, string(b)); err != nil {
		return fmt.Errorf("saving profile: %w", err)
	}
	m.cached = nil
	return nil
}

// Merge deep-merges a partial JSON document into the stored profile and
// persists the result. It needs an existing profile to merge into.
func (m *Manager) Merge(patch []byte) (Profile, error) {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	current, err := m.Get()
	if err != nil {
		return Profile{}, err
	}
	merged, err := Merge(current, patch)
	if err != nil {
		return Profile{}, err
	}
	if err := m.set(merged); err != nil {
		return Profile{}, err
	}
	return merged, nil
}

// Reset overwrites the stored profile with Default.
func (m *Manager) Reset() (Profile, error) {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	p := Default()
	if err := m.set(p); err != nil {
		return Profile{}, err
	}
	return p, nil
}
