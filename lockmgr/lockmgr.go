// Package lockmgr implements the named exclusive lock spec.md §6
// requires: carversyncd refuses to run two instances against the same
// store concurrently, since the engine is explicitly single-writer
// (spec.md §5).
package lockmgr

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
)

// Manager holds one flock.Flock per named resource that has ever been
// locked through it, so Unlock can find the handle Lock created.
type Manager struct {
	dir string

	mu    sync.Mutex
	locks map[string]*flock.Flock
}

// New returns a Manager whose lockfiles live under dir.
func New(dir string) *Manager {
	return &Manager{dir: dir, locks: make(map[string]*flock.Flock)}
}

// Lock acquires the named exclusive lock, failing immediately (no
// blocking wait) if another process already holds it.
func (m *Manager) Lock(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	fl, ok := m.locks[name]
	if !ok {
		fl = flock.New(filepath.Join(m.dir, name+".lock"))
		m.locks[name] = fl
	}

	locked, err := fl.TryLock()
	if err != nil {
		return errors.Wrapf(err, "acquiring lock %q", name)
	}
	if !locked {
		return fmt.Errorf("lock %q is already held by another process", name)
	}
	return nil
}

// Unlock releases the named lock. It is idempotent: unlocking a name
// that was never locked, or is already unlocked, silently succeeds
// (spec.md §6).
func (m *Manager) Unlock(name string) error {
	m.mu.Lock()
	fl, ok := m.locks[name]
	m.mu.Unlock()
	if !ok {
		return nil
	}

	if !fl.Locked() {
		return nil
	}
	if err := fl.Unlock(); err != nil {
		return errors.Wrapf(err, "releasing lock %q", name)
	}
	return nil
}
