// Package runlock enforces single-instance execution per ledger directory.
// The ledger has no in-file locking, so two engines appending concurrently
// would corrupt the bookkeeping; the flock here turns the deployment
// constraint into a startup check.
package runlock

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// LockFile is the base name of the lock inside the ledger directory.
const LockFile = "forager.lock"

// Lock is a held run lock.
type Lock struct {
	fl   *flock.Flock
	path string
}

// Acquire takes the run lock for dir, failing fast if another instance
// holds it.
func Acquire(dir string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}

	path := filepath.Join(dir, LockFile)
	fl := flock.New(path)

	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("another instance is already running against %s", dir)
	}

	return &Lock{fl: fl, path: path}, nil
}

// Release drops the lock. The lock file itself is left in place.
func (l *Lock) Release() error {
	return l.fl.Unlock()
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}
