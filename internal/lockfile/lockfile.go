// Package lockfile provides advisory whole-file locks around database
// commands.
//
// The lock is taken with flock(2) on a sibling file named <db>.lock, never
// on the database itself, because saves replace the database by rename.
// Writers take an exclusive lock, readers a shared one. Locks are released
// when the holder closes the lock file or exits.
package lockfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	"github.com/xtxerr/rrdb/config"
	"github.com/xtxerr/rrdb/internal/errors"
	"github.com/xtxerr/rrdb/internal/logging"
)

var log = logging.Component("lockfile")

// Mode selects shared or exclusive locking.
type Mode int

const (
	Shared Mode = iota
	Exclusive
)

func (m Mode) String() string {
	if m == Exclusive {
		return "exclusive"
	}
	return "shared"
}

func (m Mode) how() int {
	if m == Exclusive {
		return unix.LOCK_EX
	}
	return unix.LOCK_SH
}

// Lock is a held advisory lock.
type Lock struct {
	path string
	mode Mode
	file *os.File
}

// Path returns the lock file path for a database path.
func Path(dbPath string) string {
	return dbPath + config.LockSuffix
}

// Acquire locks dbPath in the given mode, polling until timeout expires.
// A zero timeout tries once. ErrLockTimeout is returned when the lock is
// still held by someone else at the deadline.
//
// A shared lock requires the database to exist; otherwise ErrNotFound is
// returned and no lock file is created.
func Acquire(ctx context.Context, dbPath string, mode Mode, timeout time.Duration) (*Lock, error) {
	path := Path(dbPath)

	if mode == Shared {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, errors.NewNotFound("database", dbPath)
		}
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, config.DefaultFileMode)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.NewNotFound("directory", filepath.Dir(path)), "open lock file")
		}
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	deadline := time.Now().Add(timeout)
	for attempt := 0; ; attempt++ {
		err := unix.Flock(int(f.Fd()), mode.how()|unix.LOCK_NB)
		if err == nil {
			if attempt > 0 {
				log.Debug("lock acquired after waiting", "path", path, "mode", mode, "attempts", attempt+1)
			}
			return &Lock{path: path, mode: mode, file: f}, nil
		}
		if err == unix.EINTR {
			continue
		}
		if err != unix.EWOULDBLOCK {
			f.Close()
			return nil, fmt.Errorf("flock %s: %w", path, err)
		}

		if !time.Now().Before(deadline) {
			f.Close()
			return nil, fmt.Errorf("%s lock on %s after %v: %w", mode, path, timeout, errors.ErrLockTimeout)
		}

		wait := config.DefaultLockRetryInterval
		if left := time.Until(deadline); left < wait {
			wait = left
		}
		select {
		case <-ctx.Done():
			f.Close()
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
}

// Mode returns the mode the lock was taken in.
func (l *Lock) Mode() Mode {
	return l.mode
}

// Release unlocks and closes the lock file. It is safe to call twice.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	f := l.file
	l.file = nil

	if err := unix.Flock(int(f.Fd()), unix.LOCK_UN); err != nil {
		f.Close()
		return fmt.Errorf("unlock %s: %w", l.path, err)
	}
	return f.Close()
}

// With runs fn while holding the lock on dbPath.
func With(ctx context.Context, dbPath string, mode Mode, timeout time.Duration, fn func() error) error {
	l, err := Acquire(ctx, dbPath, mode, timeout)
	if err != nil {
		return err
	}
	defer func() {
		if err := l.Release(); err != nil {
			log.Warn("release lock", "path", l.path, "error", err)
		}
	}()
	return fn()
}
