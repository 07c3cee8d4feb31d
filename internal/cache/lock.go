package cache

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/agentmemory/agentmemory/internal/errs"
)

// DefaultLockPollInterval is how often SyncLock.Acquire retries TryLock while
// waiting for a concurrent sync to finish.
const DefaultLockPollInterval = 100 * time.Millisecond

// SyncLock is the exclusive, cross-process file lock guarding the indexer
// (§4.8, §5 "the sync lock linearizes writers").
type SyncLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewSyncLock returns a lock bound to the file at path (typically
// `.agentmemory/sync.lock`, via workspace.LockPath).
func NewSyncLock(path string) *SyncLock {
	return &SyncLock{path: path, flock: flock.New(path)}
}

// Acquire blocks until the lock is held or ctx's deadline/cancellation
// fires, polling TryLock at DefaultLockPollInterval. Waiters that exceed the
// deadline return a ConcurrencyDenied error rather than blocking forever.
func (l *SyncLock) Acquire(ctx context.Context) error {
	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errs.Wrap(errs.CodeInternal, err)
		}
	}

	ticker := time.NewTicker(DefaultLockPollInterval)
	defer ticker.Stop()

	for {
		ok, err := l.flock.TryLock()
		if err != nil {
			return errs.Wrap(errs.CodeInternal, err)
		}
		if ok {
			l.locked = true
			return nil
		}

		select {
		case <-ctx.Done():
			return errs.New(errs.CodeConcurrencyDenied, "sync lock held and timeout exceeded", ctx.Err())
		case <-ticker.C:
		}
	}
}

// Release unlocks the file. Safe to call multiple times or when not held —
// callers MUST release on both the success and failure paths (§4.8).
func (l *SyncLock) Release() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return errs.Wrap(errs.CodeInternal, err)
	}
	return nil
}

// Locked reports whether this handle currently holds the lock.
func (l *SyncLock) Locked() bool {
	return l.locked
}

// Path returns the lock file's path.
func (l *SyncLock) Path() string {
	return l.path
}
