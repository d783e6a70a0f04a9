// Package lock provides the commit-time locks guarding the shared working tree.
//
// Both locks wait for a bounded time and fail with core.ErrLockContention
// instead of blocking forever.
package lock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jpillora/backoff"

	"github.com/aretw0/rowgit/pkg/core"
)

// File is a cross-process lock based on the atomic creation of a lock file.
type File struct {
	path string
}

// NewFile creates a lock guarded by the file at path.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the lock file location.
func (l *File) Path() string {
	return l.path
}

// Acquire creates the lock file, retrying with exponential backoff until
// timeout expires or ctx is done.
func (l *File) Acquire(ctx context.Context, timeout time.Duration) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	deadline := time.Now().Add(timeout)
	b := &backoff.Backoff{
		Min:    2 * time.Millisecond,
		Max:    100 * time.Millisecond,
		Factor: 2,
		Jitter: true,
	}

	for {
		f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0666)
		if err == nil {
			fmt.Fprintf(f, "%d\n", os.Getpid())
			f.Close()
			return func() {
				os.Remove(l.path)
			}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("failed to acquire lock: %w", err)
		}

		wait := b.Duration()
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, fmt.Errorf("%w: %s held for more than %s", core.ErrLockContention, l.path, timeout)
		}
		if wait > remaining {
			wait = remaining
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", core.ErrLockContention, ctx.Err())
		case <-time.After(wait):
		}
	}
}

// Mutex is an in-process lock with a bounded wait.
type Mutex struct {
	ch chan struct{}
}

// NewMutex creates an unlocked Mutex.
func NewMutex() *Mutex {
	return &Mutex{ch: make(chan struct{}, 1)}
}

// Acquire takes the mutex, waiting at most timeout.
func (m *Mutex) Acquire(ctx context.Context, timeout time.Duration) (func(), error) {
	select {
	case m.ch <- struct{}{}:
		return m.release, nil
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case m.ch <- struct{}{}:
		return m.release, nil
	case <-timer.C:
		return nil, fmt.Errorf("%w: held for more than %s", core.ErrLockContention, timeout)
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", core.ErrLockContention, ctx.Err())
	}
}

func (m *Mutex) release() {
	<-m.ch
}
