package lifecycle

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrLocked is returned when another run of the same job holds its lock.
	ErrLocked = errors.New("lifecycle: job is already running")
	// ErrLockLost is returned on release when the lock expired or was taken
	// over before the run finished.
	ErrLockLost = errors.New("lifecycle: job lock lost before release")
)

// Lock is a held job lock.
type Lock interface {
	Release(ctx context.Context) error
}

// Locker hands out named job locks. Acquire never waits: it returns
// ErrLocked when the name is held.
type Locker interface {
	Acquire(ctx context.Context, name string) (Lock, error)
}

// LocalLocker serializes job runs inside one process.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocalLocker returns an empty in-process locker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]struct{})}
}

// Acquire implements Locker.
func (l *LocalLocker) Acquire(_ context.Context, name string) (Lock, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[name]; ok {
		return nil, ErrLocked
	}
	l.held[name] = struct{}{}
	return &localLock{owner: l, name: name}, nil
}

type localLock struct {
	owner *LocalLocker
	name  string
	once  sync.Once
}

func (l *localLock) Release(context.Context) error {
	released := false
	l.once.Do(func() {
		l.owner.mu.Lock()
		delete(l.owner.held, l.name)
		l.owner.mu.Unlock()
		released = true
	})
	if !released {
		return ErrLockLost
	}
	return nil
}
