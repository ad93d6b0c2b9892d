package lock

import (
	"context"
	"sync"
)

// LocalKeyLocker serializes work per key within a single process.
type LocalKeyLocker struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch      chan struct{} // holds one token while the key is locked
	waiters int
}

// NewLocalKeyLocker creates an empty LocalKeyLocker.
func NewLocalKeyLocker() *LocalKeyLocker {
	return &LocalKeyLocker{slots: make(map[string]*slot)}
}

// Lock blocks until key is free or ctx is done.
func (l *LocalKeyLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.waiters++
	l.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, s, false)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(key, s, true) })
	}, nil
}

func (l *LocalKeyLocker) release(key string, s *slot, held bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if held {
		<-s.ch
	}
	s.waiters--
	if s.waiters == 0 {
		delete(l.slots, key)
	}
}

// Len returns the number of keys currently held or waited on.
func (l *LocalKeyLocker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}
