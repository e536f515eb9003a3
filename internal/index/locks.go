// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"context"
	"sync"
)

// keyedLocks serializes work per index name. Different names never block
// each other. Idle names are dropped from the map.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	sem  chan struct{}
	refs int
}

// acquire blocks until name is free or ctx is done. The returned release
// function is idempotent.
func (k *keyedLocks) acquire(ctx context.Context, name string) (func(), error) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyedLock)
	}
	l, ok := k.locks[name]
	if !ok {
		l = &keyedLock{sem: make(chan struct{}, 1)}
		k.locks[name] = l
	}
	l.refs++
	k.mu.Unlock()

	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		k.unref(name, l)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.sem
			k.unref(name, l)
		})
	}, nil
}

func (k *keyedLocks) unref(name string, l *keyedLock) {
	k.mu.Lock()
	defer k.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(k.locks, name)
	}
}
