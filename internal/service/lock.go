package service

import "sync"

// idLocks is a reference-counted keyed mutex. The orchestrator holds a
// document's lock for the whole Update or Delete call so the two cannot
// interleave on the same id within one process; the repository's version
// check covers writers in other processes.
type idLocks struct {
	mu   sync.Mutex
	held map[string]*idLock
}

type idLock struct {
	mu   sync.Mutex
	refs int
}

func newIDLocks() *idLocks {
	return &idLocks{held: make(map[string]*idLock)}
}

// Lock acquires the mutex for id, creating it on first use.
func (l *idLocks) Lock(id string) {
	l.mu.Lock()
	e, ok := l.held[id]
	if !ok {
		e = &idLock{}
		l.held[id] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
}

// Unlock releases the mutex for id and discards it once unreferenced.
func (l *idLocks) Unlock(id string) {
	l.mu.Lock()
	e := l.held[id]
	e.refs--
	if e.refs == 0 {
		delete(l.held, id)
	}
	l.mu.Unlock()

	e.mu.Unlock()
}
