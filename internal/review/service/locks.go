package service

import "sync"

// personLocks serializes writes per person id. Entries are dropped once no
// caller holds or waits on them.
type personLocks struct {
	mu    sync.Mutex
	locks map[string]*personLock
}

type personLock struct {
	sync.Mutex
	refs int
}

func newPersonLocks() *personLocks {
	return &personLocks{locks: make(map[string]*personLock)}
}

// lock blocks until personID is free and returns its unlock func.
func (p *personLocks) lock(personID string) func() {
	p.mu.Lock()
	l, ok := p.locks[personID]
	if !ok {
		l = &personLock{}
		p.locks[personID] = l
	}
	l.refs++
	p.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		p.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(p.locks, personID)
		}
		p.mu.Unlock()
	}
}

func (p *personLocks) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.locks)
}
