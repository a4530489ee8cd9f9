package application

import "sync"

// groupLocks serializes queue mutations per group. Two concurrent runs for
// the same group would race on the delete-then-insert step; runs for
// different groups stay independent.
type groupLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newGroupLocks() *groupLocks {
	return &groupLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire blocks until the group's lock is held and returns the release
// function.
func (g *groupLocks) acquire(groupID string) func() {
	g.mu.Lock()
	lock, ok := g.locks[groupID]
	if !ok {
		lock = &sync.Mutex{}
		g.locks[groupID] = lock
	}
	g.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
