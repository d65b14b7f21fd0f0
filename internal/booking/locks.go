package booking

import "sync"

// eventLocks hands out one mutex per event name so reserve/cancel and catalog
// edits for the same event serialize while different events proceed in
// parallel. Locks are never released from the map; the set is bounded by the
// number of distinct event names seen.
type eventLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newEventLocks() *eventLocks {
	return &eventLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the named event and returns the matching unlock.
func (l *eventLocks) acquire(name string) func() {
	l.mu.Lock()
	lock, ok := l.locks[name]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[name] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
