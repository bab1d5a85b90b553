package annotation

import "sync"

// pageLocks is a keyed lock table. Entries are created on demand and dropped
// when the last holder or waiter releases, so the table stays bounded by the
// number of pages being written concurrently.
type pageLocks struct {
	mu    sync.Mutex
	locks map[string]*pageLock
}

type pageLock struct {
	mu   sync.Mutex
	refs int
}

func newPageLocks() *pageLocks {
	return &pageLocks{locks: make(map[string]*pageLock)}
}

// lock acquires the mutex for pageID and returns its release func.
func (t *pageLocks) lock(pageID string) func() {
	t.mu.Lock()
	l, ok := t.locks[pageID]
	if !ok {
		l = &pageLock{}
		t.locks[pageID] = l
	}
	l.refs++
	t.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		t.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(t.locks, pageID)
		}
		t.mu.Unlock()
	}
}

// size returns the number of live entries.
func (t *pageLocks) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.locks)
}
