package claims

import "sync"

// contractLocks serializes read-modify-write sequences per contract,
// most importantly the "read max claim number, then save" step.
type contractLocks struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newContractLocks() *contractLocks {
	return &contractLocks{locks: make(map[string]*lockEntry)}
}

// lock blocks until the contract's lock is held and returns its release func.
func (l *contractLocks) lock(contractID string) func() {
	l.mu.Lock()
	entry, ok := l.locks[contractID]
	if !ok {
		entry = &lockEntry{}
		l.locks[contractID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, contractID)
		}
		l.mu.Unlock()
	}
}
