package concurrency

import "sync"

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

// KeyedLocker serializes work per key. Entries are released once no goroutine holds
// or waits on them, so the map stays proportional to in-flight keys.
type KeyedLocker struct {
	locks map[string]*keyedLock
	mu    sync.Mutex
}

func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{
		locks: make(map[string]*keyedLock),
	}
}

func (m *KeyedLocker) Lock(key string) {
	m.mu.Lock()
	lock, ok := m.locks[key]
	if !ok {
		lock = &keyedLock{}
		m.locks[key] = lock
	}
	lock.refs++
	m.mu.Unlock()
	lock.mu.Lock()
}

func (m *KeyedLocker) Unlock(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, ok := m.locks[key]
	if !ok {
		return
	}
	lock.refs--
	if lock.refs <= 0 {
		delete(m.locks, key)
	}
	lock.mu.Unlock()
}

// Len returns the number of keys currently held or waited on.
func (m *KeyedLocker) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
