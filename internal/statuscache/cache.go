package statuscache

import "sync"

// Store holds the last observed primary status text per member.
// Implementations must make Swap atomic per member.
type Store interface {
	Get(memberID string) (string, bool)
	// Set records text, or removes the entry when text is empty.
	Set(memberID, text string)
	// Swap records text (removing the entry when empty) and returns the previous entry.
	Swap(memberID, text string) (previous string, existed bool)
	Delete(memberID string)
	Len() int
}

// Memory is a process-lifetime Store. The zero value is not usable; call New.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]string
}

func New() *Memory {
	return &Memory{entries: make(map[string]string)}
}

func (m *Memory) Get(memberID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	text, ok := m.entries[memberID]
	return text, ok
}

func (m *Memory) Set(memberID, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setLocked(memberID, text)
}

func (m *Memory) Swap(memberID, text string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	previous, existed := m.entries[memberID]
	m.setLocked(memberID, text)
	return previous, existed
}

func (m *Memory) Delete(memberID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, memberID)
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *Memory) setLocked(memberID, text string) {
	if text == "" {
		delete(m.entries, memberID)
		return
	}
	m.entries[memberID] = text
}
