package credstore

import (
	"context"
	"sync"
)

// Memory keeps credentials for the lifetime of the process.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]string
	changes []chan struct{}
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]string)}
}

func (m *Memory) Put(c Credentials) error {
	if err := c.validate(); err != nil {
		return err
	}
	entries, err := encodeEntries(c)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.entries = entries
	m.mu.Unlock()
	m.notify()
	return nil
}

func (m *Memory) Get() (*Credentials, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return decodeEntries(m.entries)
}

func (m *Memory) Clear() error {
	m.mu.Lock()
	m.entries = make(map[string]string)
	m.mu.Unlock()
	m.notify()
	return nil
}

func (m *Memory) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.entries[KeyUser] == "" {
		return ""
	}
	return m.entries[KeyToken]
}

// SetRaw writes a single key, bypassing the paired write. Only useful to
// simulate a half-written store.
func (m *Memory) SetRaw(key, value string) {
	m.mu.Lock()
	m.entries[key] = value
	m.mu.Unlock()
}

func (m *Memory) notify() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, ch := range m.changes {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Watch delivers a signal after every Put or Clear until ctx is done.
func (m *Memory) Watch(ctx context.Context) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)
	m.mu.Lock()
	m.changes = append(m.changes, ch)
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, c := range m.changes {
			if c == ch {
				m.changes = append(m.changes[:i], m.changes[i+1:]...)
				break
			}
		}
		close(ch)
	}()
	return ch, nil
}
