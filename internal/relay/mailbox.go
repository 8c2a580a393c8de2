package relay

import "sync"

// Mailbox holds at most one value. Put overwrites; Take removes atomically.
type Mailbox[T any] struct {
	mu    sync.Mutex
	value T
	full  bool
}

func (m *Mailbox[T]) Put(v T) (replaced bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	replaced = m.full
	m.value = v
	m.full = true
	return replaced
}

func (m *Mailbox[T]) Take() (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero T
	if !m.full {
		return zero, false
	}
	v := m.value
	m.value = zero
	m.full = false
	return v, true
}

func (m *Mailbox[T]) Pending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.full
}
