package registry

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Memory is an in-memory Registry for tests.
type Memory struct {
	mu      sync.Mutex
	entries map[string]Entry
	seq     int

	// Delay, when set, makes Record block for the given duration or until
	// ctx expires, whichever comes first. Used to exercise timeouts.
	Delay time.Duration

	// FailWith, when set, makes every Record fail with the given error.
	FailWith error
}

// NewMemory creates an empty in-memory registry.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]Entry)}
}

// Record implements Registry.
func (m *Memory) Record(ctx context.Context, identity, cid string) (Entry, error) {
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return Entry{}, ctx.Err()
		}
	}

	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWith != nil {
		return Entry{}, m.FailWith
	}

	if _, exists := m.entries[identity]; exists {
		return Entry{}, fmt.Errorf("%w: %s", ErrAlreadyRecorded, identity)
	}

	m.seq++
	e := Entry{Identity: identity, CID: cid, Ref: fmt.Sprintf("mem:%d", m.seq)}
	m.entries[identity] = e

	return e, nil
}

// Lookup implements Registry.
func (m *Memory) Lookup(_ context.Context, identity string) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[identity]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, identity)
	}

	return e, nil
}

// Len returns the number of recorded entries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.entries)
}

var _ Registry = (*Memory)(nil)
