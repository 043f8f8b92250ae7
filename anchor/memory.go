package anchor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
)

// Memory is an in-memory Store for tests. Content is addressed by its
// SHA-256 digest so pinning the same document twice yields the same CID.
type Memory struct {
	mu      sync.Mutex
	objects map[string][]byte

	// FailWith, when set, makes every pin fail with the given error.
	FailWith error
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string][]byte)}
}

// PinJSON implements Store.
func (m *Memory) PinJSON(ctx context.Context, name string, v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("%w: marshaling payload: %v", ErrUpload, err)
	}
	return m.PinBytes(ctx, name, data)
}

// PinBytes implements Store.
func (m *Memory) PinBytes(_ context.Context, _ string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWith != nil {
		return "", fmt.Errorf("%w: %w", ErrUpload, m.FailWith)
	}

	sum := sha256.Sum256(data)
	cid := hex.EncodeToString(sum[:])
	m.objects[cid] = append([]byte(nil), data...)

	return cid, nil
}

// Get returns the pinned content for a CID.
func (m *Memory) Get(cid string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.objects[cid]
	return data, ok
}

// Len returns the number of pinned objects.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.objects)
}

var _ Store = (*Memory)(nil)
