package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/01phanto/EcoLedger/pkg/contracts"
)

// MemoryLog keeps entries in process memory. It is used in tests and for ephemeral nodes.
type MemoryLog struct {
	mu      sync.RWMutex
	entries map[contracts.Kind][]contracts.Entry
	ids     map[contracts.Kind]map[string]struct{}
	closed  bool
}

func NewMemoryLog() *MemoryLog {
	return &MemoryLog{
		entries: make(map[contracts.Kind][]contracts.Entry),
		ids:     make(map[contracts.Kind]map[string]struct{}),
	}
}

func (m *MemoryLog) Append(_ context.Context, e contracts.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	seq := m.entries[e.Kind]
	if e.BlockNumber != uint64(len(seq))+1 {
		return fmt.Errorf("%w: %s block %d, tail is %d", ErrConflict, e.Kind, e.BlockNumber, len(seq))
	}
	if _, dup := m.ids[e.Kind][e.ID]; dup {
		return fmt.Errorf("%w: %s id %q exists", ErrConflict, e.Kind, e.ID)
	}
	if m.ids[e.Kind] == nil {
		m.ids[e.Kind] = make(map[string]struct{})
	}

	e.Payload = append([]byte(nil), e.Payload...)
	m.entries[e.Kind] = append(seq, e)
	m.ids[e.Kind][e.ID] = struct{}{}
	return nil
}

func (m *MemoryLog) Scan(ctx context.Context, kind contracts.Kind, fn func(contracts.Entry) error) error {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return ErrClosed
	}
	seq := append([]contracts.Entry(nil), m.entries[kind]...)
	m.mu.RUnlock()

	for _, e := range seq {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryLog) Backend() string { return "memory" }

func (m *MemoryLog) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
