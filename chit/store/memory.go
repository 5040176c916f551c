// Package store provides Storage implementations.
package store

import (
	"context"
	"sync"

	"github.com/warp/chitfund/chit"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu    sync.RWMutex
	funds []chit.Fund
	saves int

	// FailSave, when set, is returned by the next SaveAll instead of storing.
	FailSave error
}

func NewMemory(seed ...chit.Fund) *Memory {
	return &Memory{funds: chit.CloneAll(seed)}
}

func (m *Memory) LoadAll(_ context.Context) ([]chit.Fund, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return chit.CloneAll(m.funds), nil
}

// SaveAll replaces the stored collection.
func (m *Memory) SaveAll(_ context.Context, funds []chit.Fund) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailSave != nil {
		err := m.FailSave
		m.FailSave = nil
		return err
	}
	m.funds = chit.CloneAll(funds)
	m.saves++
	return nil
}

// Saves reports how many successful SaveAll calls were made.
func (m *Memory) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}
