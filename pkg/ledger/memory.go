package ledger

import (
	"context"
	"fmt"
	"sync"
)

// MemoryLedger keeps balances in memory. It is used by tests and the
// hot-seat client.
type MemoryLedger struct {
	locks userLocks

	mu       sync.Mutex
	balances map[string]int64
	hands    map[string][]byte
}

// NewMemoryLedger returns a ledger seeded with the given balances.
func NewMemoryLedger(initial map[string]int64) *MemoryLedger {
	m := &MemoryLedger{
		balances: make(map[string]int64, len(initial)),
		hands:    make(map[string][]byte),
	}
	for id, b := range initial {
		m.balances[id] = b
	}
	return m
}

func (m *MemoryLedger) GetBalance(ctx context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[userID], nil
}

func (m *MemoryLedger) AdjustBalance(ctx context.Context, userID string, delta int64, reason string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	unlock := m.locks.lock(userID)
	defer unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	bal := m.balances[userID] + delta
	if bal < 0 {
		return m.balances[userID], fmt.Errorf("%w: %s has %d, needs %d", ErrInsufficientFunds,
			userID, m.balances[userID], -delta)
	}
	m.balances[userID] = bal
	return bal, nil
}

// Balances returns a copy of every balance.
func (m *MemoryLedger) Balances() map[string]int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int64, len(m.balances))
	for id, b := range m.balances {
		out[id] = b
	}
	return out
}

func (m *MemoryLedger) SaveHandLog(ctx context.Context, roomID string, handNum int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands[fmt.Sprintf("%s/%d", roomID, handNum)] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryLedger) LoadHandLog(ctx context.Context, roomID string, handNum int) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.hands[fmt.Sprintf("%s/%d", roomID, handNum)]
	if !ok {
		return nil, fmt.Errorf("hand %d of room %s not found", handNum, roomID)
	}
	return data, nil
}

func (m *MemoryLedger) Close() error {
	return nil
}
