// Package ledger stores players' persistent point balances. Every
// implementation serializes read-modify-write per user and never lets a
// balance go negative.
package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/decred/slog"

	"github.com/pointsbot/holdem/pkg/poker"
)

// ErrInsufficientFunds is returned when an adjustment would make a balance
// negative. It is the same sentinel the poker engine uses.
var ErrInsufficientFunds = poker.ErrInsufficientFunds

// Ledger is the points store the game settles against.
type Ledger interface {
	// GetBalance returns a user's balance. Unknown users have a zero
	// balance.
	GetBalance(ctx context.Context, userID string) (int64, error)

	// AdjustBalance adds delta (which may be negative) to a user's balance
	// and returns the new balance. It fails with ErrInsufficientFunds,
	// changing nothing, if the result would be negative.
	AdjustBalance(ctx context.Context, userID string, delta int64, reason string) (int64, error)

	// Close releases any underlying resources.
	Close() error
}

// HandHistory is implemented by ledgers that can also archive hand logs.
type HandHistory interface {
	SaveHandLog(ctx context.Context, roomID string, handNum int, data []byte) error
	LoadHandLog(ctx context.Context, roomID string, handNum int) ([]byte, error)
}

// Kinds accepted by Open.
const (
	KindSQLite = "sqlite"
	KindFile   = "file"
	KindMemory = "memory"
)

// Open creates a ledger of the given kind. path is ignored for memory
// ledgers.
func Open(kind, path string, log slog.Logger) (Ledger, error) {
	switch kind {
	case KindSQLite:
		return NewSQLiteLedger(path, log)
	case KindFile:
		return NewFileLedger(path, log)
	case KindMemory:
		return NewMemoryLedger(nil), nil
	}
	return nil, fmt.Errorf("unknown ledger kind %q", kind)
}

// userLocks hands out one mutex per user, dropping it once nobody holds or
// waits on it.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	sync.Mutex
	refs int
}

// lock blocks until the user's lock is held and returns its release func.
func (l *userLocks) lock(userID string) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*userLock)
	}
	ul, ok := l.locks[userID]
	if !ok {
		ul = &userLock{}
		l.locks[userID] = ul
	}
	ul.refs++
	l.mu.Unlock()

	ul.Lock()
	return func() {
		ul.Unlock()
		l.mu.Lock()
		ul.refs--
		if ul.refs == 0 {
			delete(l.locks, userID)
		}
		l.mu.Unlock()
	}
}
