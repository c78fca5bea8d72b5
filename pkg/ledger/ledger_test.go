package ledger

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openLedgers(t *testing.T) map[string]Ledger {
	t.Helper()
	dir := t.TempDir()

	sqlite, err := NewSQLiteLedger(filepath.Join(dir, "ledger.db"), nil)
	require.NoError(t, err)
	file, err := NewFileLedger(filepath.Join(dir, "data", "points.json"), nil)
	require.NoError(t, err)

	ledgers := map[string]Ledger{
		KindSQLite: sqlite,
		KindFile:   file,
		KindMemory: NewMemoryLedger(nil),
	}
	t.Cleanup(func() {
		for _, l := range ledgers {
			l.Close()
		}
	})
	return ledgers
}

func TestLedgerBalances(t *testing.T) {
	ctx := context.Background()
	for kind, l := range openLedgers(t) {
		t.Run(kind, func(t *testing.T) {
			bal, err := l.GetBalance(ctx, "alice")
			require.NoError(t, err)
			assert.Zero(t, bal, "unknown users start at zero")

			bal, err = l.AdjustBalance(ctx, "alice", 500, "grant")
			require.NoError(t, err)
			assert.Equal(t, int64(500), bal)

			bal, err = l.AdjustBalance(ctx, "alice", -200, "hand 1")
			require.NoError(t, err)
			assert.Equal(t, int64(300), bal)

			_, err = l.AdjustBalance(ctx, "alice", -301, "hand 2")
			require.ErrorIs(t, err, ErrInsufficientFunds)

			bal, err = l.GetBalance(ctx, "alice")
			require.NoError(t, err)
			assert.Equal(t, int64(300), bal, "failed debit must not change the balance")
		})
	}
}

func TestLedgerConcurrentAdjustments(t *testing.T) {
	ctx := context.Background()
	for kind, l := range openLedgers(t) {
		t.Run(kind, func(t *testing.T) {
			_, err := l.AdjustBalance(ctx, "bob", 1000, "grant")
			require.NoError(t, err)

			var wg sync.WaitGroup
			for i := 0; i < 50; i++ {
				wg.Add(2)
				go func() {
					defer wg.Done()
					_, err := l.AdjustBalance(ctx, "bob", 3, "win")
					assert.NoError(t, err)
				}()
				go func() {
					defer wg.Done()
					_, err := l.AdjustBalance(ctx, "bob", -1, "loss")
					assert.NoError(t, err)
				}()
			}
			wg.Wait()

			bal, err := l.GetBalance(ctx, "bob")
			require.NoError(t, err)
			assert.Equal(t, int64(1100), bal)
		})
	}
}

func TestFileLedgerPersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "points.json")

	l, err := NewFileLedger(path, nil)
	require.NoError(t, err)
	_, err = l.AdjustBalance(ctx, "carol", 42, "grant")
	require.NoError(t, err)

	reopened, err := NewFileLedger(path, nil)
	require.NoError(t, err)
	bal, err := reopened.GetBalance(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, int64(42), bal)
}

func TestSQLiteLedgerHistory(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")

	l, err := NewSQLiteLedger(path, nil)
	require.NoError(t, err)
	_, err = l.AdjustBalance(ctx, "dave", 100, "grant")
	require.NoError(t, err)
	_, err = l.AdjustBalance(ctx, "dave", -30, "room r1 hand 1")
	require.NoError(t, err)

	txs, err := l.Transactions(ctx, "dave", 10)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, int64(-30), txs[0].Amount)
	assert.Equal(t, "debit", txs[0].Type)
	assert.Equal(t, "room r1 hand 1", txs[0].Description)
	assert.Equal(t, "credit", txs[1].Type)

	require.NoError(t, l.SaveHandLog(ctx, "r1", 1, []byte(`{"hand_num":1}`)))
	data, err := l.LoadHandLog(ctx, "r1", 1)
	require.NoError(t, err)
	assert.JSONEq(t, `{"hand_num":1}`, string(data))
	_, err = l.LoadHandLog(ctx, "r1", 2)
	assert.Error(t, err)
	require.NoError(t, l.Close())

	reopened, err := NewSQLiteLedger(path, nil)
	require.NoError(t, err)
	defer reopened.Close()
	bal, err := reopened.GetBalance(ctx, "dave")
	require.NoError(t, err)
	assert.Equal(t, int64(70), bal)
}

func TestOpenUnknownKind(t *testing.T) {
	_, err := Open("redis", "", nil)
	require.Error(t, err)

	l, err := Open(KindMemory, "", nil)
	require.NoError(t, err)
	require.IsType(t, &MemoryLedger{}, l)
}

func TestUserLocksAreReleased(t *testing.T) {
	var locks userLocks
	unlock := locks.lock("x")
	unlock()
	unlock = locks.lock("x")
	unlock()

	locks.mu.Lock()
	defer locks.mu.Unlock()
	assert.Empty(t, locks.locks)
}
