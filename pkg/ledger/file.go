package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/decred/slog"
)

// FileLedger stores balances as a JSON object of user ID to points. Every
// change rewrites the file through a temporary file and rename, so a crash
// leaves either the old or the new contents.
type FileLedger struct {
	log   slog.Logger
	path  string
	locks userLocks

	mu       sync.Mutex
	balances map[string]int64
}

// NewFileLedger opens (or creates) the ledger file at path.
func NewFileLedger(path string, log slog.Logger) (*FileLedger, error) {
	if log == nil {
		log = slog.Disabled
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}
	f := &FileLedger{
		log:      log,
		path:     path,
		balances: make(map[string]int64),
	}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Infof("Creating points file %s", path)
		if err := f.writeLocked(); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("failed to read points file: %w", err)
	case len(data) > 0:
		if err := json.Unmarshal(data, &f.balances); err != nil {
			return nil, fmt.Errorf("failed to parse points file %s: %w", path, err)
		}
	}
	return f, nil
}

// GetBalance returns the player's balance, zero for unknown players.
func (f *FileLedger) GetBalance(ctx context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[userID], nil
}

// AdjustBalance applies delta and rewrites the file. A change that would
// leave the balance negative fails with ErrInsufficientFunds.
func (f *FileLedger) AdjustBalance(ctx context.Context, userID string, delta int64, reason string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	unlock := f.locks.lock(userID)
	defer unlock()

	f.mu.Lock()
	defer f.mu.Unlock()
	old := f.balances[userID]
	bal := old + delta
	if bal < 0 {
		return old, fmt.Errorf("%w: %s has %d, needs %d", ErrInsufficientFunds, userID, old, -delta)
	}
	f.balances[userID] = bal
	if err := f.writeLocked(); err != nil {
		f.balances[userID] = old
		return old, err
	}
	f.log.Debugf("Adjusted %s by %d (%s): %d", userID, delta, reason, bal)
	return bal, nil
}

// writeLocked persists the balances. Callers hold f.mu.
func (f *FileLedger) writeLocked() error {
	data, err := json.MarshalIndent(f.balances, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".points-*.json")
	if err != nil {
		return fmt.Errorf("failed to write points file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write points file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write points file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace points file: %w", err)
	}
	return nil
}

// Close is a no-op; every change is already on disk.
func (f *FileLedger) Close() error {
	return nil
}
