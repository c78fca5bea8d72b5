package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/decred/slog"
	_ "github.com/mattn/go-sqlite3"
)

// Transaction is one recorded balance change.
type Transaction struct {
	ID          int64
	PlayerID    string
	Amount      int64
	Type        string
	Description string
	CreatedAt   string
}

// SQLiteLedger keeps balances and a transaction history in SQLite.
type SQLiteLedger struct {
	db    *sql.DB
	log   slog.Logger
	locks userLocks
}

// NewSQLiteLedger opens the database at dbPath, creating it and its tables
// if needed.
func NewSQLiteLedger(dbPath string, log slog.Logger) (*SQLiteLedger, error) {
	if log == nil {
		log = slog.Disabled
	}
	// Ensure the directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer; one connection avoids "database is
	// locked" between our own transactions.
	db.SetMaxOpenConns(1)

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	log.Infof("Opened ledger database %s", dbPath)
	return &SQLiteLedger{db: db, log: log}, nil
}

// createTables creates the necessary database tables
func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS players (
			id TEXT PRIMARY KEY,
			balance INTEGER NOT NULL DEFAULT 0 CHECK (balance >= 0),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS transactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			player_id TEXT NOT NULL,
			amount INTEGER NOT NULL,
			type TEXT NOT NULL,
			description TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (player_id) REFERENCES players(id)
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS hand_logs (
			room_id TEXT NOT NULL,
			hand_num INTEGER NOT NULL,
			data TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (room_id, hand_num)
		)
	`)
	return err
}

// GetBalance returns the current balance of a player
func (l *SQLiteLedger) GetBalance(ctx context.Context, userID string) (int64, error) {
	var balance int64
	err := l.db.QueryRowContext(ctx, "SELECT balance FROM players WHERE id = ?", userID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get player balance: %w", err)
	}
	return balance, nil
}

// AdjustBalance updates a player's balance and records the transaction.
func (l *SQLiteLedger) AdjustBalance(ctx context.Context, userID string, delta int64, reason string) (int64, error) {
	unlock := l.locks.lock(userID)
	defer unlock()

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var balance int64
	err = tx.QueryRowContext(ctx, "SELECT balance FROM players WHERE id = ?", userID).Scan(&balance)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to get player balance: %w", err)
	}
	newBalance := balance + delta
	if newBalance < 0 {
		return balance, fmt.Errorf("%w: %s has %d, needs %d", ErrInsufficientFunds, userID, balance, -delta)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO players (id, balance)
		VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET balance = excluded.balance, updated_at = CURRENT_TIMESTAMP
	`, userID, newBalance)
	if err != nil {
		return balance, fmt.Errorf("failed to update balance: %w", err)
	}

	txType := "credit"
	if delta < 0 {
		txType = "debit"
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO transactions (player_id, amount, type, description)
		VALUES (?, ?, ?, ?)
	`, userID, delta, txType, reason)
	if err != nil {
		return balance, fmt.Errorf("failed to record transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return balance, err
	}
	l.log.Debugf("Adjusted %s by %d (%s): %d", userID, delta, reason, newBalance)
	return newBalance, nil
}

// Transactions returns a player's most recent transactions, newest first.
func (l *SQLiteLedger) Transactions(ctx context.Context, userID string, limit int) ([]Transaction, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, player_id, amount, type, COALESCE(description, ''), created_at
		FROM transactions WHERE player_id = ?
		ORDER BY id DESC LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txs []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.PlayerID, &t.Amount, &t.Type, &t.Description, &t.CreatedAt); err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// SaveHandLog archives an encoded hand log.
func (l *SQLiteLedger) SaveHandLog(ctx context.Context, roomID string, handNum int, data []byte) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO hand_logs (room_id, hand_num, data) VALUES (?, ?, ?)
		ON CONFLICT(room_id, hand_num) DO UPDATE SET data = excluded.data
	`, roomID, handNum, string(data))
	if err != nil {
		return fmt.Errorf("failed to save hand log: %w", err)
	}
	return nil
}

// LoadHandLog returns an archived hand log.
func (l *SQLiteLedger) LoadHandLog(ctx context.Context, roomID string, handNum int) ([]byte, error) {
	var data string
	err := l.db.QueryRowContext(ctx, "SELECT data FROM hand_logs WHERE room_id = ? AND hand_num = ?",
		roomID, handNum).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("hand %d of room %s not found", handNum, roomID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load hand log: %w", err)
	}
	return []byte(data), nil
}

// Close closes the database connection
func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}
