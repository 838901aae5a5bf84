package dispatch

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jaakkos/orchestrator/internal/domain"
)

const receiptSchema = `
CREATE TABLE IF NOT EXISTS receipts (
	message_id TEXT NOT NULL,
	recipient  TEXT NOT NULL,
	status     TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	error      TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (message_id, recipient)
);
`

// SQLiteReceiptStore persists Receipts for the DeliveryStatusTracker. Unlike
// the Task/Registry/PR stores, which are mandated plain files, receipts are
// transient bookkeeping the Dispatcher owns exclusively, so a small embedded
// database (one table, no dump/reload ceremony) fits better than one file
// per receipt.
type SQLiteReceiptStore struct {
	db *sql.DB
}

// NewSQLiteReceiptStore opens (creating if needed) a receipts database at path.
func NewSQLiteReceiptStore(path string) (*SQLiteReceiptStore, error) {
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("dispatch: open receipts db: %w", err)
	}
	if _, err := db.Exec(receiptSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("dispatch: migrate receipts db: %w", err)
	}
	return &SQLiteReceiptStore{db: db}, nil
}

// Persist upserts one receipt.
func (s *SQLiteReceiptStore) Persist(r domain.Receipt) error {
	_, err := s.db.Exec(
		`INSERT INTO receipts (message_id, recipient, status, updated_at, error)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(message_id, recipient) DO UPDATE SET
		   status=excluded.status, updated_at=excluded.updated_at, error=excluded.error`,
		r.MessageID, r.Recipient, string(r.Status), r.UpdatedAt.Format(time.RFC3339Nano), r.Error,
	)
	if err != nil {
		return fmt.Errorf("dispatch: persist receipt: %w", err)
	}
	return nil
}

// LoadAll reads every persisted receipt, for tracker warm-start on restart.
func (s *SQLiteReceiptStore) LoadAll() ([]domain.Receipt, error) {
	rows, err := s.db.Query(`SELECT message_id, recipient, status, updated_at, error FROM receipts`)
	if err != nil {
		return nil, fmt.Errorf("dispatch: load receipts: %w", err)
	}
	defer rows.Close()

	var out []domain.Receipt
	for rows.Next() {
		var r domain.Receipt
		var status, updatedAt string
		if err := rows.Scan(&r.MessageID, &r.Recipient, &status, &updatedAt, &r.Error); err != nil {
			continue // corrupt row: skip, never silently repair (spec §7)
		}
		r.Status = domain.ReceiptStatus(status)
		if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
			r.UpdatedAt = t
		}
		out = append(out, r)
	}
	return out, nil
}

// Close releases the underlying database handle.
func (s *SQLiteReceiptStore) Close() error { return s.db.Close() }
