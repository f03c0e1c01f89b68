package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vietddude/tokenwatch/internal/core/domain"
	"github.com/vietddude/tokenwatch/internal/infra/storage"
)

// TxRepo implements storage.TransactionRepository using PostgreSQL.
type TxRepo struct {
	db *DB
}

// NewTxRepo creates a new PostgreSQL transaction repository.
func NewTxRepo(db *DB) *TxRepo {
	return &TxRepo{db: db}
}

var _ storage.TransactionRepository = (*TxRepo)(nil)

const selectColumns = `
	signature, seq, session_id, slot, observed_at,
	accounts, program_ids, programs, others, emitted_at`

// Save inserts the event. A NULL signature never conflicts, so unsigned
// events are always appended.
func (r *TxRepo) Save(ctx context.Context, event *domain.Event) error {
	query := `
		INSERT INTO token_transactions (
			signature, seq, session_id, slot, observed_at,
			accounts, program_ids, programs, others, emitted_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (signature) DO UPDATE SET
			seq = EXCLUDED.seq,
			session_id = EXCLUDED.session_id,
			slot = EXCLUDED.slot,
			observed_at = EXCLUDED.observed_at,
			accounts = EXCLUDED.accounts,
			program_ids = EXCLUDED.program_ids,
			programs = EXCLUDED.programs,
			others = EXCLUDED.others,
			emitted_at = EXCLUDED.emitted_at
	`
	row := fromDomain(event)

	_, err := r.db.ExecContext(ctx, query,
		row.Signature, row.Seq, row.SessionID, row.Slot, row.ObservedAt,
		row.Accounts, row.ProgramIDs, row.Programs, row.Others, row.EmittedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save transaction: %w", err)
	}
	return nil
}

// GetBySignature retrieves a transaction by signature.
func (r *TxRepo) GetBySignature(ctx context.Context, signature string) (*domain.Event, error) {
	query := `SELECT` + selectColumns + ` FROM token_transactions WHERE signature = $1`

	var row txRow
	if err := r.db.GetContext(ctx, &row, query, signature); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return row.toDomain(), nil
}

// List returns the latest stored transactions, newest first. A non-positive
// limit returns everything.
func (r *TxRepo) List(ctx context.Context, limit int) ([]*domain.Event, error) {
	query := `SELECT` + selectColumns + ` FROM token_transactions ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	var rows []txRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	result := make([]*domain.Event, 0, len(rows))
	for i := range rows {
		result = append(result, rows[i].toDomain())
	}
	return result, nil
}

// Count returns the number of stored transactions.
func (r *TxRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM token_transactions`); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return n, nil
}

// DeleteOlderThan removes transactions emitted before cutoff.
func (r *TxRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM token_transactions WHERE emitted_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune transactions: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the connection pool.
func (r *TxRepo) Close() error {
	return r.db.Close()
}

type txRow struct {
	Signature  *string   `db:"signature"` // Nullable
	Seq        int64     `db:"seq"`
	SessionID  string    `db:"session_id"`
	Slot       int64     `db:"slot"`
	ObservedAt time.Time `db:"observed_at"`
	Accounts   jsonList  `db:"accounts"`
	ProgramIDs jsonList  `db:"program_ids"`
	Programs   jsonList  `db:"programs"`
	Others     jsonList  `db:"others"`
	EmittedAt  time.Time `db:"emitted_at"`
}

func fromDomain(e *domain.Event) txRow {
	row := txRow{
		Seq:       int64(e.Seq),
		SessionID: e.SessionID,
		Programs:  e.Programs,
		Others:    e.Others,
		EmittedAt: e.EmittedAt,
	}
	if s := e.Summary; s != nil {
		row.Signature = s.Signature
		row.Slot = int64(s.Slot)
		row.ObservedAt = s.Timestamp
		row.Accounts = s.Accounts
		row.ProgramIDs = s.ProgramIDs
	}
	return row
}

func (t *txRow) toDomain() *domain.Event {
	return &domain.Event{
		Seq:       uint64(t.Seq),
		SessionID: t.SessionID,
		Summary: &domain.TransactionSummary{
			Signature:  t.Signature,
			Slot:       uint64(t.Slot),
			Timestamp:  t.ObservedAt.UTC(),
			Accounts:   t.Accounts.strings(),
			ProgramIDs: t.ProgramIDs.strings(),
		},
		Programs:  t.Programs.strings(),
		Others:    t.Others.strings(),
		EmittedAt: t.EmittedAt.UTC(),
	}
}

// jsonList stores a string list in a JSONB column. It is sent as text so
// both the pgx and lib/pq drivers accept it.
type jsonList []string

func (l jsonList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *jsonList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("jsonList: unsupported source %T", src)
	}
	return json.Unmarshal(raw, (*[]string)(l))
}

func (l jsonList) strings() []string {
	if l == nil {
		return []string{}
	}
	return []string(l)
}
