package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const selectColumns = `SELECT transaction_id, payer_id, beneficiary_id, amount::text, last_completed_step, reason, created_at
        FROM reconciliation_records`

// PostgresStore persists reconciliation records in PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore builds a Postgres-backed reconciliation store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Save inserts the record; an existing record for the transaction is kept.
func (s *PostgresStore) Save(ctx context.Context, rec Record) error {
	_, err := s.db.Exec(ctx, `INSERT INTO reconciliation_records
        (transaction_id, payer_id, beneficiary_id, amount, last_completed_step, reason, created_at)
        VALUES ($1, $2, $3, $4::numeric, $5, $6, $7)
        ON CONFLICT (transaction_id) DO NOTHING`,
		rec.TransactionID, rec.PayerID, rec.BeneficiaryID, rec.Amount.String(), rec.LastCompletedStep, rec.Reason, rec.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("save reconciliation %s: %w", rec.TransactionID, err)
	}
	return nil
}

// Get fetches a pending record.
func (s *PostgresStore) Get(ctx context.Context, transactionID string) (Record, error) {
	rec, err := scanRecord(s.db.QueryRow(ctx, selectColumns+` WHERE transaction_id = $1`, transactionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return rec, err
}

// List returns pending records oldest first.
func (s *PostgresStore) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(ctx, selectColumns+` ORDER BY created_at, transaction_id LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list reconciliations: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Clear removes a record once it has been resolved out of band.
func (s *PostgresStore) Clear(ctx context.Context, transactionID string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM reconciliation_records WHERE transaction_id = $1`, transactionID)
	if err != nil {
		return fmt.Errorf("clear reconciliation %s: %w", transactionID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var (
		rec       Record
		amount    string
		createdAt time.Time
	)
	if err := row.Scan(&rec.TransactionID, &rec.PayerID, &rec.BeneficiaryID, &amount, &rec.LastCompletedStep, &rec.Reason, &createdAt); err != nil {
		return Record{}, err
	}
	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return Record{}, fmt.Errorf("decode amount of %s: %w", rec.TransactionID, err)
	}
	rec.Amount = parsed
	rec.CreatedAt = createdAt.UTC()
	return rec, nil
}
