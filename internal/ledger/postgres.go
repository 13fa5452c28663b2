package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const (
	conditionalUpdateQuery = `UPDATE wallets SET balance = balance + $2::numeric, updated_at = now()
        WHERE account_id = $1 AND balance >= $3::numeric`
	updateQuery = `UPDATE wallets SET balance = balance + $2::numeric, updated_at = now()
        WHERE account_id = $1`
)

// PostgresLedger keeps wallet balances in PostgreSQL. Balance floors are
// enforced inside the UPDATE predicate so the check and the write are one
// atomic statement.
type PostgresLedger struct {
	db *pgxpool.Pool
}

// NewPostgresLedger constructs a Postgres-backed ledger store.
func NewPostgresLedger(db *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// EnsureAccount opens a wallet with the opening balance unless it already exists.
func (l *PostgresLedger) EnsureAccount(ctx context.Context, accountID string, opening decimal.Decimal) error {
	if accountID == "" || opening.IsNegative() {
		return ErrInvalidMutation
	}
	_, err := l.db.Exec(ctx, `INSERT INTO wallets (account_id, balance) VALUES ($1, $2::numeric)
        ON CONFLICT (account_id) DO NOTHING`, accountID, opening.String())
	return classify(err)
}

// Balance returns the current balance of the wallet.
func (l *PostgresLedger) Balance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	var raw string
	err := l.db.QueryRow(ctx, `SELECT balance::text FROM wallets WHERE account_id = $1`, accountID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, fmt.Errorf("%s: %w", accountID, ErrAccountNotFound)
		}
		return decimal.Zero, classify(err)
	}
	return decimal.NewFromString(raw)
}

// Transact applies every mutation inside one database transaction.
func (l *PostgresLedger) Transact(ctx context.Context, mutations ...Mutation) error {
	if err := validate(mutations); err != nil {
		return err
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return classify(err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	for _, m := range mutations {
		var tag pgconn.CommandTag
		if m.Floor != nil {
			tag, err = tx.Exec(ctx, conditionalUpdateQuery, m.AccountID, m.Delta.String(), m.Floor.String())
		} else {
			tag, err = tx.Exec(ctx, updateQuery, m.AccountID, m.Delta.String())
		}
		if err != nil {
			return classify(err)
		}
		if tag.RowsAffected() == 0 {
			return missedUpdate(ctx, tx, m.AccountID)
		}
	}

	return classify(tx.Commit(ctx))
}

// missedUpdate explains why an UPDATE touched no row.
func missedUpdate(ctx context.Context, tx pgx.Tx, accountID string) error {
	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM wallets WHERE account_id = $1)`, accountID).Scan(&exists); err != nil {
		return classify(err)
	}
	if !exists {
		return fmt.Errorf("%s: %w", accountID, ErrAccountNotFound)
	}
	return fmt.Errorf("%s: %w", accountID, ErrConditionFailed)
}

// classify maps data exceptions (22xxx) and integrity violations (23xxx) to
// ErrInvalidMutation; everything else is left as is for the caller to treat as
// an infrastructure failure.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if strings.HasPrefix(pgErr.Code, "22") || strings.HasPrefix(pgErr.Code, "23") {
			return fmt.Errorf("%w: %s (%s)", ErrInvalidMutation, pgErr.Message, pgErr.Code)
		}
	}
	return err
}
