/**
 * @description
 * Data access layer for the treasury service.
 *
 * @notes
 * - Money columns are BIGINT cents; due dates are DATE columns scanned as midnight UTC.
 * - Account balances are never stored: they are SUM(bank_transactions.amount).
 * - Status and amount changes carry a guard on the previous value. A guarded
 *   UPDATE touching no row returns ErrStaleRecord.
 */
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mentora/treasury-service/internal/domain"
)

var (
	ErrAccountNotFound  = errors.New("bank account not found")
	ErrScheduleNotFound = errors.New("payment schedule not found")
	ErrExpenseNotFound  = errors.New("recurring expense not found")
	ErrMissionNotFound  = errors.New("mission not found")
	ErrQuoteNotFound    = errors.New("quote not found")
	ErrStaleRecord      = errors.New("record was modified concurrently, reload and retry")
)

// PostgresRepository handles database operations for the treasury.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Ping checks database connectivity for the health endpoint.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

const accountColumns = `
	a.id, a.owner_id, a.name, a.currency,
	COALESCE((SELECT SUM(t.amount) FROM bank_transactions t WHERE t.account_id = a.id), 0)::BIGINT,
	a.is_admin_owned, a.is_active, a.created_at
`

func scanAccount(row pgx.Row) (domain.BankAccount, error) {
	var a domain.BankAccount
	err := row.Scan(
		&a.ID,
		&a.OwnerID,
		&a.Name,
		&a.Currency,
		&a.Balance,
		&a.IsAdminOwned,
		&a.IsActive,
		&a.CreatedAt,
	)
	return a, err
}

// ListAdminAccounts returns active admin-owned accounts with their derived balance.
func (r *PostgresRepository) ListAdminAccounts(ctx context.Context) ([]domain.BankAccount, error) {
	query := `SELECT ` + accountColumns + `
		FROM bank_accounts a
		WHERE a.is_admin_owned = TRUE AND a.is_active = TRUE
		ORDER BY a.currency, a.name
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := []domain.BankAccount{}
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

// GetAccount returns one account by ID.
func (r *PostgresRepository) GetAccount(ctx context.Context, accountID string) (*domain.BankAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM bank_accounts a WHERE a.id = $1`
	account, err := scanAccount(r.db.QueryRow(ctx, query, accountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

func insertBankTransaction(ctx context.Context, tx pgx.Tx, t *domain.BankTransaction) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	query := `
		INSERT INTO bank_transactions (
			id, account_id, amount, currency, kind, reference_type, reference_id, occurred_on
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := tx.Exec(ctx, query,
		t.ID,
		t.AccountID,
		t.Amount,
		t.Currency,
		t.Kind,
		t.ReferenceType,
		t.ReferenceID,
		t.OccurredOn,
	)
	return err
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
