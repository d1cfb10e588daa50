package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mentora/treasury-service/internal/domain"
)

const recurringSelect = `
	SELECT id, label, category, amount, currency, frequency, next_due_date,
	       last_paid_date, paying_account_id, is_active
	FROM recurring_expenses
`

func scanRecurring(row pgx.Row) (domain.RecurringExpense, error) {
	var e domain.RecurringExpense
	var frequency string
	err := row.Scan(
		&e.ID,
		&e.Label,
		&e.Category,
		&e.Amount,
		&e.Currency,
		&frequency,
		&e.NextDueDate,
		&e.LastPaidDate,
		&e.PayingAccountID,
		&e.IsActive,
	)
	e.Frequency = domain.Frequency(frequency)
	e.NextDueDate = dateOnly(e.NextDueDate)
	return e, err
}

// ListActiveRecurringExpenses returns active recurring expenses whose next due date is before the given date.
func (r *PostgresRepository) ListActiveRecurringExpenses(ctx context.Context, dueBefore time.Time) ([]domain.RecurringExpense, error) {
	rows, err := r.db.Query(ctx, recurringSelect+`
		WHERE is_active = TRUE AND next_due_date < $1::DATE
		ORDER BY next_due_date, id
	`, dueBefore)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := []domain.RecurringExpense{}
	for rows.Next() {
		e, err := scanRecurring(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// GetRecurringExpense returns one recurring expense by ID.
func (r *PostgresRepository) GetRecurringExpense(ctx context.Context, expenseID string) (*domain.RecurringExpense, error) {
	e, err := scanRecurring(r.db.QueryRow(ctx, recurringSelect+` WHERE id = $1`, expenseID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExpenseNotFound
		}
		return nil, err
	}
	return &e, nil
}

// SaveRecurringExpensePayment advances a paid expense and records the debit atomically.
// The update only applies if next_due_date is still previousDue.
func (r *PostgresRepository) SaveRecurringExpensePayment(ctx context.Context, expense domain.RecurringExpense, previousDue time.Time, movement *domain.BankTransaction) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE recurring_expenses
		SET next_due_date = $1::DATE, last_paid_date = $2::DATE, updated_at = NOW()
		WHERE id = $3 AND next_due_date = $4::DATE AND is_active = TRUE
	`
	tag, err := tx.Exec(ctx, query, expense.NextDueDate, expense.LastPaidDate, expense.ID, previousDue)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleRecord
	}

	if movement != nil {
		if err := insertBankTransaction(ctx, tx, movement); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

const missionSelect = `
	SELECT m.id, m.team_member_id, TRIM(tm.first_name || ' ' || tm.last_name), m.title,
	       m.amount, m.currency, m.status, m.due_date, m.updated_at
	FROM missions m
	JOIN team_members tm ON tm.id = m.team_member_id
`

func scanMission(row pgx.Row) (domain.Mission, error) {
	var m domain.Mission
	var status string
	err := row.Scan(
		&m.ID,
		&m.TeamMemberID,
		&m.TeamMemberName,
		&m.Title,
		&m.Amount,
		&m.Currency,
		&status,
		&m.DueDate,
		&m.UpdatedAt,
	)
	m.Status = domain.MissionStatus(status)
	if m.DueDate != nil {
		d := dateOnly(*m.DueDate)
		m.DueDate = &d
	}
	return m, err
}

// ListOutstandingMissions returns PENDING and VALIDATED missions due before the
// given date or without a due date.
func (r *PostgresRepository) ListOutstandingMissions(ctx context.Context, dueBefore time.Time) ([]domain.Mission, error) {
	rows, err := r.db.Query(ctx, missionSelect+`
		WHERE m.status IN ('PENDING', 'VALIDATED')
		  AND (m.due_date IS NULL OR m.due_date < $1::DATE)
		ORDER BY m.due_date NULLS FIRST, m.id
	`, dueBefore)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	missions := []domain.Mission{}
	for rows.Next() {
		m, err := scanMission(rows)
		if err != nil {
			return nil, err
		}
		missions = append(missions, m)
	}
	return missions, rows.Err()
}

// GetMission returns one mission by ID.
func (r *PostgresRepository) GetMission(ctx context.Context, missionID string) (*domain.Mission, error) {
	m, err := scanMission(r.db.QueryRow(ctx, missionSelect+` WHERE m.id = $1`, missionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMissionNotFound
		}
		return nil, err
	}
	return &m, nil
}

// UpdateMissionStatus moves a mission between statuses and, for payouts,
// records the debit in the same transaction.
func (r *PostgresRepository) UpdateMissionStatus(ctx context.Context, missionID string, from, to domain.MissionStatus, movement *domain.BankTransaction) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE missions SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`,
		string(to), missionID, string(from),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleRecord
	}

	if movement != nil {
		if err := insertBankTransaction(ctx, tx, movement); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}
