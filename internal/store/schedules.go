package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mentora/treasury-service/internal/domain"
)

const scheduleSelect = `
	SELECT ps.id, ps.quote_id, q.student_id, TRIM(st.first_name || ' ' || st.last_name),
	       ps.amount, ps.paid_amount, ps.currency, ps.due_date, ps.status
	FROM payment_schedules ps
	JOIN quotes q ON q.id = ps.quote_id
	JOIN students st ON st.id = q.student_id
`

func scanSchedule(row pgx.Row) (domain.PaymentSchedule, error) {
	var s domain.PaymentSchedule
	var status string
	err := row.Scan(
		&s.ID,
		&s.QuoteID,
		&s.StudentID,
		&s.StudentName,
		&s.Amount,
		&s.PaidAmount,
		&s.Currency,
		&s.DueDate,
		&status,
	)
	s.Status = domain.ScheduleStatus(status)
	s.DueDate = dateOnly(s.DueDate)
	return s, err
}

func (r *PostgresRepository) querySchedules(ctx context.Context, query string, args ...any) ([]domain.PaymentSchedule, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	schedules := []domain.PaymentSchedule{}
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, s)
	}
	return schedules, rows.Err()
}

// ListOpenSchedules returns not fully paid schedules of validated quotes due before the given date.
func (r *PostgresRepository) ListOpenSchedules(ctx context.Context, dueBefore time.Time) ([]domain.PaymentSchedule, error) {
	query := scheduleSelect + `
		WHERE q.status = 'VALIDATED'
		  AND ps.paid_amount < ps.amount
		  AND ps.due_date < $1::DATE
		ORDER BY ps.due_date, ps.id
	`
	return r.querySchedules(ctx, query, dueBefore)
}

// ListReceivableSchedules returns every schedule of validated quotes.
func (r *PostgresRepository) ListReceivableSchedules(ctx context.Context) ([]domain.PaymentSchedule, error) {
	query := scheduleSelect + `
		WHERE q.status = 'VALIDATED'
		ORDER BY ps.due_date, ps.id
	`
	return r.querySchedules(ctx, query)
}

// GetSchedule returns one schedule by ID.
func (r *PostgresRepository) GetSchedule(ctx context.Context, scheduleID string) (*domain.PaymentSchedule, error) {
	s, err := scanSchedule(r.db.QueryRow(ctx, scheduleSelect+` WHERE ps.id = $1`, scheduleID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}
	return &s, nil
}

// SaveSchedulePayment stores the new paid amount of a schedule and, when given,
// the matching bank transaction, in one transaction. The update only applies
// if the paid amount is still previousPaid.
func (r *PostgresRepository) SaveSchedulePayment(ctx context.Context, schedule domain.PaymentSchedule, previousPaid int64, movement *domain.BankTransaction) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE payment_schedules
		SET paid_amount = $1, status = $2, updated_at = NOW()
		WHERE id = $3 AND paid_amount = $4 AND $1 <= amount
	`
	tag, err := tx.Exec(ctx, query, schedule.PaidAmount, string(schedule.Status), schedule.ID, previousPaid)
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

// GetQuote returns one quote by ID.
func (r *PostgresRepository) GetQuote(ctx context.Context, quoteID string) (*domain.Quote, error) {
	var q domain.Quote
	var status string
	err := r.db.QueryRow(ctx,
		`SELECT id, student_id, currency, status, updated_at FROM quotes WHERE id = $1`,
		quoteID,
	).Scan(&q.ID, &q.StudentID, &q.Currency, &status, &q.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQuoteNotFound
		}
		return nil, err
	}
	q.Status = domain.QuoteStatus(status)
	return &q, nil
}

// UpdateQuoteStatus moves a quote from one status to another.
func (r *PostgresRepository) UpdateQuoteStatus(ctx context.Context, quoteID string, from, to domain.QuoteStatus) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE quotes SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`,
		string(to), quoteID, string(from),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleRecord
	}
	return nil
}
