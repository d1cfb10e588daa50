package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mentora/treasury-service/internal/domain"
)

// ListPositions returns every founder position record with the founder's name.
func (r *PostgresRepository) ListPositions(ctx context.Context) ([]domain.Position, error) {
	query := `
		SELECT fp.admin_id, TRIM(ad.first_name || ' ' || ad.last_name), fp.currency,
		       fp.advanced_amount, fp.received_amount
		FROM founder_positions fp
		JOIN admins ad ON ad.id = fp.admin_id
		ORDER BY fp.currency, fp.admin_id
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	positions := []domain.Position{}
	for rows.Next() {
		var p domain.Position
		if err := rows.Scan(&p.AdminID, &p.AdminName, &p.Currency, &p.Advanced, &p.Received); err != nil {
			return nil, err
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

// CreateDistribution inserts a distribution and its shares atomically.
func (r *PostgresRepository) CreateDistribution(ctx context.Context, d *domain.Distribution) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	distributionQuery := `
		INSERT INTO distributions (
			id, currency, total_amount, investment_amount, distributed_amount, note, created_by
		)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, '')::UUID)
		RETURNING created_at
	`
	if err := tx.QueryRow(ctx, distributionQuery,
		d.ID,
		d.Currency,
		d.TotalAmount,
		d.InvestmentAmount,
		d.DistributedAmount,
		d.Note,
		d.CreatedBy,
	).Scan(&d.CreatedAt); err != nil {
		return err
	}

	shareQuery := `
		INSERT INTO distribution_shares (id, distribution_id, admin_id, percentage, amount)
		VALUES ($1, $2, $3, $4::NUMERIC, $5)
	`
	for i := range d.Shares {
		share := &d.Shares[i]
		if share.ID == "" {
			share.ID = uuid.NewString()
		}
		if _, err := tx.Exec(ctx, shareQuery,
			share.ID,
			d.ID,
			share.AdminID,
			share.Percentage.String(),
			share.Amount,
		); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// ListDistributions returns the most recent distributions with their shares.
func (r *PostgresRepository) ListDistributions(ctx context.Context, limit int) ([]domain.Distribution, error) {
	query := `
		SELECT id, currency, total_amount, investment_amount, distributed_amount,
		       COALESCE(note, ''), COALESCE(created_by::TEXT, ''), created_at
		FROM distributions
		ORDER BY created_at DESC, id
		LIMIT $1
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	distributions := []domain.Distribution{}
	index := make(map[string]int)
	ids := []string{}
	for rows.Next() {
		var d domain.Distribution
		if err := rows.Scan(
			&d.ID,
			&d.Currency,
			&d.TotalAmount,
			&d.InvestmentAmount,
			&d.DistributedAmount,
			&d.Note,
			&d.CreatedBy,
			&d.CreatedAt,
		); err != nil {
			return nil, err
		}
		d.Shares = []domain.DistributionShare{}
		index[d.ID] = len(distributions)
		ids = append(ids, d.ID)
		distributions = append(distributions, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return distributions, nil
	}

	shareRows, err := r.db.Query(ctx, `
		SELECT ds.id, ds.distribution_id, ds.admin_id, TRIM(ad.first_name || ' ' || ad.last_name),
		       ds.percentage::TEXT, ds.amount
		FROM distribution_shares ds
		JOIN admins ad ON ad.id = ds.admin_id
		WHERE ds.distribution_id = ANY($1::UUID[])
		ORDER BY ds.percentage DESC, ds.admin_id
	`, ids)
	if err != nil {
		return nil, err
	}
	defer shareRows.Close()

	for shareRows.Next() {
		var share domain.DistributionShare
		var distributionID, percentage string
		if err := shareRows.Scan(&share.ID, &distributionID, &share.AdminID, &share.AdminName, &percentage, &share.Amount); err != nil {
			return nil, err
		}
		share.Percentage, err = parsePercentage(percentage)
		if err != nil {
			return nil, err
		}
		if i, ok := index[distributionID]; ok {
			distributions[i].Shares = append(distributions[i].Shares, share)
		}
	}
	return distributions, shareRows.Err()
}

func parsePercentage(raw string) (decimal.Decimal, error) {
	p, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid stored percentage %q: %w", raw, err)
	}
	return p, nil
}
