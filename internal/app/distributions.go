package app

import (
	"context"
	"strings"

	"github.com/mentora/treasury-service/internal/domain"
	"github.com/mentora/treasury-service/internal/settlement"
)

// PreviewDistribution validates a split and computes payouts without writing anything.
func (s *Service) PreviewDistribution(ctx context.Context, req settlement.DistributionRequest) (*settlement.Split, error) {
	currency, err := domain.NormalizeCurrency(req.Currency)
	if err != nil {
		return nil, err
	}
	req.Currency = currency

	split, err := settlement.SplitDistribution(req)
	if err != nil {
		return nil, err
	}
	return &split, nil
}

// CreateDistribution validates a split and stores it with its shares in one transaction.
func (s *Service) CreateDistribution(ctx context.Context, req settlement.DistributionRequest, createdBy string) (*domain.Distribution, error) {
	split, err := s.PreviewDistribution(ctx, req)
	if err != nil {
		return nil, err
	}

	distribution := &domain.Distribution{
		Currency:          split.Currency,
		TotalAmount:       split.TotalAmount,
		InvestmentAmount:  split.InvestmentAmount,
		DistributedAmount: split.DistributedAmount,
		Note:              strings.TrimSpace(req.Note),
		CreatedBy:         strings.TrimSpace(createdBy),
		Shares:            split.Shares,
	}
	if err := s.repo.CreateDistribution(ctx, distribution); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, RoutingDistributionCreated, distributionCreatedEvent{
		DistributionID:    distribution.ID,
		Currency:          distribution.Currency,
		TotalAmount:       distribution.TotalAmount,
		InvestmentAmount:  distribution.InvestmentAmount,
		DistributedAmount: distribution.DistributedAmount,
		CreatedBy:         distribution.CreatedBy,
		Shares:            distribution.Shares,
		Timestamp:         s.now(),
	})

	return distribution, nil
}

// ListDistributions returns the most recent distributions, newest first.
func (s *Service) ListDistributions(ctx context.Context, limit int) ([]domain.Distribution, error) {
	return s.repo.ListDistributions(ctx, clampLimit(limit))
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultDistributionLimit
	case limit > MaxDistributionLimit:
		return MaxDistributionLimit
	default:
		return limit
	}
}
