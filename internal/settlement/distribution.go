package settlement

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mentora/treasury-service/internal/domain"
)

var (
	ErrNoShares               = errors.New("a distribution needs at least one founder share")
	ErrDuplicateFounder       = errors.New("each founder can only appear once in a distribution")
	ErrPercentageRange        = errors.New("each percentage must be greater than 0 and at most 100")
	ErrPercentageSum          = errors.New("founder percentages must sum to 100")
	ErrNegativeAmount         = errors.New("amounts cannot be negative")
	ErrInvestmentExceedsTotal = errors.New("investment amount cannot exceed the total amount")
)

// PercentageTolerance is the accepted distance between the sum of percentages and 100.
var PercentageTolerance = decimal.RequireFromString("0.01")

var hundred = decimal.NewFromInt(100)

// ShareRequest is one founder's requested percentage.
type ShareRequest struct {
	AdminID    string          `json:"adminId" validate:"required,uuid"`
	Percentage decimal.Decimal `json:"percentage"`
}

// DistributionRequest is a proposed split before it is persisted.
type DistributionRequest struct {
	Currency         string         `json:"currency" validate:"required,len=3"`
	TotalAmount      int64          `json:"totalAmount" validate:"gte=0"`
	InvestmentAmount int64          `json:"investmentAmount" validate:"gte=0"`
	Note             string         `json:"note" validate:"max=500"`
	Shares           []ShareRequest `json:"shares" validate:"required,min=1,dive"`
}

// Split is a validated distribution with its computed payouts.
type Split struct {
	Currency          string                     `json:"currency"`
	TotalAmount       int64                      `json:"totalAmount"`
	InvestmentAmount  int64                      `json:"investmentAmount"`
	DistributedAmount int64                      `json:"distributedAmount"`
	PercentageSum     decimal.Decimal            `json:"percentageSum"`
	Shares            []domain.DistributionShare `json:"shares"`
}

// ValidateDistribution checks a proposed split without computing payouts.
func ValidateDistribution(req DistributionRequest) (decimal.Decimal, error) {
	if len(req.Shares) == 0 {
		return decimal.Zero, ErrNoShares
	}
	if req.TotalAmount < 0 || req.InvestmentAmount < 0 {
		return decimal.Zero, ErrNegativeAmount
	}
	if req.InvestmentAmount > req.TotalAmount {
		return decimal.Zero, ErrInvestmentExceedsTotal
	}

	seen := make(map[string]struct{}, len(req.Shares))
	sum := decimal.Zero
	for _, s := range req.Shares {
		if _, dup := seen[s.AdminID]; dup {
			return decimal.Zero, fmt.Errorf("%w: %s", ErrDuplicateFounder, s.AdminID)
		}
		seen[s.AdminID] = struct{}{}
		if !s.Percentage.IsPositive() || s.Percentage.GreaterThan(hundred) {
			return decimal.Zero, fmt.Errorf("%w: got %s", ErrPercentageRange, s.Percentage.String())
		}
		sum = sum.Add(s.Percentage)
	}
	if sum.Sub(hundred).Abs().GreaterThan(PercentageTolerance) {
		return sum, fmt.Errorf("%w (got %s)", ErrPercentageSum, sum.String())
	}
	return sum, nil
}

// SplitDistribution validates req and computes each founder's payout.
// Payouts are floored to the cent; the residual goes to the founder with the
// largest percentage, the first one in input order on ties, so payouts always
// add up to the distributed amount.
func SplitDistribution(req DistributionRequest) (Split, error) {
	sum, err := ValidateDistribution(req)
	if err != nil {
		return Split{}, err
	}

	distributed := req.TotalAmount - req.InvestmentAmount
	base := decimal.NewFromInt(distributed)
	shares := make([]domain.DistributionShare, len(req.Shares))
	var allocated int64
	largest := 0
	for i, s := range req.Shares {
		amount := base.Mul(s.Percentage).Div(hundred).Floor().IntPart()
		shares[i] = domain.DistributionShare{AdminID: s.AdminID, Percentage: s.Percentage, Amount: amount}
		allocated += amount
		if s.Percentage.GreaterThan(req.Shares[largest].Percentage) {
			largest = i
		}
	}
	shares[largest].Amount += distributed - allocated

	return Split{
		Currency:          req.Currency,
		TotalAmount:       req.TotalAmount,
		InvestmentAmount:  req.InvestmentAmount,
		DistributedAmount: distributed,
		PercentageSum:     sum,
		Shares:            shares,
	}, nil
}
