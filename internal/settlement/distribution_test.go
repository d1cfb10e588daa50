package settlement

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func pct(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestValidateDistributionPercentageTolerance(t *testing.T) {
	tests := []struct {
		name    string
		shares  []string
		wantErr bool
	}{
		{name: "exact", shares: []string{"50", "30", "20"}},
		{name: "two decimals", shares: []string{"33.33", "33.33", "33.34"}},
		{name: "low edge", shares: []string{"33.33", "33.33", "33.33"}},
		{name: "below", shares: []string{"49.99", "49.99"}, wantErr: true},
		{name: "above", shares: []string{"50.01", "50.01"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := DistributionRequest{Currency: "EUR", TotalAmount: 10000}
			for i, p := range tt.shares {
				req.Shares = append(req.Shares, ShareRequest{AdminID: string(rune('A' + i)), Percentage: pct(p)})
			}
			_, err := ValidateDistribution(req)
			if tt.wantErr && !errors.Is(err, ErrPercentageSum) {
				t.Fatalf("expected ErrPercentageSum, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateDistributionRejectsMalformedRequests(t *testing.T) {
	tests := []struct {
		name string
		req  DistributionRequest
		want error
	}{
		{name: "no shares", req: DistributionRequest{TotalAmount: 100}, want: ErrNoShares},
		{
			name: "duplicate",
			req: DistributionRequest{TotalAmount: 100, Shares: []ShareRequest{
				{AdminID: "A", Percentage: pct("50")}, {AdminID: "A", Percentage: pct("50")},
			}},
			want: ErrDuplicateFounder,
		},
		{
			name: "zero percentage",
			req: DistributionRequest{TotalAmount: 100, Shares: []ShareRequest{
				{AdminID: "A", Percentage: pct("100")}, {AdminID: "B", Percentage: pct("0")},
			}},
			want: ErrPercentageRange,
		},
		{
			name: "over hundred",
			req:  DistributionRequest{TotalAmount: 100, Shares: []ShareRequest{{AdminID: "A", Percentage: pct("100.5")}}},
			want: ErrPercentageRange,
		},
		{
			name: "negative total",
			req:  DistributionRequest{TotalAmount: -1, Shares: []ShareRequest{{AdminID: "A", Percentage: pct("100")}}},
			want: ErrNegativeAmount,
		},
		{
			name: "investment above total",
			req:  DistributionRequest{TotalAmount: 100, InvestmentAmount: 101, Shares: []ShareRequest{{AdminID: "A", Percentage: pct("100")}}},
			want: ErrInvestmentExceedsTotal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := SplitDistribution(tt.req); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestSplitDistributionAssignsResidualToLargestShare(t *testing.T) {
	req := DistributionRequest{
		Currency:         "EUR",
		TotalAmount:      100001,
		InvestmentAmount: 1,
		Shares: []ShareRequest{
			{AdminID: "A", Percentage: pct("33.33")},
			{AdminID: "B", Percentage: pct("33.34")},
			{AdminID: "C", Percentage: pct("33.33")},
		},
	}

	split, err := SplitDistribution(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if split.DistributedAmount != 100000 {
		t.Fatalf("expected distributed 100000, got %d", split.DistributedAmount)
	}
	want := map[string]int64{"A": 33330, "B": 33340, "C": 33330}
	for _, s := range split.Shares {
		if s.Amount != want[s.AdminID] {
			t.Fatalf("%s: expected %d, got %d", s.AdminID, want[s.AdminID], s.Amount)
		}
	}
}

func TestSplitDistributionPayoutsAlwaysSumToDistributed(t *testing.T) {
	tests := []struct {
		name   string
		total  int64
		shares []string
		winner string
	}{
		{name: "thirds", total: 1000, shares: []string{"33.33", "33.33", "33.34"}, winner: "C"},
		{name: "tie goes to first", total: 1001, shares: []string{"50", "50"}, winner: "A"},
		{name: "sum above 100", total: 999, shares: []string{"50.01", "50"}, winner: "A"},
		{name: "zero distributed", total: 0, shares: []string{"100"}, winner: "A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := DistributionRequest{Currency: "EUR", TotalAmount: tt.total}
			for i, p := range tt.shares {
				req.Shares = append(req.Shares, ShareRequest{AdminID: string(rune('A' + i)), Percentage: pct(p)})
			}
			split, err := SplitDistribution(req)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			var sum int64
			for _, s := range split.Shares {
				sum += s.Amount
				floor := decimal.NewFromInt(tt.total).Mul(s.Percentage).Div(decimal.NewFromInt(100)).Floor().IntPart()
				if s.AdminID != tt.winner && s.Amount != floor {
					t.Fatalf("%s: expected floored payout %d, got %d", s.AdminID, floor, s.Amount)
				}
			}
			if sum != split.DistributedAmount {
				t.Fatalf("expected payouts to sum to %d, got %d", split.DistributedAmount, sum)
			}
		})
	}
}
