package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Distribution is a split of realized profit among founders.
type Distribution struct {
	ID                string              `json:"id"`
	Currency          string              `json:"currency"`
	TotalAmount       int64               `json:"totalAmount"`
	InvestmentAmount  int64               `json:"investmentAmount"`
	DistributedAmount int64               `json:"distributedAmount"`
	Note              string              `json:"note,omitempty"`
	CreatedBy         string              `json:"createdBy,omitempty"`
	CreatedAt         time.Time           `json:"createdAt"`
	Shares            []DistributionShare `json:"shares"`
}

// DistributionShare is one founder's part of a distribution.
type DistributionShare struct {
	ID         string          `json:"id,omitempty"`
	AdminID    string          `json:"adminId"`
	AdminName  string          `json:"adminName,omitempty"`
	Percentage decimal.Decimal `json:"percentage"`
	Amount     int64           `json:"amount"`
}
