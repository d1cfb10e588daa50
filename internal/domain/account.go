/**
 * @description
 * Bank accounts as seen by the treasury. The balance is never stored: it is the
 * sum of the signed transactions referencing the account.
 */
package domain

import (
	"strings"
	"time"
)

// BankAccount is a company or founder account tracked by the back office.
type BankAccount struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"ownerId"`
	Name         string    `json:"name"`
	Currency     string    `json:"currency"`
	Balance      int64     `json:"balance"` // cents, derived
	IsAdminOwned bool      `json:"isAdminOwned"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
}

// BankTransaction is one signed movement on an account. Credits are positive.
type BankTransaction struct {
	ID            string    `json:"id"`
	AccountID     string    `json:"accountId"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	Kind          string    `json:"kind"`
	ReferenceType string    `json:"referenceType"`
	ReferenceID   string    `json:"referenceId"`
	OccurredOn    time.Time `json:"occurredOn"`
}

// Transaction kinds written by the treasury service.
const (
	TransactionSchedulePayment = "SCHEDULE_PAYMENT"
	TransactionExpensePayment  = "EXPENSE_PAYMENT"
	TransactionMissionPayment  = "MISSION_PAYMENT"
)

// NormalizeCurrency upper-cases and validates an ISO currency code.
func NormalizeCurrency(raw string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if len(code) != 3 {
		return "", ErrInvalidCurrency
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return "", ErrInvalidCurrency
		}
	}
	return code, nil
}

// CheckCurrency returns ErrCurrencyMismatch when the account cannot carry a
// movement in currency.
func (a BankAccount) CheckCurrency(currency string) error {
	if !strings.EqualFold(a.Currency, currency) {
		return ErrCurrencyMismatch
	}
	return nil
}
