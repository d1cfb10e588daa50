package domain

import "errors"

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidCurrency   = errors.New("currency must be a 3-letter ISO code")
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrOverpayment       = errors.New("payment exceeds the remaining amount of the schedule")
	ErrCurrencyMismatch  = errors.New("account currency does not match the movement currency")
	ErrInactive          = errors.New("record is inactive")
	ErrUnknownFrequency  = errors.New("unknown recurrence frequency")
)
