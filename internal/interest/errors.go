package interest

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidRateType     = errors.New("Rate type must be either 'MONTHLY' or 'ANNUAL'")
	ErrRateOutOfBounds     = errors.New("Interest rate is outside the allowed range")
	ErrInvalidAmount       = errors.New("Amount must be a positive number")
	ErrInvalidReinvested   = errors.New("Reinvested amount must be between 0 and the total amount")
	ErrUnexpectedAmount    = errors.New("Amount does not match the expected interest for this month")
	ErrAlreadyConfirmed    = errors.New("Interest for this month is already confirmed")
	ErrMonthBeforeAccrual  = errors.New("Interest accrues from the month after the investment start")
	ErrMonthTooFarInFuture = errors.New("Cannot confirm interest more than 12 months ahead")
)

// LockedPeriodError rejects a confirmation inside the profit-lock window.
// EarliestEligible is the first month the lock allows, for the user-facing message.
type LockedPeriodError struct {
	EarliestEligible time.Time
}

func (e *LockedPeriodError) Error() string {
	return fmt.Sprintf("Profits are locked until %s", e.EarliestEligible.Format("January 2006"))
}
