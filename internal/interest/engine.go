// Package interest implements the monthly interest accrual engine: expected
// interest for a calendar month, the eligible confirmation window, the
// profit-lock gate, and the precondition checks for confirming a month.
// It performs no I/O; persistence is the caller's concern.
package interest

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// RateType determines how InterestRate converts to a monthly accrual rate.
type RateType string

const (
	RateTypeMonthly RateType = "MONTHLY"
	RateTypeAnnual  RateType = "ANNUAL"
)

// Policy bounds applied when a rate is set, not when interest is computed.
const (
	MaxAnnualRate  = 100.0
	MaxMonthlyRate = 20.0
)

// HorizonMonths is how far past the current month the schedule extends and
// the forward cap on confirmations.
const HorizonMonths = 12

// Terms are the accrual-relevant fields of an investment.
type Terms struct {
	InitialCapital   float64
	InterestRate     float64
	RateType         RateType
	StartDate        time.Time
	ProfitLockPeriod int
}

// Record is a monthly interest record as the engine sees it. Month must be
// normalized to the first instant of its calendar month.
type Record struct {
	Month            time.Time
	Amount           float64
	ReinvestedAmount float64
	Confirmed        bool
}

// Status of a (investment, month) pair, derived at read time.
type Status string

const (
	StatusLocked    Status = "LOCKED"
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
)

// ValidateRate checks the rate against the bound implied by the rate type:
// 0-100 for ANNUAL, 0-20 for MONTHLY.
func ValidateRate(rate float64, rateType RateType) error {
	switch rateType {
	case RateTypeAnnual:
		if rate < 0 || rate > MaxAnnualRate {
			return ErrRateOutOfBounds
		}
	case RateTypeMonthly:
		if rate < 0 || rate > MaxMonthlyRate {
			return ErrRateOutOfBounds
		}
	default:
		return ErrInvalidRateType
	}
	return nil
}

// MonthlyRate converts a rate to its monthly accrual fraction.
func MonthlyRate(rate float64, rateType RateType) float64 {
	if rateType == RateTypeAnnual {
		return rate / 12 / 100
	}
	return rate / 100
}

// StartOfMonth normalizes t to the first instant of its calendar month, UTC.
func StartOfMonth(t time.Time) time.Time {
	y, m, _ := t.UTC().Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

// MonthsBetween returns the calendar-month difference to minus from,
// ignoring day-of-month.
func MonthsBetween(from, to time.Time) int {
	fy, fm, _ := from.UTC().Date()
	ty, tm, _ := to.UTC().Date()
	return (ty-fy)*12 + int(tm) - int(fm)
}

// FirstEligibleMonth is the month interest accrual begins: the calendar month
// immediately following the start date's month.
func FirstEligibleMonth(startDate time.Time) time.Time {
	return StartOfMonth(startDate).AddDate(0, 1, 0)
}

// MaxConfirmableMonth is the forward cap: HorizonMonths past the current month.
func MaxConfirmableMonth(now time.Time) time.Time {
	return StartOfMonth(now).AddDate(0, HorizonMonths, 0)
}

// EligibleMonths enumerates every displayable month, ascending with no gaps,
// from the first eligible month through horizonMonths past now. These months
// are displayable, not necessarily claimable; claimability is gated by
// IsClaimable.
func EligibleMonths(startDate, now time.Time, horizonMonths int) []time.Time {
	first := FirstEligibleMonth(startDate)
	last := StartOfMonth(now).AddDate(0, horizonMonths, 0)

	var months []time.Time
	for m := first; !m.After(last); m = m.AddDate(0, 1, 0) {
		months = append(months, m)
	}
	return months
}

// IsClaimable reports whether month has cleared the profit-lock gate:
// at least ProfitLockPeriod calendar months since the start month.
func IsClaimable(terms Terms, month time.Time) bool {
	return MonthsBetween(StartOfMonth(terms.StartDate), StartOfMonth(month)) >= terms.ProfitLockPeriod
}

// EarliestClaimableMonth is the first month that passes both the accrual
// start and the profit-lock gate.
func EarliestClaimableMonth(terms Terms) time.Time {
	first := FirstEligibleMonth(terms.StartDate)
	unlocked := StartOfMonth(terms.StartDate).AddDate(0, terms.ProfitLockPeriod, 0)
	if unlocked.After(first) {
		return unlocked
	}
	return first
}

// ExpectedInterest computes the interest amount for targetMonth, rounded to
// cents. A confirmed record for that month is returned verbatim. Otherwise
// the effective capital base is reconstructed: initial capital plus every
// confirmed reinvested amount from months before targetMonth, times the
// current monthly rate. Rate edits therefore affect only unconfirmed months.
func ExpectedInterest(terms Terms, history []Record, targetMonth time.Time) float64 {
	target := StartOfMonth(targetMonth)

	base := decimal.NewFromFloat(terms.InitialCapital)
	for _, rec := range history {
		if !rec.Confirmed {
			continue
		}
		m := StartOfMonth(rec.Month)
		if m.Equal(target) {
			return rec.Amount
		}
		if m.Before(target) {
			base = base.Add(decimal.NewFromFloat(rec.ReinvestedAmount))
		}
	}

	rate := decimal.NewFromFloat(MonthlyRate(terms.InterestRate, terms.RateType))
	return base.Mul(rate).Round(2).InexactFloat64()
}

// MonthStatus derives the Locked/Pending/Confirmed state for a month.
// Confirmed is terminal; Locked becomes Pending by passage of time alone.
func MonthStatus(terms Terms, history []Record, month time.Time) Status {
	target := StartOfMonth(month)
	for _, rec := range history {
		if rec.Confirmed && StartOfMonth(rec.Month).Equal(target) {
			return StatusConfirmed
		}
	}
	if !IsClaimable(terms, target) {
		return StatusLocked
	}
	return StatusPending
}

// amountTolerance allows for cent rounding between client and server.
const amountTolerance = 0.01

// ValidateConfirmation enforces every precondition for confirming a month.
// It returns a classified error so the caller can map it to a status code;
// it never mutates anything.
func ValidateConfirmation(terms Terms, history []Record, month time.Time, amount, reinvested float64, now time.Time) error {
	target := StartOfMonth(month)

	for _, rec := range history {
		if rec.Confirmed && StartOfMonth(rec.Month).Equal(target) {
			return ErrAlreadyConfirmed
		}
	}
	if target.Before(FirstEligibleMonth(terms.StartDate)) {
		return ErrMonthBeforeAccrual
	}
	if target.After(MaxConfirmableMonth(now)) {
		return ErrMonthTooFarInFuture
	}
	if !IsClaimable(terms, target) {
		return &LockedPeriodError{EarliestEligible: EarliestClaimableMonth(terms)}
	}
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if reinvested < 0 || reinvested > amount {
		return ErrInvalidReinvested
	}
	if expected := ExpectedInterest(terms, history, target); math.Abs(amount-expected) > amountTolerance {
		return ErrUnexpectedAmount
	}
	return nil
}
