package investments

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"provident-backend/internal/interest"
	"provident-backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrInvestmentNotFound = errors.New("Investment not found")
	ErrNameRequired       = errors.New("Name is required")
	ErrInvalidCapital     = errors.New("Initial capital must be a positive number")
	ErrInvalidStartDate   = errors.New("Start date is required")
	ErrInvalidLockPeriod  = errors.New("Profit lock period must be between 0 and 60 months")
)

const maxLockPeriodMonths = 60

// Service holds DB for investment operations. Clock is swappable for tests;
// nil means time.Now.
type Service struct {
	DB    *gorm.DB
	Clock func() time.Time
}

func (s *Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now().UTC()
}

// CreateInput for a new investment.
type CreateInput struct {
	Name             string
	InitialCapital   float64
	InterestRate     float64
	RateType         interest.RateType
	StartDate        time.Time
	ProfitLockPeriod int
}

// Create validates input and creates the investment with current capital
// equal to initial capital, writing a CREATED event in the same transaction.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, in CreateInput) (*models.Investment, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, ErrNameRequired
	}
	if in.InitialCapital <= 0 {
		return nil, ErrInvalidCapital
	}
	if err := interest.ValidateRate(in.InterestRate, in.RateType); err != nil {
		return nil, err
	}
	if in.StartDate.IsZero() {
		return nil, ErrInvalidStartDate
	}
	if in.ProfitLockPeriod < 0 || in.ProfitLockPeriod > maxLockPeriodMonths {
		return nil, ErrInvalidLockPeriod
	}

	inv := &models.Investment{
		UserID:           userID,
		Name:             strings.TrimSpace(in.Name),
		InitialCapital:   round2(in.InitialCapital),
		CurrentCapital:   round2(in.InitialCapital),
		InterestRate:     in.InterestRate,
		RateType:         in.RateType,
		StartDate:        in.StartDate.UTC(),
		ProfitLockPeriod: in.ProfitLockPeriod,
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(inv).Error; err != nil {
			return err
		}
		return writeEvent(tx, inv.InvestmentID, models.EventCreated, map[string]interface{}{
			"name":               inv.Name,
			"initial_capital":    inv.InitialCapital,
			"interest_rate":      inv.InterestRate,
			"rate_type":          inv.RateType,
			"start_date":         inv.StartDate,
			"profit_lock_period": inv.ProfitLockPeriod,
		})
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// List returns the user's investments with their monthly interest records,
// newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]models.Investment, error) {
	var invs []models.Investment
	err := s.DB.WithContext(ctx).
		Preload("MonthlyInterests", func(db *gorm.DB) *gorm.DB {
			return db.Order("month ASC")
		}).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&invs).Error
	return invs, err
}

// Get returns one investment with records, scoped to the owner. Another
// user's investment is indistinguishable from a missing one.
func (s *Service) Get(ctx context.Context, userID, investmentID uuid.UUID) (*models.Investment, error) {
	return getOwned(s.DB.WithContext(ctx), userID, investmentID)
}

// Delete removes the investment and its monthly interests and events.
func (s *Service) Delete(ctx context.Context, userID, investmentID uuid.UUID) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := getOwned(tx, userID, investmentID)
		if err != nil {
			return err
		}
		if err := tx.Where("investment_id = ?", inv.InvestmentID).Delete(&models.MonthlyInterest{}).Error; err != nil {
			return err
		}
		if err := tx.Where("investment_id = ?", inv.InvestmentID).Delete(&models.InvestmentEvent{}).Error; err != nil {
			return err
		}
		return tx.Delete(inv).Error
	})
}

// ScheduleRow is one derived month of the confirmation schedule.
type ScheduleRow struct {
	Month          time.Time               `json:"month"`
	ExpectedAmount float64                 `json:"expected_amount"`
	Status         interest.Status         `json:"status"`
	Record         *models.MonthlyInterest `json:"record,omitempty"`
}

// Schedule derives the per-month Locked/Pending/Confirmed view from the start
// date through twelve months ahead. Nothing here is persisted.
func (s *Service) Schedule(ctx context.Context, userID, investmentID uuid.UUID) ([]ScheduleRow, error) {
	inv, err := getOwned(s.DB.WithContext(ctx), userID, investmentID)
	if err != nil {
		return nil, err
	}

	terms := inv.Terms()
	history := inv.History()

	byMonth := make(map[time.Time]*models.MonthlyInterest, len(inv.MonthlyInterests))
	for i := range inv.MonthlyInterests {
		rec := &inv.MonthlyInterests[i]
		byMonth[interest.StartOfMonth(rec.Month)] = rec
	}

	months := interest.EligibleMonths(inv.StartDate, s.now(), interest.HorizonMonths)
	rows := make([]ScheduleRow, 0, len(months))
	for _, m := range months {
		rows = append(rows, ScheduleRow{
			Month:          m,
			ExpectedAmount: interest.ExpectedInterest(terms, history, m),
			Status:         interest.MonthStatus(terms, history, m),
			Record:         byMonth[m],
		})
	}
	return rows, nil
}

// ConfirmInterest confirms one month of interest: creates the immutable
// monthly record (rate snapshot included) and applies the reinvested/expensed
// split to the running totals, all in a single transaction so a failure
// leaves no partial state. The unique (investment_id, month) index catches
// the concurrent-duplicate race; that error surfaces as ErrAlreadyConfirmed.
func (s *Service) ConfirmInterest(ctx context.Context, userID, investmentID uuid.UUID, month time.Time, amount, reinvestedAmount float64) (*models.Investment, error) {
	var result *models.Investment

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := getOwned(tx, userID, investmentID)
		if err != nil {
			return err
		}

		target := interest.StartOfMonth(month)
		if err := interest.ValidateConfirmation(inv.Terms(), inv.History(), target, amount, reinvestedAmount, s.now()); err != nil {
			return err
		}

		amount = round2(amount)
		reinvested := round2(reinvestedAmount)
		expenses := round2(amount - reinvested)
		confirmedAt := s.now()

		record := &models.MonthlyInterest{
			InvestmentID:     inv.InvestmentID,
			Month:            target,
			Amount:           amount,
			Reinvested:       reinvested > 0,
			ReinvestedAmount: reinvested,
			ExpensesAmount:   expenses,
			Confirmed:        true,
			ConfirmedAt:      &confirmedAt,
			InterestRate:     inv.InterestRate,
		}
		if err := tx.Create(record).Error; err != nil {
			if isDuplicateKey(err) {
				return interest.ErrAlreadyConfirmed
			}
			return err
		}

		inv.CurrentCapital = add2(inv.CurrentCapital, reinvested)
		inv.TotalInterestEarned = add2(inv.TotalInterestEarned, amount)
		inv.TotalReinvested = add2(inv.TotalReinvested, reinvested)
		inv.TotalExpenses = add2(inv.TotalExpenses, expenses)
		if err := tx.Model(inv).Updates(map[string]interface{}{
			"current_capital":       inv.CurrentCapital,
			"total_interest_earned": inv.TotalInterestEarned,
			"total_reinvested":      inv.TotalReinvested,
			"total_expenses":        inv.TotalExpenses,
		}).Error; err != nil {
			return err
		}

		if err := writeEvent(tx, inv.InvestmentID, models.EventInterestConfirmed, map[string]interface{}{
			"month":             target,
			"amount":            amount,
			"reinvested_amount": reinvested,
			"expenses_amount":   expenses,
			"interest_rate":     inv.InterestRate,
		}); err != nil {
			return err
		}

		inv.MonthlyInterests = append(inv.MonthlyInterests, *record)
		result = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateInterestRate changes the current rate only. Confirmed monthly records
// keep their snapshots; the new rate applies to unconfirmed months.
func (s *Service) UpdateInterestRate(ctx context.Context, userID, investmentID uuid.UUID, newRate float64) (*models.Investment, error) {
	var result *models.Investment

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := getOwned(tx, userID, investmentID)
		if err != nil {
			return err
		}
		if err := interest.ValidateRate(newRate, inv.RateType); err != nil {
			return err
		}

		oldRate := inv.InterestRate
		inv.InterestRate = newRate
		if err := tx.Model(inv).Update("interest_rate", newRate).Error; err != nil {
			return err
		}

		if err := writeEvent(tx, inv.InvestmentID, models.EventRateUpdated, map[string]interface{}{
			"old_rate": oldRate,
			"new_rate": newRate,
		}); err != nil {
			return err
		}

		result = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Rename updates the display name.
func (s *Service) Rename(ctx context.Context, userID, investmentID uuid.UUID, name string) (*models.Investment, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrNameRequired
	}
	inv, err := getOwned(s.DB.WithContext(ctx), userID, investmentID)
	if err != nil {
		return nil, err
	}
	inv.Name = strings.TrimSpace(name)
	if err := s.DB.WithContext(ctx).Model(inv).Update("name", inv.Name).Error; err != nil {
		return nil, err
	}
	return inv, nil
}

func getOwned(tx *gorm.DB, userID, investmentID uuid.UUID) (*models.Investment, error) {
	var inv models.Investment
	err := tx.
		Preload("MonthlyInterests", func(db *gorm.DB) *gorm.DB {
			return db.Order("month ASC")
		}).
		Where("investment_id = ? AND user_id = ?", investmentID, userID).
		First(&inv).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrInvestmentNotFound
		}
		return nil, err
	}
	return &inv, nil
}

func writeEvent(tx *gorm.DB, investmentID uuid.UUID, eventType string, data map[string]interface{}) error {
	payload, _ := json.Marshal(data)
	return tx.Create(&models.InvestmentEvent{
		InvestmentID: investmentID,
		EventType:    eventType,
		EventData:    datatypes.JSON(payload),
	}).Error
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

func add2(a, b float64) float64 {
	return decimal.NewFromFloat(a).Add(decimal.NewFromFloat(b)).Round(2).InexactFloat64()
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint")
}
