package investments

import (
	"context"
	"errors"
	"testing"
	"time"

	"provident-backend/internal/interest"
	"provident-backend/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testNow = time.Date(2024, time.June, 10, 12, 0, 0, 0, time.UTC)

func setupService(t *testing.T) (*Service, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Investment{},
		&models.MonthlyInterest{}, &models.InvestmentEvent{},
	))
	return &Service{DB: db, Clock: func() time.Time { return testNow }}, db
}

func createInvestment(t *testing.T, svc *Service, userID uuid.UUID, capital float64) *models.Investment {
	inv, err := svc.Create(context.Background(), userID, CreateInput{
		Name:             "Fixed deposit",
		InitialCapital:   capital,
		InterestRate:     12,
		RateType:         interest.RateTypeAnnual,
		StartDate:        time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC),
		ProfitLockPeriod: 2,
	})
	require.NoError(t, err)
	return inv
}

func monthOf(y int, m time.Month) time.Time {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := setupService(t)
	userID := uuid.New()
	ctx := context.Background()
	start := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)

	_, err := svc.Create(ctx, userID, CreateInput{Name: "", InitialCapital: 100, InterestRate: 5, RateType: interest.RateTypeAnnual, StartDate: start})
	assert.ErrorIs(t, err, ErrNameRequired)

	_, err = svc.Create(ctx, userID, CreateInput{Name: "x", InitialCapital: -5, InterestRate: 5, RateType: interest.RateTypeAnnual, StartDate: start})
	assert.ErrorIs(t, err, ErrInvalidCapital)

	_, err = svc.Create(ctx, userID, CreateInput{Name: "x", InitialCapital: 100, InterestRate: 25, RateType: interest.RateTypeMonthly, StartDate: start})
	assert.ErrorIs(t, err, interest.ErrRateOutOfBounds)

	_, err = svc.Create(ctx, userID, CreateInput{Name: "x", InitialCapital: 100, InterestRate: 5, RateType: interest.RateType("WEEKLY"), StartDate: start})
	assert.ErrorIs(t, err, interest.ErrInvalidRateType)

	_, err = svc.Create(ctx, userID, CreateInput{Name: "x", InitialCapital: 100, InterestRate: 5, RateType: interest.RateTypeAnnual, StartDate: start, ProfitLockPeriod: 120})
	assert.ErrorIs(t, err, ErrInvalidLockPeriod)
}

func TestCreate_SetsCurrentCapitalAndEvent(t *testing.T) {
	svc, db := setupService(t)
	inv := createInvestment(t, svc, uuid.New(), 10000)

	assert.Equal(t, 10000.0, inv.InitialCapital)
	assert.Equal(t, 10000.0, inv.CurrentCapital)

	var events []models.InvestmentEvent
	require.NoError(t, db.Where("investment_id = ?", inv.InvestmentID).Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, models.EventCreated, events[0].EventType)
}

func TestConfirmInterest_AppliesSplit(t *testing.T) {
	svc, _ := setupService(t)
	userID := uuid.New()
	// 100000 at 12% annual: expected interest is 1000 per month.
	inv := createInvestment(t, svc, userID, 100000)

	updated, err := svc.ConfirmInterest(context.Background(), userID, inv.InvestmentID, monthOf(2024, time.March), 1000, 600)
	require.NoError(t, err)

	assert.Equal(t, 100600.0, updated.CurrentCapital)
	assert.Equal(t, 1000.0, updated.TotalInterestEarned)
	assert.Equal(t, 600.0, updated.TotalReinvested)
	assert.Equal(t, 400.0, updated.TotalExpenses)

	require.Len(t, updated.MonthlyInterests, 1)
	rec := updated.MonthlyInterests[0]
	assert.True(t, rec.Month.UTC().Equal(monthOf(2024, time.March)))
	assert.Equal(t, 1000.0, rec.Amount)
	assert.True(t, rec.Reinvested)
	assert.Equal(t, 600.0, rec.ReinvestedAmount)
	assert.Equal(t, 400.0, rec.ExpensesAmount)
	assert.True(t, rec.Confirmed)
	require.NotNil(t, rec.ConfirmedAt)
	assert.Equal(t, 12.0, rec.InterestRate)
}

func TestConfirmInterest_ReadBackMatches(t *testing.T) {
	svc, _ := setupService(t)
	userID := uuid.New()
	inv := createInvestment(t, svc, userID, 10000)

	updated, err := svc.ConfirmInterest(context.Background(), userID, inv.InvestmentID, monthOf(2024, time.March), 100, 70)
	require.NoError(t, err)

	reloaded, err := svc.Get(context.Background(), userID, inv.InvestmentID)
	require.NoError(t, err)
	assert.Equal(t, updated.CurrentCapital, reloaded.CurrentCapital)
	assert.Equal(t, updated.TotalInterestEarned, reloaded.TotalInterestEarned)
	assert.Equal(t, updated.TotalReinvested, reloaded.TotalReinvested)
	assert.Equal(t, updated.TotalExpenses, reloaded.TotalExpenses)
	assert.Equal(t, 10070.0, reloaded.CurrentCapital)
}

func TestConfirmInterest_SecondConfirmationRejected(t *testing.T) {
	svc, db := setupService(t)
	userID := uuid.New()
	inv := createInvestment(t, svc, userID, 10000)
	month := monthOf(2024, time.March)

	_, err := svc.ConfirmInterest(context.Background(), userID, inv.InvestmentID, month, 100, 70)
	require.NoError(t, err)

	_, err = svc.ConfirmInterest(context.Background(), userID, inv.InvestmentID, month, 100, 70)
	assert.ErrorIs(t, err, interest.ErrAlreadyConfirmed)

	// First record unchanged, and totals not double-applied.
	var rec models.MonthlyInterest
	require.NoError(t, db.Where("investment_id = ? AND month = ?", inv.InvestmentID, month).First(&rec).Error)
	assert.Equal(t, 100.0, rec.Amount)
	assert.Equal(t, 70.0, rec.ReinvestedAmount)

	reloaded, err := svc.Get(context.Background(), userID, inv.InvestmentID)
	require.NoError(t, err)
	assert.Equal(t, 10070.0, reloaded.CurrentCapital)
	assert.Equal(t, 100.0, reloaded.TotalInterestEarned)
}

func TestConfirmInterest_Preconditions(t *testing.T) {
	svc, _ := setupService(t)
	userID := uuid.New()
	inv := createInvestment(t, svc, userID, 10000)
	ctx := context.Background()

	// Start month and earlier are not confirmable.
	_, err := svc.ConfirmInterest(ctx, userID, inv.InvestmentID, monthOf(2024, time.January), 100, 0)
	assert.ErrorIs(t, err, interest.ErrMonthBeforeAccrual)

	// Beyond the 12-month forward cap (now is June 2024).
	_, err = svc.ConfirmInterest(ctx, userID, inv.InvestmentID, monthOf(2025, time.July), 100, 0)
	assert.ErrorIs(t, err, interest.ErrMonthTooFarInFuture)

	// February is inside the 2-month profit lock; earliest eligible is March.
	_, err = svc.ConfirmInterest(ctx, userID, inv.InvestmentID, monthOf(2024, time.February), 100, 0)
	var lockErr *interest.LockedPeriodError
	require.True(t, errors.As(err, &lockErr))
	assert.Equal(t, monthOf(2024, time.March), lockErr.EarliestEligible)

	// Reinvested above total.
	_, err = svc.ConfirmInterest(ctx, userID, inv.InvestmentID, monthOf(2024, time.March), 100, 150)
	assert.ErrorIs(t, err, interest.ErrInvalidReinvested)

	// Amount that disagrees with the expected interest.
	_, err = svc.ConfirmInterest(ctx, userID, inv.InvestmentID, monthOf(2024, time.March), 55, 0)
	assert.ErrorIs(t, err, interest.ErrUnexpectedAmount)

	// Unknown investment.
	_, err = svc.ConfirmInterest(ctx, userID, uuid.New(), monthOf(2024, time.March), 100, 0)
	assert.ErrorIs(t, err, ErrInvestmentNotFound)
}

func TestConfirmInterest_UsesReinvestedAdjustedCapital(t *testing.T) {
	svc, _ := setupService(t)
	userID := uuid.New()
	inv := createInvestment(t, svc, userID, 10000)
	ctx := context.Background()

	_, err := svc.ConfirmInterest(ctx, userID, inv.InvestmentID, monthOf(2024, time.March), 100, 70)
	require.NoError(t, err)

	// April expected: (10000 + 70) * 1% = 100.70.
	updated, err := svc.ConfirmInterest(ctx, userID, inv.InvestmentID, monthOf(2024, time.April), 100.70, 0)
	require.NoError(t, err)
	assert.Equal(t, 10070.0, updated.CurrentCapital) // nothing reinvested in April
	assert.Equal(t, 200.70, updated.TotalInterestEarned)
	assert.Equal(t, 130.70, updated.TotalExpenses)
}

func TestUpdateInterestRate_SnapshotsUntouched(t *testing.T) {
	svc, db := setupService(t)
	userID := uuid.New()
	inv := createInvestment(t, svc, userID, 10000)
	ctx := context.Background()
	month := monthOf(2024, time.March)

	_, err := svc.ConfirmInterest(ctx, userID, inv.InvestmentID, month, 100, 70)
	require.NoError(t, err)

	updated, err := svc.UpdateInterestRate(ctx, userID, inv.InvestmentID, 24)
	require.NoError(t, err)
	assert.Equal(t, 24.0, updated.InterestRate)

	// Confirmed record keeps its snapshot and amount.
	var rec models.MonthlyInterest
	require.NoError(t, db.Where("investment_id = ? AND month = ?", inv.InvestmentID, month).First(&rec).Error)
	assert.Equal(t, 12.0, rec.InterestRate)
	assert.Equal(t, 100.0, rec.Amount)

	// Unconfirmed future months pick up the new rate: (10000+70) * 2%.
	reloaded, err := svc.Get(ctx, userID, inv.InvestmentID)
	require.NoError(t, err)
	expected := interest.ExpectedInterest(reloaded.Terms(), reloaded.History(), monthOf(2024, time.April))
	assert.Equal(t, 201.40, expected)
}

func TestUpdateInterestRate_Bounds(t *testing.T) {
	svc, _ := setupService(t)
	userID := uuid.New()
	inv := createInvestment(t, svc, userID, 10000)

	_, err := svc.UpdateInterestRate(context.Background(), userID, inv.InvestmentID, 101)
	assert.ErrorIs(t, err, interest.ErrRateOutOfBounds)
}

func TestSchedule_DerivedStatuses(t *testing.T) {
	svc, _ := setupService(t)
	userID := uuid.New()
	inv := createInvestment(t, svc, userID, 10000)
	ctx := context.Background()

	_, err := svc.ConfirmInterest(ctx, userID, inv.InvestmentID, monthOf(2024, time.March), 100, 70)
	require.NoError(t, err)

	rows, err := svc.Schedule(ctx, userID, inv.InvestmentID)
	require.NoError(t, err)
	require.NotEmpty(t, rows)

	// Feb 2024 through June 2025 (now = June 2024, horizon 12).
	assert.Equal(t, monthOf(2024, time.February), rows[0].Month)
	assert.Equal(t, monthOf(2025, time.June), rows[len(rows)-1].Month)

	byMonth := make(map[time.Time]ScheduleRow)
	for _, r := range rows {
		byMonth[r.Month] = r
	}
	assert.Equal(t, interest.StatusLocked, byMonth[monthOf(2024, time.February)].Status)
	assert.Equal(t, interest.StatusConfirmed, byMonth[monthOf(2024, time.March)].Status)
	assert.Equal(t, interest.StatusPending, byMonth[monthOf(2024, time.April)].Status)

	assert.Equal(t, 100.0, byMonth[monthOf(2024, time.March)].ExpectedAmount)
	assert.Equal(t, 100.70, byMonth[monthOf(2024, time.April)].ExpectedAmount)
	require.NotNil(t, byMonth[monthOf(2024, time.March)].Record)
	assert.Nil(t, byMonth[monthOf(2024, time.April)].Record)
}

func TestGet_ScopedToOwner(t *testing.T) {
	svc, _ := setupService(t)
	owner := uuid.New()
	inv := createInvestment(t, svc, owner, 10000)

	_, err := svc.Get(context.Background(), uuid.New(), inv.InvestmentID)
	assert.ErrorIs(t, err, ErrInvestmentNotFound)
}

func TestDelete_RemovesRecordsAndEvents(t *testing.T) {
	svc, db := setupService(t)
	userID := uuid.New()
	inv := createInvestment(t, svc, userID, 10000)
	ctx := context.Background()

	_, err := svc.ConfirmInterest(ctx, userID, inv.InvestmentID, monthOf(2024, time.March), 100, 70)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, userID, inv.InvestmentID))

	var recCount, eventCount int64
	db.Model(&models.MonthlyInterest{}).Where("investment_id = ?", inv.InvestmentID).Count(&recCount)
	db.Model(&models.InvestmentEvent{}).Where("investment_id = ?", inv.InvestmentID).Count(&eventCount)
	assert.Zero(t, recCount)
	assert.Zero(t, eventCount)

	_, err = svc.Get(ctx, userID, inv.InvestmentID)
	assert.ErrorIs(t, err, ErrInvestmentNotFound)
}

func TestConfirmInterest_WritesEvent(t *testing.T) {
	svc, db := setupService(t)
	userID := uuid.New()
	inv := createInvestment(t, svc, userID, 10000)

	_, err := svc.ConfirmInterest(context.Background(), userID, inv.InvestmentID, monthOf(2024, time.March), 100, 70)
	require.NoError(t, err)

	var events []models.InvestmentEvent
	require.NoError(t, db.Where("investment_id = ? AND event_type = ?", inv.InvestmentID, models.EventInterestConfirmed).Find(&events).Error)
	require.Len(t, events, 1)
	assert.Contains(t, string(events[0].EventData), "reinvested_amount")
}
