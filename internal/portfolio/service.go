package portfolio

import (
	"context"

	"provident-backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service computes portfolio-level aggregates over a user's investments.
type Service struct {
	DB *gorm.DB
}

// Summary is the dashboard aggregate view. AverageReturn is a display metric:
// the mean of the stored rates regardless of rate type.
type Summary struct {
	TotalInvested   float64 `json:"total_invested"`
	TotalCurrent    float64 `json:"total_current"`
	TotalEarned     float64 `json:"total_earned"`
	TotalReinvested float64 `json:"total_reinvested"`
	TotalExpenses   float64 `json:"total_expenses"`
	AverageReturn   float64 `json:"average_return"`
	InvestmentCount int     `json:"investment_count"`
}

// Summarize aggregates across every investment the user owns.
func (s *Service) Summarize(ctx context.Context, userID uuid.UUID) (*Summary, error) {
	var invs []models.Investment
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).Find(&invs).Error; err != nil {
		return nil, err
	}

	invested := decimal.Zero
	current := decimal.Zero
	earned := decimal.Zero
	reinvested := decimal.Zero
	expenses := decimal.Zero
	rateSum := decimal.Zero
	for _, inv := range invs {
		invested = invested.Add(decimal.NewFromFloat(inv.InitialCapital))
		current = current.Add(decimal.NewFromFloat(inv.CurrentCapital))
		earned = earned.Add(decimal.NewFromFloat(inv.TotalInterestEarned))
		reinvested = reinvested.Add(decimal.NewFromFloat(inv.TotalReinvested))
		expenses = expenses.Add(decimal.NewFromFloat(inv.TotalExpenses))
		rateSum = rateSum.Add(decimal.NewFromFloat(inv.InterestRate))
	}

	avg := decimal.Zero
	if len(invs) > 0 {
		avg = rateSum.Div(decimal.NewFromInt(int64(len(invs))))
	}

	return &Summary{
		TotalInvested:   invested.Round(2).InexactFloat64(),
		TotalCurrent:    current.Round(2).InexactFloat64(),
		TotalEarned:     earned.Round(2).InexactFloat64(),
		TotalReinvested: reinvested.Round(2).InexactFloat64(),
		TotalExpenses:   expenses.Round(2).InexactFloat64(),
		AverageReturn:   avg.Round(2).InexactFloat64(),
		InvestmentCount: len(invs),
	}, nil
}
