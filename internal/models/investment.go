package models

import (
	"time"

	"provident-backend/internal/interest"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Investment is a principal earning monthly interest. CurrentCapital and the
// three totals change only through interest confirmation.
type Investment struct {
	InvestmentID        uuid.UUID             `gorm:"column:investment_id;type:uuid;primaryKey" json:"investment_id"`
	UserID              uuid.UUID             `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	Name                string                `gorm:"column:name;not null" json:"name"`
	InitialCapital      float64               `gorm:"column:initial_capital;type:decimal(18,2);not null" json:"initial_capital"`
	CurrentCapital      float64               `gorm:"column:current_capital;type:decimal(18,2);not null" json:"current_capital"`
	InterestRate        float64               `gorm:"column:interest_rate;type:decimal(8,4);not null" json:"interest_rate"`
	RateType            interest.RateType     `gorm:"column:rate_type;not null;default:ANNUAL" json:"rate_type"`
	StartDate           time.Time             `gorm:"column:start_date;not null" json:"start_date"`
	ProfitLockPeriod    int                   `gorm:"column:profit_lock_period;not null;default:0" json:"profit_lock_period"`
	TotalInterestEarned float64               `gorm:"column:total_interest_earned;type:decimal(18,2);not null;default:0" json:"total_interest_earned"`
	TotalReinvested     float64               `gorm:"column:total_reinvested;type:decimal(18,2);not null;default:0" json:"total_reinvested"`
	TotalExpenses       float64               `gorm:"column:total_expenses;type:decimal(18,2);not null;default:0" json:"total_expenses"`
	CreatedAt           time.Time             `json:"createdAt"`
	UpdatedAt           time.Time             `json:"updatedAt"`

	MonthlyInterests []MonthlyInterest `gorm:"foreignKey:InvestmentID;constraint:OnDelete:CASCADE" json:"monthly_interests,omitempty"`
}

func (Investment) TableName() string {
	return "Investments"
}

func (i *Investment) BeforeCreate(tx *gorm.DB) error {
	if i.InvestmentID == uuid.Nil {
		i.InvestmentID = uuid.New()
	}
	return nil
}

// Terms extracts the accrual-relevant fields for the interest engine.
func (i *Investment) Terms() interest.Terms {
	return interest.Terms{
		InitialCapital:   i.InitialCapital,
		InterestRate:     i.InterestRate,
		RateType:         i.RateType,
		StartDate:        i.StartDate,
		ProfitLockPeriod: i.ProfitLockPeriod,
	}
}

// History converts the loaded monthly interest records for the engine.
func (i *Investment) History() []interest.Record {
	records := make([]interest.Record, 0, len(i.MonthlyInterests))
	for _, mi := range i.MonthlyInterests {
		records = append(records, interest.Record{
			Month:            mi.Month,
			Amount:           mi.Amount,
			ReinvestedAmount: mi.ReinvestedAmount,
			Confirmed:        mi.Confirmed,
		})
	}
	return records
}
