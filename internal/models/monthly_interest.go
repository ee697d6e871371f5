package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MonthlyInterest is one confirmed month of interest for an investment.
// Month is normalized to the first instant of its calendar month; the
// (investment_id, month) pair is unique, which is the duplicate-confirmation
// safeguard under concurrent requests. Once confirmed, the record is
// immutable: InterestRate is a snapshot taken at confirmation time and later
// rate edits never touch it.
type MonthlyInterest struct {
	InterestID       uuid.UUID  `gorm:"column:interest_id;type:uuid;primaryKey" json:"interest_id"`
	InvestmentID     uuid.UUID  `gorm:"column:investment_id;type:uuid;not null;uniqueIndex:idx_investment_month" json:"investment_id"`
	Month            time.Time  `gorm:"column:month;not null;uniqueIndex:idx_investment_month" json:"month"`
	Amount           float64    `gorm:"column:amount;type:decimal(18,2);not null" json:"amount"`
	Reinvested       bool       `gorm:"column:reinvested;not null;default:false" json:"reinvested"`
	ReinvestedAmount float64    `gorm:"column:reinvested_amount;type:decimal(18,2);not null;default:0" json:"reinvested_amount"`
	ExpensesAmount   float64    `gorm:"column:expenses_amount;type:decimal(18,2);not null;default:0" json:"expenses_amount"`
	Confirmed        bool       `gorm:"column:confirmed;not null;default:false" json:"confirmed"`
	ConfirmedAt      *time.Time `gorm:"column:confirmed_at" json:"confirmed_at,omitempty"`
	InterestRate     float64    `gorm:"column:interest_rate;type:decimal(8,4);not null" json:"interest_rate"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

func (MonthlyInterest) TableName() string {
	return "MonthlyInterests"
}

func (m *MonthlyInterest) BeforeCreate(tx *gorm.DB) error {
	if m.InterestID == uuid.Nil {
		m.InterestID = uuid.New()
	}
	return nil
}
