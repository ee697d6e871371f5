package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Investment event types.
const (
	EventCreated           = "CREATED"
	EventInterestConfirmed = "INTEREST_CONFIRMED"
	EventRateUpdated       = "RATE_UPDATED"
)

// InvestmentEvent is an append-only audit record written in the same
// transaction as the change it describes.
type InvestmentEvent struct {
	EventID      uuid.UUID      `gorm:"column:event_id;type:uuid;primaryKey" json:"event_id"`
	InvestmentID uuid.UUID      `gorm:"column:investment_id;type:uuid;not null;index" json:"investment_id"`
	EventType    string         `gorm:"column:event_type;not null" json:"event_type"`
	EventData    datatypes.JSON `gorm:"column:event_data" json:"event_data"`
	CreatedAt    time.Time      `json:"createdAt"`
}

func (InvestmentEvent) TableName() string {
	return "InvestmentEvents"
}

func (e *InvestmentEvent) BeforeCreate(tx *gorm.DB) error {
	if e.EventID == uuid.Nil {
		e.EventID = uuid.New()
	}
	return nil
}
