package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User owns investments; deleting a user cascades to them.
type User struct {
	UserID            uuid.UUID      `gorm:"column:user_id;type:uuid;primaryKey" json:"user_id"`
	Fullname          string         `gorm:"column:fullname;not null" json:"fullname"`
	Email             string         `gorm:"column:email;not null;uniqueIndex" json:"email"`
	PasswordHash      string         `gorm:"column:password_hash;not null" json:"-"`
	PreferredCurrency string         `gorm:"column:preferred_currency;not null;default:USD" json:"preferred_currency"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`

	Investments []Investment `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (User) TableName() string {
	return "Users"
}

// BeforeCreate sets UUID if not set (for DBs without gen_random_uuid).
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.UserID == uuid.Nil {
		u.UserID = uuid.New()
	}
	return nil
}
