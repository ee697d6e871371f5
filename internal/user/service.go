package user

import (
	"context"
	"errors"
	"strings"

	"provident-backend/internal/models"
	"provident-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrMissingFields       = errors.New("Missing required fields")
	ErrInvalidEmailFormat  = errors.New("Invalid email format")
	ErrInvalidPassword     = errors.New("Invalid password format")
	ErrInvalidFullname     = errors.New("Full name contains invalid characters (only letters, spaces, hyphens, and apostrophes allowed)")
	ErrEmailTaken          = errors.New("User already exists")
	ErrUserNotFound        = errors.New("User not found")
	ErrCurrencyRequired    = errors.New("Currency is required")
	ErrUnsupportedCurrency = errors.New("Unsupported currency code")
)

// supportedCurrencies for the display preference. Display-only; accrual math
// never converts between currencies.
var supportedCurrencies = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "CHF": true,
	"CAD": true, "AUD": true, "JPY": true, "RON": true,
}

// Service holds DB for user operations.
type Service struct {
	DB *gorm.DB
}

// RegisterInput for the public register endpoint.
type RegisterInput struct {
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates a user. Returns the created model (caller sanitizes password_hash).
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if strings.TrimSpace(in.Fullname) == "" || in.Email == "" || in.Password == "" {
		return nil, ErrMissingFields
	}
	if !validation.IsValidEmail(in.Email) {
		return nil, ErrInvalidEmailFormat
	}
	if !validation.IsValidPassword(in.Password) {
		return nil, ErrInvalidPassword
	}
	fullname := strings.TrimSpace(in.Fullname)
	if !validation.IsValidFullname(fullname) {
		return nil, ErrInvalidFullname
	}
	email := strings.TrimSpace(strings.ToLower(in.Email))

	var existing models.User
	if err := s.DB.WithContext(ctx).Where("email = ?", email).First(&existing).Error; err == nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), 10)
	if err != nil {
		return nil, err
	}

	u := &models.User{
		Fullname:          fullname,
		Email:             email,
		PasswordHash:      string(hash),
		PreferredCurrency: "USD",
	}
	if err := s.DB.WithContext(ctx).Create(u).Error; err != nil {
		return nil, err
	}
	return u, nil
}

// PreferredCurrency returns the user's display currency.
func (s *Service) PreferredCurrency(ctx context.Context, userID uuid.UUID) (string, error) {
	var u models.User
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&u).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", ErrUserNotFound
		}
		return "", err
	}
	if u.PreferredCurrency == "" {
		return "USD", nil
	}
	return u.PreferredCurrency, nil
}

// UpdatePreferredCurrency sets the user's display currency.
func (s *Service) UpdatePreferredCurrency(ctx context.Context, userID uuid.UUID, currency string) (string, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return "", ErrCurrencyRequired
	}
	if !supportedCurrencies[currency] {
		return "", ErrUnsupportedCurrency
	}
	res := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("user_id = ?", userID).
		Update("preferred_currency", currency)
	if res.Error != nil {
		return "", res.Error
	}
	if res.RowsAffected == 0 {
		return "", ErrUserNotFound
	}
	return currency, nil
}

// RemoveAccount deletes the user and, through the FK cascade, every
// investment, monthly interest record, and event they own.
func (s *Service) RemoveAccount(ctx context.Context, userID uuid.UUID) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u models.User
		if err := tx.Where("user_id = ?", userID).First(&u).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrUserNotFound
			}
			return err
		}

		var investmentIDs []uuid.UUID
		if err := tx.Model(&models.Investment{}).
			Where("user_id = ?", userID).
			Pluck("investment_id", &investmentIDs).Error; err != nil {
			return err
		}
		if len(investmentIDs) > 0 {
			if err := tx.Where("investment_id IN ?", investmentIDs).Delete(&models.MonthlyInterest{}).Error; err != nil {
				return err
			}
			if err := tx.Where("investment_id IN ?", investmentIDs).Delete(&models.InvestmentEvent{}).Error; err != nil {
				return err
			}
			if err := tx.Where("user_id = ?", userID).Delete(&models.Investment{}).Error; err != nil {
				return err
			}
		}
		return tx.Unscoped().Delete(&u).Error
	})
}
