package user

import (
	"provident-backend/internal/middleware"
	"provident-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const userSessionsPrefix = "user_sessions:"

// Handlers holds the user service and session config (register sets a session + cookie).
type Handlers struct {
	Service *Service
	Rdb     *redis.Client
	Config  middleware.SessionConfig
}

// RegisterRequest body.
type RegisterRequest struct {
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register POST /api/v1/users/register — create user, start session, set cookie, 201 with data.user.
func (h *Handlers) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Missing required fields", 400, nil)
	}

	u, err := h.Service.Register(c.Context(), RegisterInput{
		Fullname: req.Fullname,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch err {
		case ErrMissingFields, ErrInvalidEmailFormat, ErrInvalidPassword, ErrInvalidFullname, ErrEmailTaken:
			return response.Error(c, err.Error(), 400, nil)
		default:
			return response.Error(c, "Internal Server Error", 500, nil)
		}
	}

	// Rotate session and set identity so register doubles as sign-in.
	sid := middleware.RegenerateSessionID(c)
	middleware.SetSessionUser(c, middleware.SessionUser{
		UserID:   u.UserID.String(),
		Fullname: u.Fullname,
		Email:    u.Email,
	})
	if h.Rdb != nil {
		_ = h.Rdb.SAdd(c.Context(), userSessionsPrefix+u.UserID.String(), sid).Err()
	}

	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = "s:" + sid
	c.Cookie(&cookie)

	return response.SuccessCreated(c, "User created successfully", fiber.Map{
		"user": fiber.Map{
			"user_id":            u.UserID.String(),
			"fullname":           u.Fullname,
			"email":              u.Email,
			"preferred_currency": u.PreferredCurrency,
		},
	}, nil)
}

// GetCurrency GET /api/v1/users/currency — current display currency.
func (h *Handlers) GetCurrency(c *fiber.Ctx) error {
	userID, err := sessionUserID(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	currency, err := h.Service.PreferredCurrency(c.Context(), userID)
	if err != nil {
		if err == ErrUserNotFound {
			return response.Error(c, err.Error(), 404, nil)
		}
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Currency preference", fiber.Map{"currency": currency}, nil)
}

// UpdateCurrencyRequest body.
type UpdateCurrencyRequest struct {
	Currency string `json:"currency"`
}

// UpdateCurrency PUT /api/v1/users/currency.
func (h *Handlers) UpdateCurrency(c *fiber.Ctx) error {
	userID, err := sessionUserID(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	var req UpdateCurrencyRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Currency is required", 400, nil)
	}

	currency, err := h.Service.UpdatePreferredCurrency(c.Context(), userID, req.Currency)
	if err != nil {
		switch err {
		case ErrCurrencyRequired, ErrUnsupportedCurrency:
			return response.Error(c, err.Error(), 400, nil)
		case ErrUserNotFound:
			return response.Error(c, err.Error(), 404, nil)
		default:
			return response.Error(c, "Internal Server Error", 500, nil)
		}
	}
	return response.Success(c, "Currency preference updated", fiber.Map{"currency": currency}, nil)
}

// RemoveAccount DELETE /api/v1/users/remove-account — delete user and cascade
// investments, then destroy the session.
func (h *Handlers) RemoveAccount(c *fiber.Ctx) error {
	userID, err := sessionUserID(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	if err := h.Service.RemoveAccount(c.Context(), userID); err != nil {
		if err == ErrUserNotFound {
			return response.Error(c, err.Error(), 404, nil)
		}
		return response.Error(c, "Internal Server Error", 500, nil)
	}

	sid := middleware.GetSessionID(c)
	if h.Rdb != nil && sid != "" {
		_ = h.Rdb.Del(c.Context(), middleware.SessionRedisPrefix+sid).Err()
		_ = h.Rdb.SRem(c.Context(), userSessionsPrefix+userID.String(), sid).Err()
	}
	middleware.DestroySession(c)
	c.Locals("session_id", "")

	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = ""
	cookie.MaxAge = -1
	c.Cookie(&cookie)

	return response.Success(c, "Account removed", fiber.Map{}, nil)
}

func sessionUserID(c *fiber.Ctx) (uuid.UUID, error) {
	id := middleware.SessionUserID(c)
	return uuid.Parse(id)
}
