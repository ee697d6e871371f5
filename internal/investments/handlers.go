package investments

import (
	"errors"
	"time"

	"provident-backend/internal/interest"
	"provident-backend/internal/middleware"
	"provident-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handlers holds the investments service.
type Handlers struct {
	Service *Service
}

// CreateRequest body for POST /api/v1/investments.
type CreateRequest struct {
	Name             string  `json:"name"`
	InitialCapital   float64 `json:"initial_capital"`
	InterestRate     float64 `json:"interest_rate"`
	RateType         string  `json:"rate_type"`
	StartDate        string  `json:"start_date"`
	ProfitLockPeriod int     `json:"profit_lock_period"`
}

// Create POST /api/v1/investments.
func (h *Handlers) Create(c *fiber.Ctx) error {
	actor, err := sessionUserID(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	var req CreateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	if req.Name == "" || req.InitialCapital == 0 || req.StartDate == "" || req.RateType == "" {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	startDate, err := parseDate(req.StartDate)
	if err != nil {
		return response.Error(c, "Invalid start date", 400, nil)
	}

	inv, err := h.Service.Create(c.Context(), actor, CreateInput{
		Name:             req.Name,
		InitialCapital:   req.InitialCapital,
		InterestRate:     req.InterestRate,
		RateType:         interest.RateType(req.RateType),
		StartDate:        startDate,
		ProfitLockPeriod: req.ProfitLockPeriod,
	})
	if err != nil {
		return mapServiceError(c, err)
	}
	return response.SuccessCreated(c, "Investment created successfully", fiber.Map{"investment": inv}, nil)
}

// List GET /api/v1/investments.
func (h *Handlers) List(c *fiber.Ctx) error {
	actor, err := sessionUserID(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	invs, err := h.Service.List(c.Context(), actor)
	if err != nil {
		return mapServiceError(c, err)
	}
	return response.Success(c, "Investments retrieved", fiber.Map{"investments": invs}, fiber.Map{"count": len(invs)})
}

// Get GET /api/v1/investments/:id.
func (h *Handlers) Get(c *fiber.Ctx) error {
	actor, investmentID, err := actorAndID(c)
	if err != nil {
		return err
	}

	inv, err := h.Service.Get(c.Context(), actor, investmentID)
	if err != nil {
		return mapServiceError(c, err)
	}
	return response.Success(c, "Investment retrieved", fiber.Map{"investment": inv}, nil)
}

// Delete DELETE /api/v1/investments/:id.
func (h *Handlers) Delete(c *fiber.Ctx) error {
	actor, investmentID, err := actorAndID(c)
	if err != nil {
		return err
	}

	if err := h.Service.Delete(c.Context(), actor, investmentID); err != nil {
		return mapServiceError(c, err)
	}
	return response.Success(c, "Investment deleted", fiber.Map{}, nil)
}

// Schedule GET /api/v1/investments/:id/schedule — derived monthly view.
func (h *Handlers) Schedule(c *fiber.Ctx) error {
	actor, investmentID, err := actorAndID(c)
	if err != nil {
		return err
	}

	rows, err := h.Service.Schedule(c.Context(), actor, investmentID)
	if err != nil {
		return mapServiceError(c, err)
	}
	return response.Success(c, "Schedule retrieved", fiber.Map{"schedule": rows}, fiber.Map{"count": len(rows)})
}

// UpdateRequest body for PATCH /api/v1/investments/:id. Pointer fields
// distinguish absent from zero.
type UpdateRequest struct {
	InterestRate *float64 `json:"interest_rate"`
	Name         *string  `json:"name"`
}

// Update PATCH /api/v1/investments/:id — rate and/or name.
func (h *Handlers) Update(c *fiber.Ctx) error {
	actor, investmentID, err := actorAndID(c)
	if err != nil {
		return err
	}

	var req UpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Missing update fields", 400, nil)
	}
	if req.InterestRate == nil && req.Name == nil {
		return response.Error(c, "Missing update fields", 400, nil)
	}

	var inv interface{}
	if req.InterestRate != nil {
		updated, err := h.Service.UpdateInterestRate(c.Context(), actor, investmentID, *req.InterestRate)
		if err != nil {
			return mapServiceError(c, err)
		}
		inv = updated
	}
	if req.Name != nil {
		updated, err := h.Service.Rename(c.Context(), actor, investmentID, *req.Name)
		if err != nil {
			return mapServiceError(c, err)
		}
		inv = updated
	}
	return response.Success(c, "Investment updated", fiber.Map{"investment": inv}, nil)
}

// ConfirmRequest body for POST /api/v1/investments/:id/confirm-interest.
type ConfirmRequest struct {
	Month            string  `json:"month"`
	Amount           float64 `json:"amount"`
	ReinvestedAmount float64 `json:"reinvested_amount"`
}

// ConfirmInterest POST /api/v1/investments/:id/confirm-interest.
func (h *Handlers) ConfirmInterest(c *fiber.Ctx) error {
	actor, investmentID, err := actorAndID(c)
	if err != nil {
		return err
	}

	var req ConfirmRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Month and amount are required", 400, nil)
	}
	if req.Month == "" || req.Amount == 0 {
		return response.Error(c, "Month and amount are required", 400, nil)
	}
	month, err := parseDate(req.Month)
	if err != nil {
		return response.Error(c, "Invalid month", 400, nil)
	}

	inv, err := h.Service.ConfirmInterest(c.Context(), actor, investmentID, month, req.Amount, req.ReinvestedAmount)
	if err != nil {
		return mapServiceError(c, err)
	}
	return response.Success(c, "Interest confirmed", fiber.Map{"investment": inv}, nil)
}

func actorAndID(c *fiber.Ctx) (uuid.UUID, uuid.UUID, error) {
	actor, err := sessionUserID(c)
	if err != nil {
		return uuid.Nil, uuid.Nil, response.Unauthorized(c, "Unauthorized")
	}
	investmentID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, response.Error(c, "Invalid investment ID", 400, nil)
	}
	return actor, investmentID, nil
}

func sessionUserID(c *fiber.Ctx) (uuid.UUID, error) {
	return uuid.Parse(middleware.SessionUserID(c))
}

// parseDate accepts "2006-01-02", "2006-01", or RFC3339.
func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", "2006-01", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.New("unrecognized date format")
}

// mapServiceError translates classified service/engine errors into the
// standard error response, one status code per error class.
func mapServiceError(c *fiber.Ctx, err error) error {
	var lockErr *interest.LockedPeriodError
	switch {
	case errors.Is(err, ErrInvestmentNotFound):
		return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
	case errors.Is(err, interest.ErrAlreadyConfirmed):
		return response.Error(c, err.Error(), fiber.StatusConflict, nil)
	case errors.As(err, &lockErr):
		return response.Error(c, lockErr.Error(), fiber.StatusLocked, fiber.Map{
			"earliest_eligible_month": lockErr.EarliestEligible,
		})
	case errors.Is(err, ErrNameRequired),
		errors.Is(err, ErrInvalidCapital),
		errors.Is(err, ErrInvalidStartDate),
		errors.Is(err, ErrInvalidLockPeriod),
		errors.Is(err, interest.ErrInvalidRateType),
		errors.Is(err, interest.ErrRateOutOfBounds),
		errors.Is(err, interest.ErrInvalidAmount),
		errors.Is(err, interest.ErrInvalidReinvested),
		errors.Is(err, interest.ErrUnexpectedAmount),
		errors.Is(err, interest.ErrMonthBeforeAccrual),
		errors.Is(err, interest.ErrMonthTooFarInFuture):
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	default:
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
}
