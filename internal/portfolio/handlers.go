package portfolio

import (
	"provident-backend/internal/middleware"
	"provident-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handlers holds the portfolio service.
type Handlers struct {
	Service *Service
}

// Summary GET /api/v1/portfolio/summary.
func (h *Handlers) Summary(c *fiber.Ctx) error {
	userID, err := uuid.Parse(middleware.SessionUserID(c))
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	summary, err := h.Service.Summarize(c.Context(), userID)
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Portfolio summary", fiber.Map{"summary": summary}, nil)
}
