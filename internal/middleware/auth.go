package middleware

import (
	"provident-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const userLocal = "user"

// RequireAuth ensures a user is in the session. Returns 401 with standard error format if not.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := c.Locals(userLocal)
		if user == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		c.Locals("auth", user)
		return c.Next()
	}
}

// GetUser returns the session user from Locals (nil if not logged in).
func GetUser(c *fiber.Ctx) interface{} {
	return c.Locals(userLocal)
}

// SessionUserID extracts the user_id string from the session user map.
// Empty string when not logged in or malformed.
func SessionUserID(c *fiber.Ctx) string {
	m, ok := c.Locals(userLocal).(map[string]interface{})
	if !ok {
		return ""
	}
	id, _ := m["user_id"].(string)
	return id
}
