package bootstrap

import (
	"provident-backend/internal/app"
	"provident-backend/internal/config"

	"github.com/gofiber/fiber/v2"
)

// New creates the Fiber app for serverless deployments (the api handler
// imports this package, not internal).
func New() (*fiber.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	fiberApp, _, _, err := app.CreateApp(cfg)
	return fiberApp, err
}
