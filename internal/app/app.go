package app

import (
	"provident-backend/internal/auth"
	"provident-backend/internal/config"
	"provident-backend/internal/database"
	"provident-backend/internal/health"
	"provident-backend/internal/investments"
	"provident-backend/internal/middleware"
	"provident-backend/internal/portfolio"
	"provident-backend/internal/user"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) Ping() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// CreateApp builds the Fiber app with all global middleware and route registration.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	// CORS (before session)
	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))

	sessionCfg := middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		RedisURL:          cfg.RedisURL,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.Env == "production",
	}
	sessionHandler, rdb, err := middleware.Session(sessionCfg)
	if err != nil {
		return nil, nil, nil, err
	}
	app.Use(sessionHandler)

	// Tracing + route logger
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		db, err = database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := database.AutoMigrate(db); err != nil {
			return nil, nil, nil, err
		}
	}

	// Health (no auth)
	var dbPinger health.DBPinger
	if db != nil {
		dbPinger = &gormDBPinger{db: db}
	}
	healthHandlers := &health.Handlers{Rdb: rdb, DB: dbPinger}
	app.Get("/health/json", healthHandlers.JSON)

	// Auth (no auth middleware)
	var userFinder auth.UserFinder
	if db != nil {
		userFinder = &auth.GormUserFinder{DB: db}
	}
	authHandlers := &auth.Handlers{UserFinder: userFinder, Rdb: rdb, Config: sessionCfg}
	authGroup := app.Group("/api/v1/auth")
	authGroup.Post("/login", authHandlers.Login)
	authGroup.Get("/me", authHandlers.Me)
	authGroup.Delete("/logout", authHandlers.Logout)

	if db != nil && rdb != nil {
		// User module: register is public, the rest requires auth
		userService := &user.Service{DB: db}
		userHandlers := &user.Handlers{Service: userService, Rdb: rdb, Config: sessionCfg}
		app.Post("/api/v1/users/register", userHandlers.Register)
		userGroup := app.Group("/api/v1/users", middleware.RequireAuth())
		userGroup.Get("/currency", userHandlers.GetCurrency)
		userGroup.Put("/currency", userHandlers.UpdateCurrency)
		userGroup.Delete("/remove-account", userHandlers.RemoveAccount)

		// Investments module
		invService := &investments.Service{DB: db}
		invHandlers := &investments.Handlers{Service: invService}
		invGroup := app.Group("/api/v1/investments", middleware.RequireAuth())
		invGroup.Get("/", invHandlers.List)
		invGroup.Post("/", invHandlers.Create)
		invGroup.Get("/:id", invHandlers.Get)
		invGroup.Patch("/:id", invHandlers.Update)
		invGroup.Delete("/:id", invHandlers.Delete)
		invGroup.Get("/:id/schedule", invHandlers.Schedule)
		invGroup.Post("/:id/confirm-interest", invHandlers.ConfirmInterest)

		// Portfolio module
		pfService := &portfolio.Service{DB: db}
		pfHandlers := &portfolio.Handlers{Service: pfService}
		pfGroup := app.Group("/api/v1/portfolio", middleware.RequireAuth())
		pfGroup.Get("/summary", pfHandlers.Summary)
	}

	return app, db, rdb, nil
}
