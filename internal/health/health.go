package health

import (
	"context"
	"runtime"
	"time"

	"provident-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

var startedAt = time.Now()

// DBPinger is optional for health check. If nil, database is reported as disconnected.
type DBPinger interface {
	Ping() error
}

// Handlers holds health-check dependencies.
type Handlers struct {
	Rdb *redis.Client
	DB  DBPinger
}

// DepStatus is one dependency's health.
type DepStatus struct {
	Status string      `json:"status"`
	PingMs interface{} `json:"pingMs"`
}

// JSON GET /health/json — uptime + dependency status.
func (h *Handlers) JSON(c *fiber.Ctx) error {
	deps := map[string]DepStatus{
		"database": h.pingDB(),
		"redis":    h.pingRedis(),
	}

	status := "ok"
	for _, d := range deps {
		if d.Status != "connected" {
			status = "degraded"
		}
	}

	return response.Success(c, "Health", fiber.Map{
		"status":        status,
		"uptimeSeconds": int64(time.Since(startedAt).Seconds()),
		"goVersion":     runtime.Version(),
		"dependencies":  deps,
	}, nil)
}

func (h *Handlers) pingDB() DepStatus {
	if h.DB == nil {
		return DepStatus{Status: "disconnected", PingMs: nil}
	}
	start := time.Now()
	if err := h.DB.Ping(); err != nil {
		return DepStatus{Status: "error", PingMs: nil}
	}
	return DepStatus{Status: "connected", PingMs: time.Since(start).Milliseconds()}
}

func (h *Handlers) pingRedis() DepStatus {
	if h.Rdb == nil {
		return DepStatus{Status: "disconnected", PingMs: nil}
	}
	start := time.Now()
	if err := h.Rdb.Ping(context.Background()).Err(); err != nil {
		return DepStatus{Status: "error", PingMs: nil}
	}
	return DepStatus{Status: "connected", PingMs: time.Since(start).Milliseconds()}
}
