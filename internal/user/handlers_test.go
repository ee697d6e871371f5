package user

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"provident-backend/internal/middleware"
	"provident-backend/internal/models"
	"provident-backend/internal/pkg/response"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupUserHandlers(t *testing.T) (*Handlers, *gorm.DB, *redis.Client) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Investment{},
		&models.MonthlyInterest{}, &models.InvestmentEvent{},
	))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})

	h := &Handlers{
		Service: &Service{DB: db},
		Rdb:     rdb,
		Config:  middleware.SessionConfig{},
	}
	return h, db, rdb
}

// newUserApp wires routes with session Locals; pass uuid.Nil for anonymous.
func newUserApp(h *Handlers, userID uuid.UUID) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("session_data", make(map[string]interface{}))
		c.Locals("session_id", "test-session")
		if userID != uuid.Nil {
			c.Locals("user", map[string]interface{}{
				"user_id":  userID.String(),
				"fullname": "Test User",
				"email":    "test@example.com",
			})
		} else {
			c.Locals("user", nil)
		}
		return c.Next()
	})
	app.Post("/register", h.Register)
	app.Get("/currency", h.GetCurrency)
	app.Put("/currency", h.UpdateCurrency)
	app.Delete("/remove-account", h.RemoveAccount)
	return app
}

func request(t *testing.T, app *fiber.App, method, path string, body interface{}) (int, map[string]interface{}) {
	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	var out map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func seedUser(t *testing.T, db *gorm.DB, email string) *models.User {
	hash, err := bcrypt.GenerateFromPassword([]byte("Passw0rd!"), 10)
	require.NoError(t, err)
	u := &models.User{
		Fullname:          "Seed User",
		Email:             email,
		PasswordHash:      string(hash),
		PreferredCurrency: "USD",
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func TestRegister_Success(t *testing.T) {
	h, db, _ := setupUserHandlers(t)
	app := newUserApp(h, uuid.Nil)

	code, body := request(t, app, "POST", "/register", map[string]interface{}{
		"fullname": "Ada Lovelace",
		"email":    "Ada@Example.com",
		"password": "Passw0rd!",
	})
	require.Equal(t, 201, code)
	assert.Equal(t, "success", body["status"])

	user := body["data"].(map[string]interface{})["user"].(map[string]interface{})
	assert.Equal(t, "Ada Lovelace", user["fullname"])
	assert.Equal(t, "ada@example.com", user["email"])
	assert.Equal(t, "USD", user["preferred_currency"])
	assert.NotEmpty(t, user["user_id"])

	var stored models.User
	require.NoError(t, db.Where("email = ?", "ada@example.com").First(&stored).Error)
	assert.NotEqual(t, "Passw0rd!", stored.PasswordHash)
}

func TestRegister_Validation(t *testing.T) {
	h, _, _ := setupUserHandlers(t)
	app := newUserApp(h, uuid.Nil)

	cases := []struct {
		name string
		body map[string]interface{}
		msg  string
	}{
		{"missing fields", map[string]interface{}{"email": "a@b.com"}, "Missing required fields"},
		{"bad email", map[string]interface{}{"fullname": "A B", "email": "not-an-email", "password": "Passw0rd!"}, "Invalid email format"},
		{"weak password", map[string]interface{}{"fullname": "A B", "email": "a@b.com", "password": "short"}, "Invalid password format"},
		{"bad fullname", map[string]interface{}{"fullname": "Robert); DROP", "email": "a@b.com", "password": "Passw0rd!"}, "invalid characters"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, body := request(t, app, "POST", "/register", tc.body)
			require.Equal(t, 400, code)
			var eb response.ErrorBody
			b, _ := json.Marshal(body)
			require.NoError(t, json.Unmarshal(b, &eb))
			assert.Contains(t, eb.Error.Message, tc.msg)
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	h, db, _ := setupUserHandlers(t)
	app := newUserApp(h, uuid.Nil)
	seedUser(t, db, "ada@example.com")

	code, body := request(t, app, "POST", "/register", map[string]interface{}{
		"fullname": "Ada Lovelace",
		"email":    "ada@example.com",
		"password": "Passw0rd!",
	})
	require.Equal(t, 400, code)
	errObj := body["error"].(map[string]interface{})
	assert.Equal(t, "User already exists", errObj["message"])
}

func TestCurrency_GetAndUpdate(t *testing.T) {
	h, db, _ := setupUserHandlers(t)
	u := seedUser(t, db, "ada@example.com")
	app := newUserApp(h, u.UserID)

	code, body := request(t, app, "GET", "/currency", nil)
	require.Equal(t, 200, code)
	assert.Equal(t, "USD", body["data"].(map[string]interface{})["currency"])

	code, body = request(t, app, "PUT", "/currency", map[string]interface{}{"currency": "eur"})
	require.Equal(t, 200, code)
	assert.Equal(t, "EUR", body["data"].(map[string]interface{})["currency"])

	var stored models.User
	require.NoError(t, db.Where("user_id = ?", u.UserID).First(&stored).Error)
	assert.Equal(t, "EUR", stored.PreferredCurrency)
}

func TestCurrency_Unsupported(t *testing.T) {
	h, db, _ := setupUserHandlers(t)
	u := seedUser(t, db, "ada@example.com")
	app := newUserApp(h, u.UserID)

	code, body := request(t, app, "PUT", "/currency", map[string]interface{}{"currency": "XYZ"})
	require.Equal(t, 400, code)
	errObj := body["error"].(map[string]interface{})
	assert.Equal(t, "Unsupported currency code", errObj["message"])
}

func TestCurrency_Unauthenticated(t *testing.T) {
	h, _, _ := setupUserHandlers(t)
	app := newUserApp(h, uuid.Nil)

	code, _ := request(t, app, "GET", "/currency", nil)
	assert.Equal(t, 401, code)
}

func TestRemoveAccount_CascadesAndKillsSession(t *testing.T) {
	h, db, rdb := setupUserHandlers(t)
	u := seedUser(t, db, "ada@example.com")
	app := newUserApp(h, u.UserID)

	inv := &models.Investment{
		UserID:           u.UserID,
		Name:             "Bond ladder",
		InitialCapital:   1000,
		CurrentCapital:   1000,
		InterestRate:     5,
		RateType:         "ANNUAL",
		ProfitLockPeriod: 0,
	}
	require.NoError(t, db.Create(inv).Error)
	require.NoError(t, db.Create(&models.MonthlyInterest{
		InvestmentID: inv.InvestmentID,
		Amount:       4.17,
		Confirmed:    true,
	}).Error)

	ctx := context.Background()
	require.NoError(t, rdb.Set(ctx, middleware.SessionRedisPrefix+"test-session", "{}", 0).Err())
	require.NoError(t, rdb.SAdd(ctx, userSessionsPrefix+u.UserID.String(), "test-session").Err())

	code, _ := request(t, app, "DELETE", "/remove-account", nil)
	require.Equal(t, 200, code)

	var userCount, invCount, recCount int64
	db.Model(&models.User{}).Count(&userCount)
	db.Model(&models.Investment{}).Count(&invCount)
	db.Model(&models.MonthlyInterest{}).Count(&recCount)
	assert.Zero(t, userCount)
	assert.Zero(t, invCount)
	assert.Zero(t, recCount)

	exists, err := rdb.Exists(ctx, middleware.SessionRedisPrefix+"test-session").Result()
	require.NoError(t, err)
	assert.Zero(t, exists)
}

func TestRemoveAccount_UnknownUser(t *testing.T) {
	h, _, _ := setupUserHandlers(t)
	app := newUserApp(h, uuid.New())

	code, body := request(t, app, "DELETE", "/remove-account", nil)
	require.Equal(t, 404, code)
	errObj := body["error"].(map[string]interface{})
	assert.Equal(t, "User not found", errObj["message"])
}
