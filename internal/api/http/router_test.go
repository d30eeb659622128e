package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/oakstreet-digital/business-site-backend/internal/api/http/handlers"
	"github.com/oakstreet-digital/business-site-backend/internal/auth"
	"github.com/oakstreet-digital/business-site-backend/internal/config"
	"github.com/oakstreet-digital/business-site-backend/internal/domain"
	"github.com/oakstreet-digital/business-site-backend/internal/events"
	"github.com/oakstreet-digital/business-site-backend/internal/observability"
	"github.com/oakstreet-digital/business-site-backend/internal/ratelimit"
	"github.com/oakstreet-digital/business-site-backend/internal/repository"
	"github.com/oakstreet-digital/business-site-backend/internal/service"
)

// fakeUserRepo is an in-memory repository.UserRepository for HTTP-level tests.
type fakeUserRepo struct {
	mu    sync.Mutex
	seq   int
	users map[string]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*domain.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return &pgconn.PgError{Code: "23505"}
		}
	}
	r.seq++
	user.ID = fmt.Sprintf("user-%d", r.seq)
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	r.users[user.ID] = &stored
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user, ok := r.users[id]; ok {
		copied := *user
		return &copied, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) GetByUsernameOrEmail(_ context.Context, identifier string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Username == identifier || user.Email == identifier {
			copied := *user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) UpdatePassword(_ context.Context, id, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.PasswordHash = passwordHash
	user.UpdatedAt = time.Now()
	return nil
}

func (r *fakeUserRepo) Touch(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.UpdatedAt = time.Now()
	return nil
}

func (r *fakeUserRepo) List(_ context.Context) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]domain.User, 0, len(r.users))
	for _, user := range r.users {
		result = append(result, *user)
	}
	return result, nil
}

func (r *fakeUserRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.users)), nil
}

func (r *fakeUserRepo) CountByRole(_ context.Context, role domain.Role) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, user := range r.users {
		if user.Role == role {
			count++
		}
	}
	return count, nil
}

// fakeContactRepo is an in-memory repository.ContactRepository. Listing
// returns newest first, matching the SQL ordering.
type fakeContactRepo struct {
	mu       sync.Mutex
	seq      int
	contacts []domain.Contact
}

func (r *fakeContactRepo) Create(_ context.Context, contact *domain.Contact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	contact.ID = fmt.Sprintf("contact-%d", r.seq)
	contact.CreatedAt = time.Now().Add(time.Duration(r.seq) * time.Millisecond)
	contact.UpdatedAt = contact.CreatedAt
	r.contacts = append(r.contacts, *contact)
	return nil
}

func (r *fakeContactRepo) Update(_ context.Context, contact *domain.Contact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.contacts {
		if r.contacts[i].ID == contact.ID {
			r.contacts[i].Status = contact.Status
			r.contacts[i].Message = contact.Message
			r.contacts[i].UpdatedAt = time.Now()
			contact.UpdatedAt = r.contacts[i].UpdatedAt
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *fakeContactRepo) GetByID(_ context.Context, id string) (*domain.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.contacts {
		if r.contacts[i].ID == id {
			copied := r.contacts[i]
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeContactRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.contacts {
		if r.contacts[i].ID == id {
			r.contacts = append(r.contacts[:i], r.contacts[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *fakeContactRepo) List(_ context.Context, filter repository.ContactFilter) ([]domain.Contact, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []domain.Contact
	for i := len(r.contacts) - 1; i >= 0; i-- {
		contact := r.contacts[i]
		if filter.Status != nil && contact.Status != *filter.Status {
			continue
		}
		if filter.Search != nil {
			needle := strings.ToLower(*filter.Search)
			if !strings.Contains(strings.ToLower(contact.Name), needle) &&
				!strings.Contains(strings.ToLower(contact.Email), needle) &&
				!strings.Contains(strings.ToLower(contact.Subject), needle) {
				continue
			}
		}
		matched = append(matched, contact)
	}

	total := int64(len(matched))
	if filter.Offset >= len(matched) {
		return nil, total, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

func (r *fakeContactRepo) CountByStatus(_ context.Context) (map[domain.ContactStatus]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	breakdown := make(map[domain.ContactStatus]int64, len(domain.ContactStatuses))
	for _, status := range domain.ContactStatuses {
		breakdown[status] = 0
	}
	for i := range r.contacts {
		breakdown[r.contacts[i].Status]++
	}
	return breakdown, nil
}

func (r *fakeContactRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.contacts)), nil
}

func (r *fakeContactRepo) CountCreatedSince(_ context.Context, since time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for i := range r.contacts {
		if !r.contacts[i].CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "test", Env: "development"},
		Auth: config.AuthConfig{
			JWTSecret:         "test-secret",
			TokenTTLHours:     1,
			BcryptCost:        4,
			SeedOwnerUsername: "admin",
			SeedOwnerEmail:    "admin@example.com",
			SeedOwnerPassword: "admin123",
		},
		RateLimit: config.RateLimitConfig{MaxRequests: 1000, WindowMinutes: 15},
		CORS:      config.CORSConfig{AllowOrigins: "*"},
	}
}

func buildApp(t *testing.T, limiter *ratelimit.Limiter) *fiber.App {
	t.Helper()

	cfg := testConfig()
	logger := zap.NewNop()
	users := newFakeUserRepo()
	contacts := &fakeContactRepo{}
	dispatcher := events.NewInMemoryDispatcher()

	authService := service.NewAuthService(*cfg, users, logger)
	require.NoError(t, authService.Bootstrap(context.Background()))
	contactService := service.NewContactService(contacts, dispatcher)
	adminService := service.NewAdminService(contacts, users, dispatcher)

	if limiter == nil {
		limiter = ratelimit.New(nil, cfg.RateLimit.MaxRequests, cfg.RateLimit.Window(), logger)
	}

	app := fiber.New()
	RegisterMiddlewares(app, cfg, logger, observability.NewMetrics())
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, "test", nil, nil),
		Auth:           handlers.NewAuthHandler(authService),
		Contact:        handlers.NewContactHandler(contactService),
		Admin:          handlers.NewAdminHandler(adminService),
		AuthMiddleware: auth.NewMiddleware(authService.TokenManager()),
		Limiter:        limiter,
	})
	return app
}

func newTestApp(t *testing.T) *fiber.App {
	return buildApp(t, nil)
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp.StatusCode, decoded
}

func login(t *testing.T, app *fiber.App, username, password string) string {
	t.Helper()
	status, body := doJSON(t, app, fiber.MethodPost, "/api/auth/login", "", fiber.Map{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusOK, status, "login failed: %v", body)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func submitContact(t *testing.T, app *fiber.App, name, subject string) string {
	t.Helper()
	status, body := doJSON(t, app, fiber.MethodPost, "/api/contact/submit", "", fiber.Map{
		"name":    name,
		"email":   strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com",
		"subject": subject,
		"message": "Please get back to me.",
	})
	require.Equal(t, http.StatusCreated, status, "submit failed: %v", body)
	id, _ := body["contactId"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestRouter_UnknownAPIRoute(t *testing.T) {
	app := newTestApp(t)

	status, body := doJSON(t, app, fiber.MethodGet, "/api/does-not-exist", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "API endpoint not found", body["error"])
}

func TestRouter_HealthLive(t *testing.T) {
	app := newTestApp(t)

	status, body := doJSON(t, app, fiber.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alive", body["status"])
}

func TestRouter_SubmitContact(t *testing.T) {
	app := newTestApp(t)

	t.Run("valid submission", func(t *testing.T) {
		id := submitContact(t, app, "Jane Doe", "Quote request")
		assert.NotEmpty(t, id)
	})

	t.Run("invalid submission lists every violation", func(t *testing.T) {
		status, body := doJSON(t, app, fiber.MethodPost, "/api/contact/submit", "", fiber.Map{
			"email": "not-an-email",
		})
		assert.Equal(t, http.StatusBadRequest, status)
		violations, ok := body["errors"].([]any)
		require.True(t, ok, "expected errors array, got %v", body)
		assert.Len(t, violations, 4)
	})
}

func TestRouter_AuthFlow(t *testing.T) {
	app := newTestApp(t)

	status, body := doJSON(t, app, fiber.MethodPost, "/api/auth/register", "", fiber.Map{
		"username": "bob",
		"email":    "bob@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, status, "register failed: %v", body)
	assert.Equal(t, "User registered successfully", body["message"])

	t.Run("duplicate registration is rejected", func(t *testing.T) {
		status, _ := doJSON(t, app, fiber.MethodPost, "/api/auth/register", "", fiber.Map{
			"username": "bob",
			"email":    "bob@example.com",
			"password": "password123",
		})
		assert.Equal(t, http.StatusBadRequest, status)
	})

	token := login(t, app, "bob", "password123")

	t.Run("profile returns the account", func(t *testing.T) {
		status, body := doJSON(t, app, fiber.MethodGet, "/api/auth/profile", token, nil)
		require.Equal(t, http.StatusOK, status)
		user, ok := body["user"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "bob", user["username"])
		assert.Equal(t, "member", user["role"])
		assert.NotContains(t, user, "passwordHash")
	})

	t.Run("missing token is unauthorized", func(t *testing.T) {
		status, _ := doJSON(t, app, fiber.MethodGet, "/api/auth/profile", "", nil)
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("garbage token is unauthorized", func(t *testing.T) {
		status, _ := doJSON(t, app, fiber.MethodGet, "/api/auth/profile", "garbage", nil)
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("member cannot reach admin routes", func(t *testing.T) {
		status, _ := doJSON(t, app, fiber.MethodGet, "/api/admin/contacts", token, nil)
		assert.Equal(t, http.StatusForbidden, status)

		status, _ = doJSON(t, app, fiber.MethodGet, "/api/admin/dashboard", token, nil)
		assert.Equal(t, http.StatusForbidden, status)
	})

	t.Run("wrong password and unknown user read the same", func(t *testing.T) {
		status, bodyWrong := doJSON(t, app, fiber.MethodPost, "/api/auth/login", "", fiber.Map{
			"username": "bob", "password": "wrong",
		})
		assert.Equal(t, http.StatusUnauthorized, status)

		status, bodyGhost := doJSON(t, app, fiber.MethodPost, "/api/auth/login", "", fiber.Map{
			"username": "ghost", "password": "whatever",
		})
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, bodyWrong["error"], bodyGhost["error"])
	})

	t.Run("change password invalidates the old one", func(t *testing.T) {
		status, _ := doJSON(t, app, fiber.MethodPut, "/api/auth/change-password", token, fiber.Map{
			"currentPassword": "password123",
			"newPassword":     "password456",
		})
		require.Equal(t, http.StatusOK, status)

		status, _ = doJSON(t, app, fiber.MethodPost, "/api/auth/login", "", fiber.Map{
			"username": "bob", "password": "password123",
		})
		assert.Equal(t, http.StatusUnauthorized, status)

		login(t, app, "bob", "password456")
	})
}

func TestRouter_AdminFlow(t *testing.T) {
	app := newTestApp(t)
	token := login(t, app, "admin", "admin123")

	first := submitContact(t, app, "Jane Doe", "Quote request")
	second := submitContact(t, app, "John Smith", "Support question")

	t.Run("list is newest first with pagination", func(t *testing.T) {
		status, body := doJSON(t, app, fiber.MethodGet, "/api/admin/contacts?page=1&limit=1", token, nil)
		require.Equal(t, http.StatusOK, status)

		contacts, ok := body["contacts"].([]any)
		require.True(t, ok)
		require.Len(t, contacts, 1)
		newest := contacts[0].(map[string]any)
		assert.Equal(t, second, newest["id"])

		pagination := body["pagination"].(map[string]any)
		assert.Equal(t, float64(1), pagination["currentPage"])
		assert.Equal(t, float64(2), pagination["totalPages"])
		assert.Equal(t, float64(2), pagination["totalContacts"])
		assert.Equal(t, true, pagination["hasNext"])
		assert.Equal(t, false, pagination["hasPrev"])
	})

	t.Run("search filters by name", func(t *testing.T) {
		status, body := doJSON(t, app, fiber.MethodGet, "/api/admin/contacts?search=jane", token, nil)
		require.Equal(t, http.StatusOK, status)
		contacts := body["contacts"].([]any)
		require.Len(t, contacts, 1)
		assert.Equal(t, first, contacts[0].(map[string]any)["id"])
	})

	t.Run("status update is reflected on read", func(t *testing.T) {
		status, _ := doJSON(t, app, fiber.MethodPut, "/api/admin/contacts/"+first+"/status", token, fiber.Map{
			"status": "replied",
		})
		require.Equal(t, http.StatusOK, status)

		status, body := doJSON(t, app, fiber.MethodGet, "/api/admin/contacts/"+first, token, nil)
		require.Equal(t, http.StatusOK, status)
		contact := body["contact"].(map[string]any)
		assert.Equal(t, "replied", contact["status"])
	})

	t.Run("invalid status is rejected", func(t *testing.T) {
		status, _ := doJSON(t, app, fiber.MethodPut, "/api/admin/contacts/"+first+"/status", token, fiber.Map{
			"status": "spam",
		})
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("note is appended to the message", func(t *testing.T) {
		status, _ := doJSON(t, app, fiber.MethodPost, "/api/admin/contacts/"+first+"/note", token, fiber.Map{
			"note": "called back, left voicemail",
		})
		require.Equal(t, http.StatusOK, status)

		status, body := doJSON(t, app, fiber.MethodGet, "/api/admin/contacts/"+first, token, nil)
		require.Equal(t, http.StatusOK, status)
		contact := body["contact"].(map[string]any)
		message := contact["message"].(string)
		assert.Contains(t, message, "Please get back to me.")
		assert.Contains(t, message, "called back, left voicemail")
	})

	t.Run("dashboard aggregates totals", func(t *testing.T) {
		status, body := doJSON(t, app, fiber.MethodGet, "/api/admin/dashboard", token, nil)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, float64(2), body["totalContacts"])
		assert.Equal(t, float64(1), body["totalUsers"])
		breakdown := body["statusBreakdown"].(map[string]any)
		assert.Len(t, breakdown, 4)
	})

	t.Run("delete removes the submission", func(t *testing.T) {
		status, _ := doJSON(t, app, fiber.MethodDelete, "/api/admin/contacts/"+second, token, nil)
		require.Equal(t, http.StatusOK, status)

		status, _ = doJSON(t, app, fiber.MethodGet, "/api/admin/contacts/"+second, token, nil)
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("users lists accounts without hashes", func(t *testing.T) {
		status, body := doJSON(t, app, fiber.MethodGet, "/api/admin/users", token, nil)
		require.Equal(t, http.StatusOK, status)
		users := body["users"].([]any)
		require.NotEmpty(t, users)
		assert.NotContains(t, users[0].(map[string]any), "passwordHash")
	})
}

func TestRouter_RateLimit(t *testing.T) {
	limiter := ratelimit.New(nil, 2, time.Minute, zap.NewNop())
	app := buildApp(t, limiter)

	for i := 0; i < 2; i++ {
		status, _ := doJSON(t, app, fiber.MethodGet, "/api/contact/stats", "", nil)
		require.Equal(t, http.StatusOK, status)
	}

	status, body := doJSON(t, app, fiber.MethodGet, "/api/contact/stats", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.NotEmpty(t, body["error"])
}
