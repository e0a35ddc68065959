package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apihttp "kash_budget/internal/http"
	"kash_budget/internal/repository/memory"
	"kash_budget/internal/service"
	"kash_budget/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
)

type APISuite struct {
	suite.Suite
	router http.Handler
	users  *memory.UserStore
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APISuite))
}

func newDeps() (apihttp.Deps, *memory.UserStore) {
	users := memory.NewUserStore()
	audit := service.NewAuditService(memory.NewAuditStore(), time.Second)
	hub := ws.NewHub()
	tokens := service.NewTokenService("test-secret", time.Hour)
	auth := service.NewAuthService(users, service.NewBcryptHasher(bcrypt.MinCost), tokens, audit, time.Second)
	ledger := service.NewLedgerService(memory.NewTransactionStore(), audit, hub, time.Second)

	return apihttp.Deps{
		Auth:      auth,
		Ledger:    ledger,
		Hub:       hub,
		Version:   "test",
		APIPrefix: "/api",
	}, users
}

func (s *APISuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	deps, users := newDeps()
	s.router = apihttp.NewRouter(deps)
	s.users = users
}

func (s *APISuite) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](s *APISuite, w *httptest.ResponseRecorder) T {
	var v T
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (s *APISuite) errorOf(w *httptest.ResponseRecorder) string {
	return decode[map[string]string](s, w)["error"]
}

func (s *APISuite) register(email string) string {
	w := s.do(http.MethodPost, "/api/auth/register", "", map[string]any{
		"email":    email,
		"password": "correct-horse",
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	return decode[map[string]any](s, w)["accessToken"].(string)
}

func (s *APISuite) createTx(token string, body map[string]any) map[string]any {
	w := s.do(http.MethodPost, "/api/transactions", token, body)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	return decode[map[string]any](s, w)
}

func pastTimestamp() string {
	return time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)
}

func (s *APISuite) TestRegisterAndLogin() {
	token := s.register("ana@example.com")
	s.NotEmpty(token)

	w := s.do(http.MethodPost, "/api/auth/register", "", map[string]any{"email": "ana@example.com", "password": "correct-horse"})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("email already registered", s.errorOf(w))

	w = s.do(http.MethodPost, "/api/auth/register", "", map[string]any{"email": "nope", "password": "correct-horse"})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("email must be a valid email address", s.errorOf(w))

	w = s.do(http.MethodPost, "/api/auth/register", "", map[string]any{"email": "bo@example.com", "password": "short"})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("password must be at least 8 characters", s.errorOf(w))

	w = s.do(http.MethodPost, "/api/auth/login", "", map[string]any{"email": "ana@example.com", "password": "wrong-horse"})
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal("invalid email or password", s.errorOf(w))

	w = s.do(http.MethodPost, "/api/auth/login", "", map[string]any{"email": "ghost@example.com", "password": "correct-horse"})
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal("invalid email or password", s.errorOf(w))

	w = s.do(http.MethodPost, "/api/auth/login", "", map[string]any{"email": "ana@example.com", "password": "correct-horse"})
	s.Require().Equal(http.StatusOK, w.Code)
	res := decode[map[string]any](s, w)
	s.NotEmpty(res["accessToken"])
	s.Equal("ana@example.com", res["user"].(map[string]any)["email"])
}

func (s *APISuite) TestProfile() {
	token := s.register("ana@example.com")

	w := s.do(http.MethodGet, "/api/auth/profile", token, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	profile := decode[map[string]any](s, w)
	s.Equal("ana@example.com", profile["email"])
	s.NotEmpty(profile["id"])
	s.Contains(profile, "createdAt")
	s.NotContains(profile, "passwordHash")
	s.NotContains(w.Body.String(), "correct-horse")

	w = s.do(http.MethodGet, "/api/auth/profile", "", nil)
	s.Equal(http.StatusUnauthorized, w.Code)
	w = s.do(http.MethodGet, "/api/auth/profile", "not.a.jwt", nil)
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *APISuite) TestCreateTransaction() {
	token := s.register("ana@example.com")

	tx := s.createTx(token, map[string]any{
		"amount":    75.99,
		"timestamp": pastTimestamp(),
		"source":    "qr_scan",
		"category":  "Groceries",
		"location":  "POINT(23.7275 42.6977)",
	})
	s.Equal(75.99, tx["amount"])
	s.Equal("Groceries", tx["category"])
	s.Equal("POINT(23.7275 42.6977)", tx["location"])
	s.Equal("qr_scan", tx["source"])
	s.Equal("expense", tx["type"])

	bare := s.createTx(token, map[string]any{"amount": "12.50", "timestamp": "2024-06-01", "source": "manual", "type": "income"})
	s.Nil(bare["category"])
	s.Nil(bare["location"])
	s.Equal("income", bare["type"])
	s.Equal("2024-06-01T00:00:00Z", bare["timestamp"])
}

func (s *APISuite) TestCreateTransactionValidation() {
	token := s.register("ana@example.com")

	cases := []struct {
		body map[string]any
		msg  string
	}{
		{map[string]any{"timestamp": pastTimestamp(), "source": "manual"}, "amount is required"},
		{map[string]any{"amount": -5, "timestamp": pastTimestamp(), "source": "manual"}, "amount must be a positive number"},
		{map[string]any{"amount": 1.999, "timestamp": pastTimestamp(), "source": "manual"}, "amount must have at most 2 decimal places"},
		{map[string]any{"amount": 5, "source": "manual"}, "timestamp is required"},
		{map[string]any{"amount": 5, "timestamp": "yesterday", "source": "manual"}, "timestamp must be a valid ISO 8601 date string"},
		{map[string]any{"amount": 5, "timestamp": time.Now().Add(time.Hour).UTC().Format(time.RFC3339), "source": "manual"}, "timestamp cannot be in the future"},
		{map[string]any{"amount": 5, "timestamp": pastTimestamp(), "source": "cash"}, "source must be one of: qr_scan, manual"},
		{map[string]any{"amount": 5, "timestamp": pastTimestamp(), "source": "manual", "type": "refund"}, "type must be one of: income, expense"},
	}
	for _, tc := range cases {
		w := s.do(http.MethodPost, "/api/transactions", token, tc.body)
		s.Equal(http.StatusBadRequest, w.Code, tc.msg)
		s.Equal(tc.msg, s.errorOf(w))
	}

	w := s.do(http.MethodPost, "/api/transactions", "", map[string]any{"amount": 5, "timestamp": pastTimestamp(), "source": "manual"})
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *APISuite) TestListPagination() {
	token := s.register("ana@example.com")
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 25; i++ {
		s.createTx(token, map[string]any{
			"amount":    1,
			"timestamp": base.Add(-time.Duration(i) * time.Minute).UTC().Format(time.RFC3339),
			"source":    "manual",
		})
	}

	type listResponse struct {
		Data       []map[string]any `json:"data"`
		Pagination struct {
			Limit   int  `json:"limit"`
			Offset  int  `json:"offset"`
			Total   int  `json:"total"`
			HasMore bool `json:"hasMore"`
		} `json:"pagination"`
	}

	w := s.do(http.MethodGet, "/api/transactions?limit=10&offset=20", token, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	page := decode[listResponse](s, w)
	s.Len(page.Data, 5)
	s.Equal(10, page.Pagination.Limit)
	s.Equal(20, page.Pagination.Offset)
	s.Equal(25, page.Pagination.Total)
	s.False(page.Pagination.HasMore)

	w = s.do(http.MethodGet, "/api/transactions?limit=abc&offset=-1", token, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	page = decode[listResponse](s, w)
	s.Len(page.Data, 20)
	s.Equal(20, page.Pagination.Limit)
	s.Equal(0, page.Pagination.Offset)
	s.True(page.Pagination.HasMore)

	w = s.do(http.MethodGet, "/api/transactions?limit=7abc&offset=3xyz", token, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	page = decode[listResponse](s, w)
	s.Len(page.Data, 7)
	s.Equal(7, page.Pagination.Limit)
	s.Equal(3, page.Pagination.Offset)

	other := s.register("bo@example.com")
	w = s.do(http.MethodGet, "/api/transactions", other, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"data":[],"pagination":{"limit":20,"offset":0,"total":0,"hasMore":false}}`, w.Body.String())
}

func (s *APISuite) TestOwnershipAndLifecycle() {
	ana := s.register("ana@example.com")
	bo := s.register("bo@example.com")

	tx := s.createTx(ana, map[string]any{"amount": 20, "timestamp": pastTimestamp(), "source": "manual"})
	id := tx["id"].(string)
	missing := "/api/transactions/6f1c2a58-4a1e-4c1b-9d4e-0c1f2a3b4c5d"

	for _, path := range []string{"/api/transactions/" + id, missing, "/api/transactions/not-a-uuid"} {
		w := s.do(http.MethodGet, path, bo, nil)
		s.Equal(http.StatusBadRequest, w.Code, path)
		s.Equal("transaction not found", s.errorOf(w), path)

		w = s.do(http.MethodPatch, path+"/category", bo, map[string]any{"category": "Stolen"})
		s.Equal(http.StatusBadRequest, w.Code, path)
		s.Equal("transaction not found", s.errorOf(w), path)

		w = s.do(http.MethodDelete, path, bo, nil)
		s.Equal(http.StatusBadRequest, w.Code, path)
		s.Equal("transaction not found", s.errorOf(w), path)
	}

	w := s.do(http.MethodPatch, "/api/transactions/"+id+"/category", ana, map[string]any{"category": "Dining"})
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal("Dining", decode[map[string]any](s, w)["category"])

	w = s.do(http.MethodPatch, "/api/transactions/"+id+"/location", ana, map[string]any{"location": "Sofia"})
	s.Require().Equal(http.StatusOK, w.Code)
	updated := decode[map[string]any](s, w)
	s.Equal("Sofia", updated["location"])
	s.Equal("Dining", updated["category"])

	w = s.do(http.MethodPatch, "/api/transactions/"+id+"/category", ana, map[string]any{})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("category is required", s.errorOf(w))

	w = s.do(http.MethodGet, "/api/transactions/"+id, ana, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(id, decode[map[string]any](s, w)["id"])

	w = s.do(http.MethodDelete, "/api/transactions/"+id, ana, nil)
	s.Equal(http.StatusNoContent, w.Code)
	s.Empty(w.Body.String())

	w = s.do(http.MethodDelete, "/api/transactions/"+id, ana, nil)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("transaction not found", s.errorOf(w))
}

func (s *APISuite) TestDeactivatedUserTokenRejected() {
	token := s.register("ana@example.com")
	u, err := s.users.GetByEmail(context.Background(), "ana@example.com")
	s.Require().NoError(err)
	s.Require().NoError(s.users.SetActive(u.ID, false))

	w := s.do(http.MethodGet, "/api/transactions", token, nil)
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *APISuite) TestHealth() {
	w := s.do(http.MethodGet, "/health", "", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	body := decode[map[string]any](s, w)
	s.Equal("ok", body["status"])
	s.Equal("connected", body["database"])
	s.Equal("test", body["version"])

	s.Equal(http.StatusOK, s.do(http.MethodGet, "/health/live", "", nil).Code)
	s.Equal(http.StatusOK, s.do(http.MethodGet, "/health/ready", "", nil).Code)

	w = s.do(http.MethodGet, "/metrics", "", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "http_requests_total")
}

func TestAuthRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	deps, _ := newDeps()
	deps.AuthRateLimit = 2
	deps.AuthRateWindow = time.Minute
	router := apihttp.NewRouter(deps)

	login := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString(`{"email":"a@b.co","password":"whatever1"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusUnauthorized, login())
	assert.Equal(t, http.StatusUnauthorized, login())
	require.Equal(t, http.StatusTooManyRequests, login())
}
