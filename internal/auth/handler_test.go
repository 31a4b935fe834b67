package auth_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/warden-hq/warden/internal/auth"
	"github.com/warden-hq/warden/internal/shared"
	_ "github.com/warden-hq/warden/testing"
)

type stubRepo struct {
	user *auth.User
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) FindByID(ctx context.Context, id int64) (*auth.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func newAuthRouter(t *testing.T, repo auth.Repository) chi.Router {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	tokens := auth.NewTokenStore(redisClient, time.Hour)
	service := auth.NewService(repo, tokens)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := auth.NewHandler(logger, service)

	r := chi.NewRouter()
	r.Route("/auth", func(r chi.Router) {
		handler.MountRoutes(r)
		r.Group(func(r chi.Router) {
			r.Use(auth.RequirePrincipal(service, logger))
			handler.MountProtectedRoutes(r)
			r.Get("/me", func(w http.ResponseWriter, req *http.Request) {
				p, _ := shared.PrincipalFromContext(req.Context())
				_ = json.NewEncoder(w).Encode(p)
			})
		})
	})
	return r
}

func seededUser(t *testing.T) *auth.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte("correctpass"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return &auth.User{ID: 1, Name: "Ana", Email: "user@test.local", PasswordHash: string(hashed), IsActive: true}
}

func login(t *testing.T, router chi.Router, email, password string) *httptest.ResponseRecorder {
	t.Helper()
	body := `{"email":"` + email + `","password":"` + password + `"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res
}

func TestLoginIssuesToken(t *testing.T) {
	router := newAuthRouter(t, &stubRepo{user: seededUser(t)})

	res := login(t, router, "user@test.local", "correctpass")
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", res.Code, res.Body.String())
	}
	var payload struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if payload.Token == "" {
		t.Fatalf("expected token in response")
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	router := newAuthRouter(t, &stubRepo{user: seededUser(t)})

	res := login(t, router, "user@test.local", "wrongpass1")
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestLoginInactiveAccount(t *testing.T) {
	user := seededUser(t)
	user.IsActive = false
	router := newAuthRouter(t, &stubRepo{user: user})

	res := login(t, router, "user@test.local", "correctpass")
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestPrincipalMiddleware(t *testing.T) {
	router := newAuthRouter(t, &stubRepo{user: seededUser(t)})

	res := login(t, router, "user@test.local", "correctpass")
	var payload struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode body: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+payload.Token)
	meRes := httptest.NewRecorder()
	router.ServeHTTP(meRes, req)
	if meRes.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", meRes.Code)
	}
	if !strings.Contains(meRes.Body.String(), `"ID":1`) {
		t.Fatalf("expected principal in body, got %s", meRes.Body.String())
	}

	// Without a token the route is rejected.
	bare := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	bareRes := httptest.NewRecorder()
	router.ServeHTTP(bareRes, bare)
	if bareRes.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", bareRes.Code)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	router := newAuthRouter(t, &stubRepo{user: seededUser(t)})

	res := login(t, router, "user@test.local", "correctpass")
	var payload struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode body: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+payload.Token)
	outRes := httptest.NewRecorder()
	router.ServeHTTP(outRes, req)
	if outRes.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", outRes.Code)
	}

	me := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	me.Header.Set("Authorization", "Bearer "+payload.Token)
	meRes := httptest.NewRecorder()
	router.ServeHTTP(meRes, me)
	if meRes.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", meRes.Code)
	}
}
