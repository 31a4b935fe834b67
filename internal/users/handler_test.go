package users

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/warden-hq/warden/internal/rbac"
	"github.com/warden-hq/warden/internal/shared"

	_ "github.com/warden-hq/warden/testing"
)

func newTestRouter(f *fixture) chi.Router {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(logger, f.service, rbac.Middleware{Resolver: f.resolver}, nil)
	r := chi.NewRouter()
	r.Route("/users", handler.MountRoutes)
	return r
}

func doRequest(t *testing.T, router chi.Router, actor shared.Principal, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(shared.ContextWithPrincipal(context.Background(), actor))
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res
}

func TestUpdateUserSelfService(t *testing.T) {
	f := newFixture(t)
	user := f.createEditor(t, "Ana", "ana@example.test")
	router := newTestRouter(f)

	res := doRequest(t, router, shared.Principal{ID: user.ID}, http.MethodPut, "/users/1",
		`{"name":"Ana Self","email":"ana@example.test"}`)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", res.Code, res.Body.String())
	}
	if !strings.Contains(res.Body.String(), "Ana Self") {
		t.Fatalf("expected updated name in body, got %s", res.Body.String())
	}
}

func TestUpdateAdminUserForbidden(t *testing.T) {
	f := newFixture(t)
	adminUser, err := f.repo.Create(context.Background(), User{Name: "Root", Email: "root@example.test", IsAdmin: true})
	if err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	router := newTestRouter(f)

	res := doRequest(t, router, admin(), http.MethodPut, "/users/1",
		`{"name":"X","email":"x@example.test"}`)
	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for admin target %d, got %d", adminUser.ID, res.Code)
	}
}

func TestUpdateUnknownUserNotFound(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(f)

	res := doRequest(t, router, admin(), http.MethodPut, "/users/404",
		`{"name":"X","email":"x@example.test"}`)
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestUpdateUserValidation(t *testing.T) {
	f := newFixture(t)
	f.createEditor(t, "Ana", "ana@example.test")
	router := newTestRouter(f)

	res := doRequest(t, router, admin(), http.MethodPut, "/users/1",
		`{"name":"","email":"not-an-email"}`)
	if res.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", res.Code)
	}
}

func TestDeleteUserNoContent(t *testing.T) {
	f := newFixture(t)
	f.createEditor(t, "Ana", "ana@example.test")
	router := newTestRouter(f)

	res := doRequest(t, router, admin(), http.MethodDelete, "/users/1", "")
	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", res.Code)
	}
}

func TestChangeAndListPermissions(t *testing.T) {
	f := newFixture(t)
	f.createEditor(t, "Ana", "ana@example.test")
	router := newTestRouter(f)

	res := doRequest(t, router, admin(), http.MethodPut, "/users/1/permissions",
		`{"permissions":[1,2,3]}`)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", res.Code, res.Body.String())
	}

	res = doRequest(t, router, admin(), http.MethodGet, "/users/1/permissions", "")
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var payload struct {
		User []struct {
			ID int64 `json:"id"`
		} `json:"user"`
		Role []struct {
			ID int64 `json:"id"`
		} `json:"role"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(payload.User) != 1 || payload.User[0].ID != 3 {
		t.Fatalf("expected direct grants [3], got %+v", payload.User)
	}
	if len(payload.Role) != 2 {
		t.Fatalf("expected 2 inherited grants, got %+v", payload.Role)
	}
}
