package rbac

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/warden-hq/warden/internal/platform/httpx"
	"github.com/warden-hq/warden/internal/shared"
)

// PermissionsHandler serves the permission catalog.
type PermissionsHandler struct {
	logger *slog.Logger
	store  Store
	rbac   Middleware
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(logger *slog.Logger, store Store, rbac Middleware) *PermissionsHandler {
	return &PermissionsHandler{logger: logger, store: store, rbac: rbac}
}

// MountRoutes registers permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermPermissionView, shared.PermUserManage))
		r.Get("/", h.listPermissions)
	})
}

type permissionResource struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Allowed bool   `json:"allowed"`
}

func (h *PermissionsHandler) listPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.store.ListPermissions(r.Context())
	if err != nil {
		h.logger.Error("list permissions failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"permissions": toPermissionResources(perms)})
}

func toPermissionResources(perms []Permission) []permissionResource {
	out := make([]permissionResource, len(perms))
	for i, p := range perms {
		out[i] = permissionResource{ID: p.ID, Name: p.Name, Allowed: p.Allowed}
	}
	return out
}
