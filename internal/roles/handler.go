package roles

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/warden-hq/warden/internal/platform/httpx"
	"github.com/warden-hq/warden/internal/rbac"
	"github.com/warden-hq/warden/internal/shared"
)

// Handler serves role listing endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers role routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermRoleView, shared.PermUserManage))
		r.Get("/", h.listRoles)
	})
}

type roleResource struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.logger.Error("list roles failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]roleResource, len(list))
	for i, role := range list {
		out[i] = roleResource{ID: role.ID, Name: role.Name, Description: role.Description}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": out})
}
