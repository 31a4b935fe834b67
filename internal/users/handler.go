package users

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/warden-hq/warden/internal/observability"
	"github.com/warden-hq/warden/internal/platform/httpx"
	"github.com/warden-hq/warden/internal/rbac"
	"github.com/warden-hq/warden/internal/shared"
)

// Handler manages user management endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	metrics   *observability.Metrics
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware, metrics *observability.Metrics) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, metrics: metrics, validator: validator.New()}
}

// MountRoutes registers user routes. Read and create routes carry a
// permission guard; update, permission-change and delete are authorized by
// the gate inside the service so self-service keeps working.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermUserView, shared.PermUserManage))
		r.Get("/", h.listUsers)
		r.Get("/{id}", h.getUser)
		r.Get("/{id}/permissions", h.listPermissions)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermUserEdit, shared.PermUserManage))
		r.Post("/", h.createUser)
	})
	r.Put("/{id}", h.updateUser)
	r.Put("/{id}/permissions", h.changePermissions)
	r.Delete("/{id}", h.deleteUser)
}

type createUserRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required"`
}

type updateUserRequest struct {
	Name     string  `json:"name" validate:"required"`
	Email    string  `json:"email" validate:"required,email"`
	Password *string `json:"password" validate:"omitempty,min=8"`
}

type changePermissionsRequest struct {
	Permissions []int64 `json:"permissions"`
}

type userResource struct {
	ID     int64    `json:"id"`
	Name   string   `json:"name"`
	Email  string   `json:"email"`
	Admin  bool     `json:"admin"`
	Roles  []string `json:"roles"`
	Active bool     `json:"active"`
}

func toUserResource(u User) userResource {
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	return userResource{ID: u.ID, Name: u.Name, Email: u.Email, Admin: u.IsAdmin, Roles: roles, Active: u.IsActive}
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("limit"))
	filters := ListFilters{
		Keyword: q.Get("keyword"),
		Role:    q.Get("role"),
		Page:    page,
		PerPage: perPage,
	}
	list, pagination, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list users failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]userResource, len(list))
	for i, u := range list {
		out[i] = toUserResource(u)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"users": out,
		"meta": map[string]any{
			"page":        pagination.Page,
			"per_page":    pagination.PerPage,
			"total":       pagination.Total,
			"total_pages": pagination.TotalPages,
		},
	})
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.targetID(w, r)
	if !ok {
		return
	}
	user, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"user": toUserResource(user)})
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	user, err := h.service.Create(r.Context(), CreateInput(req))
	if err != nil {
		h.logger.Error("create user failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"user": toUserResource(user)})
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := h.targetID(w, r)
	if !ok {
		return
	}
	var req updateUserRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	user, denial, err := h.service.Update(r.Context(), actor, id, UpdateInput(req))
	if denial != nil {
		h.respondDenial(w, denial)
		return
	}
	if err != nil {
		h.logger.Error("update user failed", slog.Int64("user_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"user": toUserResource(user)})
}

func (h *Handler) changePermissions(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := h.targetID(w, r)
	if !ok {
		return
	}
	var req changePermissionsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed json body")
		return
	}
	user, denial, err := h.service.ChangePermissions(r.Context(), actor, id, req.Permissions)
	if denial != nil {
		h.respondDenial(w, denial)
		return
	}
	if err != nil {
		h.logger.Error("change permissions failed", slog.Int64("user_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"user": toUserResource(user)})
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := h.targetID(w, r)
	if !ok {
		return
	}
	denial, err := h.service.Delete(r.Context(), actor, id)
	if denial != nil {
		h.respondDenial(w, denial)
		return
	}
	if err != nil {
		h.logger.Error("delete user failed", slog.Int64("user_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.targetID(w, r)
	if !ok {
		return
	}
	if _, err := h.service.Get(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	grants, err := h.service.ListPermissions(r.Context(), id)
	if err != nil {
		h.logger.Error("list user permissions failed", slog.Int64("user_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"user": toGrantResources(grants.Direct),
		"role": toGrantResources(grants.Inherited),
	})
}

type grantResource struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func toGrantResources(perms []rbac.Permission) []grantResource {
	out := make([]grantResource, len(perms))
	for i, p := range perms {
		out[i] = grantResource{ID: p.ID, Name: p.Name}
	}
	return out
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (shared.Principal, bool) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return shared.Principal{}, false
	}
	return principal, true
}

func (h *Handler) targetID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid user id")
		return 0, false
	}
	return id, true
}

func (h *Handler) decodeValid(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed json body")
		return false
	}
	if err := h.validator.Struct(target); err != nil {
		fields := make(map[string]string)
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fieldErr := range verrs {
				fields[fieldErr.Field()] = fieldErr.Tag()
			}
		}
		httpx.JSON(w, http.StatusUnprocessableEntity, map[string]any{
			"title":  "Validation Failed",
			"status": http.StatusUnprocessableEntity,
			"fields": fields,
		})
		return false
	}
	return true
}

func (h *Handler) respondDenial(w http.ResponseWriter, d *rbac.Denial) {
	h.metrics.ObserveDenial(string(d.Code))
	switch d.Code {
	case rbac.DenialNotFound:
		httpx.Problem(w, http.StatusNotFound, "Not Found", d.Message)
	default:
		// FORBIDDEN and STORAGE_FAILURE both map to 403.
		httpx.Problem(w, http.StatusForbidden, "Forbidden", d.Message)
	}
}
