// Package handler exposes the admin user editor over HTTP. All routes
// require the Administrator role; the router enforces that.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"spiceportal/internal/adminusers"
	"spiceportal/internal/domain"
	"spiceportal/internal/gateway"
	dErrors "spiceportal/pkg/domainerrors"
	"spiceportal/pkg/httputil"
)

type Handler struct {
	editor *adminusers.Editor
	logger *slog.Logger
}

func New(editor *adminusers.Editor, logger *slog.Logger) *Handler {
	return &Handler{editor: editor, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/admin/users", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Patch("/{id}", h.update)
		r.Delete("/{id}", h.delete)
		r.Patch("/{id}/status", h.changeStatus)
	})
}

// list serves the cached user list, filtered and paged per query parameters.
// ?refresh=true forces a refetch from the upstream first.
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var users []domain.UserRecord
	var err error
	if q.Get("refresh") == "true" {
		users, err = h.editor.Refresh(r.Context())
	} else {
		users, err = h.editor.Users(r.Context())
	}
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	filter := adminusers.Filter{
		Query:  q.Get("q"),
		Role:   domain.UserRole(q.Get("role")),
		Status: domain.UserStatus(q.Get("status")),
	}
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("pageSize"))

	httputil.WriteJSON(w, http.StatusOK, adminusers.Paginate(filter.Apply(users), page, pageSize))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in gateway.CreateUserInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	created, err := h.editor.Create(r.Context(), in)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var m domain.UserMutation
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := h.editor.Update(r.Context(), chi.URLParam(r, "id"), m); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.editor.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) changeStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status domain.UserStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	updated, err := h.editor.ChangeStatus(r.Context(), chi.URLParam(r, "id"), body.Status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}
