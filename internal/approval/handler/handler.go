// Package handler exposes the approval request builder over HTTP.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"spiceportal/internal/approval"
	"spiceportal/internal/domain"
	dErrors "spiceportal/pkg/domainerrors"
	"spiceportal/pkg/httputil"
)

type Handler struct {
	service *approval.Service
	logger  *slog.Logger
}

func New(service *approval.Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/approvals", h.submit)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	var req domain.ApprovalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.Type != domain.ApprovalEditData && req.Type != domain.ApprovalDeleteData {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "unsupported request type"))
		return
	}
	if err := h.service.Submit(r.Context(), req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "pending"})
}
