// Package handler exposes the registration flow over HTTP. Every route is
// session-scoped: the draft key is the session ID carried by the portal JWT.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"spiceportal/internal/registration/draft"
	"spiceportal/internal/registration/flow"
	"spiceportal/internal/registration/profile"
	dErrors "spiceportal/pkg/domainerrors"
	"spiceportal/pkg/httputil"
	"spiceportal/pkg/requestcontext"
)

type Handler struct {
	service *flow.Service
	logger  *slog.Logger
}

func New(service *flow.Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/registration", func(r chi.Router) {
		r.Get("/draft", h.getDraft)
		r.Put("/draft", h.updateDraft)
		r.Delete("/draft", h.resetDraft)
		r.Get("/basic-info", h.getBasicInfo)
		r.Post("/basic-info", h.commitBasicInfo)
		r.Post("/profile", h.submitProfile)
	})
}

func (h *Handler) getDraft(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.Draft(r.Context(), requestcontext.SessionID(r.Context()))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) updateDraft(w http.ResponseWriter, r *http.Request) {
	var u draft.Update
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	d, err := h.service.UpdateDraft(r.Context(), requestcontext.SessionID(r.Context()), u)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) resetDraft(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ResetDraft(r.Context(), requestcontext.SessionID(r.Context())); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getBasicInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.BasicInfo(r.Context(), requestcontext.SessionID(r.Context()))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, info)
}

func (h *Handler) commitBasicInfo(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.CommitBasicInfo(r.Context(), requestcontext.SessionID(r.Context()))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// submitProfileRequest carries the edited profile and, for edits of an
// already-approved record, the original snapshot the diff is computed from.
type submitProfileRequest struct {
	Profile  *profile.BusinessProfile `json:"profile"`
	Original *profile.BusinessProfile `json:"original,omitempty"`
}

func (h *Handler) submitProfile(w http.ResponseWriter, r *http.Request) {
	var req submitProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Profile == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	res, err := h.service.SubmitRoleDetails(r.Context(), requestcontext.SessionID(r.Context()), req.Profile, req.Original)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}
