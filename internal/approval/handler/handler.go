// Package handler exposes the approval workflow endpoints: submission,
// decision, reapplication, suspension, and the live profile status stream.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"torque/internal/approval/models"
	"torque/internal/approval/service"
	"torque/internal/geo"
	"torque/internal/platform/middleware"
	jsonResponse "torque/internal/transport/http/json"
	"torque/internal/transport/http/shared"
	id "torque/pkg/domain"
	dErrors "torque/pkg/domain-errors"
	s "torque/pkg/string"
	"torque/pkg/validation"
)

// Service defines the approval operations the handler delegates to.
type Service interface {
	Submit(ctx context.Context, in service.SubmitRequest) (*models.Request, error)
	Approve(ctx context.Context, approverID id.PrincipalID, requestID id.RequestID) error
	Reject(ctx context.Context, approverID id.PrincipalID, requestID id.RequestID, reason string) error
	Reapply(ctx context.Context, principalID id.PrincipalID, improvementNote string) (*models.Request, error)
	Suspend(ctx context.Context, actorID, principalID id.PrincipalID, reason string) error
	Reinstate(ctx context.Context, actorID, principalID id.PrincipalID) error
	ListPending(ctx context.Context, actorID id.PrincipalID) ([]*models.Request, error)
	WatchProfile(ctx context.Context, principalID id.PrincipalID) (<-chan service.ProfileEvent, func(), error)
}

type Handler struct {
	approval Service
	logger   *slog.Logger
}

func New(approval Service, logger *slog.Logger) *Handler {
	return &Handler{approval: approval, logger: logger}
}

// Register wires the routes that require an authenticated caller.
func (h *Handler) Register(r chi.Router) {
	r.Post("/approval/requests", h.HandleSubmit)
	r.Get("/approval/requests", h.HandleListPending)
	r.Post("/approval/requests/{request_id}/approve", h.HandleApprove)
	r.Post("/approval/requests/{request_id}/reject", h.HandleReject)
	r.Post("/approval/reapply", h.HandleReapply)
	r.Post("/approval/profiles/{principal_id}/suspend", h.HandleSuspend)
	r.Post("/approval/profiles/{principal_id}/reinstate", h.HandleReinstate)
}

// RegisterStream wires the long-lived watch route. Mounted separately so the
// parent router can skip the request timeout for it.
func (h *Handler) RegisterStream(r chi.Router) {
	r.Get("/approval/profile/watch", h.HandleWatchProfile)
}

type submitRequest struct {
	RequestType string `json:"request_type" validate:"required"`
	Province    string `json:"province,omitempty"`
	Branch      string `json:"branch" validate:"required"`
}

// HandleSubmit implements POST /approval/requests.
// Opens an access application for the caller.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principalID, ok := middleware.GetPrincipalID(ctx)
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "not authenticated"))
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid JSON in request body"))
		return
	}
	s.TrimStrings(&req.RequestType, &req.Province, &req.Branch)
	if err := validation.Validate(req); err != nil {
		shared.WriteError(w, err)
		return
	}

	created, err := h.approval.Submit(ctx, service.SubmitRequest{
		PrincipalID:    principalID,
		RequestType:    models.RequestType(req.RequestType),
		TargetProvince: geo.ProvinceKey(req.Province),
		TargetBranch:   geo.BranchKey(req.Branch),
	})
	if err != nil {
		h.logger.WarnContext(ctx, "submission refused",
			"error", err,
			"request_id", middleware.GetRequestID(ctx),
		)
		shared.WriteError(w, err)
		return
	}
	jsonResponse.WriteJSON(w, http.StatusCreated, created)
}

// HandleListPending implements GET /approval/requests.
// Lists the open requests within the caller's deciding scope.
func (h *Handler) HandleListPending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID, ok := middleware.GetPrincipalID(ctx)
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "not authenticated"))
		return
	}
	pending, err := h.approval.ListPending(ctx, actorID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	jsonResponse.WriteJSON(w, http.StatusOK, map[string]any{"requests": pending})
}

// HandleApprove implements POST /approval/requests/{request_id}/approve.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	approverID, ok := middleware.GetPrincipalID(ctx)
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "not authenticated"))
		return
	}
	requestID, err := id.ParseRequestID(chi.URLParam(r, "request_id"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request id"))
		return
	}
	if err := h.approval.Approve(ctx, approverID, requestID); err != nil {
		shared.WriteError(w, err)
		return
	}
	jsonResponse.WriteJSON(w, http.StatusOK, map[string]string{"status": "approved"})
}

type rejectRequest struct {
	Reason string `json:"reason" validate:"required,notblank"`
}

// HandleReject implements POST /approval/requests/{request_id}/reject.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	approverID, ok := middleware.GetPrincipalID(ctx)
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "not authenticated"))
		return
	}
	requestID, err := id.ParseRequestID(chi.URLParam(r, "request_id"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request id"))
		return
	}

	var req rejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid JSON in request body"))
		return
	}
	s.TrimStrings(&req.Reason)
	if err := validation.Validate(req); err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := h.approval.Reject(ctx, approverID, requestID, req.Reason); err != nil {
		shared.WriteError(w, err)
		return
	}
	jsonResponse.WriteJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}

type reapplyRequest struct {
	ImprovementNote string `json:"improvement_note" validate:"required"`
}

// HandleReapply implements POST /approval/reapply.
// Opens a follow-up application after a rejection; the improvement note is
// mandatory.
func (h *Handler) HandleReapply(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principalID, ok := middleware.GetPrincipalID(ctx)
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "not authenticated"))
		return
	}

	var req reapplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid JSON in request body"))
		return
	}
	s.TrimStrings(&req.ImprovementNote)
	if err := validation.Validate(req); err != nil {
		shared.WriteError(w, err)
		return
	}

	created, err := h.approval.Reapply(ctx, principalID, req.ImprovementNote)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	jsonResponse.WriteJSON(w, http.StatusCreated, created)
}

type suspendRequest struct {
	Reason string `json:"reason"`
}

// HandleSuspend implements POST /approval/profiles/{principal_id}/suspend.
func (h *Handler) HandleSuspend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID, ok := middleware.GetPrincipalID(ctx)
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "not authenticated"))
		return
	}
	principalID, err := id.ParsePrincipalID(chi.URLParam(r, "principal_id"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid principal id"))
		return
	}

	var req suspendRequest
	if r.Body != nil {
		// Reason is optional; an empty body is fine.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	if err := h.approval.Suspend(ctx, actorID, principalID, req.Reason); err != nil {
		shared.WriteError(w, err)
		return
	}
	jsonResponse.WriteJSON(w, http.StatusOK, map[string]string{"status": "suspended"})
}

// HandleReinstate implements POST /approval/profiles/{principal_id}/reinstate.
func (h *Handler) HandleReinstate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID, ok := middleware.GetPrincipalID(ctx)
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "not authenticated"))
		return
	}
	principalID, err := id.ParsePrincipalID(chi.URLParam(r, "principal_id"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid principal id"))
		return
	}
	if err := h.approval.Reinstate(ctx, actorID, principalID); err != nil {
		shared.WriteError(w, err)
		return
	}
	jsonResponse.WriteJSON(w, http.StatusOK, map[string]string{"status": "reinstated"})
}

// HandleWatchProfile implements GET /approval/profile/watch.
// Streams profile status changes to the caller as server-sent events until
// the connection drops.
func (h *Handler) HandleWatchProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principalID, ok := middleware.GetPrincipalID(ctx)
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "not authenticated"))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "streaming not supported"))
		return
	}

	events, cancel, err := h.approval.WatchProfile(ctx, principalID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	encoder := json.NewEncoder(w)
	for ev := range events {
		if _, err := w.Write([]byte("data: ")); err != nil {
			return
		}
		if err := encoder.Encode(ev.Status); err != nil {
			return
		}
		if _, err := w.Write([]byte("\n")); err != nil {
			return
		}
		flusher.Flush()
	}
}
