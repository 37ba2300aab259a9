package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"whiteboard-sync-server/internal/conflict"
	"whiteboard-sync-server/internal/domain"
	"whiteboard-sync-server/internal/middleware"
	"whiteboard-sync-server/internal/service"
	"whiteboard-sync-server/pkg/response"

	"github.com/go-playground/validator/v10"
)

// SyncHandler drives the save cycle over HTTP: one explicit save endpoint,
// plus inspection and resolution of the pending conflict.
type SyncHandler struct {
	syncService *service.SyncService
	validator   *validator.Validate
}

func NewSyncHandler(syncService *service.SyncService) *SyncHandler {
	return &SyncHandler{
		syncService: syncService,
		validator:   validator.New(),
	}
}

func (h *SyncHandler) coordinator(w http.ResponseWriter, r *http.Request) (*service.Coordinator, bool) {
	coord, err := h.syncService.ForOwner(r.Context(), middleware.GetOwnerID(r))
	if err != nil {
		response.InternalError(w, err.Error())
		return nil, false
	}
	return coord, true
}

func (h *SyncHandler) Save(w http.ResponseWriter, r *http.Request) {
	coord, ok := h.coordinator(w, r)
	if !ok {
		return
	}

	err := coord.RequestSave(r.Context())
	if err == nil {
		response.Success(w, coord.Documents())
		return
	}

	var pending *service.PendingConflictError
	switch {
	case errors.As(err, &pending):
		response.Conflict(w, "version conflict detected", pending.Conflict)
	case errors.Is(err, service.ErrResolutionPending):
		response.Conflict(w, "conflict resolution pending", coord.PendingConflict())
	case errors.Is(err, service.ErrSaveInProgress):
		response.Error(w, http.StatusConflict, "save already in progress")
	default:
		response.InternalError(w, err.Error())
	}
}

func (h *SyncHandler) GetConflict(w http.ResponseWriter, r *http.Request) {
	coord, ok := h.coordinator(w, r)
	if !ok {
		return
	}

	pending := coord.PendingConflict()
	if pending == nil {
		response.NotFound(w, "no pending conflict")
		return
	}
	response.Success(w, pending)
}

func (h *SyncHandler) ResolveConflict(w http.ResponseWriter, r *http.Request) {
	coord, ok := h.coordinator(w, r)
	if !ok {
		return
	}

	var req domain.ResolveConflictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	err := coord.ResolveConflict(r.Context(), req.Choice)
	switch {
	case err == nil:
		response.Success(w, coord.Documents())
	case errors.Is(err, service.ErrNoPendingConflict):
		response.NotFound(w, "no pending conflict")
	case errors.Is(err, conflict.ErrRemoteGone):
		response.NotFound(w, "remote copy no longer exists")
	case errors.Is(err, service.ErrSaveInProgress):
		response.Error(w, http.StatusConflict, "resolution already in progress")
	default:
		response.InternalError(w, err.Error())
	}
}
