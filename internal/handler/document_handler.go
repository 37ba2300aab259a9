package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"whiteboard-sync-server/internal/domain"
	"whiteboard-sync-server/internal/middleware"
	"whiteboard-sync-server/internal/service"
	"whiteboard-sync-server/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

// DocumentHandler is the command surface UI layers mutate documents through.
// Auth is optional on every route: no credentials means the guest coordinator.
type DocumentHandler struct {
	syncService *service.SyncService
	validator   *validator.Validate
}

func NewDocumentHandler(syncService *service.SyncService) *DocumentHandler {
	return &DocumentHandler{
		syncService: syncService,
		validator:   validator.New(),
	}
}

func (h *DocumentHandler) coordinator(w http.ResponseWriter, r *http.Request) (*service.Coordinator, bool) {
	coord, err := h.syncService.ForOwner(r.Context(), middleware.GetOwnerID(r))
	if err != nil {
		response.InternalError(w, err.Error())
		return nil, false
	}
	return coord, true
}

func (h *DocumentHandler) GetDocuments(w http.ResponseWriter, r *http.Request) {
	coord, ok := h.coordinator(w, r)
	if !ok {
		return
	}
	response.Success(w, coord.Documents())
}

func (h *DocumentHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	coord, ok := h.coordinator(w, r)
	if !ok {
		return
	}

	var req domain.CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	project, err := coord.CreateProject(req.Name)
	if err != nil {
		writeMutationError(w, err)
		return
	}
	response.Created(w, project)
}

func (h *DocumentHandler) RenameProject(w http.ResponseWriter, r *http.Request) {
	coord, ok := h.coordinator(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]

	var req domain.RenameProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	var project *domain.Project
	for _, p := range coord.Documents().Projects {
		if p.ID == id {
			p := p
			project = &p
			break
		}
	}
	if project == nil {
		response.NotFound(w, "project not found")
		return
	}

	project.Name = req.Name
	if err := coord.PutProject(*project); err != nil {
		writeMutationError(w, err)
		return
	}
	response.Success(w, project)
}

func (h *DocumentHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	coord, ok := h.coordinator(w, r)
	if !ok {
		return
	}

	if err := coord.DeleteProject(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeMutationError(w, err)
		return
	}
	response.Success(w, map[string]string{"message": "Project deleted"})
}

func (h *DocumentHandler) CreatePage(w http.ResponseWriter, r *http.Request) {
	coord, ok := h.coordinator(w, r)
	if !ok {
		return
	}

	var req domain.CreatePageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	page, err := coord.CreatePage(req)
	if err != nil {
		writeMutationError(w, err)
		return
	}
	response.Created(w, page)
}

func (h *DocumentHandler) UpdatePage(w http.ResponseWriter, r *http.Request) {
	coord, ok := h.coordinator(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]

	var page domain.Page
	if err := json.NewDecoder(r.Body).Decode(&page); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if page.ID == "" {
		page.ID = id
	}
	if page.ID != id {
		response.BadRequest(w, "page id mismatch")
		return
	}

	if err := coord.PutPage(page); err != nil {
		writeMutationError(w, err)
		return
	}
	response.Success(w, page)
}

func (h *DocumentHandler) DeletePage(w http.ResponseWriter, r *http.Request) {
	coord, ok := h.coordinator(w, r)
	if !ok {
		return
	}

	if err := coord.DeletePage(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeMutationError(w, err)
		return
	}
	response.Success(w, map[string]string{"message": "Page deleted"})
}

func (h *DocumentHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	coord, ok := h.coordinator(w, r)
	if !ok {
		return
	}

	var req domain.SetActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	if err := coord.SetActive(req.ActiveProjectID, req.ActivePageID); err != nil {
		writeMutationError(w, err)
		return
	}
	response.Success(w, coord.Documents())
}

func writeMutationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrSaveInProgress):
		response.Error(w, http.StatusConflict, "save in progress, try again shortly")
	default:
		response.InternalError(w, err.Error())
	}
}
