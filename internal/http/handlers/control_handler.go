package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/balejosg/openpath-sub004/internal/service"
)

// ControlHandler exposes the change-notification entry points: classroom
// group reassignment, the hook a rule editor calls after mutating a
// group, and the broadcast-all path.
type ControlHandler struct {
	classrooms *service.ClassroomService
	publisher  *service.ChangePublisher
}

func NewControlHandler(classrooms *service.ClassroomService, publisher *service.ChangePublisher) *ControlHandler {
	return &ControlHandler{classrooms: classrooms, publisher: publisher}
}

type assignGroupRequest struct {
	GroupID string `json:"group_id"`
}

func (h *ControlHandler) AssignGroup(w http.ResponseWriter, r *http.Request) {
	classroomID, err := uuid.Parse(chi.URLParam(r, "classroomID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid classroom id")
		return
	}

	var req assignGroupRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	groupID, err := uuid.Parse(req.GroupID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid group_id")
		return
	}

	if err := h.classrooms.AssignGroup(r.Context(), classroomID, groupID); err != nil {
		writeServiceError(w, err)
		return
	}

	h.publisher.ClassroomChanged(r.Context(), classroomID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *ControlHandler) NotifyGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := uuid.Parse(chi.URLParam(r, "groupID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid group id")
		return
	}

	exists, err := h.classrooms.GroupExists(r.Context(), groupID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !exists {
		writeError(w, http.StatusNotFound, "unknown group")
		return
	}

	h.publisher.GroupChanged(r.Context(), groupID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *ControlHandler) Broadcast(w http.ResponseWriter, r *http.Request) {
	h.publisher.Broadcast(r.Context())
	w.WriteHeader(http.StatusNoContent)
}
