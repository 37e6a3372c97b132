package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/balejosg/openpath-sub004/internal/domain"
	"github.com/balejosg/openpath-sub004/internal/service"
)

type ScheduleHandler struct {
	schedules *service.ScheduleService
	publisher *service.ChangePublisher
}

func NewScheduleHandler(schedules *service.ScheduleService, publisher *service.ChangePublisher) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules, publisher: publisher}
}

type scheduleResponse struct {
	ID          string `json:"id"`
	ClassroomID string `json:"classroom_id"`
	GroupID     string `json:"group_id"`
	DayOfWeek   int    `json:"day_of_week"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
}

func scheduleToResponse(entry domain.ScheduleEntry) scheduleResponse {
	return scheduleResponse{
		ID:          entry.ID.String(),
		ClassroomID: entry.ClassroomID.String(),
		GroupID:     entry.GroupID.String(),
		DayOfWeek:   entry.DayOfWeek,
		StartTime:   domain.FormatMinuteOfDay(entry.StartMin),
		EndTime:     domain.FormatMinuteOfDay(entry.EndMin),
	}
}

type createScheduleRequest struct {
	ClassroomID string `json:"classroom_id"`
	GroupID     string `json:"group_id"`
	DayOfWeek   int    `json:"day_of_week"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
}

func (h *ScheduleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createScheduleRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	classroomID, err := uuid.Parse(req.ClassroomID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid classroom_id")
		return
	}
	groupID, err := uuid.Parse(req.GroupID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid group_id")
		return
	}

	entry, err := h.schedules.CreateSchedule(r.Context(), service.CreateScheduleInput{
		ClassroomID: classroomID,
		GroupID:     groupID,
		DayOfWeek:   req.DayOfWeek,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.publisher.ClassroomChanged(r.Context(), entry.ClassroomID)
	writeJSON(w, http.StatusCreated, scheduleToResponse(entry))
}

type updateScheduleRequest struct {
	GroupID   *string `json:"group_id"`
	DayOfWeek *int    `json:"day_of_week"`
	StartTime *string `json:"start_time"`
	EndTime   *string `json:"end_time"`
}

func (h *ScheduleHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "scheduleID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid schedule id")
		return
	}

	var req updateScheduleRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	input := service.UpdateScheduleInput{
		DayOfWeek: req.DayOfWeek,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	}
	if req.GroupID != nil {
		groupID, err := uuid.Parse(*req.GroupID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid group_id")
			return
		}
		input.GroupID = &groupID
	}

	entry, err := h.schedules.UpdateSchedule(r.Context(), id, input)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.publisher.ClassroomChanged(r.Context(), entry.ClassroomID)
	writeJSON(w, http.StatusOK, scheduleToResponse(entry))
}

func (h *ScheduleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "scheduleID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid schedule id")
		return
	}

	deleted, err := h.schedules.DeleteSchedule(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.publisher.ClassroomChanged(r.Context(), deleted.ClassroomID)
	w.WriteHeader(http.StatusNoContent)
}

// Current returns the schedule entry covering the classroom at the given
// instant (query parameter at, RFC 3339, defaulting to now), or null.
func (h *ScheduleHandler) Current(w http.ResponseWriter, r *http.Request) {
	classroomID, err := uuid.Parse(chi.URLParam(r, "classroomID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid classroom id")
		return
	}

	at := time.Now()
	if raw := r.URL.Query().Get("at"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid at timestamp")
			return
		}
		at = parsed
	}

	entry, err := h.schedules.GetCurrentSchedule(r.Context(), classroomID, at)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if entry == nil {
		writeJSON(w, http.StatusOK, map[string]any{"schedule": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"schedule": scheduleToResponse(*entry)})
}
