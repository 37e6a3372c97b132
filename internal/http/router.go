package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/balejosg/openpath-sub004/internal/http/handlers"
)

func NewRouter(
	schedules *handlers.ScheduleHandler,
	control *handlers.ControlHandler,
	events *handlers.EventsHandler,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", metricsHandler)

	r.Get("/api/events", events.Stream)

	r.Route("/api/admin", func(r chi.Router) {
		r.Post("/schedules", schedules.Create)
		r.Patch("/schedules/{scheduleID}", schedules.Update)
		r.Delete("/schedules/{scheduleID}", schedules.Delete)
		r.Get("/classrooms/{classroomID}/schedule", schedules.Current)
		r.Put("/classrooms/{classroomID}/group", control.AssignGroup)
		r.Post("/groups/{groupID}/notify", control.NotifyGroup)
		r.Post("/broadcast", control.Broadcast)
	})

	return r
}
