package handlers

import (
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/balejosg/openpath-sub004/internal/hub"
)

const heartbeatInterval = 30 * time.Second

// EventsHandler serves the persistent SSE stream. It registers the
// connection with the hub, keeps it alive with comment frames, and
// unregisters on disconnect. All event frames are written by the hub.
type EventsHandler struct {
	hub      *hub.Hub
	resolver hub.ClassroomResolver
	logger   *log.Logger
}

func NewEventsHandler(h *hub.Hub, resolver hub.ClassroomResolver, logger *log.Logger) *EventsHandler {
	return &EventsHandler{hub: h, resolver: resolver, logger: logger}
}

func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	classroomID, err := uuid.Parse(r.URL.Query().Get("classroom"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid classroom")
		return
	}
	hostname := r.URL.Query().Get("hostname")
	if hostname == "" {
		hostname = r.RemoteAddr
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	groupCtx, err := h.resolver.ResolveClassroomGroupContext(r.Context(), classroomID, time.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if groupCtx == nil {
		writeError(w, http.StatusNotFound, "unknown classroom")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	stream := &sseStream{w: w, flusher: flusher}
	handle := h.hub.Register(hostname, classroomID, groupCtx.GroupID, stream)
	defer func() {
		// net/http reclaims the response once the handler returns. A
		// fan-out snapshot taken just before unregister may still hold
		// this stream, so mark it closed first: the late write then
		// fails over to the hub's drop path instead of touching a dead
		// response.
		stream.close()
		h.hub.Unregister(handle)
	}()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if err := stream.writeComment(); err != nil {
				return
			}
		}
	}
}

var errStreamClosed = errors.New("stream closed")

// sseStream serializes writes to one response: the hub's fan-out
// goroutines and the handler's heartbeat share it. Once closed every
// write fails, so the underlying response is never touched after the
// handler has returned.
type sseStream struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	closed  bool
}

func (s *sseStream) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *sseStream) WriteEvent(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errStreamClosed
	}
	if _, err := s.w.Write(frame); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *sseStream) writeComment() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errStreamClosed
	}
	if _, err := s.w.Write([]byte(": keep-alive\n\n")); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
