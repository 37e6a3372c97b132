// Package hub owns the registry of connected SSE clients and is the only
// place that writes to their streams. The registry is an arena of
// registrations addressed by opaque handles, with a derived index from
// group id to the registrations currently holding that group.
package hub

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/balejosg/openpath-sub004/internal/domain"
)

// ClientHandle addresses one registration in the arena. Handles are never
// reused within a process lifetime.
type ClientHandle uint64

// StreamWriter is the write sink of one connected client. WriteEvent
// appends a complete SSE frame to the open stream.
type StreamWriter interface {
	WriteEvent(frame []byte) error
}

// ClassroomResolver computes the group context effective for a classroom
// at a point in time; nil means the classroom is unknown.
type ClassroomResolver interface {
	ResolveClassroomGroupContext(ctx context.Context, classroomID uuid.UUID, at time.Time) (*domain.GroupContext, error)
}

// Observer receives counts the hub would otherwise only log.
type Observer interface {
	ClientRegistered()
	ClientUnregistered()
	StreamWriteFailed()
}

type nopObserver struct{}

func (nopObserver) ClientRegistered()   {}
func (nopObserver) ClientUnregistered() {}
func (nopObserver) StreamWriteFailed()  {}

type registration struct {
	handle      ClientHandle
	hostname    string
	classroomID uuid.UUID
	groupID     uuid.UUID
	stream      StreamWriter
}

type Hub struct {
	resolver ClassroomResolver
	logger   *log.Logger
	observer Observer

	mu         sync.Mutex
	nextHandle ClientHandle
	clients    map[ClientHandle]*registration
	byGroup    map[uuid.UUID]map[ClientHandle]struct{}
}

func New(resolver ClassroomResolver, logger *log.Logger, observer Observer) *Hub {
	if observer == nil {
		observer = nopObserver{}
	}
	return &Hub{
		resolver: resolver,
		logger:   logger,
		observer: observer,
		clients:  make(map[ClientHandle]*registration),
		byGroup:  make(map[uuid.UUID]map[ClientHandle]struct{}),
	}
}

// Register adds a client to the arena and to the group index and returns
// its handle. Multiple registrations per hostname are independent.
func (h *Hub) Register(hostname string, classroomID, groupID uuid.UUID, stream StreamWriter) ClientHandle {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextHandle++
	handle := h.nextHandle
	reg := &registration{
		handle:      handle,
		hostname:    hostname,
		classroomID: classroomID,
		groupID:     groupID,
		stream:      stream,
	}
	h.clients[handle] = reg
	h.indexLocked(reg)
	h.observer.ClientRegistered()
	return handle
}

// Unregister removes the client from the arena and from its group bucket.
// Unknown or already-removed handles are a no-op.
func (h *Hub) Unregister(handle ClientHandle) {
	h.mu.Lock()
	defer h.mu.Unlock()

	reg, ok := h.clients[handle]
	if !ok {
		return
	}
	delete(h.clients, handle)
	h.unindexLocked(reg)
	h.observer.ClientUnregistered()
}

// PublishGroupChanged writes a whitelist-changed frame to every client
// currently indexed under the group. Clients of other groups are
// untouched.
func (h *Hub) PublishGroupChanged(groupID uuid.UUID) {
	h.mu.Lock()
	targets := make([]*registration, 0, len(h.byGroup[groupID]))
	for handle := range h.byGroup[groupID] {
		targets = append(targets, h.clients[handle])
	}
	h.mu.Unlock()

	frame := whitelistChangedFrame(groupID)
	for _, reg := range targets {
		h.write(reg, frame)
	}
}

// PublishClassroomChanged re-resolves the classroom's effective group and,
// for every registration of that classroom whose stored group differs,
// moves it to the new group bucket and emits a frame carrying the new
// group id. An unknown classroom is a no-op.
func (h *Hub) PublishClassroomChanged(ctx context.Context, classroomID uuid.UUID, now time.Time) {
	groupCtx, err := h.resolver.ResolveClassroomGroupContext(ctx, classroomID, now)
	if err != nil {
		h.logger.Printf("classroom %s group resolution failed: %v", classroomID, err)
		return
	}
	if groupCtx == nil {
		return
	}

	h.mu.Lock()
	var targets []*registration
	for _, reg := range h.clients {
		if reg.classroomID != classroomID || reg.groupID == groupCtx.GroupID {
			continue
		}
		h.unindexLocked(reg)
		reg.groupID = groupCtx.GroupID
		h.indexLocked(reg)
		targets = append(targets, reg)
	}
	h.mu.Unlock()

	frame := whitelistChangedFrame(groupCtx.GroupID)
	for _, reg := range targets {
		h.write(reg, frame)
	}
}

// PublishBroadcast writes a frame to every registered client regardless
// of group, each carrying the group the client is currently assigned to.
func (h *Hub) PublishBroadcast() {
	h.mu.Lock()
	targets := make([]*registration, 0, len(h.clients))
	groups := make([]uuid.UUID, 0, len(h.clients))
	for _, reg := range h.clients {
		targets = append(targets, reg)
		groups = append(groups, reg.groupID)
	}
	h.mu.Unlock()

	for i, reg := range targets {
		h.write(reg, whitelistChangedFrame(groups[i]))
	}
}

// ListenerCount returns the number of live registrations.
func (h *Hub) ListenerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// write delivers one frame, isolating failures: a dead stream is logged,
// counted and unregistered without affecting the rest of the fan-out.
func (h *Hub) write(reg *registration, frame []byte) {
	if err := reg.stream.WriteEvent(frame); err != nil {
		h.logger.Printf("sse write to %s failed, dropping client: %v", reg.hostname, err)
		h.observer.StreamWriteFailed()
		h.Unregister(reg.handle)
	}
}

func (h *Hub) indexLocked(reg *registration) {
	bucket, ok := h.byGroup[reg.groupID]
	if !ok {
		bucket = make(map[ClientHandle]struct{})
		h.byGroup[reg.groupID] = bucket
	}
	bucket[reg.handle] = struct{}{}
}

func (h *Hub) unindexLocked(reg *registration) {
	bucket, ok := h.byGroup[reg.groupID]
	if !ok {
		return
	}
	delete(bucket, reg.handle)
	if len(bucket) == 0 {
		delete(h.byGroup, reg.groupID)
	}
}

type whitelistChangedEvent struct {
	Event   string `json:"event"`
	GroupID string `json:"groupId"`
}

func whitelistChangedFrame(groupID uuid.UUID) []byte {
	payload, err := json.Marshal(whitelistChangedEvent{
		Event:   "whitelist-changed",
		GroupID: groupID.String(),
	})
	if err != nil {
		// Marshalling a two-field struct of strings cannot fail.
		panic(err)
	}

	frame := make([]byte, 0, len(payload)+8)
	frame = append(frame, "data: "...)
	frame = append(frame, payload...)
	frame = append(frame, "\n\n"...)
	return frame
}
