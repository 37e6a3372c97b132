package hub

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/balejosg/openpath-sub004/internal/domain"
)

type fakeStream struct {
	frames [][]byte
	fail   bool
}

func (s *fakeStream) WriteEvent(frame []byte) error {
	if s.fail {
		return errors.New("broken pipe")
	}
	s.frames = append(s.frames, frame)
	return nil
}

type fakeResolver struct {
	groups map[uuid.UUID]uuid.UUID
	err    error
}

func (r *fakeResolver) ResolveClassroomGroupContext(_ context.Context, classroomID uuid.UUID, _ time.Time) (*domain.GroupContext, error) {
	if r.err != nil {
		return nil, r.err
	}
	groupID, ok := r.groups[classroomID]
	if !ok {
		return nil, nil
	}
	return &domain.GroupContext{GroupID: groupID}, nil
}

func testLogger() *log.Logger {
	return log.New(os.Stdout, "", 0)
}

func decodeFrame(t *testing.T, frame []byte) whitelistChangedEvent {
	t.Helper()
	text := string(frame)
	if !strings.HasPrefix(text, "data: ") || !strings.HasSuffix(text, "\n\n") {
		t.Fatalf("malformed SSE frame: %q", text)
	}
	var event whitelistChangedEvent
	if err := json.Unmarshal([]byte(strings.TrimSuffix(strings.TrimPrefix(text, "data: "), "\n\n")), &event); err != nil {
		t.Fatalf("frame payload is not JSON: %v", err)
	}
	return event
}

func TestPublishGroupChanged_FiltersByGroup(t *testing.T) {
	h := New(&fakeResolver{}, testLogger(), nil)
	classroom := uuid.New()
	groupA := uuid.New()
	groupB := uuid.New()

	streamA := &fakeStream{}
	streamB := &fakeStream{}
	h.Register("host-a", classroom, groupA, streamA)
	h.Register("host-b", classroom, groupB, streamB)

	h.PublishGroupChanged(groupA)

	if len(streamA.frames) != 1 {
		t.Fatalf("groupA client should receive exactly one frame, got %d", len(streamA.frames))
	}
	if len(streamB.frames) != 0 {
		t.Fatalf("groupB client must receive nothing, got %d frames", len(streamB.frames))
	}

	event := decodeFrame(t, streamA.frames[0])
	if event.Event != "whitelist-changed" || event.GroupID != groupA.String() {
		t.Errorf("unexpected frame: %+v", event)
	}
}

func TestPublishBroadcast_ReachesAll(t *testing.T) {
	h := New(&fakeResolver{}, testLogger(), nil)
	groupA := uuid.New()
	groupB := uuid.New()

	streamA := &fakeStream{}
	streamB := &fakeStream{}
	h.Register("host-a", uuid.New(), groupA, streamA)
	h.Register("host-b", uuid.New(), groupB, streamB)

	h.PublishBroadcast()

	if len(streamA.frames) != 1 || len(streamB.frames) != 1 {
		t.Fatalf("broadcast must reach every client, got %d and %d", len(streamA.frames), len(streamB.frames))
	}
	if event := decodeFrame(t, streamA.frames[0]); event.GroupID != groupA.String() {
		t.Errorf("broadcast frame should carry the client's own group, got %s", event.GroupID)
	}
	if event := decodeFrame(t, streamB.frames[0]); event.GroupID != groupB.String() {
		t.Errorf("broadcast frame should carry the client's own group, got %s", event.GroupID)
	}
}

func TestPublishClassroomChanged_ReassignsAndEmits(t *testing.T) {
	classroom := uuid.New()
	oldGroup := uuid.New()
	newGroup := uuid.New()
	resolver := &fakeResolver{groups: map[uuid.UUID]uuid.UUID{classroom: newGroup}}
	h := New(resolver, testLogger(), nil)

	stream := &fakeStream{}
	h.Register("host-a", classroom, oldGroup, stream)

	h.PublishClassroomChanged(context.Background(), classroom, time.Now())

	if len(stream.frames) != 1 {
		t.Fatalf("expected one frame after reassignment, got %d", len(stream.frames))
	}
	if event := decodeFrame(t, stream.frames[0]); event.GroupID != newGroup.String() {
		t.Errorf("frame must carry the new group, got %s", event.GroupID)
	}

	// The registration has moved buckets: old-group publishes no longer
	// reach it, new-group publishes do.
	h.PublishGroupChanged(oldGroup)
	if len(stream.frames) != 1 {
		t.Fatalf("client must no longer be indexed under the old group")
	}
	h.PublishGroupChanged(newGroup)
	if len(stream.frames) != 2 {
		t.Fatalf("client must be indexed under the new group")
	}
}

func TestPublishClassroomChanged_SameGroupEmitsNothing(t *testing.T) {
	classroom := uuid.New()
	group := uuid.New()
	resolver := &fakeResolver{groups: map[uuid.UUID]uuid.UUID{classroom: group}}
	h := New(resolver, testLogger(), nil)

	stream := &fakeStream{}
	h.Register("host-a", classroom, group, stream)

	h.PublishClassroomChanged(context.Background(), classroom, time.Now())

	if len(stream.frames) != 0 {
		t.Fatalf("unchanged group must not emit, got %d frames", len(stream.frames))
	}
}

func TestPublishClassroomChanged_UnknownClassroomIsNoop(t *testing.T) {
	resolver := &fakeResolver{}
	h := New(resolver, testLogger(), nil)

	stream := &fakeStream{}
	group := uuid.New()
	classroom := uuid.New()
	h.Register("host-a", classroom, group, stream)

	h.PublishClassroomChanged(context.Background(), classroom, time.Now())

	if len(stream.frames) != 0 {
		t.Fatalf("unknown classroom must be a no-op, got %d frames", len(stream.frames))
	}
	if h.ListenerCount() != 1 {
		t.Errorf("registration must survive a no-op publish")
	}
}

func TestUnregister_Idempotent(t *testing.T) {
	h := New(&fakeResolver{}, testLogger(), nil)
	group := uuid.New()
	handle := h.Register("host-a", uuid.New(), group, &fakeStream{})

	if h.ListenerCount() != 1 {
		t.Fatalf("expected one listener, got %d", h.ListenerCount())
	}

	h.Unregister(handle)
	h.Unregister(handle)

	if h.ListenerCount() != 0 {
		t.Fatalf("expected zero listeners, got %d", h.ListenerCount())
	}
	if len(h.byGroup) != 0 {
		t.Errorf("group index must be empty after last unregister")
	}
}

func TestWriteFailure_IsolatedAndDropsClient(t *testing.T) {
	h := New(&fakeResolver{}, testLogger(), nil)
	group := uuid.New()

	broken := &fakeStream{fail: true}
	healthy := &fakeStream{}
	h.Register("host-broken", uuid.New(), group, broken)
	h.Register("host-ok", uuid.New(), group, healthy)

	h.PublishGroupChanged(group)

	if len(healthy.frames) != 1 {
		t.Fatalf("a failing client must not block delivery to the rest, got %d frames", len(healthy.frames))
	}
	if h.ListenerCount() != 1 {
		t.Errorf("failed client should be dropped, got %d listeners", h.ListenerCount())
	}
}

// The group index is derived state: for any key it must equal the set of
// live registrations holding that group.
func TestGroupIndexConsistency(t *testing.T) {
	classroom := uuid.New()
	groupA := uuid.New()
	groupB := uuid.New()
	resolver := &fakeResolver{groups: map[uuid.UUID]uuid.UUID{classroom: groupB}}
	h := New(resolver, testLogger(), nil)

	h1 := h.Register("h1", classroom, groupA, &fakeStream{})
	h.Register("h2", classroom, groupA, &fakeStream{})
	h3 := h.Register("h3", uuid.New(), groupB, &fakeStream{})
	h.Unregister(h3)
	h.Register("h4", uuid.New(), groupB, &fakeStream{})
	// Re-assigns h1 and h2 from groupA to groupB.
	h.PublishClassroomChanged(context.Background(), classroom, time.Now())
	h.Unregister(h1)

	assertIndexConsistent(t, h)
}

func assertIndexConsistent(t *testing.T, h *Hub) {
	t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()

	expected := make(map[uuid.UUID]map[ClientHandle]struct{})
	for handle, reg := range h.clients {
		bucket, ok := expected[reg.groupID]
		if !ok {
			bucket = make(map[ClientHandle]struct{})
			expected[reg.groupID] = bucket
		}
		bucket[handle] = struct{}{}
	}

	if len(expected) != len(h.byGroup) {
		t.Fatalf("index has %d groups, scan found %d", len(h.byGroup), len(expected))
	}
	for groupID, bucket := range expected {
		indexed, ok := h.byGroup[groupID]
		if !ok {
			t.Fatalf("group %s missing from index", groupID)
		}
		if len(indexed) != len(bucket) {
			t.Fatalf("group %s: index has %d entries, scan found %d", groupID, len(indexed), len(bucket))
		}
		for handle := range bucket {
			if _, ok := indexed[handle]; !ok {
				t.Fatalf("group %s: handle %d missing from index", groupID, handle)
			}
		}
	}
}
