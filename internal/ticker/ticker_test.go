package ticker

import (
	"context"
	"errors"
	"log"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeBoundaryStore struct {
	ids     map[int]map[int][]uuid.UUID // dayOfWeek -> minuteOfDay -> classrooms
	err     error
	queries int
}

func (s *fakeBoundaryStore) ClassroomIDsWithBoundaryAt(_ context.Context, dayOfWeek, minuteOfDay int) ([]uuid.UUID, error) {
	s.queries++
	if s.err != nil {
		return nil, s.err
	}
	return s.ids[dayOfWeek][minuteOfDay], nil
}

type emitRecorder struct {
	calls []emitCall
}

type emitCall struct {
	classroomID uuid.UUID
	at          time.Time
}

func (r *emitRecorder) emit(_ context.Context, classroomID uuid.UUID, at time.Time) {
	r.calls = append(r.calls, emitCall{classroomID: classroomID, at: at})
}

func testLogger() *log.Logger {
	return log.New(os.Stdout, "", 0)
}

func TestRunTickOnce_EmitsAtBoundary(t *testing.T) {
	classroom := uuid.New()
	store := &fakeBoundaryStore{ids: map[int]map[int][]uuid.UUID{
		1: {540: {classroom}}, // Monday 09:00
	}}
	recorder := &emitRecorder{}
	ticker := New(store, recorder.emit, testLogger())

	monday0900 := time.Date(2026, time.August, 31, 9, 0, 0, 0, time.Local)
	if err := ticker.RunTickOnce(context.Background(), monday0900); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(recorder.calls) != 1 {
		t.Fatalf("expected exactly one emit, got %d", len(recorder.calls))
	}
	if recorder.calls[0].classroomID != classroom {
		t.Errorf("expected emit for %s, got %s", classroom, recorder.calls[0].classroomID)
	}
	if !recorder.calls[0].at.Equal(monday0900) {
		t.Errorf("emit must carry the evaluated instant, got %s", recorder.calls[0].at)
	}
}

func TestRunTickOnce_NoBoundaryNoEmit(t *testing.T) {
	store := &fakeBoundaryStore{ids: map[int]map[int][]uuid.UUID{
		1: {540: {uuid.New()}},
	}}
	recorder := &emitRecorder{}
	ticker := New(store, recorder.emit, testLogger())

	monday0905 := time.Date(2026, time.August, 31, 9, 5, 0, 0, time.Local)
	if err := ticker.RunTickOnce(context.Background(), monday0905); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(recorder.calls) != 0 {
		t.Fatalf("expected no emits off the boundary, got %d", len(recorder.calls))
	}
}

func TestRunTickOnce_DeduplicatesClassrooms(t *testing.T) {
	// One window closing and another opening at the same minute on the
	// same classroom must produce one event, not two.
	classroom := uuid.New()
	store := &fakeBoundaryStore{ids: map[int]map[int][]uuid.UUID{
		1: {600: {classroom, classroom}},
	}}
	recorder := &emitRecorder{}
	ticker := New(store, recorder.emit, testLogger())

	monday1000 := time.Date(2026, time.August, 31, 10, 0, 0, 0, time.Local)
	if err := ticker.RunTickOnce(context.Background(), monday1000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(recorder.calls) != 1 {
		t.Fatalf("coincident boundaries must emit once, got %d", len(recorder.calls))
	}
}

func TestRunTickOnce_WeekendDoesNothing(t *testing.T) {
	store := &fakeBoundaryStore{}
	recorder := &emitRecorder{}
	ticker := New(store, recorder.emit, testLogger())

	saturday := time.Date(2026, time.September, 5, 9, 0, 0, 0, time.Local)
	if err := ticker.RunTickOnce(context.Background(), saturday); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if store.queries != 0 {
		t.Errorf("store must not be queried on weekends")
	}
	if len(recorder.calls) != 0 {
		t.Errorf("expected no emits on weekends, got %d", len(recorder.calls))
	}
}

func TestRunTickOnce_PropagatesStoreError(t *testing.T) {
	storeErr := errors.New("db down")
	store := &fakeBoundaryStore{err: storeErr}
	recorder := &emitRecorder{}
	ticker := New(store, recorder.emit, testLogger())

	monday := time.Date(2026, time.August, 31, 9, 0, 0, 0, time.Local)
	if err := ticker.RunTickOnce(context.Background(), monday); !errors.Is(err, storeErr) {
		t.Fatalf("expected store error to propagate, got %v", err)
	}
	if len(recorder.calls) != 0 {
		t.Errorf("expected no emits on store failure")
	}
}
