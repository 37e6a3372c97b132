// Package ticker turns schedule window edges into the same change
// notification path admin mutations use. It owns no timer: the hosting
// process invokes RunTickOnce once per minute, which keeps it testable
// with synthetic timestamps.
package ticker

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/balejosg/openpath-sub004/internal/domain"
)

// BoundaryStore answers which classrooms have a window opening or closing
// at an exact weekday and minute.
type BoundaryStore interface {
	ClassroomIDsWithBoundaryAt(ctx context.Context, dayOfWeek, minuteOfDay int) ([]uuid.UUID, error)
}

// EmitFunc announces that a classroom's effective group may have changed
// at the given instant.
type EmitFunc func(ctx context.Context, classroomID uuid.UUID, at time.Time)

type BoundaryTicker struct {
	store  BoundaryStore
	emit   EmitFunc
	logger *log.Logger
}

func New(store BoundaryStore, emit EmitFunc, logger *log.Logger) *BoundaryTicker {
	return &BoundaryTicker{store: store, emit: emit, logger: logger}
}

// RunTickOnce evaluates one minute. Weekends do nothing. Each classroom
// with a boundary at this minute gets exactly one emit, even when a
// window closes and another opens at the same instant.
func (t *BoundaryTicker) RunTickOnce(ctx context.Context, now time.Time) error {
	dayOfWeek := domain.WeekdayNumber(now)
	if !domain.IsSchoolDay(dayOfWeek) {
		return nil
	}

	ids, err := t.store.ClassroomIDsWithBoundaryAt(ctx, dayOfWeek, domain.MinuteOfDay(now))
	if err != nil {
		t.logger.Printf("boundary query failed: %v", err)
		return err
	}

	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		t.emit(ctx, id, now)
	}

	return nil
}
