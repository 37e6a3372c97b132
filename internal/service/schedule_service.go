package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/balejosg/openpath-sub004/internal/domain"
	"github.com/balejosg/openpath-sub004/internal/repository"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

// ConflictError reports which existing entry an overlapping schedule
// collides with, so the caller can show it instead of a bare rejection.
type ConflictError struct {
	Conflicting domain.ScheduleEntry
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf(
		"schedule overlaps existing entry %s (%s-%s)",
		e.Conflicting.ID,
		domain.FormatMinuteOfDay(e.Conflicting.StartMin),
		domain.FormatMinuteOfDay(e.Conflicting.EndMin),
	)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

type CreateScheduleInput struct {
	ClassroomID uuid.UUID
	GroupID     uuid.UUID
	DayOfWeek   int
	StartTime   string
	EndTime     string
}

// UpdateScheduleInput carries a partial update; nil fields keep the
// entry's current value.
type UpdateScheduleInput struct {
	GroupID   *uuid.UUID
	DayOfWeek *int
	StartTime *string
	EndTime   *string
}

type ScheduleService struct {
	txManager repository.TxManager
}

func NewScheduleService(txManager repository.TxManager) *ScheduleService {
	return &ScheduleService{txManager: txManager}
}

func (s *ScheduleService) CreateSchedule(ctx context.Context, in CreateScheduleInput) (domain.ScheduleEntry, error) {
	startMin, endMin, err := validateWindow(in.DayOfWeek, in.StartTime, in.EndTime)
	if err != nil {
		return domain.ScheduleEntry{}, err
	}

	entry := domain.ScheduleEntry{
		ID:          uuid.New(),
		ClassroomID: in.ClassroomID,
		GroupID:     in.GroupID,
		DayOfWeek:   in.DayOfWeek,
		StartMin:    startMin,
		EndMin:      endMin,
	}

	err = s.txManager.WithTx(ctx, func(ctx context.Context, repos repository.TxRepositories) error {
		if _, err := repos.Classrooms.GetByIDForUpdate(ctx, in.ClassroomID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: classroom %s", ErrNotFound, in.ClassroomID)
			}
			return err
		}

		exists, err := repos.Groups.Exists(ctx, in.GroupID)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: group %s", ErrNotFound, in.GroupID)
		}

		if err := checkConflicts(ctx, repos.Schedules, entry, uuid.Nil); err != nil {
			return err
		}

		return repos.Schedules.Insert(ctx, entry)
	})
	if err != nil {
		return domain.ScheduleEntry{}, err
	}

	return entry, nil
}

func (s *ScheduleService) UpdateSchedule(ctx context.Context, id uuid.UUID, in UpdateScheduleInput) (domain.ScheduleEntry, error) {
	var updated domain.ScheduleEntry
	err := s.txManager.WithTx(ctx, func(ctx context.Context, repos repository.TxRepositories) error {
		existing, err := repos.Schedules.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: schedule %s", ErrNotFound, id)
			}
			return err
		}

		if _, err := repos.Classrooms.GetByIDForUpdate(ctx, existing.ClassroomID); err != nil {
			return err
		}

		// Validation always runs on the effective values: the proposed
		// fields merged over the stored entry.
		effective := existing
		if in.GroupID != nil {
			effective.GroupID = *in.GroupID
		}
		if in.DayOfWeek != nil {
			effective.DayOfWeek = *in.DayOfWeek
		}
		startTime := domain.FormatMinuteOfDay(existing.StartMin)
		if in.StartTime != nil {
			startTime = *in.StartTime
		}
		endTime := domain.FormatMinuteOfDay(existing.EndMin)
		if in.EndTime != nil {
			endTime = *in.EndTime
		}

		startMin, endMin, err := validateWindow(effective.DayOfWeek, startTime, endTime)
		if err != nil {
			return err
		}
		effective.StartMin = startMin
		effective.EndMin = endMin

		if in.GroupID != nil {
			exists, err := repos.Groups.Exists(ctx, effective.GroupID)
			if err != nil {
				return err
			}
			if !exists {
				return fmt.Errorf("%w: group %s", ErrNotFound, effective.GroupID)
			}
		}

		if err := checkConflicts(ctx, repos.Schedules, effective, existing.ID); err != nil {
			return err
		}

		if err := repos.Schedules.Update(ctx, effective); err != nil {
			return err
		}
		updated = effective
		return nil
	})
	if err != nil {
		return domain.ScheduleEntry{}, err
	}

	return updated, nil
}

// DeleteSchedule removes the entry and returns it so the caller can
// publish a change notification for its classroom.
func (s *ScheduleService) DeleteSchedule(ctx context.Context, id uuid.UUID) (domain.ScheduleEntry, error) {
	var deleted domain.ScheduleEntry
	err := s.txManager.WithTx(ctx, func(ctx context.Context, repos repository.TxRepositories) error {
		existing, err := repos.Schedules.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: schedule %s", ErrNotFound, id)
			}
			return err
		}

		removed, err := repos.Schedules.Delete(ctx, id)
		if err != nil {
			return err
		}
		if !removed {
			return fmt.Errorf("%w: schedule %s", ErrNotFound, id)
		}
		deleted = existing
		return nil
	})
	if err != nil {
		return domain.ScheduleEntry{}, err
	}

	return deleted, nil
}

// GetCurrentSchedule returns the entry whose window contains the given
// instant, or nil on weekends and gaps.
func (s *ScheduleService) GetCurrentSchedule(ctx context.Context, classroomID uuid.UUID, at time.Time) (*domain.ScheduleEntry, error) {
	dayOfWeek := domain.WeekdayNumber(at)
	if !domain.IsSchoolDay(dayOfWeek) {
		return nil, nil
	}
	minuteOfDay := domain.MinuteOfDay(at)

	var entry *domain.ScheduleEntry
	err := s.txManager.WithTx(ctx, func(ctx context.Context, repos repository.TxRepositories) error {
		found, err := repos.Schedules.GetActiveAt(ctx, classroomID, dayOfWeek, minuteOfDay)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return err
		}
		entry = &found
		return nil
	})
	if err != nil {
		return nil, err
	}

	return entry, nil
}

// ClassroomIDsWithBoundaryAt lists the classrooms with a window opening
// or closing at the given weekday and minute.
func (s *ScheduleService) ClassroomIDsWithBoundaryAt(ctx context.Context, dayOfWeek, minuteOfDay int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.txManager.WithTx(ctx, func(ctx context.Context, repos repository.TxRepositories) error {
		var err error
		ids, err = repos.Schedules.ListClassroomIDsWithBoundaryAt(ctx, dayOfWeek, minuteOfDay)
		return err
	})
	if err != nil {
		return nil, err
	}

	return ids, nil
}

func validateWindow(dayOfWeek int, startTime, endTime string) (int, int, error) {
	if !domain.IsSchoolDay(dayOfWeek) {
		return 0, 0, fmt.Errorf("%w: day_of_week must be 1 (Monday) to 5 (Friday), got %d", ErrInvalidInput, dayOfWeek)
	}

	startMin, err := domain.ParseMinuteOfDay(startTime)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: start_time: %v", ErrInvalidInput, err)
	}
	endMin, err := domain.ParseMinuteOfDay(endTime)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: end_time: %v", ErrInvalidInput, err)
	}
	if startMin >= endMin {
		return 0, 0, fmt.Errorf("%w: start_time must be before end_time", ErrInvalidInput)
	}

	return startMin, endMin, nil
}

func checkConflicts(ctx context.Context, schedules repository.ScheduleRepository, entry domain.ScheduleEntry, excludeID uuid.UUID) error {
	siblings, err := schedules.ListByClassroomDay(ctx, entry.ClassroomID, entry.DayOfWeek)
	if err != nil {
		return err
	}

	for _, sibling := range siblings {
		if sibling.ID == excludeID {
			continue
		}
		if domain.Overlaps(entry.StartMin, entry.EndMin, sibling.StartMin, sibling.EndMin) {
			return &ConflictError{Conflicting: sibling}
		}
	}

	return nil
}
