package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/balejosg/openpath-sub004/internal/domain"
	"github.com/balejosg/openpath-sub004/internal/repository"
)

// ClassroomResolver answers which whitelist group is effective for a
// classroom at a point in time: the group of the schedule window covering
// the instant if one exists, otherwise the classroom's assigned default
// group. An unknown classroom resolves to nil, not an error.
type ClassroomResolver struct {
	txManager repository.TxManager
}

func NewClassroomResolver(txManager repository.TxManager) *ClassroomResolver {
	return &ClassroomResolver{txManager: txManager}
}

func (r *ClassroomResolver) ResolveClassroomGroupContext(ctx context.Context, classroomID uuid.UUID, at time.Time) (*domain.GroupContext, error) {
	var result *domain.GroupContext
	err := r.txManager.WithTx(ctx, func(ctx context.Context, repos repository.TxRepositories) error {
		classroom, err := repos.Classrooms.GetByID(ctx, classroomID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return err
		}

		groupID := classroom.GroupID
		dayOfWeek := domain.WeekdayNumber(at)
		if domain.IsSchoolDay(dayOfWeek) {
			entry, err := repos.Schedules.GetActiveAt(ctx, classroomID, dayOfWeek, domain.MinuteOfDay(at))
			switch {
			case err == nil:
				groupID = entry.GroupID
			case errors.Is(err, sql.ErrNoRows):
			default:
				return err
			}
		}

		result = &domain.GroupContext{GroupID: groupID}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
