package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/balejosg/openpath-sub004/internal/domain"
)

type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type ScheduleRepository interface {
	Insert(ctx context.Context, entry domain.ScheduleEntry) error
	Update(ctx context.Context, entry domain.ScheduleEntry) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.ScheduleEntry, error)
	ListByClassroomDay(ctx context.Context, classroomID uuid.UUID, dayOfWeek int) ([]domain.ScheduleEntry, error)
	GetActiveAt(ctx context.Context, classroomID uuid.UUID, dayOfWeek, minuteOfDay int) (domain.ScheduleEntry, error)
	ListClassroomIDsWithBoundaryAt(ctx context.Context, dayOfWeek, minuteOfDay int) ([]uuid.UUID, error)
}

type SchedulePostgresRepository struct {
	execer Execer
}

func NewSchedulePostgresRepository(execer Execer) *SchedulePostgresRepository {
	return &SchedulePostgresRepository{execer: execer}
}

func (r *SchedulePostgresRepository) Insert(ctx context.Context, entry domain.ScheduleEntry) error {
	const query = `
INSERT INTO whitelist.schedules (
	id,
	classroom_id,
	group_id,
	day_of_week,
	start_min,
	end_min,
	created_at,
	updated_at
) VALUES ($1, $2, $3, $4, $5, $6, now(), now())
`

	_, err := r.execer.ExecContext(
		ctx,
		query,
		entry.ID,
		entry.ClassroomID,
		entry.GroupID,
		entry.DayOfWeek,
		entry.StartMin,
		entry.EndMin,
	)
	return err
}

func (r *SchedulePostgresRepository) Update(ctx context.Context, entry domain.ScheduleEntry) error {
	const query = `
UPDATE whitelist.schedules
SET group_id = $2,
	day_of_week = $3,
	start_min = $4,
	end_min = $5,
	updated_at = now()
WHERE id = $1
`

	_, err := r.execer.ExecContext(
		ctx,
		query,
		entry.ID,
		entry.GroupID,
		entry.DayOfWeek,
		entry.StartMin,
		entry.EndMin,
	)
	return err
}

func (r *SchedulePostgresRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	const query = `DELETE FROM whitelist.schedules WHERE id = $1`

	result, err := r.execer.ExecContext(ctx, query, id)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *SchedulePostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.ScheduleEntry, error) {
	const query = `
SELECT id, classroom_id, group_id, day_of_week, start_min, end_min
FROM whitelist.schedules
WHERE id = $1
`

	var entry domain.ScheduleEntry
	err := r.execer.QueryRowContext(ctx, query, id).Scan(
		&entry.ID,
		&entry.ClassroomID,
		&entry.GroupID,
		&entry.DayOfWeek,
		&entry.StartMin,
		&entry.EndMin,
	)
	return entry, err
}

func (r *SchedulePostgresRepository) ListByClassroomDay(ctx context.Context, classroomID uuid.UUID, dayOfWeek int) ([]domain.ScheduleEntry, error) {
	const query = `
SELECT id, classroom_id, group_id, day_of_week, start_min, end_min
FROM whitelist.schedules
WHERE classroom_id = $1 AND day_of_week = $2
ORDER BY start_min ASC
`

	rows, err := r.execer.QueryContext(ctx, query, classroomID, dayOfWeek)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.ScheduleEntry
	for rows.Next() {
		var entry domain.ScheduleEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.ClassroomID,
			&entry.GroupID,
			&entry.DayOfWeek,
			&entry.StartMin,
			&entry.EndMin,
		); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

func (r *SchedulePostgresRepository) GetActiveAt(ctx context.Context, classroomID uuid.UUID, dayOfWeek, minuteOfDay int) (domain.ScheduleEntry, error) {
	const query = `
SELECT id, classroom_id, group_id, day_of_week, start_min, end_min
FROM whitelist.schedules
WHERE classroom_id = $1 AND day_of_week = $2 AND start_min <= $3 AND $3 < end_min
LIMIT 1
`

	var entry domain.ScheduleEntry
	err := r.execer.QueryRowContext(ctx, query, classroomID, dayOfWeek, minuteOfDay).Scan(
		&entry.ID,
		&entry.ClassroomID,
		&entry.GroupID,
		&entry.DayOfWeek,
		&entry.StartMin,
		&entry.EndMin,
	)
	return entry, err
}

func (r *SchedulePostgresRepository) ListClassroomIDsWithBoundaryAt(ctx context.Context, dayOfWeek, minuteOfDay int) ([]uuid.UUID, error) {
	const query = `
SELECT DISTINCT classroom_id
FROM whitelist.schedules
WHERE day_of_week = $1 AND (start_min = $2 OR end_min = $2)
`

	rows, err := r.execer.QueryContext(ctx, query, dayOfWeek, minuteOfDay)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ids, nil
}
