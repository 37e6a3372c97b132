package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/balejosg/openpath-sub004/internal/domain"
)

type ClassroomRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Classroom, error)
	// GetByIDForUpdate locks the classroom row so concurrent schedule
	// writers for the same classroom serialize on it.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (domain.Classroom, error)
	SetGroup(ctx context.Context, id, groupID uuid.UUID) (bool, error)
}

type GroupRepository interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

type ClassroomPostgresRepository struct {
	execer Execer
}

func NewClassroomPostgresRepository(execer Execer) *ClassroomPostgresRepository {
	return &ClassroomPostgresRepository{execer: execer}
}

func (r *ClassroomPostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Classroom, error) {
	const query = `
SELECT id, name, group_id
FROM whitelist.classrooms
WHERE id = $1
`

	var classroom domain.Classroom
	err := r.execer.QueryRowContext(ctx, query, id).Scan(
		&classroom.ID,
		&classroom.Name,
		&classroom.GroupID,
	)
	return classroom, err
}

func (r *ClassroomPostgresRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (domain.Classroom, error) {
	const query = `
SELECT id, name, group_id
FROM whitelist.classrooms
WHERE id = $1
FOR UPDATE
`

	var classroom domain.Classroom
	err := r.execer.QueryRowContext(ctx, query, id).Scan(
		&classroom.ID,
		&classroom.Name,
		&classroom.GroupID,
	)
	return classroom, err
}

func (r *ClassroomPostgresRepository) SetGroup(ctx context.Context, id, groupID uuid.UUID) (bool, error) {
	const query = `
UPDATE whitelist.classrooms
SET group_id = $2
WHERE id = $1
`

	result, err := r.execer.ExecContext(ctx, query, id, groupID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

type GroupPostgresRepository struct {
	execer Execer
}

func NewGroupPostgresRepository(execer Execer) *GroupPostgresRepository {
	return &GroupPostgresRepository{execer: execer}
}

func (r *GroupPostgresRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM whitelist.groups WHERE id = $1)`

	var exists bool
	err := r.execer.QueryRowContext(ctx, query, id).Scan(&exists)
	return exists, err
}
