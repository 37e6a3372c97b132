package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/balejosg/openpath-sub004/internal/repository"
)

type ClassroomService struct {
	txManager repository.TxManager
}

func NewClassroomService(txManager repository.TxManager) *ClassroomService {
	return &ClassroomService{txManager: txManager}
}

// AssignGroup changes the classroom's default whitelist group.
func (s *ClassroomService) AssignGroup(ctx context.Context, classroomID, groupID uuid.UUID) error {
	return s.txManager.WithTx(ctx, func(ctx context.Context, repos repository.TxRepositories) error {
		exists, err := repos.Groups.Exists(ctx, groupID)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: group %s", ErrNotFound, groupID)
		}

		updated, err := repos.Classrooms.SetGroup(ctx, classroomID, groupID)
		if err != nil {
			return err
		}
		if !updated {
			return fmt.Errorf("%w: classroom %s", ErrNotFound, classroomID)
		}
		return nil
	})
}

func (s *ClassroomService) GroupExists(ctx context.Context, groupID uuid.UUID) (bool, error) {
	var exists bool
	err := s.txManager.WithTx(ctx, func(ctx context.Context, repos repository.TxRepositories) error {
		var err error
		exists, err = repos.Groups.Exists(ctx, groupID)
		return err
	})
	return exists, err
}
