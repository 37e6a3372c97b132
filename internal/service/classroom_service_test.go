package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/balejosg/openpath-sub004/internal/domain"
)

func TestAssignGroup(t *testing.T) {
	store := newFakeStore()
	groupA := uuid.New()
	groupB := uuid.New()
	store.groups[groupA] = domain.Group{ID: groupA, Name: "a"}
	store.groups[groupB] = domain.Group{ID: groupB, Name: "b"}
	classroomID := uuid.New()
	store.classrooms[classroomID] = domain.Classroom{ID: classroomID, Name: "1A", GroupID: groupA}

	svc := NewClassroomService(&fakeTxManager{store: store})
	ctx := context.Background()

	if err := svc.AssignGroup(ctx, classroomID, groupB); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.classrooms[classroomID].GroupID != groupB {
		t.Errorf("classroom group not updated")
	}

	if err := svc.AssignGroup(ctx, classroomID, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown group: expected ErrNotFound, got %v", err)
	}
	if err := svc.AssignGroup(ctx, uuid.New(), groupB); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown classroom: expected ErrNotFound, got %v", err)
	}
}

func TestGroupExists(t *testing.T) {
	store := newFakeStore()
	groupID := uuid.New()
	store.groups[groupID] = domain.Group{ID: groupID, Name: "a"}

	svc := NewClassroomService(&fakeTxManager{store: store})
	ctx := context.Background()

	exists, err := svc.GroupExists(ctx, groupID)
	if err != nil || !exists {
		t.Fatalf("expected group to exist, got exists=%v err=%v", exists, err)
	}
	exists, err = svc.GroupExists(ctx, uuid.New())
	if err != nil || exists {
		t.Fatalf("expected group to be missing, got exists=%v err=%v", exists, err)
	}
}
