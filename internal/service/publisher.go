package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/balejosg/openpath-sub004/internal/domain"
)

// LocalPublisher is the hub's local fan-out surface.
type LocalPublisher interface {
	PublishGroupChanged(groupID uuid.UUID)
	PublishClassroomChanged(ctx context.Context, classroomID uuid.UUID, now time.Time)
	PublishBroadcast()
}

// RelayNotifier broadcasts an event to the other instances.
type RelayNotifier interface {
	Notify(ctx context.Context, event domain.RelayEvent)
}

// ChangePublisher ties a mutation to both propagation paths. The local
// publish always happens before the relay notification, so same-instance
// clients are never slower than the cross-instance path.
type ChangePublisher struct {
	local LocalPublisher
	relay RelayNotifier
	clock func() time.Time
}

func NewChangePublisher(local LocalPublisher, relay RelayNotifier) *ChangePublisher {
	return &ChangePublisher{local: local, relay: relay, clock: time.Now}
}

func (p *ChangePublisher) GroupChanged(ctx context.Context, groupID uuid.UUID) {
	p.local.PublishGroupChanged(groupID)
	p.relay.Notify(ctx, domain.RelayEvent{
		Type:    domain.EventTypeGroup,
		GroupID: groupID.String(),
	})
}

func (p *ChangePublisher) ClassroomChanged(ctx context.Context, classroomID uuid.UUID) {
	p.ClassroomChangedAt(ctx, classroomID, p.clock())
}

// ClassroomChangedAt announces the change as of an explicit evaluation
// time; ClassroomChanged supplies the wall clock.
func (p *ChangePublisher) ClassroomChangedAt(ctx context.Context, classroomID uuid.UUID, at time.Time) {
	p.local.PublishClassroomChanged(ctx, classroomID, at)
	p.relay.Notify(ctx, domain.RelayEvent{
		Type:        domain.EventTypeClassroom,
		ClassroomID: classroomID.String(),
	})
}

func (p *ChangePublisher) Broadcast(ctx context.Context) {
	p.local.PublishBroadcast()
	p.relay.Notify(ctx, domain.RelayEvent{Type: domain.EventTypeBroadcast})
}

// HandleRelayEvent is the bridge's inbound handler: a relayed event fans
// out locally only. It never calls Notify, which would loop the event
// back onto the channel.
func (p *ChangePublisher) HandleRelayEvent(ctx context.Context, event domain.RelayEvent) {
	switch event.Type {
	case domain.EventTypeGroup:
		groupID, err := uuid.Parse(event.GroupID)
		if err != nil {
			return
		}
		p.local.PublishGroupChanged(groupID)
	case domain.EventTypeClassroom:
		classroomID, err := uuid.Parse(event.ClassroomID)
		if err != nil {
			return
		}
		p.local.PublishClassroomChanged(ctx, classroomID, p.clock())
	case domain.EventTypeBroadcast:
		p.local.PublishBroadcast()
	}
}
