package domain

import "encoding/json"

// Relay event types carried between instances over the notification
// channel. The payload is transient: it lives only on the wire.
const (
	EventTypeGroup     = "group"
	EventTypeClassroom = "classroom"
	EventTypeBroadcast = "broadcast"
)

// RelayEvent is the cross-instance change notification. Origin names the
// producing instance so receivers can ignore their own broadcasts.
type RelayEvent struct {
	Type        string `json:"type"`
	GroupID     string `json:"groupId,omitempty"`
	ClassroomID string `json:"classroomId,omitempty"`
	Origin      string `json:"origin,omitempty"`
}

// ParseRelayEvent decodes an inbound notification payload. It returns
// false for malformed JSON, unknown types, or events missing the field
// their type requires; such payloads are dropped by the receiver.
func ParseRelayEvent(payload []byte) (RelayEvent, bool) {
	var event RelayEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return RelayEvent{}, false
	}

	switch event.Type {
	case EventTypeGroup:
		if event.GroupID == "" {
			return RelayEvent{}, false
		}
	case EventTypeClassroom:
		if event.ClassroomID == "" {
			return RelayEvent{}, false
		}
	case EventTypeBroadcast:
	default:
		return RelayEvent{}, false
	}

	return event, true
}
