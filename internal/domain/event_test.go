package domain

import "testing"

func TestParseRelayEvent_Valid(t *testing.T) {
	event, ok := ParseRelayEvent([]byte(`{"type":"group","groupId":"g1","origin":"i1"}`))
	if !ok {
		t.Fatal("expected group event to parse")
	}
	if event.Type != EventTypeGroup || event.GroupID != "g1" || event.Origin != "i1" {
		t.Errorf("unexpected event: %+v", event)
	}

	event, ok = ParseRelayEvent([]byte(`{"type":"classroom","classroomId":"c1"}`))
	if !ok {
		t.Fatal("expected classroom event to parse")
	}
	if event.ClassroomID != "c1" || event.Origin != "" {
		t.Errorf("unexpected event: %+v", event)
	}

	if _, ok := ParseRelayEvent([]byte(`{"type":"broadcast"}`)); !ok {
		t.Fatal("expected broadcast event to parse")
	}
}

func TestParseRelayEvent_Discarded(t *testing.T) {
	cases := []string{
		`not json`,
		`{}`,
		`{"type":"unknown"}`,
		`{"type":"group"}`,
		`{"type":"classroom"}`,
		`[]`,
	}
	for _, payload := range cases {
		if _, ok := ParseRelayEvent([]byte(payload)); ok {
			t.Errorf("expected payload %q to be discarded", payload)
		}
	}
}
