package domain

import (
	"time"

	"github.com/google/uuid"
)

// ScheduleEntry is one weekly recurring window during which a classroom
// uses a specific whitelist group. Times are minutes since midnight on a
// quarter-hour grid; the window is half-open [StartMin, EndMin).
type ScheduleEntry struct {
	ID          uuid.UUID
	ClassroomID uuid.UUID
	GroupID     uuid.UUID
	DayOfWeek   int // 1 = Monday .. 5 = Friday
	StartMin    int
	EndMin      int
}

func (e ScheduleEntry) Contains(minuteOfDay int) bool {
	return e.StartMin <= minuteOfDay && minuteOfDay < e.EndMin
}

// Overlaps reports whether the half-open windows [s1,e1) and [s2,e2)
// intersect. Touching endpoints do not count, so back-to-back windows
// are allowed.
func Overlaps(s1, e1, s2, e2 int) bool {
	return s1 < e2 && s2 < e1
}

type Classroom struct {
	ID      uuid.UUID
	Name    string
	GroupID uuid.UUID
}

type Group struct {
	ID   uuid.UUID
	Name string
}

// GroupContext is the resolver's answer to "which whitelist group applies
// to this classroom right now".
type GroupContext struct {
	GroupID uuid.UUID
}

// WeekdayNumber maps a timestamp to the 1=Monday..7=Sunday convention
// used by schedule entries.
func WeekdayNumber(t time.Time) int {
	weekday := t.In(time.Local).Weekday()
	if weekday == time.Sunday {
		return 7
	}
	return int(weekday)
}

func MinuteOfDay(t time.Time) int {
	local := t.In(time.Local)
	return local.Hour()*60 + local.Minute()
}

// IsSchoolDay reports whether the 1..7 weekday number falls on a weekday
// schedules can cover.
func IsSchoolDay(dayOfWeek int) bool {
	return dayOfWeek >= 1 && dayOfWeek <= 5
}
