package domain

import (
	"errors"
	"testing"
)

func TestParseMinuteOfDay_AcceptsQuarterHours(t *testing.T) {
	cases := map[string]int{
		"00:00":    0,
		"09:00":    540,
		"09:15":    555,
		"09:30":    570,
		"09:45":    585,
		"23:45":    1425,
		"09:00:00": 540,
	}
	for input, expect := range cases {
		got, err := ParseMinuteOfDay(input)
		if err != nil {
			t.Fatalf("expected %s to parse, got error: %v", input, err)
		}
		if got != expect {
			t.Errorf("ParseMinuteOfDay(%s) = %d, want %d", input, got, expect)
		}
	}
}

func TestParseMinuteOfDay_RejectsOffGridTimes(t *testing.T) {
	for _, input := range []string{"09:07", "09:01", "09:59", "09:00:01", "09:00:30"} {
		_, err := ParseMinuteOfDay(input)
		if err == nil {
			t.Fatalf("expected %s to be rejected", input)
		}
		if !errors.Is(err, ErrTimeGranularity) {
			t.Errorf("ParseMinuteOfDay(%s): expected granularity error, got %v", input, err)
		}
	}
}

func TestParseMinuteOfDay_RejectsBadFormats(t *testing.T) {
	for _, input := range []string{"", "9:00", "09", "24:00", "09:60", "09:00:60", "09:00:00:00", "ab:cd", "09-00"} {
		_, err := ParseMinuteOfDay(input)
		if err == nil {
			t.Fatalf("expected %s to be rejected", input)
		}
		if !errors.Is(err, ErrTimeFormat) {
			t.Errorf("ParseMinuteOfDay(%s): expected format error, got %v", input, err)
		}
	}
}

func TestFormatMinuteOfDay(t *testing.T) {
	if got := FormatMinuteOfDay(540); got != "09:00" {
		t.Errorf("FormatMinuteOfDay(540) = %s, want 09:00", got)
	}
	if got := FormatMinuteOfDay(1425); got != "23:45" {
		t.Errorf("FormatMinuteOfDay(1425) = %s, want 23:45", got)
	}
}

func TestOverlaps(t *testing.T) {
	// Touching windows do not overlap; back-to-back scheduling is allowed.
	if Overlaps(540, 600, 600, 660) {
		t.Error("[09:00,10:00) and [10:00,11:00) must not overlap")
	}
	if !Overlaps(540, 600, 570, 630) {
		t.Error("[09:00,10:00) and [09:30,10:30) must overlap")
	}
	if !Overlaps(540, 600, 540, 600) {
		t.Error("identical windows must overlap")
	}
	if !Overlaps(540, 600, 500, 700) {
		t.Error("containing window must overlap")
	}
	if Overlaps(540, 600, 600, 601) {
		t.Error("window starting at the other's end must not overlap")
	}
}
