package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrTimeFormat      = errors.New("time must be HH:MM or HH:MM:SS")
	ErrTimeGranularity = errors.New("time must fall on a 15-minute boundary with zero seconds")
)

// ParseMinuteOfDay parses a wall-clock time of day into minutes since
// midnight. The accepted formats are HH:MM and HH:MM:SS; anything else is
// a format error. Seconds must be zero and minutes a multiple of 15 —
// off-grid values are rejected, never rounded.
func ParseMinuteOfDay(value string) (int, error) {
	parts := strings.Split(value, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("%w: %q", ErrTimeFormat, value)
	}

	fields := make([]int, len(parts))
	for i, part := range parts {
		if len(part) != 2 {
			return 0, fmt.Errorf("%w: %q", ErrTimeFormat, value)
		}
		parsed, err := strconv.Atoi(part)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrTimeFormat, value)
		}
		fields[i] = parsed
	}

	hour, minute := fields[0], fields[1]
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%w: %q", ErrTimeFormat, value)
	}
	if len(fields) == 3 {
		second := fields[2]
		if second < 0 || second > 59 {
			return 0, fmt.Errorf("%w: %q", ErrTimeFormat, value)
		}
		if second != 0 {
			return 0, fmt.Errorf("%w: %q", ErrTimeGranularity, value)
		}
	}
	if minute%15 != 0 {
		return 0, fmt.Errorf("%w: %q", ErrTimeGranularity, value)
	}

	return hour*60 + minute, nil
}

// FormatMinuteOfDay renders minutes since midnight as HH:MM.
func FormatMinuteOfDay(minuteOfDay int) string {
	return fmt.Sprintf("%02d:%02d", minuteOfDay/60, minuteOfDay%60)
}
