// Package timeslot centralizes the time-slot parsing grammar spec.md §9
// calls out for consolidation: one parser, accepting 12h and 24h forms plus
// the three fixed lab blocks, with exhaustive unit tests. It never coerces
// ambiguous input silently.
package timeslot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/campus-assist/rostering-api/internal/models"
)

// ErrUnparseable is wrapped into a descriptive error when a slot string does
// not match any accepted form.
type ErrUnparseable struct {
	Input string
}

func (e *ErrUnparseable) Error() string {
	return fmt.Sprintf("timeslot: could not parse time slot %q", e.Input)
}

// LabBlockHours are the three fixed lab-block starting hours (spec.md §4.2).
var LabBlockHours = []int{8, 12, 16}

// ParseHour accepts "9:00 am", "12:00 pm", 24h forms like "14:00" or "14",
// and returns the starting hour 0-23. It never assumes a default on
// ambiguous input: a missing am/pm suffix is treated as 24h, exactly the way
// the source's _parse_time_slot_to_hour does, but any value outside 0-23 is
// rejected rather than silently wrapped.
func ParseHour(slot string) (int, error) {
	s := strings.ToLower(strings.TrimSpace(slot))
	if s == "" {
		return 0, &ErrUnparseable{Input: slot}
	}

	isPM := strings.Contains(s, "pm")
	isAM := strings.Contains(s, "am")
	if isAM || isPM {
		s = strings.TrimSuffix(s, "pm")
		s = strings.TrimSuffix(s, "am")
		s = strings.TrimSpace(s)
		hourPart := s
		if idx := strings.Index(s, ":"); idx >= 0 {
			hourPart = s[:idx]
		}
		hour, err := strconv.Atoi(hourPart)
		if err != nil || hour < 1 || hour > 12 {
			return 0, &ErrUnparseable{Input: slot}
		}
		if isPM && hour != 12 {
			hour += 12
		} else if isAM && hour == 12 {
			hour = 0
		}
		return hour, nil
	}

	hourPart := s
	if idx := strings.Index(s, ":"); idx >= 0 {
		hourPart = s[:idx]
	}
	hour, err := strconv.Atoi(hourPart)
	if err != nil || hour < 0 || hour > 23 {
		return 0, &ErrUnparseable{Input: slot}
	}
	return hour, nil
}

// ParseDay maps a day name to its DayOfWeek; unknown labels are rejected.
func ParseDay(day string) (models.DayOfWeek, error) {
	d, ok := models.ParseDayOfWeek(day)
	if !ok {
		return 0, fmt.Errorf("timeslot: unknown day label %q", day)
	}
	return d, nil
}

// IsLabBlockStart reports whether hour is one of the three fixed lab-block
// starting hours.
func IsLabBlockStart(hour int) bool {
	for _, h := range LabBlockHours {
		if h == hour {
			return true
		}
	}
	return false
}
