package models

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// DayOfWeek is 0 (Monday) through 6 (Sunday), matching the convention the
// scheduler's shift grid and the availability resolver both use.
type DayOfWeek int

const (
	Monday DayOfWeek = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var dayNames = [...]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// String returns the canonical day name.
func (d DayOfWeek) String() string {
	if d < Monday || d > Sunday {
		return "Unknown"
	}
	return dayNames[d]
}

// ParseDayOfWeek maps a case-insensitive day name to its index. It never
// coerces unknown input; callers must check ok.
func ParseDayOfWeek(name string) (DayOfWeek, bool) {
	for i, n := range dayNames {
		if equalFold(n, name) {
			return DayOfWeek(i), true
		}
	}
	return 0, false
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// TimeOfDay is a wall-clock time of day with minute precision, stored as a
// Postgres "time" column. It scans from and values to "HH:MM:SS".
type TimeOfDay struct {
	Hour   int
	Minute int
}

// NewTimeOfDay builds a TimeOfDay from hour/minute, normalizing out of range
// values is deliberately not supported: callers pass validated input.
func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay{Hour: hour, Minute: minute}
}

// Before reports whether t occurs strictly earlier than other in a day.
func (t TimeOfDay) Before(other TimeOfDay) bool {
	return t.Hour < other.Hour || (t.Hour == other.Hour && t.Minute < other.Minute)
}

// AtOrBefore reports t <= other.
func (t TimeOfDay) AtOrBefore(other TimeOfDay) bool {
	return !other.Before(t)
}

// CoversHour reports whether the half-open window [t, end) contains hh:00.
func (t TimeOfDay) CoversHour(end TimeOfDay, hh int) bool {
	probe := TimeOfDay{Hour: hh, Minute: 0}
	return t.AtOrBefore(probe) && probe.Before(end)
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:00", t.Hour, t.Minute)
}

// Value implements driver.Valuer.
func (t TimeOfDay) Value() (driver.Value, error) {
	return t.String(), nil
}

// Scan implements sql.Scanner, accepting the formats Postgres and sqlmock
// fixtures both use for "time" columns.
func (t *TimeOfDay) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	case time.Time:
		t.Hour, t.Minute = v.Hour(), v.Minute()
		return nil
	default:
		return fmt.Errorf("models: unsupported TimeOfDay scan type %T", src)
	}
	var h, m, sec int
	if n, err := fmt.Sscanf(s, "%d:%d:%d", &h, &m, &sec); n < 2 || err != nil {
		return fmt.Errorf("models: cannot parse time of day %q: %w", s, err)
	}
	t.Hour, t.Minute = h, m
	return nil
}

// Availability is a recurring weekly window during which a staff member may
// be allocated. Multiple rows per day are allowed; start < end is checked
// by AvailabilityService.Declare before the row is inserted.
type Availability struct {
	ID        string    `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	DayOfWeek DayOfWeek `db:"day_of_week" json:"day_of_week"`
	StartTime TimeOfDay `db:"start_time" json:"start_time"`
	EndTime   TimeOfDay `db:"end_time" json:"end_time"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
