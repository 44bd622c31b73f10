package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultDurationMinutes is the occupancy window assumed for a booking or a
// walk-in order when no explicit duration is given.
const DefaultDurationMinutes = 120

// TimeOfDay is a clock time expressed as minutes since midnight.  Values
// above 24h are legal and represent the overnight tail of a branch that
// closes past midnight.
type TimeOfDay int

// ParseTimeOfDay parses "HH:MM" or "HH:MM:SS" into a TimeOfDay.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time of day: %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return TimeOfDay(h*60 + m), nil
}

// String renders the time as "HH:MM".  Hours beyond 24 are kept as-is so
// that overnight slots sort and compare correctly inside a single date.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// SQL renders the time as "HH:MM:SS" for TIME column parameters.
func (t TimeOfDay) SQL() string {
	return fmt.Sprintf("%02d:%02d:00", int(t)/60, int(t)%60)
}

// Add returns the time shifted by the given number of minutes.
func (t TimeOfDay) Add(minutes int) TimeOfDay { return t + TimeOfDay(minutes) }

// MarshalJSON renders the time as an "HH:MM" string.
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// UnmarshalJSON accepts "HH:MM" or "HH:MM:SS" strings.
func (t *TimeOfDay) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	v, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// At anchors the time of day onto a calendar date.
func (t TimeOfDay) At(date time.Time) time.Time {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	return day.Add(time.Duration(t) * time.Minute)
}

// Interval is a half-open [Start, End) occupancy window within one date.
type Interval struct {
	Start TimeOfDay
	End   TimeOfDay
}

// Overlaps reports whether two half-open intervals intersect.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start < o.End && i.End > o.Start
}

// ScheduleStatus tracks the lifecycle of one occupancy ledger row.
type ScheduleStatus string

const (
	ScheduleReserved  ScheduleStatus = "reserved"
	ScheduleCheckedIn ScheduleStatus = "checked_in"
	ScheduleCompleted ScheduleStatus = "completed"
	ScheduleCancelled ScheduleStatus = "cancelled"
)

// TableSchedule is the authoritative occupancy ledger for a table.  For a
// given table and date, no two rows with status other than cancelled may
// have overlapping [start, start+duration) intervals; the whole engine
// exists to uphold that invariant.  Rows are kept for audit and are never
// hard-deleted except together with their parent reservation.
//
// Fields:
//  ID              – primary key identifier.
//  TableID         – table the row occupies.
//  ReservationID   – owning reservation; nil for ad-hoc (walk-in) occupancy.
//  ScheduleDate    – calendar date of the occupancy.
//  StartTime       – start of the occupancy window.
//  DurationMinutes – length of the window; defaults to 120.
//  EndTime         – StartTime + DurationMinutes, stored for range queries.
//  Status          – see ScheduleStatus.
//  Notes           – free-form audit notes, appended on auto-cancel.
type TableSchedule struct {
	ID              uint64         `json:"id"`
	TableID         uint64         `json:"table_id"`
	ReservationID   *uint64        `json:"reservation_id,omitempty"`
	ScheduleDate    time.Time      `json:"schedule_date"`
	StartTime       TimeOfDay      `json:"start_time"`
	DurationMinutes int            `json:"duration_minutes"`
	EndTime         TimeOfDay      `json:"end_time"`
	Status          ScheduleStatus `json:"status"`
	Notes           string         `json:"notes,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// Interval returns the occupancy window of the row.
func (s *TableSchedule) Interval() Interval {
	return Interval{Start: s.StartTime, End: s.StartTime.Add(s.DurationMinutes)}
}

// OccupancySource tells which path produced an occupancy window.
type OccupancySource string

const (
	// SourceReservation marks occupancy backed by a schedule row.
	SourceReservation OccupancySource = "reservation"
	// SourceWalkInOrder marks implicit occupancy derived from an active
	// dine-in order that bypassed the reservation path.
	SourceWalkInOrder OccupancySource = "walk_in_order"
)

// Occupancy is one merged entry of the availability check: both explicit
// schedule rows and implicit walk-in windows are reduced to this shape so
// the overlap rule lives in exactly one place.
type Occupancy struct {
	Source        OccupancySource
	ReservationID *uint64
	Window        Interval
}
