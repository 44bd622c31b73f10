package model

import "time"

// Branch represents a single restaurant location.  Operating hours are
// stored as whole local hours; a closing hour smaller than the opening
// hour means the branch stays open past midnight (e.g. 18 → 2).
//
// Fields:
//  ID          – primary key identifier.
//  Name        – display name of the branch.
//  Phone       – contact number surfaced to customers in conflict messages.
//  OpeningHour – local hour (0–23) the branch opens.
//  ClosingHour – local hour (0–23) the branch closes; may wrap past midnight.
//  Status      – whether the branch accepts bookings (active/inactive).
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Branch struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone"`
	OpeningHour int       `json:"opening_hour"`
	ClosingHour int       `json:"closing_hour"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BranchStatusActive marks a branch that accepts bookings.
const BranchStatusActive = "active"

// SlotGranularityMinutes is the step of the operating-hour grid used when
// suggesting alternative time slots.
const SlotGranularityMinutes = 30

// closingMinutes returns the closing time as minutes from the opening-day
// midnight, normalised for overnight branches.  A branch whose closing hour
// equals its opening hour is treated as closed all day.
func (b *Branch) closingMinutes() int {
	open := b.OpeningHour * 60
	close := b.ClosingHour * 60
	if close <= open {
		close += 24 * 60
	}
	if b.ClosingHour == b.OpeningHour {
		return open
	}
	return close
}

// IsOpenAt reports whether a time of day falls within the branch's
// operating hours.  The interval is half-open: a booking exactly at the
// closing hour is rejected.  Overnight branches accept both late-evening
// times and early-morning times before the wrapped closing hour.
func (b *Branch) IsOpenAt(t TimeOfDay) bool {
	open := b.OpeningHour * 60
	close := b.closingMinutes()
	if close == open {
		return false
	}
	m := int(t)
	if m < open {
		// Interpret early-morning times as belonging to the overnight
		// tail of the previous opening.
		m += 24 * 60
	}
	return m >= open && m < close
}

// NormalizeBookingTime maps an early-morning request at an overnight branch
// onto the previous opening's ledger keys: 01:30 on the 16th becomes 25:30
// on the 15th.  Both spellings of the same physical window then share one
// (date, interval) pair and the overlap check sees them together.  Requests
// outside the overnight tail come back unchanged.
func (b *Branch) NormalizeBookingTime(date time.Time, t TimeOfDay) (time.Time, TimeOfDay) {
	m := int(t)
	if m >= b.OpeningHour*60 {
		return date, t
	}
	if m+24*60 >= b.closingMinutes() {
		return date, t
	}
	return date.AddDate(0, 0, -1), t.Add(24 * 60)
}

// SlotGrid builds the branch's operating-hour grid at 30-minute
// granularity, from opening_hour:00 up to and including closing_hour-1:30.
// The returned times may exceed 24h for overnight branches; TimeOfDay
// formatting handles the wrap.
func (b *Branch) SlotGrid() []TimeOfDay {
	open := b.OpeningHour * 60
	close := b.closingMinutes()
	var grid []TimeOfDay
	for m := open; m <= close-SlotGranularityMinutes; m += SlotGranularityMinutes {
		grid = append(grid, TimeOfDay(m))
	}
	return grid
}
