package model

import "time"

// ReservationStatus is the lifecycle state of a reservation.
type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationCheckedIn ReservationStatus = "checked_in"
	ReservationCompleted ReservationStatus = "completed"
	ReservationCancelled ReservationStatus = "cancelled"
)

// reservationTransitions enumerates the allowed status transitions:
// pending → confirmed|checked_in|cancelled, confirmed → checked_in|
// completed|cancelled, checked_in → completed.  Completed and cancelled
// are terminal.
var reservationTransitions = map[ReservationStatus][]ReservationStatus{
	ReservationPending:   {ReservationConfirmed, ReservationCheckedIn, ReservationCancelled},
	ReservationConfirmed: {ReservationCheckedIn, ReservationCompleted, ReservationCancelled},
	ReservationCheckedIn: {ReservationCompleted},
	ReservationCompleted: {},
	ReservationCancelled: {},
}

// CanTransition reports whether moving a reservation from one status to
// another is allowed by the state machine.
func CanTransition(from, to ReservationStatus) bool {
	for _, s := range reservationTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ScheduleStatusFor maps a reservation status onto the side effect it has
// on the reservation's schedule row.  The second return value is false
// when the transition leaves the ledger untouched.
func ScheduleStatusFor(status ReservationStatus) (ScheduleStatus, bool) {
	switch status {
	case ReservationConfirmed, ReservationCheckedIn:
		return ScheduleCheckedIn, true
	case ReservationCompleted:
		return ScheduleCompleted, true
	case ReservationCancelled:
		return ScheduleCancelled, true
	}
	return "", false
}

// TableStatusFor maps a reservation status onto the derived table status
// cache.  The ledger stays authoritative; this only keeps the cached view
// roughly in sync for floor-plan displays.
func TableStatusFor(status ReservationStatus) TableStatus {
	switch status {
	case ReservationCheckedIn:
		return TableOccupied
	case ReservationCompleted, ReservationCancelled:
		return TableAvailable
	default:
		return TableReserved
	}
}

// Reservation is a customer's claim on a table for a date and time.  It is
// created together with its initiating schedule row in one transaction and
// mutated only by the lifecycle manager.
//
// Fields:
//  ID              – primary key identifier.
//  UserID          – customer who owns the reservation.
//  BranchID        – branch the table belongs to.
//  TableID         – allocated table.
//  ReservationDate – calendar date of the visit.
//  ReservationTime – time of day the party is expected.
//  GuestCount      – party size; at least 1.
//  Status          – see ReservationStatus.
//  SpecialRequests – free-form customer notes.
//  CreatedAt       – creation timestamp.
//  CancelledAt     – set when the reservation is cancelled.
type Reservation struct {
	ID              uint64            `json:"id"`
	UserID          uint64            `json:"user_id"`
	BranchID        uint64            `json:"branch_id"`
	TableID         uint64            `json:"table_id"`
	ReservationDate time.Time         `json:"reservation_date"`
	ReservationTime TimeOfDay         `json:"reservation_time"`
	GuestCount      int               `json:"guest_count"`
	Status          ReservationStatus `json:"status"`
	SpecialRequests string            `json:"special_requests,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	CancelledAt     *time.Time        `json:"cancelled_at,omitempty"`
}

// ScheduledAt returns the absolute moment the party is expected, anchoring
// the reservation time on the reservation date.
func (r *Reservation) ScheduledAt() time.Time {
	return r.ReservationTime.At(r.ReservationDate)
}
