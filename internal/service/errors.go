package service

import (
	"fmt"

	"github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// ConflictReason classifies why a booking could not be placed.
type ConflictReason string

const (
	// ReasonCapacity means no table in the branch seats the requested party.
	ReasonCapacity ConflictReason = "capacity"
	// ReasonTime means every suitable table is occupied at the requested time.
	ReasonTime ConflictReason = "time"
	// ReasonJustTaken means the slot was free on the fast path but taken by a
	// concurrent booking before the locked recheck could commit.
	ReasonJustTaken ConflictReason = "just_taken"
)

// ConflictError reports a booking conflict together with actionable
// suggestions the caller can surface to the guest.
type ConflictError struct {
	Reason       ConflictReason
	Message      string
	Alternatives []model.TimeOfDay // suggested start times, may be empty
	BranchPhone  string            // set for capacity conflicts so the guest can call
}

// Error implements the error interface.
func (e *ConflictError) Error() string { return e.Message }

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// StateError reports an illegal reservation status transition.
type StateError struct {
	From model.ReservationStatus
	To   model.ReservationStatus
}

// Error implements the error interface.
func (e *StateError) Error() string {
	return fmt.Sprintf("cannot transition reservation from %s to %s", e.From, e.To)
}
