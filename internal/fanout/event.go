// Package fanout broadcasts reservation state changes to topic-scoped
// realtime subscribers.  Delivery is fire-and-forget: when nobody listens
// on a topic the message is dropped, and clients re-fetch authoritative
// state on reconnect instead of relying on a message log.
package fanout

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// Event names published by the engine.
const (
	EventReservationCreated = "reservation-created"
	EventReservationUpdated = "reservation-updated"
	EventReservationDeleted = "reservation-deleted"
	EventReservationOverdue = "reservation-overdue"
)

// Room names.  A room is a topic: subscribers join rooms implied by their
// role on connect and receive every event published to them.
const (
	RoomAdmin = "admin"
)

// RoomBranch is the per-branch staff room.
func RoomBranch(branchID uint64) string { return fmt.Sprintf("branch:%d", branchID) }

// RoomUser is the per-customer room.
func RoomUser(userID uint64) string { return fmt.Sprintf("user:%d", userID) }

// RoomDelivery is the per-delivery-staff room.
func RoomDelivery(userID uint64) string { return fmt.Sprintf("delivery:%d", userID) }

// ReservationPayload is the JSON body carried by every reservation event.
// Key casing follows the realtime wire contract consumed by the web and
// mobile clients.
type ReservationPayload struct {
	ReservationID  uint64             `json:"reservationId"`
	Reservation    *model.Reservation `json:"reservation,omitempty"`
	BranchID       uint64             `json:"branchId"`
	TableID        uint64             `json:"tableId,omitempty"`
	OldStatus      string             `json:"oldStatus,omitempty"`
	NewStatus      string             `json:"newStatus,omitempty"`
	MinutesOverdue int                `json:"minutesOverdue,omitempty"`
	IsCancelled    bool               `json:"isCancelled,omitempty"`
	Timestamp      time.Time          `json:"timestamp"`
}

// Event is one broadcast unit: a named payload addressed to a set of rooms.
type Event struct {
	ID        string             `json:"id"`
	Name      string             `json:"event"`
	Rooms     []string           `json:"-"`
	Payload   ReservationPayload `json:"payload"`
	Timestamp time.Time          `json:"timestamp"`
}

// NewEvent stamps a payload with an identifier and timestamp.
func NewEvent(name string, rooms []string, payload ReservationPayload) Event {
	now := time.Now().UTC()
	if payload.Timestamp.IsZero() {
		payload.Timestamp = now
	}
	return Event{
		ID:        uuid.NewString(),
		Name:      name,
		Rooms:     rooms,
		Payload:   payload,
		Timestamp: now,
	}
}
