package model

import "time"

// TableStatus is the cached, user-facing availability view of a table.
// It is derived from the occupancy ledger; the ledger, not this field,
// decides whether a booking is possible.
type TableStatus string

const (
	TableAvailable   TableStatus = "available"
	TableOccupied    TableStatus = "occupied"
	TableReserved    TableStatus = "reserved"
	TableMaintenance TableStatus = "maintenance"
)

// Table represents a physical table on a floor.
//
// Fields:
//  ID        – primary key identifier.
//  FloorID   – floor the table stands on.
//  Name      – label printed on the floor plan (e.g. "T4").
//  Capacity  – number of guests the table seats; always positive.
//  Status    – derived availability view (see TableStatus).
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Table struct {
	ID        uint64      `json:"id"`
	FloorID   uint64      `json:"floor_id"`
	Name      string      `json:"name"`
	Capacity  int         `json:"capacity"`
	Status    TableStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}
