package model

import "time"

// Order is the read model of the external order service.  The engine never
// writes orders; it only inspects active dine-in orders because a walk-in
// order occupies a table without going through the reservation path.
type Order struct {
	ID            uint64    `json:"id"`
	UserID        uint64    `json:"user_id"`
	BranchID      uint64    `json:"branch_id"`
	TableID       *uint64   `json:"table_id,omitempty"`
	ReservationID *uint64   `json:"reservation_id,omitempty"`
	OrderType     string    `json:"order_type"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// OrderTypeDineIn is the only order type that implies table occupancy.
const OrderTypeDineIn = "dine-in"

// ActiveOrderStatuses are the order states during which a dine-in order
// still blocks its table.
var ActiveOrderStatuses = []string{"pending", "preparing", "ready"}

// OccupancyWindow approximates the table occupancy implied by a walk-in
// order: creation time plus the default booking duration.  The window does
// not shrink when the order completes early; the intended walk-in duration
// is not recorded anywhere upstream.
func (o *Order) OccupancyWindow() Interval {
	start := TimeOfDay(o.CreatedAt.Hour()*60 + o.CreatedAt.Minute())
	return Interval{Start: start, End: start.Add(DefaultDurationMinutes)}
}
