package service

import (
	"context"
	"time"

	"github.com/iliyamo/restaurant-table-reservation/internal/model"
	"github.com/iliyamo/restaurant-table-reservation/internal/repository"
)

// AvailabilityChecker answers whether a single table is free for a candidate
// window on a given date.  It merges two occupancy sources before checking:
// non-cancelled schedule rows and active walk-in dine-in orders, so that both
// kinds of demand are judged by the same half-open overlap rule.
type AvailabilityChecker struct {
	store repository.Store
}

// NewAvailabilityChecker creates a checker backed by the given store.
func NewAvailabilityChecker(store repository.Store) *AvailabilityChecker {
	return &AvailabilityChecker{store: store}
}

// IsAvailable reports whether the table is free for durationMinutes starting
// at start on date.  When tx is non-nil the occupancy reads run inside that
// transaction, which combined with a prior row lock on the table makes the
// answer safe against concurrent bookings.  The check is read-only either way.
func (c *AvailabilityChecker) IsAvailable(ctx context.Context, tx repository.Tx, tableID uint64, date time.Time, start model.TimeOfDay, durationMinutes int) (bool, error) {
	candidate := model.Interval{Start: start, End: start.Add(durationMinutes)}

	occupancies, err := c.store.Occupancies(ctx, tx, tableID, date)
	if err != nil {
		return false, err
	}
	for _, occ := range occupancies {
		if candidate.Overlaps(occ.Window) {
			return false, nil
		}
	}
	return true, nil
}
