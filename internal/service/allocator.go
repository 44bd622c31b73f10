package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/restaurant-table-reservation/internal/cache"
	"github.com/iliyamo/restaurant-table-reservation/internal/model"
	"github.com/iliyamo/restaurant-table-reservation/internal/repository"
)

// MaxSuggestedSlots caps how many alternative start times a single
// availability lookup returns.
const MaxSuggestedSlots = 6

// AvailabilityResult is the outcome of a branch-wide availability check.
type AvailabilityResult struct {
	Available bool
	Table     *model.Table   // best-fit table when Available
	Reason    ConflictReason // capacity or time when not Available
}

// Allocator picks tables for parties.  Candidate tables come back from the
// store ordered by capacity ascending, so the first free one is the best fit:
// a party of 3 lands on a 4-top before a 6-top, keeping large tables open for
// large parties.
type Allocator struct {
	store   repository.Store
	checker *AvailabilityChecker
	slots   *cache.SlotCache // nil disables caching
	log     zerolog.Logger
}

// NewAllocator creates an allocator.  slots may be nil.
func NewAllocator(store repository.Store, checker *AvailabilityChecker, slots *cache.SlotCache, log zerolog.Logger) *Allocator {
	return &Allocator{store: store, checker: checker, slots: slots, log: log}
}

// CheckAvailability finds the smallest free table in the branch that seats
// guestCount at the requested window.  When nothing fits the Reason field
// tells capacity shortfalls apart from time conflicts so the caller can give
// the guest the right advice.
func (a *Allocator) CheckAvailability(ctx context.Context, branchID uint64, date time.Time, start model.TimeOfDay, guestCount int) (*AvailabilityResult, error) {
	tables, err := a.store.TablesWithCapacity(ctx, branchID, guestCount)
	if err != nil {
		return nil, err
	}
	if len(tables) == 0 {
		return &AvailabilityResult{Reason: ReasonCapacity}, nil
	}
	for i := range tables {
		free, err := a.checker.IsAvailable(ctx, nil, tables[i].ID, date, start, model.DefaultDurationMinutes)
		if err != nil {
			return nil, err
		}
		if free {
			return &AvailabilityResult{Available: true, Table: &tables[i]}, nil
		}
	}
	return &AvailabilityResult{Reason: ReasonTime}, nil
}

// FindAvailableTimeSlots walks the branch's 30-minute grid and collects start
// times where at least one suitable table is free, stopping after
// MaxSuggestedSlots.  Results are cached per branch, date and party size.
func (a *Allocator) FindAvailableTimeSlots(ctx context.Context, branch *model.Branch, date time.Time, guestCount int) ([]model.TimeOfDay, error) {
	if cached, ok := a.slots.Get(ctx, branch.ID, date, guestCount); ok {
		return cached, nil
	}

	slots := make([]model.TimeOfDay, 0, MaxSuggestedSlots)
	for _, start := range branch.SlotGrid() {
		res, err := a.CheckAvailability(ctx, branch.ID, date, start, guestCount)
		if err != nil {
			return nil, err
		}
		if res.Available {
			slots = append(slots, start)
			if len(slots) >= MaxSuggestedSlots {
				break
			}
		}
	}

	a.slots.Set(ctx, branch.ID, date, guestCount, slots)
	return slots, nil
}

// alternativesAfter suggests up to MaxSuggestedSlots free start times at or
// after the requested one.  Used to enrich time conflicts with a way forward.
// Errors are logged and swallowed, a conflict with no suggestions is still a
// usable answer.
func (a *Allocator) alternativesAfter(ctx context.Context, branch *model.Branch, date time.Time, notBefore model.TimeOfDay, guestCount int) []model.TimeOfDay {
	out := make([]model.TimeOfDay, 0, MaxSuggestedSlots)
	for _, start := range branch.SlotGrid() {
		if start < notBefore {
			continue
		}
		res, err := a.CheckAvailability(ctx, branch.ID, date, start, guestCount)
		if err != nil {
			a.log.Warn().Err(err).Uint64("branch_id", branch.ID).Msg("alternative slot lookup failed")
			return out
		}
		if res.Available {
			out = append(out, start)
			if len(out) >= MaxSuggestedSlots {
				break
			}
		}
	}
	return out
}
