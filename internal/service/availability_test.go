package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/restaurant-table-reservation/internal/fanout"
	"github.com/iliyamo/restaurant-table-reservation/internal/model"
)

var testDate = time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC)

func at(hhmm string) model.TimeOfDay {
	t, err := model.ParseTimeOfDay(hhmm)
	if err != nil {
		panic(err)
	}
	return t
}

// capturePublisher records published events for assertions.
type capturePublisher struct {
	mu     sync.Mutex
	events []fanout.Event
}

func (p *capturePublisher) Publish(e fanout.Event) {
	p.mu.Lock()
	p.events = append(p.events, e)
	p.mu.Unlock()
}

func (p *capturePublisher) byName(name string) []fanout.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []fanout.Event
	for _, e := range p.events {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

func TestIsAvailableEmptyTable(t *testing.T) {
	store := newFakeStore()
	store.addBranch(1, 7, 22)
	store.addTable(10, 1, 4)
	checker := NewAvailabilityChecker(store)

	free, err := checker.IsAvailable(context.Background(), nil, 10, testDate, at("18:00"), model.DefaultDurationMinutes)
	require.NoError(t, err)
	assert.True(t, free)
}

func TestIsAvailableOverlapWithSchedule(t *testing.T) {
	store := newFakeStore()
	store.addBranch(1, 7, 22)
	store.addTable(10, 1, 4)
	store.addSchedule(10, nil, testDate, at("18:00"), model.ScheduleReserved)
	checker := NewAvailabilityChecker(store)

	free, err := checker.IsAvailable(context.Background(), nil, 10, testDate, at("18:30"), model.DefaultDurationMinutes)
	require.NoError(t, err)
	assert.False(t, free, "18:30 request collides with the 18:00-20:00 occupancy")

	free, err = checker.IsAvailable(context.Background(), nil, 10, testDate, at("20:00"), model.DefaultDurationMinutes)
	require.NoError(t, err)
	assert.True(t, free, "back-to-back booking at the window end is allowed")

	free, err = checker.IsAvailable(context.Background(), nil, 10, testDate, at("16:00"), model.DefaultDurationMinutes)
	require.NoError(t, err)
	assert.True(t, free, "window ending exactly at 18:00 does not overlap")
}

func TestIsAvailableIgnoresCancelledRows(t *testing.T) {
	store := newFakeStore()
	store.addBranch(1, 7, 22)
	store.addTable(10, 1, 4)
	store.addSchedule(10, nil, testDate, at("18:00"), model.ScheduleCancelled)
	checker := NewAvailabilityChecker(store)

	free, err := checker.IsAvailable(context.Background(), nil, 10, testDate, at("18:00"), model.DefaultDurationMinutes)
	require.NoError(t, err)
	assert.True(t, free)
}

func TestIsAvailableIgnoresOtherDates(t *testing.T) {
	store := newFakeStore()
	store.addBranch(1, 7, 22)
	store.addTable(10, 1, 4)
	store.addSchedule(10, nil, testDate.AddDate(0, 0, 1), at("18:00"), model.ScheduleReserved)
	checker := NewAvailabilityChecker(store)

	free, err := checker.IsAvailable(context.Background(), nil, 10, testDate, at("18:00"), model.DefaultDurationMinutes)
	require.NoError(t, err)
	assert.True(t, free)
}

func TestIsAvailableWalkInBlocks(t *testing.T) {
	store := newFakeStore()
	store.addBranch(1, 7, 22)
	store.addTable(10, 1, 4)
	store.addWalkIn(10, testDate, at("19:15"))
	checker := NewAvailabilityChecker(store)

	free, err := checker.IsAvailable(context.Background(), nil, 10, testDate, at("20:00"), model.DefaultDurationMinutes)
	require.NoError(t, err)
	assert.False(t, free, "walk-in occupies 19:15-21:15 without any schedule row")

	free, err = checker.IsAvailable(context.Background(), nil, 10, testDate, at("21:15"), model.DefaultDurationMinutes)
	require.NoError(t, err)
	assert.True(t, free)
}

// newTestLog keeps service constructors quiet in tests.
func newTestLog() zerolog.Logger { return zerolog.Nop() }
