package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/restaurant-table-reservation/internal/model"
)

func newTestAllocator(store *fakeStore) *Allocator {
	return NewAllocator(store, NewAvailabilityChecker(store), nil, newTestLog())
}

func TestCheckAvailabilityBestFit(t *testing.T) {
	store := newFakeStore()
	store.addBranch(1, 7, 22)
	store.addTable(12, 1, 6)
	store.addTable(10, 1, 2)
	store.addTable(11, 1, 4)
	store.addTable(13, 1, 8)
	alloc := newTestAllocator(store)

	result, err := alloc.CheckAvailability(context.Background(), 1, testDate, at("18:00"), 3)
	require.NoError(t, err)
	require.True(t, result.Available)
	assert.Equal(t, uint64(11), result.Table.ID, "a party of 3 gets the 4-top, not a bigger table")
}

func TestCheckAvailabilityBestFitSkipsBusyTable(t *testing.T) {
	store := newFakeStore()
	store.addBranch(1, 7, 22)
	store.addTable(11, 1, 4)
	store.addTable(12, 1, 6)
	store.addSchedule(11, nil, testDate, at("18:00"), model.ScheduleReserved)
	alloc := newTestAllocator(store)

	result, err := alloc.CheckAvailability(context.Background(), 1, testDate, at("18:00"), 3)
	require.NoError(t, err)
	require.True(t, result.Available)
	assert.Equal(t, uint64(12), result.Table.ID, "busy 4-top falls through to the 6-top")
}

func TestCheckAvailabilityCapacityConflict(t *testing.T) {
	store := newFakeStore()
	store.addBranch(1, 7, 22)
	store.addTable(10, 1, 2)
	store.addTable(11, 1, 4)
	alloc := newTestAllocator(store)

	result, err := alloc.CheckAvailability(context.Background(), 1, testDate, at("18:00"), 5)
	require.NoError(t, err)
	assert.False(t, result.Available)
	assert.Equal(t, ReasonCapacity, result.Reason)
}

func TestCheckAvailabilityTimeConflict(t *testing.T) {
	store := newFakeStore()
	store.addBranch(1, 7, 22)
	store.addTable(11, 1, 4)
	store.addSchedule(11, nil, testDate, at("18:00"), model.ScheduleReserved)
	alloc := newTestAllocator(store)

	result, err := alloc.CheckAvailability(context.Background(), 1, testDate, at("18:30"), 3)
	require.NoError(t, err)
	assert.False(t, result.Available)
	assert.Equal(t, ReasonTime, result.Reason)
}

func TestCheckAvailabilityIgnoresMaintenanceTables(t *testing.T) {
	store := newFakeStore()
	store.addBranch(1, 7, 22)
	tbl := store.addTable(11, 1, 4)
	tbl.Status = model.TableMaintenance
	alloc := newTestAllocator(store)

	result, err := alloc.CheckAvailability(context.Background(), 1, testDate, at("18:00"), 2)
	require.NoError(t, err)
	assert.False(t, result.Available)
	assert.Equal(t, ReasonCapacity, result.Reason, "a table under maintenance is no table at all")
}

func TestFindAvailableTimeSlots(t *testing.T) {
	store := newFakeStore()
	branch := store.addBranch(1, 17, 22)
	store.addTable(11, 1, 4)
	store.addSchedule(11, nil, testDate, at("18:00"), model.ScheduleReserved)
	alloc := newTestAllocator(store)

	slots, err := alloc.FindAvailableTimeSlots(context.Background(), branch, testDate, 2)
	require.NoError(t, err)

	// Every two-hour window starting before 20:00 collides with the
	// 18:00-20:00 occupancy, so only the tail of the grid remains.
	want := []model.TimeOfDay{at("20:00"), at("20:30"), at("21:00"), at("21:30")}
	assert.Equal(t, want, slots)
}

func TestFindAvailableTimeSlotsCapped(t *testing.T) {
	store := newFakeStore()
	branch := store.addBranch(1, 7, 22)
	store.addTable(11, 1, 4)
	alloc := newTestAllocator(store)

	slots, err := alloc.FindAvailableTimeSlots(context.Background(), branch, testDate, 2)
	require.NoError(t, err)
	require.Len(t, slots, MaxSuggestedSlots)
	assert.Equal(t, at("07:00"), slots[0])
	assert.Equal(t, at("09:30"), slots[len(slots)-1])
}

func TestAlternativesAfter(t *testing.T) {
	store := newFakeStore()
	branch := store.addBranch(1, 7, 22)
	store.addTable(11, 1, 4)
	store.addSchedule(11, nil, testDate, at("18:00"), model.ScheduleReserved)
	alloc := newTestAllocator(store)

	alts := alloc.alternativesAfter(context.Background(), branch, testDate, at("18:30"), 2)
	require.NotEmpty(t, alts)
	assert.Equal(t, at("20:00"), alts[0], "first suggestion is the earliest free slot after the requested time")
	for _, s := range alts {
		assert.GreaterOrEqual(t, int(s), int(at("18:30")))
	}
}
