package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/restaurant-table-reservation/internal/fanout"
	"github.com/iliyamo/restaurant-table-reservation/internal/model"
)

func newTestBooking(store *fakeStore, pub fanout.Publisher) *BookingService {
	if pub == nil {
		pub = fanout.Noop{}
	}
	checker := NewAvailabilityChecker(store)
	alloc := NewAllocator(store, checker, nil, newTestLog())
	return NewBookingService(store, alloc, checker, pub, nil, newTestLog())
}

func bookingInput() CreateReservationInput {
	return CreateReservationInput{
		UserID:     7,
		BranchID:   1,
		Date:       testDate,
		Time:       at("18:00"),
		GuestCount: 2,
	}
}

func TestCreateReservationSuccess(t *testing.T) {
	store := newFakeStore()
	store.addBranch(1, 7, 22)
	store.addTable(10, 1, 2)
	pub := &capturePublisher{}
	svc := newTestBooking(store, pub)

	res, err := svc.CreateQuickReservation(context.Background(), bookingInput())
	require.NoError(t, err)
	require.NotZero(t, res.ID)
	assert.Equal(t, model.ReservationPending, res.Status)
	assert.Equal(t, uint64(10), res.TableID)

	sched := store.scheduleFor(res.ID)
	require.NotNil(t, sched, "schedule row lands with the reservation")
	assert.Equal(t, model.ScheduleReserved, sched.Status)
	assert.Equal(t, at("18:00"), sched.StartTime)
	assert.Equal(t, at("20:00"), sched.EndTime)
	assert.Equal(t, model.DefaultDurationMinutes, sched.DurationMinutes)

	assert.Equal(t, model.TableReserved, store.tableStatus(10))

	created := pub.byName(fanout.EventReservationCreated)
	require.Len(t, created, 1)
	assert.ElementsMatch(t, []string{"branch:1", "admin", "user:7"}, created[0].Rooms)
	assert.Equal(t, res.ID, created[0].Payload.ReservationID)
	assert.Equal(t, "pending", created[0].Payload.NewStatus)
}

func TestCreateReservationExplicitTable(t *testing.T) {
	store := newFakeStore()
	store.addBranch(1, 7, 22)
	store.addTable(10, 1, 2)
	store.addTable(11, 1, 6)
	svc := newTestBooking(store, nil)

	in := bookingInput()
	in.TableID = 11
	res, err := svc.CreateReservation(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, uint64(11), res.TableID, "an explicit table choice overrides best fit")
}

func TestCreateReservationCapacityConflict(t *testing.T) {
	store := newFakeStore()
	store.addBranch(1, 7, 22)
	store.addTable(10, 1, 2)
	store.addTable(11, 1, 4)
	svc := newTestBooking(store, nil)

	in := bookingInput()
	in.GuestCount = 5
	_, err := svc.CreateQuickReservation(context.Background(), in)

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, ReasonCapacity, conflict.Reason)
	assert.Equal(t, "+1-555-0100", conflict.BranchPhone, "capacity conflicts carry the branch phone")
	assert.Zero(t, store.reservationCount())
}

func TestCreateReservationTimeConflictWithAlternatives(t *testing.T) {
	store := newFakeStore()
	store.addBranch(1, 17, 22)
	store.addTable(10, 1, 2)
	store.addSchedule(10, nil, testDate, at("18:00"), model.ScheduleReserved)
	svc := newTestBooking(store, nil)

	in := bookingInput()
	in.Time = at("18:30")
	_, err := svc.CreateQuickReservation(context.Background(), in)

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, ReasonTime, conflict.Reason)
	require.NotEmpty(t, conflict.Alternatives)
	assert.Equal(t, at("20:00"), conflict.Alternatives[0])
}

func TestCreateReservationOutsideHours(t *testing.T) {
	store := newFakeStore()
	store.addBranch(1, 7, 22)
	store.addTable(10, 1, 2)
	svc := newTestBooking(store, nil)

	in := bookingInput()
	in.Time = at("23:00")
	_, err := svc.CreateQuickReservation(context.Background(), in)

	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "time", validation.Field)
}

func TestCreateReservationValidation(t *testing.T) {
	store := newFakeStore()
	store.addBranch(1, 7, 22)
	svc := newTestBooking(store, nil)

	in := bookingInput()
	in.GuestCount = 0
	_, err := svc.CreateQuickReservation(context.Background(), in)

	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "guest_count", validation.Field)
}

func TestCreateReservationWalkInBlocks(t *testing.T) {
	store := newFakeStore()
	store.addBranch(1, 7, 22)
	store.addTable(10, 1, 2)
	store.addWalkIn(10, testDate, at("17:30"))
	svc := newTestBooking(store, nil)

	_, err := svc.CreateQuickReservation(context.Background(), bookingInput())

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, ReasonTime, conflict.Reason, "an active dine-in order occupies the table like a booking")
}

func TestCreateReservationAtomicity(t *testing.T) {
	store := newFakeStore()
	store.addBranch(1, 7, 22)
	store.addTable(10, 1, 2)
	store.failCreateSchedule = true
	svc := newTestBooking(store, nil)

	_, err := svc.CreateQuickReservation(context.Background(), bookingInput())
	require.Error(t, err)

	assert.Zero(t, store.reservationCount(), "failed schedule insert rolls the reservation back")
	assert.Equal(t, model.TableAvailable, store.tableStatus(10))
}

func TestCreateReservationFallsBackToFreeTableUnderLock(t *testing.T) {
	store := newFakeStore()
	store.addBranch(1, 7, 22)
	store.addTable(10, 1, 2)
	store.addTable(11, 1, 4)
	svc := newTestBooking(store, nil)

	// First booking takes the 2-top; the second asks for the same slot and
	// must land on the 4-top.
	first, err := svc.CreateQuickReservation(context.Background(), bookingInput())
	require.NoError(t, err)
	assert.Equal(t, uint64(10), first.TableID)

	second, err := svc.CreateQuickReservation(context.Background(), bookingInput())
	require.NoError(t, err)
	assert.Equal(t, uint64(11), second.TableID)
}

func TestConcurrentBookingsExactlyOneWins(t *testing.T) {
	store := newFakeStore()
	store.addBranch(1, 7, 22)
	store.addTable(10, 1, 2)
	svc := newTestBooking(store, nil)

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CreateQuickReservation(context.Background(), bookingInput())
		}(i)
	}
	wg.Wait()

	wins, conflicts := 0, 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			conflicts++
			assert.Contains(t, []ConflictReason{ReasonTime, ReasonJustTaken}, conflict.Reason)
		} else {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, wins, "the row lock admits exactly one booking")
	assert.Equal(t, workers-1, conflicts)
	assert.Equal(t, 1, store.reservationCount())
}

func TestCreateReservationOvernightTailSharesLedgerKey(t *testing.T) {
	store := newFakeStore()
	store.addBranch(1, 18, 2)
	store.addTable(10, 1, 2)
	svc := newTestBooking(store, nil)

	in := bookingInput()
	in.Time = at("25:30")
	first, err := svc.CreateReservation(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, sameDate(first.ReservationDate, testDate))

	// The same physical window asked for as 01:30 on the next calendar day
	// normalizes onto the same (date, interval) key and collides instead of
	// slipping past the overlap check.
	in = bookingInput()
	in.Date = testDate.AddDate(0, 0, 1)
	in.Time = at("01:30")
	_, err = svc.CreateReservation(context.Background(), in)

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, ReasonTime, conflict.Reason)
	assert.Equal(t, 1, store.reservationCount())
}
