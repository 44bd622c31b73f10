package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/restaurant-table-reservation/internal/cache"
	"github.com/iliyamo/restaurant-table-reservation/internal/fanout"
	"github.com/iliyamo/restaurant-table-reservation/internal/metrics"
	"github.com/iliyamo/restaurant-table-reservation/internal/model"
	"github.com/iliyamo/restaurant-table-reservation/internal/repository"
)

// errTableJustTaken signals that every candidate table passed the lock-free
// check but was claimed by a concurrent booking before our locked recheck.
var errTableJustTaken = errors.New("table taken during commit")

// CreateReservationInput carries a booking request.  TableID zero asks the
// allocator to pick the best-fit table.
type CreateReservationInput struct {
	UserID          uint64
	BranchID        uint64
	TableID         uint64
	Date            time.Time
	Time            model.TimeOfDay
	GuestCount      int
	SpecialRequests string
}

// BookingService places reservations.  Every booking runs in two phases: a
// lock-free availability check that rejects hopeless requests cheaply, then
// a transaction that locks the chosen table row, re-checks availability under
// the lock and inserts the reservation together with its schedule row.  Two
// concurrent requests for the last table serialize on the row lock and the
// loser gets a just_taken conflict instead of a double booking.
type BookingService struct {
	store     repository.Store
	allocator *Allocator
	checker   *AvailabilityChecker
	publisher fanout.Publisher
	slots     *cache.SlotCache
	log       zerolog.Logger
}

// NewBookingService wires a booking service.  publisher must not be nil;
// use fanout.Noop when no realtime layer exists.  slots may be nil.
func NewBookingService(store repository.Store, allocator *Allocator, checker *AvailabilityChecker, publisher fanout.Publisher, slots *cache.SlotCache, log zerolog.Logger) *BookingService {
	return &BookingService{
		store:     store,
		allocator: allocator,
		checker:   checker,
		publisher: publisher,
		slots:     slots,
		log:       log,
	}
}

// CreateQuickReservation books without a table preference: the allocator
// picks the smallest free table that seats the party.
func (s *BookingService) CreateQuickReservation(ctx context.Context, in CreateReservationInput) (*model.Reservation, error) {
	in.TableID = 0
	return s.CreateReservation(ctx, in)
}

// CreateReservation books the given table, or a best-fit one when
// in.TableID is zero.  On conflict it returns a *ConflictError whose Reason
// and Alternatives tell the caller what to offer the guest instead.
func (s *BookingService) CreateReservation(ctx context.Context, in CreateReservationInput) (*model.Reservation, error) {
	if err := s.validate(in); err != nil {
		metrics.BookingAttempts.WithLabelValues("invalid").Inc()
		return nil, err
	}

	branch, err := s.store.BranchByID(ctx, in.BranchID)
	if err != nil {
		metrics.BookingAttempts.WithLabelValues("error").Inc()
		return nil, err
	}
	if branch.Status != model.BranchStatusActive {
		metrics.BookingAttempts.WithLabelValues("invalid").Inc()
		return nil, &ValidationError{Field: "branch_id", Message: "branch is not accepting reservations"}
	}
	// Overnight tails book under the opening date so both spellings of the
	// same window land on one ledger key.
	in.Date, in.Time = branch.NormalizeBookingTime(in.Date, in.Time)
	if !branch.IsOpenAt(in.Time) {
		metrics.BookingAttempts.WithLabelValues("invalid").Inc()
		return nil, &ValidationError{Field: "time", Message: "requested time is outside branch operating hours"}
	}

	table, err := s.pickTable(ctx, branch, in)
	if err != nil {
		s.countConflict(err)
		return nil, err
	}

	res, err := s.commitBooking(ctx, table, in)
	if errors.Is(err, errTableJustTaken) {
		metrics.BookingAttempts.WithLabelValues("just_taken").Inc()
		return nil, &ConflictError{
			Reason:       ReasonJustTaken,
			Message:      "the table was booked by another guest just now, please pick another time",
			Alternatives: s.allocator.alternativesAfter(ctx, branch, in.Date, in.Time, in.GuestCount),
		}
	}
	if err != nil {
		metrics.BookingAttempts.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.BookingAttempts.WithLabelValues("created").Inc()
	s.slots.Invalidate(ctx, in.BranchID, in.Date)
	s.publisher.Publish(fanout.NewEvent(
		fanout.EventReservationCreated,
		[]string{fanout.RoomBranch(in.BranchID), fanout.RoomAdmin, fanout.RoomUser(in.UserID)},
		fanout.ReservationPayload{
			ReservationID: res.ID,
			Reservation:   res,
			BranchID:      in.BranchID,
			TableID:       res.TableID,
			NewStatus:     string(res.Status),
		},
	))

	s.log.Info().
		Uint64("reservation_id", res.ID).
		Uint64("branch_id", in.BranchID).
		Uint64("table_id", res.TableID).
		Str("date", in.Date.Format("2006-01-02")).
		Str("time", in.Time.String()).
		Int("guests", in.GuestCount).
		Msg("reservation created")
	return res, nil
}

func (s *BookingService) validate(in CreateReservationInput) error {
	switch {
	case in.UserID == 0:
		return &ValidationError{Field: "user_id", Message: "is required"}
	case in.BranchID == 0:
		return &ValidationError{Field: "branch_id", Message: "is required"}
	case in.Date.IsZero():
		return &ValidationError{Field: "date", Message: "is required"}
	case in.GuestCount < 1:
		return &ValidationError{Field: "guest_count", Message: "must be at least 1"}
	}
	return nil
}

func (s *BookingService) countConflict(err error) {
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		metrics.BookingAttempts.WithLabelValues("error").Inc()
		return
	}
	switch conflict.Reason {
	case ReasonCapacity:
		metrics.BookingAttempts.WithLabelValues("capacity").Inc()
	default:
		metrics.BookingAttempts.WithLabelValues("time_conflict").Inc()
	}
}

// pickTable runs the lock-free fast path: resolve the explicit table or ask
// the allocator for a best fit, and reject capacity or time conflicts before
// any transaction is opened.
func (s *BookingService) pickTable(ctx context.Context, branch *model.Branch, in CreateReservationInput) (*model.Table, error) {
	if in.TableID != 0 {
		table, err := s.store.TableByID(ctx, in.TableID)
		if err != nil {
			return nil, err
		}
		if table.Capacity < in.GuestCount {
			return nil, &ConflictError{
				Reason:      ReasonCapacity,
				Message:     fmt.Sprintf("table %s seats %d, not enough for a party of %d", table.Name, table.Capacity, in.GuestCount),
				BranchPhone: branch.Phone,
			}
		}
		free, err := s.checker.IsAvailable(ctx, nil, table.ID, in.Date, in.Time, model.DefaultDurationMinutes)
		if err != nil {
			return nil, err
		}
		if !free {
			return nil, &ConflictError{
				Reason:       ReasonTime,
				Message:      fmt.Sprintf("table %s is occupied at %s", table.Name, in.Time),
				Alternatives: s.allocator.alternativesAfter(ctx, branch, in.Date, in.Time, in.GuestCount),
			}
		}
		return table, nil
	}

	result, err := s.allocator.CheckAvailability(ctx, branch.ID, in.Date, in.Time, in.GuestCount)
	if err != nil {
		return nil, err
	}
	if result.Available {
		return result.Table, nil
	}
	if result.Reason == ReasonCapacity {
		return nil, &ConflictError{
			Reason:      ReasonCapacity,
			Message:     fmt.Sprintf("no table seats a party of %d, consider splitting the party or calling the branch", in.GuestCount),
			BranchPhone: branch.Phone,
		}
	}
	return nil, &ConflictError{
		Reason:       ReasonTime,
		Message:      fmt.Sprintf("all suitable tables are occupied at %s", in.Time),
		Alternatives: s.allocator.alternativesAfter(ctx, branch, in.Date, in.Time, in.GuestCount),
	}
}

// commitBooking is the transactional phase.  It locks the candidate table,
// re-checks availability under the lock and, if the slot is gone, falls back
// to the remaining candidates one lock at a time.  The reservation and its
// schedule row land in the same transaction; either both exist or neither.
func (s *BookingService) commitBooking(ctx context.Context, table *model.Table, in CreateReservationInput) (*model.Reservation, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.log.Error().Err(rbErr).Msg("booking rollback failed")
			}
		}
	}()

	candidate, err := s.lockFreeTable(ctx, tx, table, in)
	if err != nil {
		return nil, err
	}

	res := &model.Reservation{
		UserID:          in.UserID,
		BranchID:        in.BranchID,
		TableID:         candidate.ID,
		ReservationDate: in.Date,
		ReservationTime: in.Time,
		GuestCount:      in.GuestCount,
		Status:          model.ReservationPending,
		SpecialRequests: in.SpecialRequests,
	}
	if err := s.store.CreateReservationTx(ctx, tx, res); err != nil {
		return nil, err
	}

	sched := &model.TableSchedule{
		TableID:         candidate.ID,
		ReservationID:   &res.ID,
		ScheduleDate:    in.Date,
		StartTime:       in.Time,
		EndTime:         in.Time.Add(model.DefaultDurationMinutes),
		DurationMinutes: model.DefaultDurationMinutes,
		Status:          model.ScheduleReserved,
	}
	if err := s.store.CreateScheduleTx(ctx, tx, sched); err != nil {
		return nil, err
	}

	if err := s.store.UpdateTableStatusTx(ctx, tx, candidate.ID, model.TableReserved); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return res, nil
}

// lockFreeTable locks the preferred table and re-checks it; when the slot
// was taken in the race window it walks the other candidates in best-fit
// order, locking each before checking.  Returns errTableJustTaken when the
// whole branch lost the race.
func (s *BookingService) lockFreeTable(ctx context.Context, tx repository.Tx, table *model.Table, in CreateReservationInput) (*model.Table, error) {
	if err := s.store.LockTableTx(ctx, tx, table.ID); err != nil {
		return nil, err
	}
	free, err := s.checker.IsAvailable(ctx, tx, table.ID, in.Date, in.Time, model.DefaultDurationMinutes)
	if err != nil {
		return nil, err
	}
	if free {
		return table, nil
	}

	others, err := s.store.TablesWithCapacity(ctx, in.BranchID, in.GuestCount)
	if err != nil {
		return nil, err
	}
	for i := range others {
		t := &others[i]
		if t.ID == table.ID {
			continue
		}
		if err := s.store.LockTableTx(ctx, tx, t.ID); err != nil {
			return nil, err
		}
		free, err := s.checker.IsAvailable(ctx, tx, t.ID, in.Date, in.Time, model.DefaultDurationMinutes)
		if err != nil {
			return nil, err
		}
		if free {
			return t, nil
		}
	}
	return nil, errTableJustTaken
}
