package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/restaurant-table-reservation/internal/cache"
	"github.com/iliyamo/restaurant-table-reservation/internal/fanout"
	"github.com/iliyamo/restaurant-table-reservation/internal/model"
	"github.com/iliyamo/restaurant-table-reservation/internal/repository"
)

// LifecycleService drives a reservation through its state machine and keeps
// the schedule ledger and the cached table status in step with every
// transition.  Status is only ever changed here; the booking service creates
// reservations, everything after creation goes through the lifecycle.
type LifecycleService struct {
	store     repository.Store
	publisher fanout.Publisher
	slots     *cache.SlotCache
	log       zerolog.Logger
	now       func() time.Time
}

// NewLifecycleService wires a lifecycle service.  slots may be nil.
func NewLifecycleService(store repository.Store, publisher fanout.Publisher, slots *cache.SlotCache, log zerolog.Logger) *LifecycleService {
	return &LifecycleService{
		store:     store,
		publisher: publisher,
		slots:     slots,
		log:       log,
		now:       time.Now,
	}
}

// Get fetches a reservation by id.
func (s *LifecycleService) Get(ctx context.Context, id uint64) (*model.Reservation, error) {
	return s.store.ReservationByID(ctx, id)
}

// UpdateStatus moves a reservation to a new status, applying the ledger and
// table side effects, and broadcasts the change.  Illegal transitions return
// a *StateError and change nothing.
func (s *LifecycleService) UpdateStatus(ctx context.Context, id uint64, to model.ReservationStatus) (*model.Reservation, error) {
	res, err := s.store.ReservationByID(ctx, id)
	if err != nil {
		return nil, err
	}
	old := res.Status
	if err := s.transition(ctx, res, to); err != nil {
		return nil, err
	}

	s.publisher.Publish(fanout.NewEvent(
		fanout.EventReservationUpdated,
		[]string{fanout.RoomBranch(res.BranchID), fanout.RoomAdmin, fanout.RoomUser(res.UserID)},
		fanout.ReservationPayload{
			ReservationID: res.ID,
			Reservation:   res,
			BranchID:      res.BranchID,
			TableID:       res.TableID,
			OldStatus:     string(old),
			NewStatus:     string(to),
		},
	))
	s.log.Info().
		Uint64("reservation_id", res.ID).
		Str("from", string(old)).
		Str("to", string(to)).
		Msg("reservation status updated")
	return res, nil
}

// Complete marks the reservation completed.  The order service calls this
// when the dine-in order linked to the reservation is closed out, so paying
// the bill frees the table without staff touching the reservation.
func (s *LifecycleService) Complete(ctx context.Context, reservationID uint64) (*model.Reservation, error) {
	return s.UpdateStatus(ctx, reservationID, model.ReservationCompleted)
}

// Delete cancels the reservation's schedule rows, frees the table and then
// removes the reservation itself.  Schedule rows are removed with it by the
// foreign key cascade; deletion is for operator cleanup, guests cancel.
func (s *LifecycleService) Delete(ctx context.Context, id uint64) error {
	res, err := s.store.ReservationByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.UpdateScheduleStatusByReservation(ctx, res.ID, model.ScheduleCancelled); err != nil {
		return err
	}
	if err := s.store.UpdateTableStatus(ctx, res.TableID, model.TableAvailable); err != nil {
		return err
	}
	if err := s.store.DeleteReservation(ctx, res.ID); err != nil {
		return err
	}
	s.slots.Invalidate(ctx, res.BranchID, res.ReservationDate)

	s.publisher.Publish(fanout.NewEvent(
		fanout.EventReservationDeleted,
		[]string{fanout.RoomBranch(res.BranchID), fanout.RoomAdmin, fanout.RoomUser(res.UserID)},
		fanout.ReservationPayload{
			ReservationID: res.ID,
			BranchID:      res.BranchID,
			TableID:       res.TableID,
			OldStatus:     string(res.Status),
		},
	))
	s.log.Info().Uint64("reservation_id", res.ID).Msg("reservation deleted")
	return nil
}

// CancelForNoShow cancels an overdue reservation and records why on its
// schedule row.  It publishes nothing; the sweep emits one overdue event
// covering both the warning and the cancellation, so a second
// reservation-updated broadcast here would double-notify subscribers.
func (s *LifecycleService) CancelForNoShow(ctx context.Context, res *model.Reservation, note string) error {
	if err := s.transition(ctx, res, model.ReservationCancelled); err != nil {
		return err
	}
	if err := s.store.AppendScheduleNote(ctx, res.ID, note); err != nil {
		s.log.Warn().Err(err).Uint64("reservation_id", res.ID).Msg("overdue note not recorded")
	}
	return nil
}

// transition validates and applies one state machine step with its side
// effects: the reservation row, the schedule ledger and the cached table
// status.  res is updated in place on success.
func (s *LifecycleService) transition(ctx context.Context, res *model.Reservation, to model.ReservationStatus) error {
	if !model.CanTransition(res.Status, to) {
		return &StateError{From: res.Status, To: to}
	}

	var cancelledAt *time.Time
	if to == model.ReservationCancelled {
		now := s.now().UTC()
		cancelledAt = &now
	}
	if err := s.store.UpdateReservationStatus(ctx, res.ID, to, cancelledAt); err != nil {
		return err
	}
	if schedStatus, ok := model.ScheduleStatusFor(to); ok {
		if err := s.store.UpdateScheduleStatusByReservation(ctx, res.ID, schedStatus); err != nil {
			return err
		}
	}
	if err := s.store.UpdateTableStatus(ctx, res.TableID, model.TableStatusFor(to)); err != nil {
		return err
	}

	res.Status = to
	res.CancelledAt = cancelledAt
	s.slots.Invalidate(ctx, res.BranchID, res.ReservationDate)
	return nil
}
