package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/restaurant-table-reservation/internal/fanout"
	"github.com/iliyamo/restaurant-table-reservation/internal/metrics"
	"github.com/iliyamo/restaurant-table-reservation/internal/model"
	"github.com/iliyamo/restaurant-table-reservation/internal/repository"
)

// Overdue thresholds.  A party that has not checked in warnAfter past its
// reservation time gets a warning broadcast; at cancelAfter the reservation
// is auto-cancelled and the table released.
const (
	OverdueWarnAfter   = 30 * time.Minute
	OverdueCancelAfter = 60 * time.Minute
)

// SweepResult summarizes one overdue sweep pass.
type SweepResult struct {
	WarningCount   int `json:"warning_count"`
	CancelledCount int `json:"cancelled_count"`
}

// OverdueSweeper finds reservations whose party never showed up.  Sweeps are
// idempotent: the query only matches pending and confirmed reservations, so
// a reservation cancelled by one pass is invisible to the next, and a sweep
// rerun after a crash picks up exactly the work that was not finished.
type OverdueSweeper struct {
	store     repository.Store
	lifecycle *LifecycleService
	publisher fanout.Publisher
	log       zerolog.Logger
	now       func() time.Time
}

// NewOverdueSweeper wires a sweeper.
func NewOverdueSweeper(store repository.Store, lifecycle *LifecycleService, publisher fanout.Publisher, log zerolog.Logger) *OverdueSweeper {
	return &OverdueSweeper{
		store:     store,
		lifecycle: lifecycle,
		publisher: publisher,
		log:       log,
		now:       time.Now,
	}
}

// CheckAndProcessOverdueReservations runs one sweep pass.  Reservations
// overdue by at least OverdueCancelAfter are cancelled as no-shows; the rest
// past OverdueWarnAfter get a warning event.  A failure on one reservation
// is logged and skipped, the pass keeps going.
func (s *OverdueSweeper) CheckAndProcessOverdueReservations(ctx context.Context) (SweepResult, error) {
	var result SweepResult

	now := s.now().UTC()
	overdue, err := s.store.OverdueReservations(ctx, now.Add(-OverdueWarnAfter))
	if err != nil {
		return result, err
	}

	for i := range overdue {
		res := &overdue[i]
		minutes := int(now.Sub(res.ScheduledAt()).Minutes())

		if now.Sub(res.ScheduledAt()) >= OverdueCancelAfter {
			note := fmt.Sprintf("auto-cancelled: no-show %d minutes after reservation time", minutes)
			if err := s.lifecycle.CancelForNoShow(ctx, res, note); err != nil {
				s.log.Error().Err(err).Uint64("reservation_id", res.ID).Msg("overdue auto-cancel failed, skipping")
				continue
			}
			s.publishOverdue(res, minutes, true)
			metrics.OverdueCancellations.Inc()
			result.CancelledCount++
			s.log.Info().Uint64("reservation_id", res.ID).Int("minutes_overdue", minutes).Msg("no-show reservation auto-cancelled")
			continue
		}

		s.publishOverdue(res, minutes, false)
		metrics.OverdueWarnings.Inc()
		result.WarningCount++
	}

	if result.WarningCount > 0 || result.CancelledCount > 0 {
		s.log.Info().
			Int("warned", result.WarningCount).
			Int("cancelled", result.CancelledCount).
			Msg("overdue sweep finished")
	}
	return result, nil
}

func (s *OverdueSweeper) publishOverdue(res *model.Reservation, minutes int, cancelled bool) {
	payload := fanout.ReservationPayload{
		ReservationID:  res.ID,
		Reservation:    res,
		BranchID:       res.BranchID,
		TableID:        res.TableID,
		MinutesOverdue: minutes,
		IsCancelled:    cancelled,
		NewStatus:      string(res.Status),
	}
	s.publisher.Publish(fanout.NewEvent(
		fanout.EventReservationOverdue,
		[]string{fanout.RoomBranch(res.BranchID), fanout.RoomAdmin, fanout.RoomUser(res.UserID)},
		payload,
	))
}

// SweepRunner runs the sweeper on a fixed interval until stopped.
type SweepRunner struct {
	sweeper  *OverdueSweeper
	interval time.Duration
	log      zerolog.Logger

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewSweepRunner builds a runner.  A non-positive interval defaults to one
// minute.
func NewSweepRunner(sweeper *OverdueSweeper, interval time.Duration, log zerolog.Logger) *SweepRunner {
	if interval <= 0 {
		interval = time.Minute
	}
	return &SweepRunner{
		sweeper:  sweeper,
		interval: interval,
		log:      log,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the sweep loop in its own goroutine.  The first pass runs
// immediately so overdue reservations do not wait out a full interval after
// a restart.
func (r *SweepRunner) Start(ctx context.Context) {
	go func() {
		defer close(r.done)
		r.log.Info().Dur("interval", r.interval).Msg("overdue sweep runner started")

		r.sweep(ctx)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.sweep(ctx)
			case <-ctx.Done():
				return
			case <-r.stop:
				return
			}
		}
	}()
}

// Stop halts the loop and waits for an in-flight pass to finish.
func (r *SweepRunner) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
	<-r.done
}

func (r *SweepRunner) sweep(ctx context.Context) {
	if _, err := r.sweeper.CheckAndProcessOverdueReservations(ctx); err != nil {
		r.log.Error().Err(err).Msg("overdue sweep pass failed")
	}
}
