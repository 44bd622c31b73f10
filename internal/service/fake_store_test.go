package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/restaurant-table-reservation/internal/model"
	"github.com/iliyamo/restaurant-table-reservation/internal/repository"
)

// fakeStore is an in-memory repository.Store with real row locking:
// LockTableTx blocks until the holding transaction commits or rolls back,
// and writes buffered in a transaction become visible atomically on commit.
// That makes the booking race tests exercise the same interleavings the
// SELECT ... FOR UPDATE path sees in MySQL.
type fakeStore struct {
	mu sync.Mutex

	branches     map[uint64]*model.Branch
	tables       map[uint64]*model.Table
	tableBranch  map[uint64]uint64
	reservations map[uint64]*model.Reservation
	schedules    []*model.TableSchedule
	walkIns      []fakeWalkIn

	nextID uint64

	lockMu   sync.Mutex
	rowLocks map[uint64]*sync.Mutex

	failCreateSchedule bool
	failUpdateTableTx  bool
}

type fakeWalkIn struct {
	tableID uint64
	date    time.Time
	window  model.Interval
}

type fakeTx struct {
	store  *fakeStore
	locked []uint64
	writes []func()
	done   bool
}

func (t *fakeTx) Commit() error {
	if t.done {
		return errors.New("transaction already finished")
	}
	t.store.mu.Lock()
	for _, w := range t.writes {
		w()
	}
	t.store.mu.Unlock()
	t.finish()
	return nil
}

func (t *fakeTx) Rollback() error {
	if t.done {
		return nil
	}
	t.finish()
	return nil
}

func (t *fakeTx) finish() {
	t.done = true
	for _, id := range t.locked {
		t.store.rowLock(id).Unlock()
	}
	t.locked = nil
	t.writes = nil
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		branches:     make(map[uint64]*model.Branch),
		tables:       make(map[uint64]*model.Table),
		tableBranch:  make(map[uint64]uint64),
		reservations: make(map[uint64]*model.Reservation),
		rowLocks:     make(map[uint64]*sync.Mutex),
	}
}

func (s *fakeStore) rowLock(tableID uint64) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	l, ok := s.rowLocks[tableID]
	if !ok {
		l = &sync.Mutex{}
		s.rowLocks[tableID] = l
	}
	return l
}

func (s *fakeStore) newID() uint64 {
	s.nextID++
	return s.nextID
}

// Seed helpers.

func (s *fakeStore) addBranch(id uint64, open, close int) *model.Branch {
	b := &model.Branch{
		ID:          id,
		Name:        "Downtown",
		Phone:       "+1-555-0100",
		OpeningHour: open,
		ClosingHour: close,
		Status:      model.BranchStatusActive,
	}
	s.branches[id] = b
	return b
}

func (s *fakeStore) addTable(id, branchID uint64, capacity int) *model.Table {
	t := &model.Table{ID: id, FloorID: 1, Name: "T", Capacity: capacity, Status: model.TableAvailable}
	s.tables[id] = t
	s.tableBranch[id] = branchID
	return t
}

func (s *fakeStore) addSchedule(tableID uint64, reservationID *uint64, date time.Time, start model.TimeOfDay, status model.ScheduleStatus) *model.TableSchedule {
	sched := &model.TableSchedule{
		ID:              s.newID(),
		TableID:         tableID,
		ReservationID:   reservationID,
		ScheduleDate:    date,
		StartTime:       start,
		DurationMinutes: model.DefaultDurationMinutes,
		EndTime:         start.Add(model.DefaultDurationMinutes),
		Status:          status,
	}
	s.schedules = append(s.schedules, sched)
	return sched
}

func (s *fakeStore) addWalkIn(tableID uint64, date time.Time, start model.TimeOfDay) {
	s.walkIns = append(s.walkIns, fakeWalkIn{
		tableID: tableID,
		date:    date,
		window:  model.Interval{Start: start, End: start.Add(model.DefaultDurationMinutes)},
	})
}

func (s *fakeStore) addReservation(res *model.Reservation) *model.Reservation {
	if res.ID == 0 {
		res.ID = s.newID()
	}
	s.reservations[res.ID] = res
	s.addSchedule(res.TableID, &res.ID, res.ReservationDate, res.ReservationTime, model.ScheduleReserved)
	return res
}

// repository.Store implementation.

func (s *fakeStore) Begin(ctx context.Context) (repository.Tx, error) {
	return &fakeTx{store: s}, nil
}

func (s *fakeStore) BranchByID(ctx context.Context, id uint64) (*model.Branch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.branches[id]
	if !ok {
		return nil, repository.ErrBranchNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *fakeStore) TableByID(ctx context.Context, id uint64) (*model.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[id]
	if !ok {
		return nil, repository.ErrTableNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *fakeStore) TablesWithCapacity(ctx context.Context, branchID uint64, minCapacity int) ([]model.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Table
	for id, t := range s.tables {
		if s.tableBranch[id] != branchID || t.Capacity < minCapacity || t.Status == model.TableMaintenance {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Capacity != out[j].Capacity {
			return out[i].Capacity < out[j].Capacity
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *fakeStore) LockTableTx(ctx context.Context, tx repository.Tx, tableID uint64) error {
	ft := tx.(*fakeTx)
	for _, held := range ft.locked {
		if held == tableID {
			return nil
		}
	}
	s.rowLock(tableID).Lock()
	ft.locked = append(ft.locked, tableID)
	return nil
}

func (s *fakeStore) Occupancies(ctx context.Context, tx repository.Tx, tableID uint64, date time.Time) ([]model.Occupancy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Occupancy
	for _, sched := range s.schedules {
		if sched.TableID != tableID || sched.Status == model.ScheduleCancelled || !sameDate(sched.ScheduleDate, date) {
			continue
		}
		out = append(out, model.Occupancy{
			Source:        model.SourceReservation,
			ReservationID: sched.ReservationID,
			Window:        sched.Interval(),
		})
	}
	for _, w := range s.walkIns {
		if w.tableID != tableID || !sameDate(w.date, date) {
			continue
		}
		out = append(out, model.Occupancy{Source: model.SourceWalkInOrder, Window: w.window})
	}
	return out, nil
}

func (s *fakeStore) CreateReservationTx(ctx context.Context, tx repository.Tx, res *model.Reservation) error {
	ft := tx.(*fakeTx)
	s.mu.Lock()
	res.ID = s.newID()
	s.mu.Unlock()
	res.CreatedAt = time.Now().UTC()
	cp := *res
	ft.writes = append(ft.writes, func() { s.reservations[cp.ID] = &cp })
	return nil
}

func (s *fakeStore) CreateScheduleTx(ctx context.Context, tx repository.Tx, sched *model.TableSchedule) error {
	if s.failCreateSchedule {
		return errors.New("schedule insert failed")
	}
	ft := tx.(*fakeTx)
	s.mu.Lock()
	sched.ID = s.newID()
	s.mu.Unlock()
	cp := *sched
	ft.writes = append(ft.writes, func() { s.schedules = append(s.schedules, &cp) })
	return nil
}

func (s *fakeStore) UpdateTableStatusTx(ctx context.Context, tx repository.Tx, tableID uint64, status model.TableStatus) error {
	if s.failUpdateTableTx {
		return errors.New("table status update failed")
	}
	ft := tx.(*fakeTx)
	ft.writes = append(ft.writes, func() {
		if t, ok := s.tables[tableID]; ok {
			t.Status = status
		}
	})
	return nil
}

func (s *fakeStore) ReservationByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.reservations[id]
	if !ok {
		return nil, repository.ErrReservationNotFound
	}
	cp := *res
	return &cp, nil
}

func (s *fakeStore) UpdateReservationStatus(ctx context.Context, id uint64, status model.ReservationStatus, cancelledAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.reservations[id]
	if !ok {
		return repository.ErrReservationNotFound
	}
	res.Status = status
	res.CancelledAt = cancelledAt
	return nil
}

func (s *fakeStore) DeleteReservation(ctx context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reservations[id]; !ok {
		return repository.ErrReservationNotFound
	}
	delete(s.reservations, id)
	kept := s.schedules[:0]
	for _, sched := range s.schedules {
		if sched.ReservationID == nil || *sched.ReservationID != id {
			kept = append(kept, sched)
		}
	}
	s.schedules = kept
	return nil
}

func (s *fakeStore) UpdateTableStatus(ctx context.Context, tableID uint64, status model.TableStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[tableID]
	if !ok {
		return repository.ErrTableNotFound
	}
	t.Status = status
	return nil
}

func (s *fakeStore) UpdateScheduleStatusByReservation(ctx context.Context, reservationID uint64, status model.ScheduleStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sched := range s.schedules {
		if sched.ReservationID != nil && *sched.ReservationID == reservationID {
			sched.Status = status
		}
	}
	return nil
}

func (s *fakeStore) AppendScheduleNote(ctx context.Context, reservationID uint64, note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sched := range s.schedules {
		if sched.ReservationID != nil && *sched.ReservationID == reservationID {
			if sched.Notes != "" {
				sched.Notes += "\n"
			}
			sched.Notes += note
		}
	}
	return nil
}

func (s *fakeStore) OverdueReservations(ctx context.Context, cutoff time.Time) ([]model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Reservation
	for _, res := range s.reservations {
		if res.Status != model.ReservationPending && res.Status != model.ReservationConfirmed {
			continue
		}
		if !res.ScheduledAt().After(cutoff) {
			out = append(out, *res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Inspection helpers for assertions.

func (s *fakeStore) reservationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reservations)
}

func (s *fakeStore) scheduleFor(reservationID uint64) *model.TableSchedule {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sched := range s.schedules {
		if sched.ReservationID != nil && *sched.ReservationID == reservationID {
			cp := *sched
			return &cp
		}
	}
	return nil
}

func (s *fakeStore) tableStatus(id uint64) model.TableStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tables[id].Status
}

func sameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
