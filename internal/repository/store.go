package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// Tx is an opaque transactional scope handed out by a Store.  Services
// thread it through lock, re-check and insert calls without depending on
// database/sql, which keeps them testable against in-memory stores.
type Tx interface {
	Commit() error
	Rollback() error
}

// Store is the persistence surface the reservation engine runs on.  The
// SQL implementation below backs it with MySQL; tests substitute fakes.
// Methods taking a Tx accept nil to run outside any transaction, which is
// how the availability check runs both on the lock-free fast path and
// under the table row lock.
type Store interface {
	Begin(ctx context.Context) (Tx, error)

	BranchByID(ctx context.Context, id uint64) (*model.Branch, error)
	TableByID(ctx context.Context, id uint64) (*model.Table, error)
	TablesWithCapacity(ctx context.Context, branchID uint64, minCapacity int) ([]model.Table, error)
	LockTableTx(ctx context.Context, tx Tx, tableID uint64) error

	// Occupancies merges both occupancy sources for a table and date:
	// non-cancelled schedule rows and implicit walk-in order windows.
	Occupancies(ctx context.Context, tx Tx, tableID uint64, date time.Time) ([]model.Occupancy, error)

	CreateReservationTx(ctx context.Context, tx Tx, res *model.Reservation) error
	CreateScheduleTx(ctx context.Context, tx Tx, s *model.TableSchedule) error
	UpdateTableStatusTx(ctx context.Context, tx Tx, tableID uint64, status model.TableStatus) error

	ReservationByID(ctx context.Context, id uint64) (*model.Reservation, error)
	UpdateReservationStatus(ctx context.Context, id uint64, status model.ReservationStatus, cancelledAt *time.Time) error
	DeleteReservation(ctx context.Context, id uint64) error
	UpdateTableStatus(ctx context.Context, tableID uint64, status model.TableStatus) error
	UpdateScheduleStatusByReservation(ctx context.Context, reservationID uint64, status model.ScheduleStatus) error
	AppendScheduleNote(ctx context.Context, reservationID uint64, note string) error
	OverdueReservations(ctx context.Context, cutoff time.Time) ([]model.Reservation, error)
}

// SQLStore implements Store on top of the per-table repositories.
type SQLStore struct {
	db           *sql.DB
	Branches     *BranchRepo
	Tables       *TableRepo
	Reservations *ReservationRepo
	Schedules    *ScheduleRepo
	Orders       *OrderRepo
}

// NewSQLStore wires a Store over the given database handle.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{
		db:           db,
		Branches:     NewBranchRepo(db),
		Tables:       NewTableRepo(db),
		Reservations: NewReservationRepo(db),
		Schedules:    NewScheduleRepo(db),
		Orders:       NewOrderRepo(db),
	}
}

// Begin opens a database transaction.
func (s *SQLStore) Begin(ctx context.Context) (Tx, error) {
	return s.db.BeginTx(ctx, nil)
}

// sqlTx unwraps the opaque Tx back into *sql.Tx.  A Tx produced by a
// different Store implementation is a programming error.
func sqlTx(tx Tx) (*sql.Tx, error) {
	if tx == nil {
		return nil, nil
	}
	t, ok := tx.(*sql.Tx)
	if !ok {
		return nil, fmt.Errorf("repository: foreign transaction type %T", tx)
	}
	return t, nil
}

func (s *SQLStore) BranchByID(ctx context.Context, id uint64) (*model.Branch, error) {
	return s.Branches.ByID(ctx, id)
}

func (s *SQLStore) TableByID(ctx context.Context, id uint64) (*model.Table, error) {
	return s.Tables.ByID(ctx, id)
}

func (s *SQLStore) TablesWithCapacity(ctx context.Context, branchID uint64, minCapacity int) ([]model.Table, error) {
	return s.Tables.ByBranchWithCapacity(ctx, branchID, minCapacity)
}

func (s *SQLStore) LockTableTx(ctx context.Context, tx Tx, tableID uint64) error {
	t, err := sqlTx(tx)
	if err != nil {
		return err
	}
	return s.Tables.LockTx(ctx, t, tableID)
}

func (s *SQLStore) Occupancies(ctx context.Context, tx Tx, tableID uint64, date time.Time) ([]model.Occupancy, error) {
	t, err := sqlTx(tx)
	if err != nil {
		return nil, err
	}
	day := date.Format("2006-01-02")
	var scheduled, walkIns []model.Occupancy
	if t != nil {
		scheduled, err = s.Schedules.ActiveByTableAndDateTx(ctx, t, tableID, day)
	} else {
		scheduled, err = s.Schedules.ActiveByTableAndDate(ctx, tableID, day)
	}
	if err != nil {
		return nil, err
	}
	if t != nil {
		walkIns, err = s.Orders.ActiveWalkInsTx(ctx, t, tableID, day)
	} else {
		walkIns, err = s.Orders.ActiveWalkIns(ctx, tableID, day)
	}
	if err != nil {
		return nil, err
	}
	return append(scheduled, walkIns...), nil
}

func (s *SQLStore) CreateReservationTx(ctx context.Context, tx Tx, res *model.Reservation) error {
	t, err := sqlTx(tx)
	if err != nil {
		return err
	}
	return s.Reservations.CreateTx(ctx, t, res)
}

func (s *SQLStore) CreateScheduleTx(ctx context.Context, tx Tx, sched *model.TableSchedule) error {
	t, err := sqlTx(tx)
	if err != nil {
		return err
	}
	return s.Schedules.CreateTx(ctx, t, sched)
}

func (s *SQLStore) UpdateTableStatusTx(ctx context.Context, tx Tx, tableID uint64, status model.TableStatus) error {
	t, err := sqlTx(tx)
	if err != nil {
		return err
	}
	return s.Tables.UpdateStatusTx(ctx, t, tableID, status)
}

func (s *SQLStore) ReservationByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	return s.Reservations.ByID(ctx, id)
}

func (s *SQLStore) UpdateReservationStatus(ctx context.Context, id uint64, status model.ReservationStatus, cancelledAt *time.Time) error {
	return s.Reservations.UpdateStatus(ctx, id, status, cancelledAt)
}

func (s *SQLStore) DeleteReservation(ctx context.Context, id uint64) error {
	return s.Reservations.Delete(ctx, id)
}

func (s *SQLStore) UpdateTableStatus(ctx context.Context, tableID uint64, status model.TableStatus) error {
	return s.Tables.UpdateStatus(ctx, tableID, status)
}

func (s *SQLStore) UpdateScheduleStatusByReservation(ctx context.Context, reservationID uint64, status model.ScheduleStatus) error {
	return s.Schedules.UpdateStatusByReservation(ctx, reservationID, status)
}

func (s *SQLStore) AppendScheduleNote(ctx context.Context, reservationID uint64, note string) error {
	return s.Schedules.AppendNote(ctx, reservationID, note)
}

func (s *SQLStore) OverdueReservations(ctx context.Context, cutoff time.Time) ([]model.Reservation, error) {
	return s.Reservations.Overdue(ctx, cutoff)
}
