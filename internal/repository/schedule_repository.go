package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// ScheduleRepo provides access to table_schedules, the authoritative
// occupancy ledger.  Rows are inserted at booking time together with their
// reservation and afterwards only change status; history is preserved for
// audit.
type ScheduleRepo struct {
	db *sql.DB
}

// NewScheduleRepo returns a new ScheduleRepo bound to the given database.
func NewScheduleRepo(db *sql.DB) *ScheduleRepo { return &ScheduleRepo{db: db} }

const activeByTableQuery = `SELECT id, reservation_id, start_time, duration_minutes
	FROM table_schedules
	WHERE table_id = ? AND schedule_date = ? AND status <> ?
	ORDER BY start_time ASC`

// ActiveByTableAndDate returns the occupancy windows of all non-cancelled
// schedule rows for a table on a date.  Cancelled rows free their slot
// immediately and are excluded.
func (r *ScheduleRepo) ActiveByTableAndDate(ctx context.Context, tableID uint64, date string) ([]model.Occupancy, error) {
	rows, err := r.db.QueryContext(ctx, activeByTableQuery, tableID, date, model.ScheduleCancelled)
	if err != nil {
		return nil, err
	}
	return scanOccupancies(rows)
}

// ActiveByTableAndDateTx is ActiveByTableAndDate inside a transaction.
// The booking commit path calls it after taking the table row lock so the
// re-check observes every committed competitor.
func (r *ScheduleRepo) ActiveByTableAndDateTx(ctx context.Context, tx *sql.Tx, tableID uint64, date string) ([]model.Occupancy, error) {
	rows, err := tx.QueryContext(ctx, activeByTableQuery, tableID, date, model.ScheduleCancelled)
	if err != nil {
		return nil, err
	}
	return scanOccupancies(rows)
}

func scanOccupancies(rows *sql.Rows) ([]model.Occupancy, error) {
	defer rows.Close()
	var occ []model.Occupancy
	for rows.Next() {
		var (
			id       uint64
			resID    sql.NullInt64
			startStr string
			duration int
		)
		if err := rows.Scan(&id, &resID, &startStr, &duration); err != nil {
			return nil, err
		}
		start, err := model.ParseTimeOfDay(startStr)
		if err != nil {
			return nil, err
		}
		o := model.Occupancy{
			Source: model.SourceReservation,
			Window: model.Interval{Start: start, End: start.Add(duration)},
		}
		if resID.Valid {
			rid := uint64(resID.Int64)
			o.ReservationID = &rid
		}
		occ = append(occ, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return occ, nil
}

// CreateTx inserts a new schedule row within the scope of an existing
// transaction and populates the generated ID.  The caller must commit or
// roll back; the row must be created in the same transaction as its
// reservation so that both exist together or neither does.
func (r *ScheduleRepo) CreateTx(ctx context.Context, tx *sql.Tx, s *model.TableSchedule) error {
	const q = `INSERT INTO table_schedules
		(table_id, reservation_id, schedule_date, start_time, duration_minutes, end_time, status, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	var resID interface{}
	if s.ReservationID != nil {
		resID = *s.ReservationID
	}
	res, err := tx.ExecContext(ctx, q,
		s.TableID, resID, s.ScheduleDate.Format("2006-01-02"),
		s.StartTime.SQL(), s.DurationMinutes, s.EndTime.SQL(), s.Status, s.Notes,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// UpdateStatusByReservation moves every schedule row owned by the
// reservation to the given status.  Lifecycle transitions only ever narrow
// an existing window, never create a new overlapping one, so no table row
// lock is required here.
func (r *ScheduleRepo) UpdateStatusByReservation(ctx context.Context, reservationID uint64, status model.ScheduleStatus) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE table_schedules SET status = ? WHERE reservation_id = ?`,
		status, reservationID,
	)
	return err
}

// AppendNote appends an audit line to the notes of the reservation's
// schedule rows.  Used by the overdue sweep to record auto-cancellations.
func (r *ScheduleRepo) AppendNote(ctx context.Context, reservationID uint64, note string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE table_schedules
		 SET notes = TRIM(BOTH '\n' FROM CONCAT(COALESCE(notes, ''), '\n', ?))
		 WHERE reservation_id = ?`,
		note, reservationID,
	)
	return err
}
