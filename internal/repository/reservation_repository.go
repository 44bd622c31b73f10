package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// ReservationRepo provides CRUD operations for reservations.  All
// timestamp fields are stored in UTC; reservation_date and
// reservation_time are kept as DATE and TIME columns so interval
// arithmetic can run per calendar day.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationColumns = `id, user_id, branch_id, table_id, reservation_date, reservation_time,
	guest_count, status, special_requests, created_at, cancelled_at`

func scanReservation(row interface {
	Scan(dest ...interface{}) error
}) (*model.Reservation, error) {
	var (
		res         model.Reservation
		timeStr     string
		special     sql.NullString
		cancelledAt sql.NullTime
	)
	err := row.Scan(
		&res.ID, &res.UserID, &res.BranchID, &res.TableID,
		&res.ReservationDate, &timeStr, &res.GuestCount, &res.Status,
		&special, &res.CreatedAt, &cancelledAt,
	)
	if err != nil {
		return nil, err
	}
	t, err := model.ParseTimeOfDay(timeStr)
	if err != nil {
		return nil, err
	}
	res.ReservationTime = t
	if special.Valid {
		res.SpecialRequests = special.String
	}
	if cancelledAt.Valid {
		ca := cancelledAt.Time
		res.CancelledAt = &ca
	}
	return &res, nil
}

// CreateTx inserts a new reservation within the scope of an existing
// transaction and populates the generated ID and creation timestamp on the
// provided record.  The caller must commit or roll back.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	const q = `INSERT INTO reservations
		(user_id, branch_id, table_id, reservation_date, reservation_time, guest_count, status, special_requests)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, q,
		res.UserID, res.BranchID, res.TableID,
		res.ReservationDate.Format("2006-01-02"), res.ReservationTime.SQL(),
		res.GuestCount, res.Status, res.SpecialRequests,
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	// Query back the row to populate DB-side defaults.
	const sel = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
	got, err := scanReservation(tx.QueryRowContext(ctx, sel, res.ID))
	if err != nil {
		return err
	}
	*res = *got
	return nil
}

// ByID fetches a reservation by primary key.  It returns
// ErrReservationNotFound when no row exists.
func (r *ReservationRepo) ByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
	res, err := scanReservation(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

// UpdateStatus moves a reservation to the given status, optionally
// recording the cancellation moment.  State-machine validation happens in
// the lifecycle service before this is called.
func (r *ReservationRepo) UpdateStatus(ctx context.Context, id uint64, status model.ReservationStatus, cancelledAt *time.Time) error {
	var ca interface{}
	if cancelledAt != nil {
		ca = cancelledAt.UTC()
	}
	result, err := r.db.ExecContext(ctx,
		`UPDATE reservations SET status = ?, cancelled_at = ? WHERE id = ?`,
		status, ca, id,
	)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrReservationNotFound
	}
	return nil
}

// Delete removes a reservation row.  Schedule rows referencing it are
// removed by the ON DELETE CASCADE on table_schedules; callers free the
// schedule (status = cancelled) before deleting so subscribers observe the
// slot release.
func (r *ReservationRepo) Delete(ctx context.Context, id uint64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrReservationNotFound
	}
	return nil
}

// Overdue lists reservations still awaiting check-in whose scheduled time
// is at or before the given cutoff.  Only pending and confirmed
// reservations qualify; a cancelled or checked-in reservation no longer
// matches, which is what makes the sweep idempotent.
func (r *ReservationRepo) Overdue(ctx context.Context, cutoff time.Time) ([]model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations
		WHERE status IN (?, ?)
		  AND TIMESTAMP(reservation_date, reservation_time) <= ?
		ORDER BY reservation_date ASC, reservation_time ASC`
	rows, err := r.db.QueryContext(ctx, q,
		model.ReservationPending, model.ReservationConfirmed,
		cutoff.UTC().Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
