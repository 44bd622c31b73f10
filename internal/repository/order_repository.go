package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// OrderRepo reads the external order service's rows.  The engine only ever
// inspects active dine-in orders: a walk-in order occupies a table without
// a schedule row and must still block bookings for that table.
type OrderRepo struct {
	db *sql.DB
}

// NewOrderRepo returns a new OrderRepo bound to the given database.
func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

// walkInQuery selects active dine-in orders on a table and date whose
// implied occupancy is not already accounted for by a schedule row.  An
// order that originated from a reservation has a reservation_id with a
// live schedule row; counting it again would double-book the window.
const walkInQuery = `SELECT o.id, o.user_id, o.branch_id, o.table_id, o.reservation_id, o.order_type, o.status, o.created_at
	FROM orders o
	WHERE o.table_id = ?
	  AND DATE(o.created_at) = ?
	  AND o.order_type = ?
	  AND o.status IN (%s)
	  AND (o.reservation_id IS NULL OR NOT EXISTS (
	      SELECT 1 FROM table_schedules ts
	      WHERE ts.reservation_id = o.reservation_id AND ts.status <> ?))`

// ActiveWalkIns returns the walk-in occupancy windows for a table on a
// date.  Each returned occupancy approximates the order's window as
// created_at plus the default booking duration.
func (r *OrderRepo) ActiveWalkIns(ctx context.Context, tableID uint64, date string) ([]model.Occupancy, error) {
	q, args := buildWalkInQuery(tableID, date)
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return scanWalkIns(rows)
}

// ActiveWalkInsTx is ActiveWalkIns inside a transaction.
func (r *OrderRepo) ActiveWalkInsTx(ctx context.Context, tx *sql.Tx, tableID uint64, date string) ([]model.Occupancy, error) {
	q, args := buildWalkInQuery(tableID, date)
	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return scanWalkIns(rows)
}

func buildWalkInQuery(tableID uint64, date string) (string, []interface{}) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(model.ActiveOrderStatuses)), ",")
	q := strings.Replace(walkInQuery, "%s", placeholders, 1)
	args := []interface{}{tableID, date, model.OrderTypeDineIn}
	for _, s := range model.ActiveOrderStatuses {
		args = append(args, s)
	}
	args = append(args, model.ScheduleCancelled)
	return q, args
}

func scanWalkIns(rows *sql.Rows) ([]model.Occupancy, error) {
	defer rows.Close()
	var occ []model.Occupancy
	for rows.Next() {
		var (
			o       model.Order
			tableID sql.NullInt64
			resID   sql.NullInt64
		)
		if err := rows.Scan(&o.ID, &o.UserID, &o.BranchID, &tableID, &resID, &o.OrderType, &o.Status, &o.CreatedAt); err != nil {
			return nil, err
		}
		if tableID.Valid {
			tid := uint64(tableID.Int64)
			o.TableID = &tid
		}
		entry := model.Occupancy{
			Source: model.SourceWalkInOrder,
			Window: o.OccupancyWindow(),
		}
		if resID.Valid {
			rid := uint64(resID.Int64)
			entry.ReservationID = &rid
		}
		occ = append(occ, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return occ, nil
}
