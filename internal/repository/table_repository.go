package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// TableRepo encapsulates database operations for tables.  Tables are owned
// by floors, which are owned by branches; branch-scoped queries join
// through floors.
type TableRepo struct {
	db *sql.DB
}

// NewTableRepo constructs a TableRepo given a DB handle.
func NewTableRepo(db *sql.DB) *TableRepo { return &TableRepo{db: db} }

// ByID fetches a table by primary key.  It returns ErrTableNotFound when
// no row exists.
func (r *TableRepo) ByID(ctx context.Context, id uint64) (*model.Table, error) {
	const q = `SELECT id, floor_id, name, capacity, status, created_at, updated_at
	           FROM tables WHERE id = ?`
	var t model.Table
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&t.ID, &t.FloorID, &t.Name, &t.Capacity, &t.Status, &t.CreatedAt, &t.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTableNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ByBranchWithCapacity lists the branch's tables that seat at least
// minCapacity guests, smallest first.  Ascending capacity order drives
// best-fit allocation: the smallest table that still fits wins, preserving
// larger tables for larger parties.  Tables under maintenance are skipped.
func (r *TableRepo) ByBranchWithCapacity(ctx context.Context, branchID uint64, minCapacity int) ([]model.Table, error) {
	const q = `SELECT t.id, t.floor_id, t.name, t.capacity, t.status, t.created_at, t.updated_at
	           FROM tables t
	           JOIN floors f ON f.id = t.floor_id
	           WHERE f.branch_id = ? AND t.capacity >= ? AND t.status <> ?
	           ORDER BY t.capacity ASC, t.id ASC`
	rows, err := r.db.QueryContext(ctx, q, branchID, minCapacity, model.TableMaintenance)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tables := make([]model.Table, 0)
	for rows.Next() {
		var t model.Table
		if err := rows.Scan(&t.ID, &t.FloorID, &t.Name, &t.Capacity, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tables, nil
}

// LockTx acquires an exclusive row lock on the table inside the given
// transaction via SELECT ... FOR UPDATE.  Every writer that wants to add
// occupancy for the table must take this lock before re-validating, which
// makes the table row the single serialization point for bookings.  The
// lock is held until the transaction commits or rolls back.
func (r *TableRepo) LockTx(ctx context.Context, tx *sql.Tx, tableID uint64) error {
	var id uint64
	err := tx.QueryRowContext(ctx, `SELECT id FROM tables WHERE id = ? FOR UPDATE`, tableID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrTableNotFound
	}
	return err
}

// UpdateStatusTx refreshes the cached status view of a table within a
// transaction.
func (r *TableRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, tableID uint64, status model.TableStatus) error {
	_, err := tx.ExecContext(ctx, `UPDATE tables SET status = ? WHERE id = ?`, status, tableID)
	return err
}

// UpdateStatus refreshes the cached status view of a table outside any
// transaction.  Lifecycle transitions use it; they never create new
// occupancy, so they do not need the row lock.
func (r *TableRepo) UpdateStatus(ctx context.Context, tableID uint64, status model.TableStatus) error {
	_, err := r.db.ExecContext(ctx, `UPDATE tables SET status = ? WHERE id = ?`, status, tableID)
	return err
}
