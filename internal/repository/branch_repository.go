package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// BranchRepo provides read access to branches.  Branch data (operating
// hours, status) is maintained by the external branch CRUD and treated as
// read-only input by the engine.
type BranchRepo struct {
	db *sql.DB
}

// NewBranchRepo returns a new BranchRepo bound to the given database.
func NewBranchRepo(db *sql.DB) *BranchRepo { return &BranchRepo{db: db} }

// branchByIDQuery scans opening_hour and closing_hour into plain ints, so
// the columns must stay integer typed in the schema.
const branchByIDQuery = `SELECT id, name, phone, opening_hour, closing_hour, status, created_at, updated_at
	FROM branches WHERE id = ?`

// ByID fetches a branch by primary key.  It returns ErrBranchNotFound when
// no row exists.
func (r *BranchRepo) ByID(ctx context.Context, id uint64) (*model.Branch, error) {
	var b model.Branch
	err := r.db.QueryRowContext(ctx, branchByIDQuery, id).Scan(
		&b.ID, &b.Name, &b.Phone, &b.OpeningHour, &b.ClosingHour, &b.Status, &b.CreatedAt, &b.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBranchNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}
