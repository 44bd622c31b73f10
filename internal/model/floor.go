package model

import "time"

// Floor groups tables inside a branch.  A branch owns many floors.
type Floor struct {
	ID        uint64    `json:"id"`
	BranchID  uint64    `json:"branch_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
