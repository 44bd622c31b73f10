// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// booking and lifecycle services to distinguish between different failure
// scenarios without inspecting SQL driver errors.
package repository

import "errors"

// ErrBranchNotFound is returned when the requested branch does not exist.
var ErrBranchNotFound = errors.New("branch not found")

// ErrTableNotFound is returned when the requested table does not exist.
var ErrTableNotFound = errors.New("table not found")

// ErrReservationNotFound is returned when the requested reservation does
// not exist.
var ErrReservationNotFound = errors.New("reservation not found")
