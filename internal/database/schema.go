package database

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
)

//go:embed schema.sql
var schemaSQL string

// Schema returns the embedded DDL.  Repository tests cross-check their
// query column lists against it so a query and the bootstrap schema cannot
// drift apart unnoticed.
func Schema() string { return schemaSQL }

// EnsureSchema applies the embedded DDL.  Every statement is written with
// IF NOT EXISTS, so running it on an already provisioned database is a
// no-op and a fresh environment comes up without a migration step.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" || isComment(stmt) {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// isComment reports whether the statement consists only of comment lines.
func isComment(stmt string) bool {
	for _, line := range strings.Split(stmt, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "--") {
			return false
		}
	}
	return true
}
