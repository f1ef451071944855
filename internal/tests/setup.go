package tests

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nexthire/server/internal/db"
)

// RunMigrations applies the embedded goose migrations.
func RunMigrations(database *sql.DB) error {
	return db.Migrate(database)
}

// TruncateTables empties every application table for a clean test state.
func TruncateTables(ctx context.Context, database *sql.DB) error {
	_, err := database.ExecContext(ctx, `TRUNCATE TABLE
		hr_notes, hr_status,
		interview_records, interview_reports, interview_turns, interview_sessions,
		resume_analyses, resumes,
		otps, accounts
		RESTART IDENTITY CASCADE`)
	if err != nil {
		return fmt.Errorf("truncate tables: %w", err)
	}
	return nil
}
