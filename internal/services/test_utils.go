//go:build integration

package services

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"studytrack/internal/config"
	"studytrack/internal/database"
	"studytrack/internal/observability"

	"github.com/stretchr/testify/require"
)

// SharedTestDBSetup provides a clean, isolated database for each integration test
func SharedTestDBSetup(t *testing.T) *sql.DB {
	observabilityLogger := observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
	dbManager := database.NewManager(observabilityLogger)

	// Require TEST_DATABASE_URL environment variable to be set
	databaseURL := os.Getenv("TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Fatal("TEST_DATABASE_URL environment variable must be set for integration tests")
	}

	db, err := dbManager.InitDB(databaseURL)
	require.NoError(t, err)

	CleanupTestDatabase(db, t)

	return db
}

// cleanupDatabase performs the core database cleanup operations
func cleanupDatabase(db *sql.DB, logger *observability.Logger) {
	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		if logger != nil {
			logger.Error(ctx, "Failed to begin cleanup transaction", err)
		}
		return
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	cleanupQueries := []string{
		"TRUNCATE TABLE feedback_upvotes CASCADE",
		"TRUNCATE TABLE feedback_items CASCADE",
		"TRUNCATE TABLE users CASCADE",
	}

	for _, query := range cleanupQueries {
		_, err := tx.ExecContext(ctx, query)
		if err != nil {
			if logger != nil {
				logger.Warn(ctx, "Could not execute cleanup query", map[string]interface{}{
					"query": query,
				})
			}
		}
	}

	// Reset sequences
	sequenceQueries := []string{
		"ALTER SEQUENCE users_id_seq RESTART WITH 1",
		"ALTER SEQUENCE feedback_items_id_seq RESTART WITH 1",
		"ALTER SEQUENCE feedback_upvotes_id_seq RESTART WITH 1",
	}

	for _, query := range sequenceQueries {
		_, err := tx.ExecContext(ctx, query)
		if err != nil {
			if logger != nil {
				logger.Warn(ctx, "Could not reset sequence", map[string]interface{}{
					"query": query,
				})
			}
		}
	}

	err = tx.Commit()
	if err != nil {
		if logger != nil {
			logger.Error(ctx, "Failed to commit cleanup transaction", err)
		}
	}
}

// CleanupTestDatabase cleans up the database for integration tests
func CleanupTestDatabase(db *sql.DB, t *testing.T) {
	cleanupDatabase(db, nil)
}
