package services

import (
	"context"
	"testing"

	"studytrack/internal/config"
	"studytrack/internal/observability"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCleanupService(t *testing.T) {
	// Use nil database for testing tracer functionality
	service := NewCleanupServiceWithLogger(nil, observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false}))
	assert.NotNil(t, service)
	assert.Nil(t, service.db)
	assert.NotNil(t, service.logger, "CleanupService should have a logger")
}

func TestCleanupService_GlobalTracer(t *testing.T) {
	service := NewCleanupServiceWithLogger(nil, observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false}))

	assert.NotNil(t, service.logger, "CleanupService should have a logger")

	ctx := context.Background()
	ctx, span := observability.TraceCleanupFunction(ctx, "test_function")
	assert.NotNil(t, span, "Global tracer should create valid spans")
	span.End()

	err := observability.TraceFunctionWithErrorHandling(ctx, "cleanup", "test_error_function", func() error {
		return assert.AnError
	})
	assert.Error(t, err)
	assert.Equal(t, assert.AnError, err)
}

func TestCleanupOrphanedUpvotes_NoOrphans(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		mock.ExpectClose()
		require.NoError(t, db.Close())
		require.NoError(t, mock.ExpectationsWereMet())
	}()

	logger := observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
	service := NewCleanupServiceWithLogger(db, logger)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\)\\s+FROM feedback_upvotes fu").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	err = service.CleanupOrphanedUpvotes(context.Background())
	require.NoError(t, err)
}

func TestCleanupOrphanedUpvotes_WithOrphans(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		mock.ExpectClose()
		require.NoError(t, db.Close())
		require.NoError(t, mock.ExpectationsWereMet())
	}()

	logger := observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
	service := NewCleanupServiceWithLogger(db, logger)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\)\\s+FROM feedback_upvotes fu").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectExec("DELETE FROM feedback_upvotes").
		WillReturnResult(sqlmock.NewResult(0, 3))

	err = service.CleanupOrphanedUpvotes(context.Background())
	require.NoError(t, err)
}

func TestCleanupOrphanedUpvotes_NoDatabase(t *testing.T) {
	logger := observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
	service := NewCleanupServiceWithLogger(nil, logger)

	err := service.CleanupOrphanedUpvotes(context.Background())
	require.EqualError(t, err, "database connection not available")
}

func TestPurgeSoftDeletedFeedback_NothingToPurge(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		mock.ExpectClose()
		require.NoError(t, db.Close())
		require.NoError(t, mock.ExpectationsWereMet())
	}()

	logger := observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
	service := NewCleanupServiceWithLogger(db, logger)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\)\\s+FROM feedback_items").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	err = service.PurgeSoftDeletedFeedback(context.Background())
	require.NoError(t, err)
}

func TestPurgeSoftDeletedFeedback_PurgesExpired(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		mock.ExpectClose()
		require.NoError(t, db.Close())
		require.NoError(t, mock.ExpectationsWereMet())
	}()

	logger := observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
	service := NewCleanupServiceWithLogger(db, logger)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\)\\s+FROM feedback_items").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectExec("DELETE FROM feedback_items").
		WillReturnResult(sqlmock.NewResult(0, 2))

	err = service.PurgeSoftDeletedFeedback(context.Background())
	require.NoError(t, err)
}

func TestCleanupService_RunFullCleanup(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		mock.ExpectClose()
		require.NoError(t, db.Close())
		require.NoError(t, mock.ExpectationsWereMet())
	}()

	logger := observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
	service := NewCleanupServiceWithLogger(db, logger)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\)\\s+FROM feedback_upvotes fu").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\)\\s+FROM feedback_items").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	err = service.RunFullCleanup(context.Background())
	require.NoError(t, err)
}

func TestCleanupService_RunFullCleanup_NoDatabase(t *testing.T) {
	logger := observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
	service := NewCleanupServiceWithLogger(nil, logger)

	err := service.RunFullCleanup(context.Background())
	require.EqualError(t, err, "database connection not available")
}

func TestCleanupService_GetCleanupStats(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		mock.ExpectClose()
		require.NoError(t, db.Close())
		require.NoError(t, mock.ExpectationsWereMet())
	}()

	logger := observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
	service := NewCleanupServiceWithLogger(db, logger)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\)\\s+FROM feedback_items").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\)\\s+FROM feedback_upvotes fu").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	stats, err := service.GetCleanupStats(context.Background())
	require.NoError(t, err)
	require.Equal(t, map[string]int{
		"purgeable_feedback": 4,
		"orphaned_upvotes":   2,
	}, stats)
}

func TestCleanupService_GetCleanupStats_NoDatabase(t *testing.T) {
	logger := observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
	service := NewCleanupServiceWithLogger(nil, logger)

	stats, err := service.GetCleanupStats(context.Background())
	require.Nil(t, stats)
	require.EqualError(t, err, "database connection not available")
}
