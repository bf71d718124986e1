package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"studytrack/internal/observability"
)

// softDeleteRetention is how long soft-deleted feedback is kept before it
// becomes eligible for purging.
const softDeleteRetention = 30 * 24 * time.Hour

// CleanupService handles database maintenance and cleanup tasks
type CleanupService struct {
	db     *sql.DB
	logger *observability.Logger
}

// NewCleanupServiceWithLogger creates a new cleanup service with logger
func NewCleanupServiceWithLogger(db *sql.DB, logger *observability.Logger) *CleanupService {
	return &CleanupService{
		db:     db,
		logger: logger,
	}
}

// PurgeSoftDeletedFeedback permanently removes feedback items that were
// soft-deleted longer than the retention window ago. Upvotes cascade.
func (c *CleanupService) PurgeSoftDeletedFeedback(ctx context.Context) (err error) {
	ctx, span := observability.TraceCleanupFunction(ctx, "purge_soft_deleted_feedback")
	defer func() {
		if err != nil {
			span.RecordError(err, trace.WithStackTrace(true))
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if c.db == nil {
		return errors.New("database connection not available")
	}

	cutoff := time.Now().Add(-softDeleteRetention)

	var count int
	err = c.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM feedback_items
		WHERE is_active = FALSE AND updated_at < $1
	`, cutoff).Scan(&count)
	if err != nil {
		span.SetAttributes(attribute.String("error", err.Error()))
		return err
	}

	span.SetAttributes(attribute.Int("cleanup.purgeable_feedback_count", count))

	if count == 0 {
		c.logger.Info(ctx, "No soft-deleted feedback eligible for purging", map[string]interface{}{})
		span.SetAttributes(attribute.String("cleanup.result", "nothing_to_purge"))
		return nil
	}

	c.logger.Info(ctx, "Found soft-deleted feedback to purge", map[string]interface{}{"count": count})

	result, err := c.db.ExecContext(ctx, `
		DELETE FROM feedback_items
		WHERE is_active = FALSE AND updated_at < $1
	`, cutoff)
	if err != nil {
		span.SetAttributes(attribute.String("error", err.Error()))
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		span.SetAttributes(attribute.String("error", err.Error()))
		return err
	}

	span.SetAttributes(
		attribute.Int64("cleanup.rows_affected", rowsAffected),
		attribute.String("cleanup.result", "success"),
	)

	c.logger.Info(ctx, "Purged soft-deleted feedback", map[string]interface{}{"rows_affected": rowsAffected})
	return nil
}

// CleanupOrphanedUpvotes removes upvotes whose feedback item has been
// soft-deleted. Upvotes on purged items are removed by the cascade; this
// clears votes on items that are hidden but still within retention.
func (c *CleanupService) CleanupOrphanedUpvotes(ctx context.Context) (err error) {
	ctx, span := observability.TraceCleanupFunction(ctx, "cleanup_orphaned_upvotes")
	defer func() {
		if err != nil {
			span.RecordError(err, trace.WithStackTrace(true))
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if c.db == nil {
		return errors.New("database connection not available")
	}

	var count int
	err = c.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM feedback_upvotes fu
		JOIN feedback_items fi ON fu.feedback_id = fi.id
		WHERE fi.is_active = FALSE
	`).Scan(&count)
	if err != nil {
		span.SetAttributes(attribute.String("error", err.Error()))
		return err
	}

	span.SetAttributes(attribute.Int("cleanup.orphaned_upvotes_count", count))

	if count == 0 {
		c.logger.Info(ctx, "No orphaned upvotes found to cleanup", map[string]interface{}{})
		span.SetAttributes(attribute.String("cleanup.result", "no_orphaned_upvotes"))
		return nil
	}

	c.logger.Info(ctx, "Found orphaned upvotes to cleanup", map[string]interface{}{"count": count})

	result, err := c.db.ExecContext(ctx, `
		DELETE FROM feedback_upvotes
		WHERE feedback_id IN (SELECT id FROM feedback_items WHERE is_active = FALSE)
	`)
	if err != nil {
		span.SetAttributes(attribute.String("error", err.Error()))
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		span.SetAttributes(attribute.String("error", err.Error()))
		return err
	}

	span.SetAttributes(
		attribute.Int64("cleanup.rows_affected", rowsAffected),
		attribute.String("cleanup.result", "success"),
	)

	c.logger.Info(ctx, "Successfully cleaned up orphaned upvotes", map[string]interface{}{"rows_affected": rowsAffected})
	return nil
}

// RunFullCleanup performs all cleanup operations
func (c *CleanupService) RunFullCleanup(ctx context.Context) (err error) {
	ctx, span := observability.TraceCleanupFunction(ctx, "run_full_cleanup")
	defer func() {
		if err != nil {
			span.RecordError(err, trace.WithStackTrace(true))
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	span.SetAttributes(attribute.String("cleanup.start_time", time.Now().Format(time.RFC3339)))

	c.logger.Info(ctx, "Starting database cleanup", map[string]interface{}{"start_time": time.Now().Format(time.RFC3339)})

	if err = c.CleanupOrphanedUpvotes(ctx); err != nil {
		c.logger.Error(ctx, "Failed to cleanup orphaned upvotes", err, map[string]interface{}{})
		span.SetAttributes(attribute.String("error", err.Error()))
		return err
	}

	if err = c.PurgeSoftDeletedFeedback(ctx); err != nil {
		c.logger.Error(ctx, "Failed to purge soft-deleted feedback", err, map[string]interface{}{})
		span.SetAttributes(attribute.String("error", err.Error()))
		return err
	}

	span.SetAttributes(
		attribute.String("cleanup.end_time", time.Now().Format(time.RFC3339)),
		attribute.String("cleanup.result", "success"),
	)

	c.logger.Info(ctx, "Database cleanup completed successfully", map[string]interface{}{"end_time": time.Now().Format(time.RFC3339)})
	return nil
}

// GetCleanupStats returns statistics about cleanup operations
func (c *CleanupService) GetCleanupStats(ctx context.Context) (result0 map[string]int, err error) {
	ctx, span := observability.TraceCleanupFunction(ctx, "get_cleanup_stats")
	defer func() {
		if err != nil {
			span.RecordError(err, trace.WithStackTrace(true))
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if c.db == nil {
		return nil, errors.New("database connection not available")
	}

	stats := make(map[string]int)
	cutoff := time.Now().Add(-softDeleteRetention)

	var purgeableCount int
	err = c.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM feedback_items
		WHERE is_active = FALSE AND updated_at < $1
	`, cutoff).Scan(&purgeableCount)
	if err != nil {
		span.SetAttributes(attribute.String("error", err.Error()))
		return nil, err
	}
	stats["purgeable_feedback"] = purgeableCount

	var orphanedCount int
	err = c.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM feedback_upvotes fu
		JOIN feedback_items fi ON fu.feedback_id = fi.id
		WHERE fi.is_active = FALSE
	`).Scan(&orphanedCount)
	if err != nil {
		span.SetAttributes(attribute.String("error", err.Error()))
		return nil, err
	}
	stats["orphaned_upvotes"] = orphanedCount

	span.SetAttributes(
		attribute.Int("cleanup.stats.purgeable_feedback", purgeableCount),
		attribute.Int("cleanup.stats.orphaned_upvotes", orphanedCount),
	)

	return stats, nil
}
