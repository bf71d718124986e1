// Package commands provides CLI commands for the admin tool
package commands

import (
	"context"
	"database/sql"
	"fmt"

	"studytrack/internal/observability"
	"studytrack/internal/services"
	contextutils "studytrack/internal/utils"

	"github.com/spf13/cobra"
)

// FeedbackCommands returns the feedback management commands
func FeedbackCommands(logger *observability.Logger, db *sql.DB) *cobra.Command {
	feedbackCmd := &cobra.Command{
		Use:   "feedback",
		Short: "Feedback management commands",
		Long: `Feedback management commands for the studytrack backend.

Available commands:
  stats   - Show feedback counts and average ratings per category
  hide    - Soft-delete a feedback item by ID`,
	}

	// Add subcommands
	feedbackCmd.AddCommand(feedbackStatsCmd(logger, db))
	feedbackCmd.AddCommand(feedbackHideCmd(logger, db))

	return feedbackCmd
}

// feedbackStatsCmd returns the stats command for feedback
func feedbackStatsCmd(logger *observability.Logger, db *sql.DB) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show feedback counts and average ratings per category",
		Long:  `Show the total number of active feedback items and a per-category breakdown with average ratings.`,
		RunE:  runFeedbackStats(logger, db),
	}
}

// feedbackHideCmd returns the hide command for feedback
func feedbackHideCmd(logger *observability.Logger, db *sql.DB) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hide [id]",
		Short: "Soft-delete a feedback item by ID",
		Long: `Soft-delete a feedback item so it no longer appears in listings.

The item stays in the database until the retention window expires and
'adm db cleanup' purges it.`,
		Args: cobra.ExactArgs(1),
		RunE: runFeedbackHide(logger, db),
	}

	return cmd
}

// runFeedbackStats executes the feedback stats command
func runFeedbackStats(logger *observability.Logger, db *sql.DB) func(*cobra.Command, []string) error {
	return func(_ *cobra.Command, _ []string) error {
		ctx := context.Background()
		feedbackService := services.NewFeedbackService(db, logger)

		stats, err := feedbackService.GetStats(ctx)
		if err != nil {
			logger.Error(ctx, "Failed to get feedback stats", err, map[string]interface{}{})
			return contextutils.WrapError(err, "failed to get feedback stats")
		}

		fmt.Printf("Total active feedback: %d\n\n", stats.Total)
		fmt.Printf("%-12s %-8s %-10s\n", "Category", "Count", "Avg Rating")
		for _, cat := range stats.Categories {
			avg := "N/A"
			if cat.AverageRating.Valid {
				avg = fmt.Sprintf("%.2f", cat.AverageRating.Float64)
			}
			fmt.Printf("%-12s %-8d %-10s\n", cat.Category, cat.Count, avg)
		}

		logger.Info(ctx, "Feedback stats shown", map[string]interface{}{"total": stats.Total})
		return nil
	}
}

// runFeedbackHide executes the feedback hide command
func runFeedbackHide(logger *observability.Logger, db *sql.DB) func(*cobra.Command, []string) error {
	return func(_ *cobra.Command, args []string) error {
		ctx := context.Background()

		var id int
		if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
			return contextutils.ErrorWithContextf("invalid feedback ID %q", args[0])
		}

		result, err := db.ExecContext(ctx, "UPDATE feedback_items SET is_active = FALSE, updated_at = NOW() WHERE id = $1 AND is_active = TRUE", id)
		if err != nil {
			logger.Error(ctx, "Failed to hide feedback", err, map[string]interface{}{"feedback_id": id})
			return contextutils.WrapError(err, "failed to hide feedback")
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return contextutils.WrapError(err, "failed to get rows affected")
		}
		if rowsAffected == 0 {
			return contextutils.ErrorWithContextf("feedback item %d not found or already hidden", id)
		}

		fmt.Printf("Feedback item %d hidden\n", id)
		logger.Info(ctx, "Feedback hidden", map[string]interface{}{"feedback_id": id})
		return nil
	}
}
