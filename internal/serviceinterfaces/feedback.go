// Package serviceinterfaces defines service interfaces for dependency injection and testing.
package serviceinterfaces

import (
	"context"

	"studytrack/internal/models"
)

// CreateFeedbackRequest carries the validated payload for a new feedback item.
// Author identity fields are resolved server-side from the submitting user.
type CreateFeedbackRequest struct {
	Text       string
	Category   models.FeedbackCategory
	Rating     *int
	Suggestion *string
}

// FeedbackListPage is one page of the flat feedback listing
type FeedbackListPage struct {
	Items    []*models.FeedbackItem
	Total    int
	Page     int
	PageSize int
}

// FeedbackServiceInterface defines operations for the feedback subsystem.
// Viewer-dependent reads take the viewer's user ID so per-viewer upvote
// state can be resolved in the same query.
type FeedbackServiceInterface interface {
	CreateFeedback(ctx context.Context, authorID int, req CreateFeedbackRequest) (*models.FeedbackItem, error)
	GetFeedbackByID(ctx context.Context, id int, viewerID *int) (*models.FeedbackItem, error)
	GetFeedbackPaginated(ctx context.Context, page, pageSize int, category string, viewerID *int) (*FeedbackListPage, error)
	GetFeedbackGrouped(ctx context.Context, viewerID *int) ([]*models.FeedbackGroup, error)
	SoftDeleteFeedback(ctx context.Context, id, requesterID int, requesterIsAdmin bool) error

	ToggleUpvote(ctx context.Context, feedbackID, voterID int) (upvoted bool, count int, err error)

	GetStats(ctx context.Context) (*models.FeedbackStats, error)

	HasUnseenFor(ctx context.Context, viewerID int) (bool, error)
	MarkAllSeenExcept(ctx context.Context, viewerID int) (int64, error)
}
