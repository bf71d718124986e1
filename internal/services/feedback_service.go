package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"unicode/utf8"

	"studytrack/internal/config"
	"studytrack/internal/models"
	"studytrack/internal/observability"
	"studytrack/internal/serviceinterfaces"
	contextutils "studytrack/internal/utils"
)

// FeedbackService implements FeedbackServiceInterface for managing feedback
// items, upvotes, grouping, stats, and the unseen-feedback signal.
type FeedbackService struct {
	db     *sql.DB
	logger *observability.Logger
}

var _ serviceinterfaces.FeedbackServiceInterface = (*FeedbackService)(nil)

// NewFeedbackService creates a new FeedbackService instance.
func NewFeedbackService(db *sql.DB, logger *observability.Logger) *FeedbackService {
	if db == nil {
		panic("NewFeedbackService: db is nil")
	}
	if logger == nil {
		panic("NewFeedbackService: logger is nil")
	}
	return &FeedbackService{db: db, logger: logger}
}

const feedbackSelectFields = `f.id, f.author_id, f.author_name, f.author_profile_image, f.is_verified_author,
	f.text, f.category, f.rating, f.suggestion, f.is_active, f.is_seen, f.created_at, f.updated_at`

func scanFeedbackItem(scanner interface{ Scan(dest ...interface{}) error }) (*models.FeedbackItem, error) {
	item := &models.FeedbackItem{}
	err := scanner.Scan(
		&item.ID, &item.AuthorID, &item.AuthorName, &item.AuthorProfileImage, &item.IsVerifiedAuthor,
		&item.Text, &item.Category, &item.Rating, &item.Suggestion, &item.IsActive, &item.IsSeen,
		&item.CreatedAt, &item.UpdatedAt, &item.Upvotes, &item.HasViewerUpvoted,
	)
	return item, err
}

func nullableViewerID(v *int) sql.NullInt32 {
	if v == nil {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: int32(*v), Valid: true}
}

// validateCreateRequest enforces the submission field constraints for
// callers that bypass the HTTP layer.
func validateCreateRequest(req *serviceinterfaces.CreateFeedbackRequest) error {
	var fields []contextutils.FieldError

	textLen := utf8.RuneCountInString(strings.TrimSpace(req.Text))
	if textLen < config.FeedbackTextMinLength || textLen > config.FeedbackTextMaxLength {
		fields = append(fields, contextutils.FieldError{
			Field:   "text",
			Message: "text must be between 10 and 1000 characters",
		})
	}

	if !models.IsValidFeedbackCategory(string(req.Category)) {
		fields = append(fields, contextutils.FieldError{
			Field:   "category",
			Message: "category must be one of: positive, moderate, general",
		})
	}

	if req.Rating != nil && (*req.Rating < config.FeedbackRatingMin || *req.Rating > config.FeedbackRatingMax) {
		fields = append(fields, contextutils.FieldError{
			Field:   "rating",
			Message: "rating must be between 1 and 5",
		})
	}

	if req.Suggestion != nil && utf8.RuneCountInString(*req.Suggestion) > config.FeedbackSuggestionMaxLength {
		fields = append(fields, contextutils.FieldError{
			Field:   "suggestion",
			Message: "suggestion must be at most 500 characters",
		})
	}

	if len(fields) > 0 {
		return contextutils.NewValidationError(fields...)
	}
	return nil
}

// CreateFeedback inserts a new feedback item, snapshotting the author's
// display fields at submission time.
func (s *FeedbackService) CreateFeedback(ctx context.Context, authorID int, req serviceinterfaces.CreateFeedbackRequest) (result0 *models.FeedbackItem, err error) {
	ctx, span := observability.TraceFeedbackFunction(ctx, "create_feedback",
		observability.AttributeUserID(authorID),
		observability.AttributeCategory(req.Category),
	)
	defer observability.FinishSpan(span, &err)

	if err = validateCreateRequest(&req); err != nil {
		return nil, err
	}

	var rating sql.NullInt32
	if req.Rating != nil {
		rating = sql.NullInt32{Int32: int32(*req.Rating), Valid: true}
	}
	var suggestion sql.NullString
	if req.Suggestion != nil && *req.Suggestion != "" {
		suggestion = sql.NullString{String: *req.Suggestion, Valid: true}
	}

	item := &models.FeedbackItem{
		AuthorID:   authorID,
		Text:       req.Text,
		Category:   req.Category,
		Rating:     rating,
		Suggestion: suggestion,
	}

	query := `
		INSERT INTO feedback_items (author_id, author_name, author_profile_image, is_verified_author,
			text, category, rating, suggestion)
		SELECT u.id, u.username, u.profile_image_url, u.is_verified, $2, $3, $4, $5
		FROM users u WHERE u.id = $1
		RETURNING id, author_name, author_profile_image, is_verified_author, is_active, is_seen, created_at, updated_at`
	err = s.db.QueryRowContext(ctx, query,
		authorID, req.Text, req.Category, rating, suggestion,
	).Scan(&item.ID, &item.AuthorName, &item.AuthorProfileImage, &item.IsVerifiedAuthor,
		&item.IsActive, &item.IsSeen, &item.CreatedAt, &item.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, contextutils.ErrRecordNotFound
	}
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to create feedback")
	}

	span.SetAttributes(observability.AttributeFeedbackID(item.ID))
	s.logger.Info(ctx, "Feedback created", map[string]interface{}{
		"feedback_id": item.ID,
		"author_id":   authorID,
		"category":    string(req.Category),
	})
	return item, nil
}

// GetFeedbackByID returns a single active feedback item with its upvote
// count and, when viewerID is set, whether the viewer has upvoted it.
func (s *FeedbackService) GetFeedbackByID(ctx context.Context, id int, viewerID *int) (result0 *models.FeedbackItem, err error) {
	ctx, span := observability.TraceFeedbackFunction(ctx, "get_feedback_by_id",
		observability.AttributeFeedbackID(id),
	)
	defer observability.FinishSpan(span, &err)

	query := fmt.Sprintf(`
		SELECT %s,
			(SELECT COUNT(*) FROM feedback_upvotes v WHERE v.feedback_id = f.id) AS upvotes,
			CASE WHEN $2::int IS NULL THEN FALSE ELSE EXISTS (
				SELECT 1 FROM feedback_upvotes v WHERE v.feedback_id = f.id AND v.voter_id = $2
			) END AS viewer_upvoted
		FROM feedback_items f
		WHERE f.id = $1 AND f.is_active = TRUE`, feedbackSelectFields)
	item, err := scanFeedbackItem(s.db.QueryRowContext(ctx, query, id, nullableViewerID(viewerID)))
	if err == sql.ErrNoRows {
		return nil, contextutils.ErrRecordNotFound
	}
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get feedback")
	}
	return item, nil
}

// GetFeedbackPaginated returns a page of active feedback items, newest
// first, optionally filtered by category.
func (s *FeedbackService) GetFeedbackPaginated(ctx context.Context, page, pageSize int, category string, viewerID *int) (result0 *serviceinterfaces.FeedbackListPage, err error) {
	ctx, span := observability.TraceFeedbackFunction(ctx, "get_feedback_paginated",
		observability.AttributePage(page),
		observability.AttributePageSize(pageSize),
		observability.AttributeTypeFilter(category),
	)
	defer observability.FinishSpan(span, &err)

	whereClause := "WHERE f.is_active = TRUE"
	args := []interface{}{}
	idx := 1
	if category != "" {
		whereClause += fmt.Sprintf(" AND f.category = $%d", idx)
		args = append(args, category)
		idx++
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM feedback_items f %s", whereClause)
	if err = s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, contextutils.WrapError(err, "failed to count feedback")
	}

	viewerArg := idx
	args = append(args, nullableViewerID(viewerID))
	idx++
	query := fmt.Sprintf(`
		SELECT %s,
			(SELECT COUNT(*) FROM feedback_upvotes v WHERE v.feedback_id = f.id) AS upvotes,
			CASE WHEN $%d::int IS NULL THEN FALSE ELSE EXISTS (
				SELECT 1 FROM feedback_upvotes v WHERE v.feedback_id = f.id AND v.voter_id = $%d
			) END AS viewer_upvoted
		FROM feedback_items f
		%s
		ORDER BY f.created_at DESC, f.id DESC
		LIMIT $%d OFFSET $%d`, feedbackSelectFields, viewerArg, viewerArg, whereClause, idx, idx+1)
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to list feedback")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn(ctx, "Failed to close rows", map[string]interface{}{"error": closeErr.Error()})
		}
	}()

	items := []*models.FeedbackItem{}
	for rows.Next() {
		item, scanErr := scanFeedbackItem(rows)
		if scanErr != nil {
			err = contextutils.WrapError(scanErr, "failed to scan feedback row")
			return nil, err
		}
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate feedback rows")
	}

	return &serviceinterfaces.FeedbackListPage{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// GetFeedbackGrouped returns all active feedback grouped by category in
// the fixed category order. Categories with no items are omitted.
func (s *FeedbackService) GetFeedbackGrouped(ctx context.Context, viewerID *int) (result0 []*models.FeedbackGroup, err error) {
	ctx, span := observability.TraceFeedbackFunction(ctx, "get_feedback_grouped")
	defer observability.FinishSpan(span, &err)

	query := fmt.Sprintf(`
		SELECT %s,
			(SELECT COUNT(*) FROM feedback_upvotes v WHERE v.feedback_id = f.id) AS upvotes,
			CASE WHEN $1::int IS NULL THEN FALSE ELSE EXISTS (
				SELECT 1 FROM feedback_upvotes v WHERE v.feedback_id = f.id AND v.voter_id = $1
			) END AS viewer_upvoted
		FROM feedback_items f
		WHERE f.is_active = TRUE
		ORDER BY f.created_at DESC, f.id DESC`, feedbackSelectFields)
	rows, err := s.db.QueryContext(ctx, query, nullableViewerID(viewerID))
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to list feedback for grouping")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn(ctx, "Failed to close rows", map[string]interface{}{"error": closeErr.Error()})
		}
	}()

	byCategory := make(map[models.FeedbackCategory][]*models.FeedbackItem)
	for rows.Next() {
		item, scanErr := scanFeedbackItem(rows)
		if scanErr != nil {
			err = contextutils.WrapError(scanErr, "failed to scan feedback row")
			return nil, err
		}
		byCategory[item.Category] = append(byCategory[item.Category], item)
	}
	if err = rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate feedback rows")
	}

	groups := []*models.FeedbackGroup{}
	for _, category := range models.FeedbackCategories() {
		if items := byCategory[category]; len(items) > 0 {
			groups = append(groups, &models.FeedbackGroup{Category: category, Items: items})
		}
	}
	return groups, nil
}

// SoftDeleteFeedback marks a feedback item inactive. Only the author or
// an admin may delete. Deleting an already-inactive item succeeds.
func (s *FeedbackService) SoftDeleteFeedback(ctx context.Context, id, requesterID int, requesterIsAdmin bool) (err error) {
	ctx, span := observability.TraceFeedbackFunction(ctx, "soft_delete_feedback",
		observability.AttributeFeedbackID(id),
		observability.AttributeUserID(requesterID),
	)
	defer observability.FinishSpan(span, &err)

	var authorID int
	err = s.db.QueryRowContext(ctx, "SELECT author_id FROM feedback_items WHERE id = $1", id).Scan(&authorID)
	if err == sql.ErrNoRows {
		return contextutils.ErrRecordNotFound
	}
	if err != nil {
		return contextutils.WrapError(err, "failed to get feedback author")
	}
	if authorID != requesterID && !requesterIsAdmin {
		return contextutils.ErrForbidden
	}

	_, err = s.db.ExecContext(ctx,
		"UPDATE feedback_items SET is_active = FALSE, updated_at = CURRENT_TIMESTAMP WHERE id = $1 AND is_active = TRUE", id)
	if err != nil {
		return contextutils.WrapError(err, "failed to delete feedback")
	}

	s.logger.Info(ctx, "Feedback soft-deleted", map[string]interface{}{
		"feedback_id":  id,
		"requester_id": requesterID,
	})
	return nil
}

// ToggleUpvote adds the voter's upvote if absent and removes it if
// present, returning the new state and count. The toggle works on
// soft-deleted items too; it never resurrects them.
func (s *FeedbackService) ToggleUpvote(ctx context.Context, feedbackID, voterID int) (upvoted bool, count int, err error) {
	ctx, span := observability.TraceFeedbackFunction(ctx, "toggle_upvote",
		observability.AttributeFeedbackID(feedbackID),
		observability.AttributeUserID(voterID),
	)
	defer observability.FinishSpan(span, &err)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, 0, contextutils.WrapError(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
				s.logger.Warn(ctx, "Failed to rollback transaction", map[string]interface{}{"error": rbErr.Error()})
			}
		}
	}()

	// Lock the item row so concurrent toggles by the same voter serialize.
	var existingID int
	err = tx.QueryRowContext(ctx, "SELECT id FROM feedback_items WHERE id = $1 FOR UPDATE", feedbackID).Scan(&existingID)
	if err == sql.ErrNoRows {
		err = contextutils.ErrRecordNotFound
		return false, 0, err
	}
	if err != nil {
		return false, 0, contextutils.WrapError(err, "failed to lock feedback")
	}

	res, err := tx.ExecContext(ctx,
		"DELETE FROM feedback_upvotes WHERE feedback_id = $1 AND voter_id = $2", feedbackID, voterID)
	if err != nil {
		return false, 0, contextutils.WrapError(err, "failed to remove upvote")
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return false, 0, contextutils.WrapError(err, "failed to get affected rows")
	}

	upvoted = removed == 0
	if upvoted {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO feedback_upvotes (feedback_id, voter_id) VALUES ($1, $2)", feedbackID, voterID)
		if err != nil {
			return false, 0, contextutils.WrapError(err, "failed to add upvote")
		}
	}

	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM feedback_upvotes WHERE feedback_id = $1", feedbackID).Scan(&count)
	if err != nil {
		return false, 0, contextutils.WrapError(err, "failed to count upvotes")
	}

	if err = tx.Commit(); err != nil {
		return false, 0, contextutils.WrapError(err, "failed to commit transaction")
	}
	return upvoted, count, nil
}

// GetStats returns per-category counts and average ratings over active
// items, plus the total active item count. Categories with no active
// items are omitted, and an average is null when no item in the category
// carries a rating.
func (s *FeedbackService) GetStats(ctx context.Context) (result0 *models.FeedbackStats, err error) {
	ctx, span := observability.TraceFeedbackFunction(ctx, "get_feedback_stats")
	defer observability.FinishSpan(span, &err)

	rows, err := s.db.QueryContext(ctx, `
		SELECT category, COUNT(*), AVG(rating)
		FROM feedback_items
		WHERE is_active = TRUE
		GROUP BY category`)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to compute feedback stats")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn(ctx, "Failed to close rows", map[string]interface{}{"error": closeErr.Error()})
		}
	}()

	byCategory := make(map[models.FeedbackCategory]*models.CategoryStats)
	total := 0
	for rows.Next() {
		cs := &models.CategoryStats{}
		if err = rows.Scan(&cs.Category, &cs.Count, &cs.AverageRating); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan stats row")
		}
		byCategory[cs.Category] = cs
		total += cs.Count
	}
	if err = rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate stats rows")
	}

	stats := &models.FeedbackStats{Total: total, Categories: []*models.CategoryStats{}}
	for _, category := range models.FeedbackCategories() {
		if cs, ok := byCategory[category]; ok {
			stats.Categories = append(stats.Categories, cs)
		}
	}
	return stats, nil
}

// HasUnseenFor reports whether any active feedback authored by someone
// other than the viewer is still unseen.
func (s *FeedbackService) HasUnseenFor(ctx context.Context, viewerID int) (result0 bool, err error) {
	ctx, span := observability.TraceFeedbackFunction(ctx, "has_unseen_feedback",
		observability.AttributeUserID(viewerID),
	)
	defer observability.FinishSpan(span, &err)

	var hasUnseen bool
	err = s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM feedback_items
			WHERE is_seen = FALSE AND is_active = TRUE AND author_id <> $1
		)`, viewerID).Scan(&hasUnseen)
	if err != nil {
		return false, contextutils.WrapError(err, "failed to check unseen feedback")
	}
	return hasUnseen, nil
}

// MarkAllSeenExcept marks every unseen feedback item not authored by the
// viewer as seen, returning the number of items updated.
func (s *FeedbackService) MarkAllSeenExcept(ctx context.Context, viewerID int) (result0 int64, err error) {
	ctx, span := observability.TraceFeedbackFunction(ctx, "mark_feedback_seen",
		observability.AttributeUserID(viewerID),
	)
	defer observability.FinishSpan(span, &err)

	res, err := s.db.ExecContext(ctx, `
		UPDATE feedback_items
		SET is_seen = TRUE, updated_at = CURRENT_TIMESTAMP
		WHERE is_seen = FALSE AND is_active = TRUE AND author_id <> $1`, viewerID)
	if err != nil {
		return 0, contextutils.WrapError(err, "failed to mark feedback seen")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, contextutils.WrapError(err, "failed to get affected rows")
	}
	return affected, nil
}
