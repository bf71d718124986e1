package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"studytrack/internal/config"
	"studytrack/internal/models"
	"studytrack/internal/observability"
	"studytrack/internal/serviceinterfaces"
	"studytrack/internal/services"
	contextutils "studytrack/internal/utils"
)

// FeedbackHandler handles feedback endpoints.
type FeedbackHandler struct {
	feedbackService serviceinterfaces.FeedbackServiceInterface
	userService     services.UserServiceInterface
	config          *config.Config
	logger          *observability.Logger
}

// NewFeedbackHandler creates a FeedbackHandler.
func NewFeedbackHandler(fs serviceinterfaces.FeedbackServiceInterface, userService services.UserServiceInterface, cfg *config.Config, logger *observability.Logger) *FeedbackHandler {
	return &FeedbackHandler{
		feedbackService: fs,
		userService:     userService,
		config:          cfg,
		logger:          logger,
	}
}

// FeedbackSubmissionRequest represents a POST request body.
type FeedbackSubmissionRequest struct {
	Text       string  `json:"text"`
	Category   string  `json:"category"`
	Rating     *int    `json:"rating"`
	Suggestion *string `json:"suggestion"`
}

// validateSubmission checks field-level constraints and collects every
// failure rather than stopping at the first one.
func validateSubmission(req *FeedbackSubmissionRequest) []contextutils.FieldError {
	var fields []contextutils.FieldError

	textLen := utf8.RuneCountInString(strings.TrimSpace(req.Text))
	if textLen < config.FeedbackTextMinLength || textLen > config.FeedbackTextMaxLength {
		fields = append(fields, contextutils.FieldError{
			Field:   "text",
			Message: "text must be between 10 and 1000 characters",
		})
	}

	if !models.IsValidFeedbackCategory(req.Category) {
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

	return fields
}

// SubmitFeedback handles POST /v1/feedback.
func (h *FeedbackHandler) SubmitFeedback(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "submit_feedback")
	defer observability.FinishSpan(span, nil)

	userID, exists := GetUserIDFromSession(c)
	if !exists {
		HandleAppError(c, contextutils.ErrUnauthorized)
		return
	}
	ctx = contextutils.WithUserID(ctx, userID)

	var req FeedbackSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleAppError(c, contextutils.NewAppErrorWithCause(
			contextutils.ErrorCodeInvalidInput,
			contextutils.SeverityWarn,
			"Invalid request body",
			"",
			err,
		))
		return
	}

	if fields := validateSubmission(&req); len(fields) > 0 {
		HandleAppError(c, contextutils.NewValidationError(fields...))
		return
	}

	created, err := h.feedbackService.CreateFeedback(ctx, userID, serviceinterfaces.CreateFeedbackRequest{
		Text:       strings.TrimSpace(req.Text),
		Category:   models.FeedbackCategory(req.Category),
		Rating:     req.Rating,
		Suggestion: req.Suggestion,
	})
	if err != nil {
		h.logger.Error(ctx, "create feedback failed", err, nil)
		HandleAppError(c, err)
		return
	}

	respondSuccess(c, http.StatusCreated, gin.H{"feedback": created})
}

// ListFeedback handles GET /v1/feedback. Returns both the grouped view
// and a flat page with pagination metadata. Auth is optional; a session
// only adds per-viewer upvote state.
func (h *FeedbackHandler) ListFeedback(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "list_feedback")
	defer observability.FinishSpan(span, nil)

	viewerID := sessionViewerID(c)

	category := strings.TrimSpace(c.Query("type"))
	if category != "" && !models.IsValidFeedbackCategory(category) {
		HandleValidationError(c, "type", "type must be one of: positive, moderate, general")
		return
	}

	page, pageSize := ParsePagination(c, 1, h.config.Feedback.DefaultPageSize, h.config.Feedback.MaxPageSize)

	listPage, err := h.feedbackService.GetFeedbackPaginated(ctx, page, pageSize, category, viewerID)
	if err != nil {
		h.logger.Error(ctx, "list feedback failed", err, nil)
		HandleAppError(c, err)
		return
	}

	groups, err := h.feedbackService.GetFeedbackGrouped(ctx, viewerID)
	if err != nil {
		h.logger.Error(ctx, "group feedback failed", err, nil)
		HandleAppError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{
		"grouped":    groups,
		"items":      listPage.Items,
		"pagination": ComputePagination(listPage.Page, listPage.PageSize, listPage.Total),
	})
}

// GetFeedback handles GET /v1/feedback/:id.
func (h *FeedbackHandler) GetFeedback(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_feedback")
	defer observability.FinishSpan(span, nil)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		HandleAppError(c, contextutils.ErrInvalidFormat)
		return
	}

	feedback, err := h.feedbackService.GetFeedbackByID(ctx, id, sessionViewerID(c))
	if err != nil {
		if contextutils.IsError(err, contextutils.ErrRecordNotFound) {
			HandleAppError(c, contextutils.ErrRecordNotFound)
			return
		}
		h.logger.Error(ctx, "get feedback failed", err, nil)
		HandleAppError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{"feedback": feedback})
}

// GetStats handles GET /v1/feedback/stats.
func (h *FeedbackHandler) GetStats(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "feedback_stats")
	defer observability.FinishSpan(span, nil)

	stats, err := h.feedbackService.GetStats(ctx)
	if err != nil {
		h.logger.Error(ctx, "feedback stats failed", err, nil)
		HandleAppError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{
		"totalFeedback": stats.Total,
		"categories":    stats.Categories,
	})
}

// HasNewFeedback handles GET /v1/feedback/has-new.
func (h *FeedbackHandler) HasNewFeedback(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "has_new_feedback")
	defer observability.FinishSpan(span, nil)

	userID, exists := GetUserIDFromSession(c)
	if !exists {
		HandleAppError(c, contextutils.ErrUnauthorized)
		return
	}

	hasNew, err := h.feedbackService.HasUnseenFor(ctx, userID)
	if err != nil {
		h.logger.Error(ctx, "has new feedback check failed", err, nil)
		HandleAppError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{"hasNew": hasNew})
}

// MarkSeen handles PUT /v1/feedback/mark-seen.
func (h *FeedbackHandler) MarkSeen(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "mark_feedback_seen")
	defer observability.FinishSpan(span, nil)

	userID, exists := GetUserIDFromSession(c)
	if !exists {
		HandleAppError(c, contextutils.ErrUnauthorized)
		return
	}

	marked, err := h.feedbackService.MarkAllSeenExcept(ctx, userID)
	if err != nil {
		h.logger.Error(ctx, "mark feedback seen failed", err, nil)
		HandleAppError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{"marked": marked})
}

// ToggleUpvote handles PUT /v1/feedback/:id/upvote.
func (h *FeedbackHandler) ToggleUpvote(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "toggle_upvote")
	defer observability.FinishSpan(span, nil)

	userID, exists := GetUserIDFromSession(c)
	if !exists {
		HandleAppError(c, contextutils.ErrUnauthorized)
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		HandleAppError(c, contextutils.ErrInvalidFormat)
		return
	}

	upvoted, count, err := h.feedbackService.ToggleUpvote(ctx, id, userID)
	if err != nil {
		if contextutils.IsError(err, contextutils.ErrRecordNotFound) {
			HandleAppError(c, contextutils.ErrRecordNotFound)
			return
		}
		h.logger.Error(ctx, "toggle upvote failed", err, nil)
		HandleAppError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{
		"id":               id,
		"upvotes":          count,
		"hasViewerUpvoted": upvoted,
	})
}

// DeleteFeedback handles DELETE /v1/feedback/:id.
func (h *FeedbackHandler) DeleteFeedback(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "delete_feedback")
	defer observability.FinishSpan(span, nil)

	userID, exists := GetUserIDFromSession(c)
	if !exists {
		HandleAppError(c, contextutils.ErrUnauthorized)
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		HandleAppError(c, contextutils.ErrInvalidFormat)
		return
	}

	isAdmin, err := h.userService.IsAdmin(ctx, userID)
	if err != nil {
		h.logger.Error(ctx, "admin check failed", err, nil)
		HandleAppError(c, err)
		return
	}

	if err := h.feedbackService.SoftDeleteFeedback(ctx, id, userID, isAdmin); err != nil {
		if contextutils.IsError(err, contextutils.ErrRecordNotFound) {
			HandleAppError(c, contextutils.ErrRecordNotFound)
			return
		}
		if contextutils.IsError(err, contextutils.ErrForbidden) {
			HandleAppError(c, contextutils.NewAppError(
				contextutils.ErrorCodeForbidden,
				contextutils.SeverityWarn,
				"Only the author or an admin may delete feedback",
				"",
			))
			return
		}
		h.logger.Error(ctx, "delete feedback failed", err, nil)
		HandleAppError(c, err)
		return
	}

	respondMessage(c, "Feedback deleted")
}
