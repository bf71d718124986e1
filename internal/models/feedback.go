package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// FeedbackCategory classifies a feedback item
type FeedbackCategory string

const (
	// FeedbackCategoryPositive is praise and success stories
	FeedbackCategoryPositive FeedbackCategory = "positive"
	// FeedbackCategoryModerate is mixed or critical feedback
	FeedbackCategoryModerate FeedbackCategory = "moderate"
	// FeedbackCategoryGeneral is everything else
	FeedbackCategoryGeneral FeedbackCategory = "general"
)

// FeedbackCategories returns all categories in display order
func FeedbackCategories() []FeedbackCategory {
	return []FeedbackCategory{
		FeedbackCategoryPositive,
		FeedbackCategoryModerate,
		FeedbackCategoryGeneral,
	}
}

// IsValidFeedbackCategory reports whether s names a known category
func IsValidFeedbackCategory(s string) bool {
	switch FeedbackCategory(s) {
	case FeedbackCategoryPositive, FeedbackCategoryModerate, FeedbackCategoryGeneral:
		return true
	}
	return false
}

// FeedbackItem represents a single piece of user feedback.
// Author identity fields are snapshotted at submission time so later
// profile changes do not rewrite feedback history.
type FeedbackItem struct {
	ID                 int              `db:"id"`
	AuthorID           int              `db:"author_id"`
	AuthorName         string           `db:"author_name"`
	AuthorProfileImage sql.NullString   `db:"author_profile_image"`
	IsVerifiedAuthor   bool             `db:"is_verified_author"`
	Text               string           `db:"text"`
	Category           FeedbackCategory `db:"category"`
	Rating             sql.NullInt32    `db:"rating"`
	Suggestion         sql.NullString   `db:"suggestion"`
	IsActive           bool             `db:"is_active"`
	IsSeen             bool             `db:"is_seen"`
	CreatedAt          time.Time        `db:"created_at"`
	UpdatedAt          time.Time        `db:"updated_at"`

	// Derived per query, not stored on the row
	Upvotes          int  `db:"-"`
	HasViewerUpvoted bool `db:"-"`
}

// MarshalJSON renders the client-facing camelCase shape
func (f FeedbackItem) MarshalJSON() (result0 []byte, err error) {
	return json.Marshal(&struct {
		ID                 int        `json:"id"`
		AuthorID           int        `json:"authorId"`
		AuthorName         string     `json:"authorName"`
		AuthorProfileImage *string    `json:"authorProfileImage"`
		IsVerifiedAuthor   bool       `json:"isVerifiedAuthor"`
		Text               string     `json:"text"`
		Category           string     `json:"category"`
		Rating             *int32     `json:"rating"`
		Suggestion         *string    `json:"suggestion"`
		IsActive           bool       `json:"isActive"`
		IsSeen             bool       `json:"isSeen"`
		CreatedAt          time.Time  `json:"createdAt"`
		Upvotes            int        `json:"upvotes"`
		HasViewerUpvoted   bool       `json:"hasViewerUpvoted"`
	}{
		ID:                 f.ID,
		AuthorID:           f.AuthorID,
		AuthorName:         f.AuthorName,
		AuthorProfileImage: nullStringToPointer(f.AuthorProfileImage),
		IsVerifiedAuthor:   f.IsVerifiedAuthor,
		Text:               f.Text,
		Category:           string(f.Category),
		Rating:             nullInt32ToPointer(f.Rating),
		Suggestion:         nullStringToPointer(f.Suggestion),
		IsActive:           f.IsActive,
		IsSeen:             f.IsSeen,
		CreatedAt:          f.CreatedAt,
		Upvotes:            f.Upvotes,
		HasViewerUpvoted:   f.HasViewerUpvoted,
	})
}

// FeedbackUpvote represents one voter's upvote on a feedback item
type FeedbackUpvote struct {
	ID         int       `json:"id" db:"id"`
	FeedbackID int       `json:"feedbackId" db:"feedback_id"`
	VoterID    int       `json:"voterId" db:"voter_id"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}

// FeedbackGroup is one category bucket of the grouped listing
type FeedbackGroup struct {
	Category FeedbackCategory `json:"category"`
	Items    []*FeedbackItem  `json:"items"`
}

// CategoryStats aggregates one category for the stats endpoint.
// AverageRating is null when no item in the category carries a rating.
type CategoryStats struct {
	Category      FeedbackCategory `db:"category"`
	Count         int              `db:"count"`
	AverageRating sql.NullFloat64  `db:"average_rating"`
}

// MarshalJSON renders the client-facing camelCase shape
func (s CategoryStats) MarshalJSON() (result0 []byte, err error) {
	return json.Marshal(&struct {
		Category      string   `json:"category"`
		Count         int      `json:"count"`
		AverageRating *float64 `json:"averageRating"`
	}{
		Category:      string(s.Category),
		Count:         s.Count,
		AverageRating: nullFloat64ToPointer(s.AverageRating),
	})
}

// FeedbackStats is the full stats payload across categories
type FeedbackStats struct {
	Total      int              `json:"total"`
	Categories []*CategoryStats `json:"categories"`
}
