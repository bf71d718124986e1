// Package client provides an HTTP client for the feedback API together with
// a reducer-style state machine that mirrors server state for presentation.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	contextutils "studytrack/internal/utils"
)

// FeedbackItem is the client-side view of one feedback item.
type FeedbackItem struct {
	ID                 int       `json:"id"`
	AuthorID           int       `json:"authorId"`
	AuthorName         string    `json:"authorName"`
	AuthorProfileImage *string   `json:"authorProfileImage"`
	IsVerifiedAuthor   bool      `json:"isVerifiedAuthor"`
	Text               string    `json:"text"`
	Category           string    `json:"category"`
	Rating             *int      `json:"rating"`
	Suggestion         *string   `json:"suggestion"`
	IsActive           bool      `json:"isActive"`
	IsSeen             bool      `json:"isSeen"`
	CreatedAt          time.Time `json:"createdAt"`
	Upvotes            int       `json:"upvotes"`
	HasViewerUpvoted   bool      `json:"hasViewerUpvoted"`
}

// FeedbackGroup is one category bucket of the grouped listing.
type FeedbackGroup struct {
	Category string         `json:"category"`
	Items    []FeedbackItem `json:"items"`
}

// PaginationMeta describes the flat page of the listing.
type PaginationMeta struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	TotalCount  int  `json:"totalCount"`
	HasNext     bool `json:"hasNext"`
	HasPrev     bool `json:"hasPrev"`
}

// FeedbackPage is the full listing response: grouped view plus flat page.
type FeedbackPage struct {
	Grouped    []FeedbackGroup `json:"grouped"`
	Items      []FeedbackItem  `json:"items"`
	Pagination PaginationMeta  `json:"pagination"`
}

// CategoryStats aggregates one category.
type CategoryStats struct {
	Category      string   `json:"category"`
	Count         int      `json:"count"`
	AverageRating *float64 `json:"averageRating"`
}

// FeedbackStats is the stats payload.
type FeedbackStats struct {
	TotalFeedback int             `json:"totalFeedback"`
	Categories    []CategoryStats `json:"categories"`
}

// UpvoteResult is the authoritative state after a toggle.
type UpvoteResult struct {
	ID               int  `json:"id"`
	Upvotes          int  `json:"upvotes"`
	HasViewerUpvoted bool `json:"hasViewerUpvoted"`
}

// FeedbackDraft is the payload for a new submission.
type FeedbackDraft struct {
	Text       string  `json:"text"`
	Category   string  `json:"category"`
	Rating     *int    `json:"rating,omitempty"`
	Suggestion *string `json:"suggestion,omitempty"`
}

// FieldError is a single field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError is a non-2xx response decoded from the error envelope.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Fields     []FieldError
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

// Client talks to the feedback API. It keeps the session cookie across
// requests, so one Client represents one logged-in user (or an anonymous
// visitor until Login/Signup is called).
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client for the given base URL.
func NewClient(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to create cookie jar")
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Jar:       jar,
		},
	}, nil
}

// NewClientWithHTTPClient creates a Client using the supplied http.Client.
// The caller is responsible for configuring a cookie jar if session state
// is needed.
func NewClientWithHTTPClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return contextutils.WrapError(err, "failed to encode request body")
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return contextutils.WrapError(err, "failed to build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return contextutils.WrapError(err, "request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return contextutils.WrapError(err, "failed to read response body")
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var envelope struct {
			Code    string       `json:"code"`
			Message string       `json:"message"`
			Errors  []FieldError `json:"errors"`
		}
		if err := json.Unmarshal(data, &envelope); err == nil {
			apiErr.Code = envelope.Code
			apiErr.Message = envelope.Message
			apiErr.Fields = envelope.Errors
		}
		return apiErr
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return contextutils.WrapError(err, "failed to decode response")
		}
	}
	return nil
}

// Login authenticates and stores the session cookie for later calls.
func (c *Client) Login(ctx context.Context, username, password string) error {
	return c.do(ctx, http.MethodPost, "/v1/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, nil)
}

// Signup creates an account and stores the session cookie for later calls.
func (c *Client) Signup(ctx context.Context, username, password string) error {
	return c.do(ctx, http.MethodPost, "/v1/auth/signup", map[string]string{
		"username": username,
		"password": password,
	}, nil)
}

// Logout clears the server-side session.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/v1/auth/logout", nil, nil)
}

// SubmitFeedback creates a new feedback item.
func (c *Client) SubmitFeedback(ctx context.Context, draft FeedbackDraft) (*FeedbackItem, error) {
	var response struct {
		Feedback FeedbackItem `json:"feedback"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/feedback", draft, &response); err != nil {
		return nil, err
	}
	return &response.Feedback, nil
}

// ListFeedback fetches one page of the listing. Category may be empty for
// all categories.
func (c *Client) ListFeedback(ctx context.Context, page, limit int, category string) (*FeedbackPage, error) {
	path := "/v1/feedback?page=" + strconv.Itoa(page) + "&limit=" + strconv.Itoa(limit)
	if category != "" {
		path += "&type=" + category
	}
	var response FeedbackPage
	if err := c.do(ctx, http.MethodGet, path, nil, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// GetStats fetches the per-category aggregates.
func (c *Client) GetStats(ctx context.Context) (*FeedbackStats, error) {
	var response FeedbackStats
	if err := c.do(ctx, http.MethodGet, "/v1/feedback/stats", nil, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// HasNew reports whether unseen feedback from other authors exists.
func (c *Client) HasNew(ctx context.Context) (bool, error) {
	var response struct {
		HasNew bool `json:"hasNew"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/feedback/has-new", nil, &response); err != nil {
		return false, err
	}
	return response.HasNew, nil
}

// MarkSeen marks all unseen items from other authors as seen and returns
// the number of items mutated.
func (c *Client) MarkSeen(ctx context.Context) (int, error) {
	var response struct {
		Marked int `json:"marked"`
	}
	if err := c.do(ctx, http.MethodPut, "/v1/feedback/mark-seen", nil, &response); err != nil {
		return 0, err
	}
	return response.Marked, nil
}

// ToggleUpvote flips the viewer's upvote on an item and returns the
// authoritative state.
func (c *Client) ToggleUpvote(ctx context.Context, id int) (*UpvoteResult, error) {
	var response UpvoteResult
	if err := c.do(ctx, http.MethodPut, "/v1/feedback/"+strconv.Itoa(id)+"/upvote", nil, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// DeleteFeedback soft-deletes an item.
func (c *Client) DeleteFeedback(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, "/v1/feedback/"+strconv.Itoa(id), nil, nil)
}
