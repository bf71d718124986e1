package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	c, err := NewClient(server.URL)
	require.NoError(t, err)
	return c
}

func listResponse(page, totalCount int, groups ...FeedbackGroup) FeedbackPage {
	totalPages := (totalCount + 19) / 20
	var items []FeedbackItem
	for _, g := range groups {
		items = append(items, g.Items...)
	}
	return FeedbackPage{
		Grouped: groups,
		Items:   items,
		Pagination: PaginationMeta{
			CurrentPage: page,
			TotalPages:  totalPages,
			TotalCount:  totalCount,
			HasNext:     page < totalPages,
			HasPrev:     page > 1,
		},
	}
}

func testItem(id int, category string) FeedbackItem {
	return FeedbackItem{
		ID:         id,
		AuthorID:   1,
		AuthorName: "alice",
		Text:       "A reasonably long piece of feedback text",
		Category:   category,
		IsActive:   true,
		CreatedAt:  time.Now(),
	}
}

func TestLoadPage_PopulatesState(t *testing.T) {
	api := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/feedback", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		_ = json.NewEncoder(w).Encode(listResponse(1, 2,
			FeedbackGroup{Category: "positive", Items: []FeedbackItem{testItem(1, "positive")}},
			FeedbackGroup{Category: "general", Items: []FeedbackItem{testItem(2, "general")}},
		))
	}))

	state := NewFeedbackState(api)
	require.NoError(t, state.LoadPage(context.Background(), 1, 20, ""))

	snapshot := state.Snapshot()
	assert.False(t, snapshot.Loading)
	assert.Empty(t, snapshot.Err)
	assert.Len(t, snapshot.ItemsByCategory["positive"], 1)
	assert.Len(t, snapshot.ItemsByCategory["general"], 1)
	assert.Equal(t, 2, snapshot.Pagination.TotalCount)
}

func TestLoadPage_FailureSetsError(t *testing.T) {
	api := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"code":    "INTERNAL_ERROR",
			"message": "something broke",
		})
	}))

	state := NewFeedbackState(api)
	err := state.LoadPage(context.Background(), 1, 20, "")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)

	snapshot := state.Snapshot()
	assert.False(t, snapshot.Loading)
	assert.Equal(t, "something broke", snapshot.Err)
}

func TestLoadPage_LastIssuedWins(t *testing.T) {
	release := make(chan struct{})
	firstArrived := make(chan struct{})

	api := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		if page == "1" {
			close(firstArrived)
			<-release
		}
		pageNum := 1
		if page == "2" {
			pageNum = 2
		}
		_ = json.NewEncoder(w).Encode(listResponse(pageNum, 40,
			FeedbackGroup{Category: "general", Items: []FeedbackItem{testItem(pageNum, "general")}},
		))
	}))

	state := NewFeedbackState(api)

	done := make(chan error, 1)
	go func() {
		done <- state.LoadPage(context.Background(), 1, 20, "")
	}()
	<-firstArrived

	// A newer load resolves while the first is still in flight.
	require.NoError(t, state.LoadPage(context.Background(), 2, 20, ""))
	close(release)
	require.NoError(t, <-done)

	// The slow first response arrived last but must not clobber page 2.
	snapshot := state.Snapshot()
	assert.Equal(t, 2, snapshot.Pagination.CurrentPage)
	require.Len(t, snapshot.ItemsByCategory["general"], 1)
	assert.Equal(t, 2, snapshot.ItemsByCategory["general"][0].ID)
}

func TestSubmit_PrependsOnConfirmation(t *testing.T) {
	api := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			var draft FeedbackDraft
			require.NoError(t, json.NewDecoder(r.Body).Decode(&draft))
			created := testItem(99, draft.Category)
			created.Text = draft.Text
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"success":  true,
				"feedback": created,
			})
			return
		}
		_ = json.NewEncoder(w).Encode(listResponse(1, 1,
			FeedbackGroup{Category: "positive", Items: []FeedbackItem{testItem(1, "positive")}},
		))
	}))

	state := NewFeedbackState(api)
	require.NoError(t, state.LoadPage(context.Background(), 1, 20, ""))

	created, err := state.Submit(context.Background(), FeedbackDraft{
		Text:     "Submitting a brand new piece of feedback here",
		Category: "positive",
	})
	require.NoError(t, err)
	assert.Equal(t, 99, created.ID)

	snapshot := state.Snapshot()
	require.Len(t, snapshot.ItemsByCategory["positive"], 2)
	assert.Equal(t, 99, snapshot.ItemsByCategory["positive"][0].ID)
	assert.False(t, snapshot.Submitting)
}

func TestSubmit_FailureLeavesListsUntouched(t *testing.T) {
	api := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"success": false,
				"code":    "VALIDATION_FAILED",
				"message": "Validation failed",
				"errors":  []FieldError{{Field: "text", Message: "too short"}},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(listResponse(1, 1,
			FeedbackGroup{Category: "general", Items: []FeedbackItem{testItem(1, "general")}},
		))
	}))

	state := NewFeedbackState(api)
	require.NoError(t, state.LoadPage(context.Background(), 1, 20, ""))

	_, err := state.Submit(context.Background(), FeedbackDraft{Text: "short", Category: "general"})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Len(t, apiErr.Fields, 1)
	assert.Equal(t, "text", apiErr.Fields[0].Field)

	snapshot := state.Snapshot()
	assert.Len(t, snapshot.ItemsByCategory["general"], 1)
	assert.Equal(t, "Validation failed", snapshot.Err)
	assert.False(t, snapshot.Submitting)
}

func TestToggleUpvote_ServerCountIsAuthoritative(t *testing.T) {
	api := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"success":          true,
				"id":               1,
				"upvotes":          7,
				"hasViewerUpvoted": true,
			})
			return
		}
		_ = json.NewEncoder(w).Encode(listResponse(1, 1,
			FeedbackGroup{Category: "general", Items: []FeedbackItem{testItem(1, "general")}},
		))
	}))

	state := NewFeedbackState(api)
	require.NoError(t, state.LoadPage(context.Background(), 1, 20, ""))
	require.NoError(t, state.ToggleUpvote(context.Background(), 1))

	snapshot := state.Snapshot()
	item := snapshot.ItemsByCategory["general"][0]
	assert.Equal(t, 7, item.Upvotes)
	assert.True(t, item.HasViewerUpvoted)
}

func TestDelete_RemovesItemAndEmptyBucket(t *testing.T) {
	api := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"success": true,
				"message": "Feedback deleted",
			})
			return
		}
		_ = json.NewEncoder(w).Encode(listResponse(1, 2,
			FeedbackGroup{Category: "general", Items: []FeedbackItem{testItem(1, "general")}},
			FeedbackGroup{Category: "positive", Items: []FeedbackItem{testItem(2, "positive"), testItem(3, "positive")}},
		))
	}))

	state := NewFeedbackState(api)
	require.NoError(t, state.LoadPage(context.Background(), 1, 20, ""))
	require.NoError(t, state.Delete(context.Background(), 1))

	snapshot := state.Snapshot()
	_, exists := snapshot.ItemsByCategory["general"]
	assert.False(t, exists, "empty buckets are dropped, not kept as empty slices")
	assert.Len(t, snapshot.ItemsByCategory["positive"], 2)
}

func TestLoadStats(t *testing.T) {
	avg := 4.5
	api := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(FeedbackStats{
			TotalFeedback: 3,
			Categories: []CategoryStats{
				{Category: "positive", Count: 2, AverageRating: &avg},
				{Category: "general", Count: 1},
			},
		})
	}))

	state := NewFeedbackState(api)
	require.NoError(t, state.LoadStats(context.Background()))

	snapshot := state.Snapshot()
	require.NotNil(t, snapshot.Stats)
	assert.Equal(t, 3, snapshot.Stats.TotalFeedback)
	require.Len(t, snapshot.Stats.Categories, 2)
	assert.Equal(t, 4.5, *snapshot.Stats.Categories[0].AverageRating)
	assert.Nil(t, snapshot.Stats.Categories[1].AverageRating)
}

func TestClearError(t *testing.T) {
	api := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"code":    "INTERNAL_ERROR",
			"message": "boom",
		})
	}))

	state := NewFeedbackState(api)
	require.Error(t, state.LoadStats(context.Background()))
	assert.Equal(t, "boom", state.Snapshot().Err)

	state.ClearError()
	assert.Empty(t, state.Snapshot().Err)
}

func TestAPIError_Message(t *testing.T) {
	err := &APIError{StatusCode: 404}
	assert.Equal(t, "request failed with status 404", err.Error())

	err = &APIError{StatusCode: 400, Message: "Validation failed"}
	assert.Equal(t, "Validation failed", err.Error())
}

func TestClient_SessionCookiePersists(t *testing.T) {
	var sawCookie bool
	api := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/auth/login":
			http.SetCookie(w, &http.Cookie{Name: "studytrack-session", Value: "abc123", Path: "/"})
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": true})
		case "/v1/feedback/has-new":
			cookie, err := r.Cookie("studytrack-session")
			if err == nil && cookie.Value == "abc123" {
				sawCookie = true
			}
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "hasNew": true})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))

	require.NoError(t, api.Login(context.Background(), "alice", "password123"))
	hasNew, err := api.HasNew(context.Background())
	require.NoError(t, err)
	assert.True(t, hasNew)
	assert.True(t, sawCookie, "session cookie should be replayed")
}
