package client

import (
	"context"
	"sync"
)

// State is the client-side mirror of server feedback state. Values handed
// out by Snapshot are copies; callers may read them without locking.
type State struct {
	ItemsByCategory map[string][]FeedbackItem
	Stats           *FeedbackStats
	Pagination      PaginationMeta
	Loading         bool
	Submitting      bool
	Err             string
}

// action is the tagged union dispatched through the reducer.
type action interface{ isAction() }

type loadStarted struct{ seq uint64 }
type pageLoaded struct {
	seq  uint64
	page *FeedbackPage
}
type loadFailed struct {
	seq uint64
	msg string
}
type submitStarted struct{}
type submitConfirmed struct{ item FeedbackItem }
type submitFailed struct{ msg string }
type upvoteConfirmed struct{ result UpvoteResult }
type deleteConfirmed struct{ id int }
type statsLoaded struct{ stats *FeedbackStats }
type actionFailed struct{ msg string }
type errorCleared struct{}

func (loadStarted) isAction()     {}
func (pageLoaded) isAction()      {}
func (loadFailed) isAction()      {}
func (submitStarted) isAction()   {}
func (submitConfirmed) isAction() {}
func (submitFailed) isAction()    {}
func (upvoteConfirmed) isAction() {}
func (deleteConfirmed) isAction() {}
func (statsLoaded) isAction()     {}
func (actionFailed) isAction()    {}
func (errorCleared) isAction()    {}

// reduce is the pure transition function. It never mutates the input state;
// buckets are cloned before modification so stale snapshots stay valid.
func reduce(s State, latestLoad uint64, a action) State {
	switch a := a.(type) {
	case loadStarted:
		s.Loading = true
		s.Err = ""

	case pageLoaded:
		// Stale responses from superseded loads are dropped entirely.
		if a.seq != latestLoad {
			return s
		}
		buckets := make(map[string][]FeedbackItem, len(a.page.Grouped))
		for _, group := range a.page.Grouped {
			items := make([]FeedbackItem, len(group.Items))
			copy(items, group.Items)
			buckets[group.Category] = items
		}
		s.ItemsByCategory = buckets
		s.Pagination = a.page.Pagination
		s.Loading = false

	case loadFailed:
		if a.seq != latestLoad {
			return s
		}
		s.Loading = false
		s.Err = a.msg

	case submitStarted:
		s.Submitting = true
		s.Err = ""

	case submitConfirmed:
		s.Submitting = false
		buckets := cloneBuckets(s.ItemsByCategory)
		bucket := buckets[a.item.Category]
		buckets[a.item.Category] = append([]FeedbackItem{a.item}, bucket...)
		s.ItemsByCategory = buckets

	case submitFailed:
		s.Submitting = false
		s.Err = a.msg

	case upvoteConfirmed:
		buckets := cloneBuckets(s.ItemsByCategory)
		for category, items := range buckets {
			for i, item := range items {
				if item.ID == a.result.ID {
					updated := make([]FeedbackItem, len(items))
					copy(updated, items)
					updated[i].Upvotes = a.result.Upvotes
					updated[i].HasViewerUpvoted = a.result.HasViewerUpvoted
					buckets[category] = updated
				}
			}
		}
		s.ItemsByCategory = buckets

	case deleteConfirmed:
		buckets := cloneBuckets(s.ItemsByCategory)
		for category, items := range buckets {
			kept := make([]FeedbackItem, 0, len(items))
			for _, item := range items {
				if item.ID != a.id {
					kept = append(kept, item)
				}
			}
			if len(kept) == 0 {
				delete(buckets, category)
			} else {
				buckets[category] = kept
			}
		}
		s.ItemsByCategory = buckets

	case statsLoaded:
		s.Stats = a.stats

	case actionFailed:
		s.Err = a.msg

	case errorCleared:
		s.Err = ""
	}

	return s
}

func cloneBuckets(src map[string][]FeedbackItem) map[string][]FeedbackItem {
	dst := make(map[string][]FeedbackItem, len(src))
	for category, items := range src {
		dst[category] = items
	}
	return dst
}

// FeedbackState drives the reducer over API calls. All exported methods are
// safe for concurrent use; server responses are applied only after they
// arrive (no optimistic pre-apply).
type FeedbackState struct {
	api *Client

	mu      sync.Mutex
	state   State
	loadSeq uint64
}

// NewFeedbackState creates a FeedbackState backed by the given API client.
func NewFeedbackState(api *Client) *FeedbackState {
	return &FeedbackState{
		api: api,
		state: State{
			ItemsByCategory: map[string][]FeedbackItem{},
		},
	}
}

// Snapshot returns a copy of the current state.
func (f *FeedbackState) Snapshot() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *FeedbackState) dispatch(a action) {
	f.state = reduce(f.state, f.loadSeq, a)
}

// LoadPage fetches one page of the listing. Racing calls are allowed; only
// the response of the most recently issued load is applied.
func (f *FeedbackState) LoadPage(ctx context.Context, page, limit int, category string) error {
	f.mu.Lock()
	f.loadSeq++
	seq := f.loadSeq
	f.dispatch(loadStarted{seq: seq})
	f.mu.Unlock()

	result, err := f.api.ListFeedback(ctx, page, limit, category)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.dispatch(loadFailed{seq: seq, msg: err.Error()})
		return err
	}
	f.dispatch(pageLoaded{seq: seq, page: result})
	return nil
}

// Submit sends a draft to the server and, on confirmation, prepends the
// created item to its category bucket.
func (f *FeedbackState) Submit(ctx context.Context, draft FeedbackDraft) (*FeedbackItem, error) {
	f.mu.Lock()
	f.dispatch(submitStarted{})
	f.mu.Unlock()

	created, err := f.api.SubmitFeedback(ctx, draft)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.dispatch(submitFailed{msg: err.Error()})
		return nil, err
	}
	f.dispatch(submitConfirmed{item: *created})
	return created, nil
}

// ToggleUpvote flips the viewer's upvote. The server's authoritative count
// replaces whatever the local copy held.
func (f *FeedbackState) ToggleUpvote(ctx context.Context, id int) error {
	result, err := f.api.ToggleUpvote(ctx, id)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.dispatch(actionFailed{msg: err.Error()})
		return err
	}
	f.dispatch(upvoteConfirmed{result: *result})
	return nil
}

// Delete removes an item from local state only after the server confirms.
func (f *FeedbackState) Delete(ctx context.Context, id int) error {
	err := f.api.DeleteFeedback(ctx, id)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.dispatch(actionFailed{msg: err.Error()})
		return err
	}
	f.dispatch(deleteConfirmed{id: id})
	return nil
}

// LoadStats refreshes the aggregate view.
func (f *FeedbackState) LoadStats(ctx context.Context) error {
	stats, err := f.api.GetStats(ctx)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.dispatch(actionFailed{msg: err.Error()})
		return err
	}
	f.dispatch(statsLoaded{stats: stats})
	return nil
}

// ClearError resets the error message. Errors are never auto-cleared.
func (f *FeedbackState) ClearError() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dispatch(errorCleared{})
}
