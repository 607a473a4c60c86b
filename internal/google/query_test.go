package google

import (
	"errors"
	"reflect"
	"testing"

	"github.com/mailfold/mailfold/internal/thread"
)

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name       string
		query      thread.Query
		wantSearch string
		wantLabels []string
	}{
		{
			name:       "default-inbox",
			query:      thread.Query{},
			wantLabels: []string{"INBOX"},
		},
		{
			name:       "from-filter",
			query:      thread.Query{FromEmail: "x@y.com"},
			wantSearch: "from:x@y.com",
		},
		{
			name:       "free-text-wins-over-from",
			query:      thread.Query{Search: "quarterly report", FromEmail: "x@y.com"},
			wantSearch: "quarterly report",
		},
		{
			name:       "archive",
			query:      thread.Query{Type: thread.TypeArchive},
			wantSearch: "-label:INBOX",
		},
		{
			name:  "all-unrestricted",
			query: thread.Query{Type: thread.TypeAll},
		},
		{
			name:       "explicit-label-overrides-type",
			query:      thread.Query{Type: thread.TypeSent, LabelID: "Label_42"},
			wantLabels: []string{"Label_42"},
		},
		{
			name:       "sent",
			query:      thread.Query{Type: thread.TypeSent},
			wantLabels: []string{"SENT"},
		},
		{
			name:       "unread",
			query:      thread.Query{Type: thread.TypeUnread},
			wantLabels: []string{"UNREAD"},
		},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			got, err := BuildQuery(tc.query)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Search != tc.wantSearch {
				t.Fatalf("search: got %q want %q", got.Search, tc.wantSearch)
			}
			if !reflect.DeepEqual(got.LabelIDs, tc.wantLabels) {
				t.Fatalf("labels: got %v want %v", got.LabelIDs, tc.wantLabels)
			}
		})
	}
}

func TestBuildQueryUnknownTypeDefaultsToInbox(t *testing.T) {
	for _, raw := range []string{"", "undefined", "null", "INBOX", "Inbox", "bogus"} {
		q := thread.Query{Type: thread.ParseType(raw)}
		got, err := BuildQuery(q)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", raw, err)
		}
		if got.Search != "" {
			t.Fatalf("type %q: expected empty search, got %q", raw, got.Search)
		}
		if !reflect.DeepEqual(got.LabelIDs, []string{"INBOX"}) {
			t.Fatalf("type %q: expected INBOX label, got %v", raw, got.LabelIDs)
		}
	}
}

func TestBuildQueryPaging(t *testing.T) {
	got, err := BuildQuery(thread.Query{Limit: 25, PageToken: "opaque-cursor"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Limit != 25 {
		t.Fatalf("limit: got %d want 25", got.Limit)
	}
	if got.PageToken != "opaque-cursor" {
		t.Fatalf("page token altered: %q", got.PageToken)
	}
}

func TestBuildQueryDefaultLimit(t *testing.T) {
	got, err := BuildQuery(thread.Query{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Limit != thread.DefaultLimit {
		t.Fatalf("limit: got %d want %d", got.Limit, thread.DefaultLimit)
	}
}

func TestBuildQueryRejectsBadLimit(t *testing.T) {
	for _, limit := range []int{-1, maxPageSize + 1} {
		_, err := BuildQuery(thread.Query{Limit: limit})
		if !errors.Is(err, thread.ErrInvalidQuery) {
			t.Fatalf("limit %d: expected ErrInvalidQuery, got %v", limit, err)
		}
	}
}
