package graph

import (
	"errors"
	"strings"
	"testing"

	"github.com/mailfold/mailfold/internal/thread"
)

func TestBuildFilter(t *testing.T) {
	tests := []struct {
		name       string
		query      thread.Query
		wantFolder string
		wantFilter string
	}{
		{
			name:       "default-inbox",
			query:      thread.Query{},
			wantFolder: "inbox",
		},
		{
			name:       "sent-folder",
			query:      thread.Query{Type: thread.TypeSent},
			wantFolder: "sentitems",
		},
		{
			name:       "from-filter",
			query:      thread.Query{FromEmail: "x@y.com"},
			wantFolder: "inbox",
			wantFilter: "from/emailAddress/address eq 'x@y.com'",
		},
		{
			name:       "free-text-wins-over-from",
			query:      thread.Query{Search: "roadmap", FromEmail: "x@y.com"},
			wantFolder: "inbox",
			wantFilter: "contains(subject,'roadmap')",
		},
		{
			name:       "unread-as-property-filter",
			query:      thread.Query{Type: thread.TypeUnread},
			wantFolder: "inbox",
			wantFilter: "isRead eq false",
		},
		{
			name:       "starred-with-sender",
			query:      thread.Query{Type: thread.TypeStarred, FromEmail: "x@y.com"},
			wantFolder: "inbox",
			wantFilter: "flag/flagStatus eq 'flagged' and from/emailAddress/address eq 'x@y.com'",
		},
		{
			name:  "all-unrestricted",
			query: thread.Query{Type: thread.TypeAll},
		},
		{
			name:       "explicit-folder-overrides-type",
			query:      thread.Query{Type: thread.TypeSent, LabelID: "AAMkFolder"},
			wantFolder: "AAMkFolder",
		},
		{
			name:       "archive-folder",
			query:      thread.Query{Type: thread.TypeArchive},
			wantFolder: "archive",
		},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			got, err := BuildFilter(tc.query)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Folder != tc.wantFolder {
				t.Fatalf("folder: got %q want %q", got.Folder, tc.wantFolder)
			}
			if got.Filter != tc.wantFilter {
				t.Fatalf("filter: got %q want %q", got.Filter, tc.wantFilter)
			}
		})
	}
}

func TestBuildFilterEscapesValues(t *testing.T) {
	q := thread.Query{Search: "it's a 'test'"}
	got, err := BuildFilter(q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "contains(subject,'it''s a ''test''')"
	if got.Filter != want {
		t.Fatalf("filter: got %q want %q", got.Filter, want)
	}
}

func TestBuildFilterStripsControlBytes(t *testing.T) {
	q := thread.Query{FromEmail: "x@y.com\r\n) or 1 eq 1"}
	got, err := BuildFilter(q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.ContainsAny(got.Filter, "\r\n") {
		t.Fatalf("filter carries control bytes: %q", got.Filter)
	}
}

func TestBuildFilterPagingPassthrough(t *testing.T) {
	token := "https://graph.example.com/v1.0/me/messages?$skiptoken=abc"
	got, err := BuildFilter(thread.Query{PageToken: token, Limit: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.PageToken != token {
		t.Fatalf("page token altered: %q", got.PageToken)
	}
	if got.Limit != 10 {
		t.Fatalf("limit: got %d want 10", got.Limit)
	}
}

func TestBuildFilterRejectsBadLimit(t *testing.T) {
	for _, limit := range []int{-5, maxPageSize + 1} {
		_, err := BuildFilter(thread.Query{Limit: limit})
		if !errors.Is(err, thread.ErrInvalidQuery) {
			t.Fatalf("limit %d: expected ErrInvalidQuery, got %v", limit, err)
		}
	}
}
