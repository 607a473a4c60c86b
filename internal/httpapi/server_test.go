package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mailfold/mailfold/internal/auth"
	"github.com/mailfold/mailfold/internal/provider"
	"github.com/mailfold/mailfold/internal/snippet"
	"github.com/mailfold/mailfold/internal/thread"
)

type stubMailbox struct{}

func (stubMailbox) FetchPage(ctx context.Context, q thread.Query) (provider.Page, error) {
	return provider.Page{}, nil
}

func (stubMailbox) LoadMessages(ctx context.Context, ids []thread.ID) (map[thread.ID][]thread.Message, error) {
	return nil, nil
}

func (stubMailbox) Encoding() snippet.Encoding { return snippet.EncodingPlain }

type stubLister struct {
	page thread.Page
	err  error

	gotAccount string
	gotQuery   thread.Query
}

func (s *stubLister) ListThreads(ctx context.Context, accountID string, box provider.Mailbox, q thread.Query) (thread.Page, error) {
	s.gotAccount = accountID
	s.gotQuery = q
	return s.page, s.err
}

func newTestServer(t *testing.T, lister ThreadLister) http.Handler {
	t.Helper()
	keys, err := auth.ParseKeys("secret-key:acct-1:google")
	if err != nil {
		t.Fatalf("parse keys: %v", err)
	}
	boxes := map[provider.Kind]provider.Mailbox{provider.KindGoogle: stubMailbox{}}
	return NewServer(lister, boxes, keys, nil).Handler()
}

func get(h http.Handler, target, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestThreadsEndpoint(t *testing.T) {
	lister := &stubLister{
		page: thread.Page{
			Threads:       []thread.Thread{{ID: "A", Snippet: "hello"}},
			NextPageToken: "cursor-2",
		},
	}
	h := newTestServer(t, lister)

	w := get(h, "/api/threads?type=sent&labelId=L9&fromEmail=a@b.com&q=report&limit=25&nextPageToken=cursor-1", "secret-key")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", w.Code, w.Body.String())
	}

	if lister.gotAccount != "acct-1" {
		t.Errorf("account: got %q", lister.gotAccount)
	}
	want := thread.Query{
		Type:      thread.TypeSent,
		LabelID:   "L9",
		FromEmail: "a@b.com",
		Search:    "report",
		Limit:     25,
		PageToken: "cursor-1",
	}
	if lister.gotQuery != want {
		t.Errorf("query: got %+v want %+v", lister.gotQuery, want)
	}

	var body thread.Page
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Threads) != 1 || body.Threads[0].ID != "A" {
		t.Errorf("threads: got %+v", body.Threads)
	}
	if body.NextPageToken != "cursor-2" {
		t.Errorf("cursor: got %q", body.NextPageToken)
	}
}

func TestThreadsUnknownTypeDefaultsToInbox(t *testing.T) {
	lister := &stubLister{}
	h := newTestServer(t, lister)

	for _, typ := range []string{"", "undefined", "null", "bogus"} {
		w := get(h, "/api/threads?type="+typ, "secret-key")
		if w.Code != http.StatusOK {
			t.Fatalf("type %q: status %d", typ, w.Code)
		}
		if lister.gotQuery.Type != thread.TypeInbox {
			t.Errorf("type %q: got %q, want inbox", typ, lister.gotQuery.Type)
		}
	}
}

func TestThreadsAuth(t *testing.T) {
	h := newTestServer(t, &stubLister{})

	if w := get(h, "/api/threads", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("missing header: status %d", w.Code)
	}
	if w := get(h, "/api/threads", "wrong-key"); w.Code != http.StatusUnauthorized {
		t.Errorf("unknown key: status %d", w.Code)
	}
}

func TestThreadsBadLimit(t *testing.T) {
	h := newTestServer(t, &stubLister{})

	for _, raw := range []string{"abc", "0", "-3"} {
		w := get(h, "/api/threads?limit="+raw, "secret-key")
		if w.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: status %d, want 400", raw, w.Code)
		}
	}
}

func TestThreadsErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{thread.ErrInvalidQuery, http.StatusBadRequest},
		{thread.ErrUnauthenticated, http.StatusUnauthorized},
		{thread.ErrProviderUnavailable, http.StatusBadGateway},
		{thread.ErrTimeout, http.StatusGatewayTimeout},
		{errors.New("unexpected"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		tc := tt
		h := newTestServer(t, &stubLister{err: tc.err})
		w := get(h, "/api/threads", "secret-key")
		if w.Code != tc.want {
			t.Errorf("%v: status %d, want %d", tc.err, w.Code, tc.want)
		}
		var body map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode error body: %v", err)
		}
		if body["error"] == "" {
			t.Errorf("%v: missing error message", tc.err)
		}
	}
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, &stubLister{})
	w := get(h, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
}
