// Package provider defines the narrow mailbox surface the aggregation
// pipeline requires. One implementation exists per upstream provider; the
// pipeline's upper layers depend only on this interface.
package provider

import (
	"context"

	"github.com/mailfold/mailfold/internal/snippet"
	"github.com/mailfold/mailfold/internal/thread"
)

// Kind names a concrete provider implementation.
type Kind string

const (
	KindGoogle Kind = "google"
	KindGraph  Kind = "graph"
)

// Summary is one thread as listed by a provider: its identifier plus the
// provider's own preview text, still in the provider's encoding.
type Summary struct {
	ID      thread.ID
	Snippet string
}

// Page is one provider-ordered page of thread summaries. NextPageToken is
// the provider-native cursor, opaque to everything downstream; empty means
// no further pages.
type Page struct {
	Summaries     []Summary
	NextPageToken string
}

// Mailbox is the per-provider capability the pipeline composes:
// query translation + page fetch, batch message loading, and the snippet
// encoding the provider emits.
type Mailbox interface {
	// FetchPage translates q into the provider's query language and
	// retrieves one page of thread summaries in provider order.
	FetchPage(ctx context.Context, q thread.Query) (Page, error)

	// LoadMessages retrieves full message content for each thread id,
	// oldest message first. Threads whose fetch fails are absent from the
	// returned map; absence is the only failure signal.
	LoadMessages(ctx context.Context, ids []thread.ID) (map[thread.ID][]thread.Message, error)

	// Encoding reports how this provider encodes snippet text.
	Encoding() snippet.Encoding
}
