// Package aggregate composes a provider mailbox with the automation record
// store into enriched, caller-ready thread pages. It is the only place the
// fan-out across message loading and record joining happens.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mailfold/mailfold/internal/provider"
	"github.com/mailfold/mailfold/internal/rules"
	"github.com/mailfold/mailfold/internal/snippet"
	"github.com/mailfold/mailfold/internal/thread"
)

// DefaultTimeout bounds one whole ListThreads call, including the provider
// page fetch and the message/record fan-out.
const DefaultTimeout = 30 * time.Second

// Service runs the thread aggregation pipeline. The zero value is not
// usable; construct with New.
type Service struct {
	store   rules.Store
	log     *slog.Logger
	timeout time.Duration
}

// New builds a Service. A nil logger falls back to slog.Default; a
// non-positive timeout falls back to DefaultTimeout.
func New(store rules.Store, log *slog.Logger, timeout time.Duration) *Service {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{store: store, log: log, timeout: timeout}
}

// ListThreads fetches one page of threads from box, loads full messages and
// automation state concurrently, and assembles enriched threads in provider
// order. Threads whose messages cannot be loaded are dropped from the page;
// the page cursor is returned verbatim so pagination is unaffected by drops.
func (s *Service) ListThreads(
	ctx context.Context,
	accountID string,
	box provider.Mailbox,
	q thread.Query,
) (thread.Page, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	q = q.Normalize()

	page, err := box.FetchPage(ctx, q)
	if err != nil {
		return thread.Page{}, classify(err)
	}
	if len(page.Summaries) == 0 {
		return thread.Page{NextPageToken: page.NextPageToken}, nil
	}

	ids := make([]thread.ID, len(page.Summaries))
	for i, sum := range page.Summaries {
		ids[i] = sum.ID
	}

	var (
		wg sync.WaitGroup

		messages map[thread.ID][]thread.Message
		loadErr  error

		records    map[thread.ID]thread.Record
		categories map[thread.ID]thread.Category
		joinErr    error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		messages, loadErr = box.LoadMessages(ctx, ids)
	}()
	go func() {
		defer wg.Done()
		records, categories, joinErr = s.joinAutomationState(ctx, accountID, ids)
	}()
	wg.Wait()

	if loadErr != nil {
		return thread.Page{}, classify(loadErr)
	}
	if joinErr != nil {
		return thread.Page{}, classify(joinErr)
	}

	enc := box.Encoding()
	threads := make([]thread.Thread, 0, len(page.Summaries))
	for _, sum := range page.Summaries {
		msgs, ok := messages[sum.ID]
		if !ok {
			s.log.WarnContext(ctx, "dropping thread with failed message load",
				"account", accountID, "thread", sum.ID)
			continue
		}

		t := thread.Thread{
			ID:       sum.ID,
			Messages: msgs,
			Snippet:  preview(sum.Snippet, enc, msgs),
		}
		if rec, ok := records[sum.ID]; ok {
			t.Record = &rec
		}
		if cat, ok := categories[sum.ID]; ok {
			t.Category = &cat
		}
		threads = append(threads, t)
	}

	return thread.Page{Threads: threads, NextPageToken: page.NextPageToken}, nil
}

// joinStatuses selects the record states worth surfacing on a thread:
// pending and skipped describe open automation, applied/failed are history.
var joinStatuses = []thread.RecordStatus{thread.StatusPending, thread.StatusSkipped}

// joinAutomationState loads records and category tags for the page's
// threads. Records come back most-recent-first from the store; the first one
// seen per thread wins. Missing records and categories are normal; a store
// failure is not, and fails the page.
func (s *Service) joinAutomationState(
	ctx context.Context,
	accountID string,
	ids []thread.ID,
) (map[thread.ID]thread.Record, map[thread.ID]thread.Category, error) {
	recs, err := s.store.FindRecords(ctx, accountID, ids, joinStatuses)
	if err != nil {
		return nil, nil, fmt.Errorf("finding automation records: %w", err)
	}

	byThread := make(map[thread.ID]thread.Record, len(recs))
	for _, rec := range recs {
		if _, ok := byThread[rec.ThreadID]; !ok {
			byThread[rec.ThreadID] = rec
		}
	}

	cats, err := s.store.GetCategories(ctx, accountID, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching categories: %w", err)
	}
	return byThread, cats, nil
}

// preview picks the thread's display snippet: the provider summary snippet
// when present, otherwise a preview derived from the newest message body.
func preview(raw string, enc snippet.Encoding, msgs []thread.Message) string {
	if raw != "" {
		return snippet.Normalize(raw, enc)
	}
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		switch {
		case m.Snippet != "":
			return snippet.Normalize(m.Snippet, enc)
		case m.BodyHTML != "":
			return snippet.FromHTML(m.BodyHTML)
		case m.BodyText != "":
			return snippet.Normalize(m.BodyText, snippet.EncodingPlain)
		}
	}
	return ""
}

// classify maps context expiry onto the pipeline's timeout error; provider
// clients have already mapped their own failures onto the taxonomy.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", thread.ErrTimeout, err)
	}
	return err
}
