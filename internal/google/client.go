// Package google implements the Gmail-style side of the provider
// capability: query translation, thread page listing, and concurrent
// per-thread message loading on top of the Gmail REST API.
package google

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/mail"
	"sort"
	"time"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"

	"github.com/mailfold/mailfold/internal/provider"
	"github.com/mailfold/mailfold/internal/rate"
	"github.com/mailfold/mailfold/internal/snippet"
	"github.com/mailfold/mailfold/internal/thread"
)

const defaultMaxConcurrent = 10

// Client adapts *gmail.Service to the provider.Mailbox capability.
type Client struct {
	svc           *gmail.Service
	limiter       rate.Limiter
	maxConcurrent int
}

// NewClient wraps an authenticated Gmail service. A nil limiter means
// unthrottled; maxConcurrent <= 0 selects the default fan-out cap.
func NewClient(svc *gmail.Service, limiter rate.Limiter, maxConcurrent int) *Client {
	if limiter == nil {
		limiter = rate.None{}
	}
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}
	return &Client{svc: svc, limiter: limiter, maxConcurrent: maxConcurrent}
}

var _ provider.Mailbox = (*Client)(nil)

// FetchPage lists one page of thread summaries in Gmail's order.
func (c *Client) FetchPage(ctx context.Context, q thread.Query) (provider.Page, error) {
	params, err := BuildQuery(q)
	if err != nil {
		return provider.Page{}, err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return provider.Page{}, err
	}

	call := c.svc.Users.Threads.List("me").MaxResults(int64(params.Limit))
	if params.Search != "" {
		call = call.Q(params.Search)
	}
	if len(params.LabelIDs) > 0 {
		call = call.LabelIds(params.LabelIDs...)
	}
	if params.PageToken != "" {
		call = call.PageToken(params.PageToken)
	}

	res, err := call.Context(ctx).Do()
	if err != nil {
		return provider.Page{}, classify(err)
	}

	page := provider.Page{NextPageToken: res.NextPageToken}
	for _, t := range res.Threads {
		page.Summaries = append(page.Summaries, provider.Summary{
			ID:      thread.ID(t.Id),
			Snippet: t.Snippet,
		})
	}
	return page, nil
}

// LoadMessages fetches full thread content, one concurrent threads.get per
// id under the fan-out cap. Threads whose fetch fails are dropped from the
// map; the missing key is the only failure signal.
func (c *Client) LoadMessages(ctx context.Context, ids []thread.ID) (map[thread.ID][]thread.Message, error) {
	if len(ids) == 0 {
		return map[thread.ID][]thread.Message{}, nil
	}

	type result struct {
		id   thread.ID
		msgs []thread.Message
		err  error
	}
	results := make(chan result, len(ids))
	sem := make(chan struct{}, c.maxConcurrent)

	for _, id := range ids {
		go func(id thread.ID) {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results <- result{id: id, err: ctx.Err()}
				return
			}
			msgs, err := c.getThread(ctx, id)
			results <- result{id: id, msgs: msgs, err: err}
		}(id)
	}

	out := make(map[thread.ID][]thread.Message, len(ids))
	for range ids {
		r := <-results
		if r.err != nil {
			continue
		}
		out[r.id] = r.msgs
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Encoding reports the snippet encoding Gmail uses.
func (c *Client) Encoding() snippet.Encoding {
	return snippet.EncodingGmail
}

func (c *Client) getThread(ctx context.Context, id thread.ID) ([]thread.Message, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	t, err := c.svc.Users.Threads.Get("me", string(id)).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, classify(err)
	}

	msgs := make([]thread.Message, 0, len(t.Messages))
	for _, m := range t.Messages {
		msgs = append(msgs, convertMessage(m))
	}
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].Date.Before(msgs[j].Date) })
	return msgs, nil
}

func convertMessage(m *gmail.Message) thread.Message {
	msg := thread.Message{
		ID:       thread.ID(m.Id),
		ThreadID: thread.ID(m.ThreadId),
		Snippet:  m.Snippet,
		Date:     time.UnixMilli(m.InternalDate),
	}
	if m.Payload == nil {
		return msg
	}
	for _, h := range m.Payload.Headers {
		switch h.Name {
		case "From":
			msg.From = h.Value
		case "Subject":
			msg.Subject = h.Value
		case "Date":
			// header date wins over internalDate when parseable
			if d, err := mail.ParseDate(h.Value); err == nil {
				msg.Date = d
			}
		}
	}
	text, html := extractBodies(m.Payload)
	msg.BodyText = text
	msg.BodyHTML = html
	return msg
}

// extractBodies walks the MIME tree for the first text/plain and text/html
// parts. Gmail base64url-encodes part data, sometimes without padding.
func extractBodies(part *gmail.MessagePart) (text, html string) {
	if part == nil {
		return "", ""
	}
	if part.Body != nil && part.Body.Data != "" {
		switch part.MimeType {
		case "text/plain":
			if text == "" {
				text = decodeBody(part.Body.Data)
			}
		case "text/html":
			if html == "" {
				html = decodeBody(part.Body.Data)
			}
		}
	}
	for _, child := range part.Parts {
		ct, ch := extractBodies(child)
		if text == "" {
			text = ct
		}
		if html == "" {
			html = ch
		}
	}
	return text, html
}

func decodeBody(data string) string {
	if b, err := base64.URLEncoding.DecodeString(data); err == nil {
		return string(b)
	}
	if b, err := base64.RawURLEncoding.DecodeString(data); err == nil {
		return string(b)
	}
	return ""
}

// classify maps Gmail API failures onto the pipeline error taxonomy.
// 401/403 mean the token is missing or rejected; 429 and 5xx are upstream
// availability problems. Retry policy belongs to the caller.
func classify(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 401 || apiErr.Code == 403:
			return fmt.Errorf("%w: %w", thread.ErrUnauthenticated, err)
		case apiErr.Code == 429 || apiErr.Code >= 500:
			return fmt.Errorf("%w: %w", thread.ErrProviderUnavailable, err)
		}
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", thread.ErrProviderUnavailable, err)
}
