// Package graph implements the Microsoft-Graph-style side of the provider
// capability over plain REST: OData filter construction, nextLink paging,
// and per-conversation message loading.
package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"golang.org/x/oauth2"

	"github.com/mailfold/mailfold/internal/provider"
	"github.com/mailfold/mailfold/internal/rate"
	"github.com/mailfold/mailfold/internal/snippet"
	"github.com/mailfold/mailfold/internal/thread"
)

// DefaultBaseURL is the production Graph endpoint.
const DefaultBaseURL = "https://graph.microsoft.com/v1.0"

const (
	defaultMaxConcurrent = 10
	listSelect           = "id,conversationId,subject,bodyPreview,from,receivedDateTime"
	loadSelect           = listSelect + ",body"
)

// Client talks to a Graph-style mail API. The conversation (thread) model
// is reconstructed client-side from the message listing.
type Client struct {
	http          *http.Client
	baseURL       string
	limiter       rate.Limiter
	maxConcurrent int
}

// NewClient builds a client over an already-authenticated *http.Client.
// A nil httpClient means no usable token exists for the account; every
// request then fails with ErrUnauthenticated.
func NewClient(httpClient *http.Client, baseURL string, limiter rate.Limiter, maxConcurrent int) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if limiter == nil {
		limiter = rate.None{}
	}
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}
	return &Client{http: httpClient, baseURL: baseURL, limiter: limiter, maxConcurrent: maxConcurrent}
}

// NewClientWithToken wires a static bearer token through oauth2. An empty
// token yields an unauthenticated client.
func NewClientWithToken(ctx context.Context, accessToken, baseURL string, limiter rate.Limiter, maxConcurrent int) *Client {
	var httpClient *http.Client
	if accessToken != "" {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
		httpClient = oauth2.NewClient(ctx, src)
	}
	return NewClient(httpClient, baseURL, limiter, maxConcurrent)
}

var _ provider.Mailbox = (*Client)(nil)

// listResponse mirrors the Graph message-collection payload.
type listResponse struct {
	Value    []graphMessage `json:"value"`
	NextLink string         `json:"@odata.nextLink"`
}

type graphMessage struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversationId"`
	Subject        string     `json:"subject"`
	BodyPreview    string     `json:"bodyPreview"`
	From           *recipient `json:"from"`
	ReceivedAt     time.Time  `json:"receivedDateTime"`
	Body           *itemBody  `json:"body"`
}

type recipient struct {
	EmailAddress struct {
		Name    string `json:"name"`
		Address string `json:"address"`
	} `json:"emailAddress"`
}

type itemBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

// FetchPage lists one page of messages and collapses it to distinct
// conversation IDs in first-occurrence order, so a thread never repeats
// within a page. The @odata.nextLink is the page cursor, passed through
// verbatim and never parsed.
func (c *Client) FetchPage(ctx context.Context, q thread.Query) (provider.Page, error) {
	params, err := BuildFilter(q)
	if err != nil {
		return provider.Page{}, err
	}

	reqURL := params.PageToken
	if reqURL == "" {
		reqURL = c.listURL(params)
	}

	var res listResponse
	if err := c.get(ctx, reqURL, &res); err != nil {
		return provider.Page{}, err
	}

	page := provider.Page{NextPageToken: res.NextLink}
	seen := make(map[string]struct{}, len(res.Value))
	for _, m := range res.Value {
		if m.ConversationID == "" {
			continue
		}
		if _, ok := seen[m.ConversationID]; ok {
			continue
		}
		seen[m.ConversationID] = struct{}{}
		page.Summaries = append(page.Summaries, provider.Summary{
			ID:      thread.ID(m.ConversationID),
			Snippet: m.BodyPreview,
		})
	}
	return page, nil
}

// LoadMessages fetches each conversation's messages with one concurrent
// filter query per id. Conversations whose fetch fails are dropped.
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
			msgs, err := c.getConversation(ctx, id)
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

// Encoding reports that Graph previews arrive as plain text.
func (c *Client) Encoding() snippet.Encoding {
	return snippet.EncodingPlain
}

func (c *Client) listURL(params RequestParams) string {
	base := c.baseURL + "/me/messages"
	if params.Folder != "" {
		base = c.baseURL + "/me/mailFolders/" + url.PathEscape(params.Folder) + "/messages"
	}
	v := url.Values{}
	v.Set("$select", listSelect)
	v.Set("$top", strconv.Itoa(params.Limit))
	v.Set("$orderby", "receivedDateTime desc")
	if params.Filter != "" {
		v.Set("$filter", params.Filter)
	}
	return base + "?" + v.Encode()
}

func (c *Client) getConversation(ctx context.Context, id thread.ID) ([]thread.Message, error) {
	v := url.Values{}
	v.Set("$select", loadSelect)
	v.Set("$filter", fmt.Sprintf("conversationId eq '%s'", escapeValue(string(id))))
	reqURL := c.baseURL + "/me/messages?" + v.Encode()

	var res listResponse
	if err := c.get(ctx, reqURL, &res); err != nil {
		return nil, err
	}

	msgs := make([]thread.Message, 0, len(res.Value))
	for _, m := range res.Value {
		msgs = append(msgs, convertMessage(thread.ID(m.ConversationID), m))
	}
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].Date.Before(msgs[j].Date) })
	return msgs, nil
}

func convertMessage(threadID thread.ID, m graphMessage) thread.Message {
	msg := thread.Message{
		ID:       thread.ID(m.ID),
		ThreadID: threadID,
		Subject:  m.Subject,
		Snippet:  m.BodyPreview,
		Date:     m.ReceivedAt,
	}
	if m.From != nil {
		addr := m.From.EmailAddress
		if addr.Name != "" {
			msg.From = fmt.Sprintf("%s <%s>", addr.Name, addr.Address)
		} else {
			msg.From = addr.Address
		}
	}
	if m.Body != nil {
		switch m.Body.ContentType {
		case "html":
			msg.BodyHTML = m.Body.Content
		default:
			msg.BodyText = m.Body.Content
		}
	}
	return msg
}

func (c *Client) get(ctx context.Context, reqURL string, out any) error {
	if c.http == nil {
		return fmt.Errorf("%w: no graph access token configured", thread.ErrUnauthenticated)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("build graph request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("%w: %w", thread.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode graph response: %w", thread.ErrProviderUnavailable, err)
	}
	return nil
}

// classifyStatus maps Graph HTTP failures onto the pipeline taxonomy.
func classifyStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: graph returned %d", thread.ErrUnauthenticated, resp.StatusCode)
	case resp.StatusCode == http.StatusBadRequest:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: graph rejected filter: %s", thread.ErrInvalidQuery, string(body))
	default:
		return fmt.Errorf("%w: graph returned %d", thread.ErrProviderUnavailable, resp.StatusCode)
	}
}
