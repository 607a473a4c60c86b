// Package thread holds the provider-agnostic conversation model shared by
// the aggregation pipeline, the provider clients, and the record store.
package thread

import (
	"strings"
	"time"
)

// ID identifies a thread (conversation) using the provider's native
// identifier. It is opaque to everything except the provider that issued it.
type ID string

// Type is the unified mailbox view a caller can request.
type Type string

const (
	TypeInbox     Type = "inbox"
	TypeSent      Type = "sent"
	TypeDraft     Type = "draft"
	TypeTrash     Type = "trash"
	TypeSpam      Type = "spam"
	TypeStarred   Type = "starred"
	TypeImportant Type = "important"
	TypeUnread    Type = "unread"
	TypeArchive   Type = "archive"
	TypeAll       Type = "all"
)

// ParseType maps caller input to a Type. Unknown values, the empty string,
// and the literal strings "undefined" and "null" (clients send those) all
// default to the inbox view.
func ParseType(s string) Type {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case TypeInbox, TypeSent, TypeDraft, TypeTrash, TypeSpam,
		TypeStarred, TypeImportant, TypeUnread, TypeArchive, TypeAll:
		return t
	default:
		return TypeInbox
	}
}

// DefaultLimit is the page size used when a query does not specify one.
const DefaultLimit = 50

// Query is the unified thread filter. Precedence when several filters are
// set: Search > FromEmail > LabelID > Type. Construct it once and treat it
// as immutable; Normalize returns an adjusted copy.
type Query struct {
	Type      Type
	LabelID   string // provider-native label/folder id, overrides Type
	FromEmail string // exact-match sender filter
	Search    string // free-text query, overrides FromEmail and Type
	Limit     int
	PageToken string // provider-opaque continuation token
}

// Normalize returns a copy with defaults applied. It does not validate
// bounds; the pipeline rejects out-of-range limits.
func (q Query) Normalize() Query {
	if q.Type == "" {
		q.Type = TypeInbox
	}
	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}
	return q
}

// Message is a single mail item inside a thread. Produced fresh per request
// and never cached by the pipeline.
type Message struct {
	ID       ID        `json:"id"`
	ThreadID ID        `json:"threadId"`
	From     string    `json:"from"`
	Subject  string    `json:"subject"`
	Date     time.Time `json:"date"`
	Snippet  string    `json:"snippet,omitempty"`
	BodyText string    `json:"bodyText,omitempty"`
	BodyHTML string    `json:"bodyHtml,omitempty"`
}

// RecordStatus is the lifecycle state of an automation record.
type RecordStatus string

const (
	StatusPending RecordStatus = "PENDING"
	StatusSkipped RecordStatus = "SKIPPED"
	StatusApplied RecordStatus = "APPLIED"
	StatusFailed  RecordStatus = "FAILED"
)

// Record is a persisted outcome of an automation rule evaluated against a
// thread. The rule subsystem owns and mutates these; the pipeline only
// reads them.
type Record struct {
	ID        string       `json:"id"`
	ThreadID  ID           `json:"threadId"`
	RuleID    string       `json:"ruleId"`
	Status    RecordStatus `json:"status"`
	Reason    string       `json:"reason,omitempty"`
	Actions   []string     `json:"actions,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
}

// Category is a classification tag attached to a thread by the external
// categorization subsystem, keyed by (account, thread).
type Category struct {
	ThreadID ID     `json:"threadId"`
	Value    string `json:"value"`
}

// Thread is the caller-visible, enriched conversation.
type Thread struct {
	ID       ID        `json:"id"`
	Messages []Message `json:"messages"`          // chronological, oldest first
	Snippet  string    `json:"snippet,omitempty"` // normalized preview
	Record   *Record   `json:"automationRecord,omitempty"`
	Category *Category `json:"category,omitempty"`
}

// Page is one page of enriched threads. NextPageToken is the provider's
// native cursor passed through verbatim; empty means the final page.
type Page struct {
	Threads       []Thread `json:"threads"`
	NextPageToken string   `json:"nextPageToken,omitempty"`
}
