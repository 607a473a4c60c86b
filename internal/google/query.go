package google

import (
	"fmt"

	"github.com/mailfold/mailfold/internal/thread"
)

// RequestParams is a thread.Query translated into the Gmail API's
// vocabulary: a search string, an optional label-ID list, and the untouched
// paging fields.
type RequestParams struct {
	Search    string
	LabelIDs  []string
	Limit     int
	PageToken string
}

// typeLabels maps the unified mailbox views onto Gmail's system label IDs.
// Archive and all have no label filter: archive is expressed as a search
// string instead, and all means no restriction.
var typeLabels = map[thread.Type][]string{
	thread.TypeInbox:     {"INBOX"},
	thread.TypeSent:      {"SENT"},
	thread.TypeDraft:     {"DRAFT"},
	thread.TypeTrash:     {"TRASH"},
	thread.TypeSpam:      {"SPAM"},
	thread.TypeStarred:   {"STARRED"},
	thread.TypeImportant: {"IMPORTANT"},
	thread.TypeUnread:    {"UNREAD"},
}

// maxPageSize is the Gmail threads.list cap.
const maxPageSize = 500

// BuildQuery translates a unified query into Gmail list parameters.
// Precedence: free text > sender filter > archive search > type labels.
func BuildQuery(q thread.Query) (RequestParams, error) {
	q = q.Normalize()
	if q.Limit <= 0 || q.Limit > maxPageSize {
		return RequestParams{}, fmt.Errorf("%w: limit %d out of range (1-%d)",
			thread.ErrInvalidQuery, q.Limit, maxPageSize)
	}

	p := RequestParams{Limit: q.Limit, PageToken: q.PageToken}
	switch {
	case q.Search != "":
		p.Search = q.Search
	case q.FromEmail != "":
		p.Search = "from:" + q.FromEmail
	case q.LabelID != "":
		p.LabelIDs = []string{q.LabelID}
	case q.Type == thread.TypeArchive:
		p.Search = "-label:INBOX"
	case q.Type == thread.TypeAll:
		// no restriction
	default:
		p.LabelIDs = typeLabels[q.Type]
	}
	return p, nil
}
