package graph

import (
	"fmt"
	"strings"

	"github.com/mailfold/mailfold/internal/thread"
)

// RequestParams is a thread.Query translated into the Graph API's
// vocabulary: a folder path segment, an OData $filter expression, and the
// untouched paging fields.
type RequestParams struct {
	Folder    string // well-known folder name; empty means all messages
	Filter    string
	Limit     int
	PageToken string
}

// typeFolders maps unified mailbox views onto Graph well-known folders.
// Views without a folder equivalent are expressed as filters instead.
var typeFolders = map[thread.Type]string{
	thread.TypeInbox:   "inbox",
	thread.TypeSent:    "sentitems",
	thread.TypeDraft:   "drafts",
	thread.TypeTrash:   "deleteditems",
	thread.TypeSpam:    "junkemail",
	thread.TypeArchive: "archive",
}

// typeFilters holds the views Graph models as message properties rather
// than folders; they are scoped to the inbox like the Gmail-style mapping.
var typeFilters = map[thread.Type]string{
	thread.TypeUnread:    "isRead eq false",
	thread.TypeStarred:   "flag/flagStatus eq 'flagged'",
	thread.TypeImportant: "importance eq 'high'",
}

// maxPageSize is the Graph messages listing cap.
const maxPageSize = 1000

// BuildFilter translates a unified query into Graph request parameters.
// Sub-filters are joined with "and"; free text takes precedence over the
// sender filter. All values are escaped against the OData grammar.
func BuildFilter(q thread.Query) (RequestParams, error) {
	q = q.Normalize()
	if q.Limit <= 0 || q.Limit > maxPageSize {
		return RequestParams{}, fmt.Errorf("%w: limit %d out of range (1-%d)",
			thread.ErrInvalidQuery, q.Limit, maxPageSize)
	}

	p := RequestParams{Limit: q.Limit, PageToken: q.PageToken}

	var parts []string
	switch {
	case q.LabelID != "":
		p.Folder = q.LabelID
	case q.Type == thread.TypeAll:
		// no folder restriction
	default:
		if folder, ok := typeFolders[q.Type]; ok {
			p.Folder = folder
		} else {
			p.Folder = "inbox"
			if f, ok := typeFilters[q.Type]; ok {
				parts = append(parts, f)
			}
		}
	}

	switch {
	case q.Search != "":
		parts = append(parts, fmt.Sprintf("contains(subject,'%s')", escapeValue(q.Search)))
	case q.FromEmail != "":
		parts = append(parts, fmt.Sprintf("from/emailAddress/address eq '%s'", escapeValue(q.FromEmail)))
	}

	p.Filter = strings.Join(parts, " and ")
	return p, nil
}

// escapeValue makes a string safe to embed in a single-quoted OData
// literal: quotes are doubled and control bytes dropped.
func escapeValue(v string) string {
	v = strings.Map(func(r rune) rune {
		if r < 0x20 {
			return -1
		}
		return r
	}, v)
	return strings.ReplaceAll(v, "'", "''")
}
