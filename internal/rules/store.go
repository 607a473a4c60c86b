// Package rules persists automation state: rule-execution records and
// category tags keyed by (account, thread). The rule subsystem writes;
// the aggregation pipeline only reads.
package rules

import (
	"context"

	"github.com/mailfold/mailfold/internal/thread"
)

// Store is the persistence surface for automation records and categories.
type Store interface {
	// FindRecords returns records for the given account whose thread id is
	// in ids and whose status is in statuses, ordered by created_at
	// descending then id ascending. An empty ids set returns nothing.
	FindRecords(ctx context.Context, accountID string, ids []thread.ID, statuses []thread.RecordStatus) ([]thread.Record, error)

	// GetCategories returns the category tag for each of the given threads
	// that has one. Results for one thread never depend on which other
	// threads are in the set.
	GetCategories(ctx context.Context, accountID string, ids []thread.ID) (map[thread.ID]thread.Category, error)

	// PutRecord inserts or replaces a record. Used by the rule subsystem;
	// a missing record ID gets a generated one.
	PutRecord(ctx context.Context, accountID string, rec thread.Record) (thread.Record, error)

	// SetCategory upserts the tag for a thread; DeleteCategory removes it.
	SetCategory(ctx context.Context, accountID string, threadID thread.ID, value string) error
	DeleteCategory(ctx context.Context, accountID string, threadID thread.ID) error
}
