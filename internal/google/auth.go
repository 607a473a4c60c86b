package google

import (
	"context"
	"fmt"

	"github.com/mbrt/gmailctl/cmd/gmailctl/localcred"
	"google.golang.org/api/gmail/v1"
)

// NewService builds a read-only Gmail service from local OAuth credentials
// stored under cfgDir (the gmailctl credential layout). The aggregation
// pipeline never mutates mailbox state, so the readonly scope is enough.
func NewService(ctx context.Context, cfgDir string) (*gmail.Service, error) {
	svc, err := (localcred.Provider{}).ServiceWithScopes(ctx, cfgDir, gmail.GmailReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("gmail credentials in %s: %w", cfgDir, err)
	}
	return svc, nil
}
