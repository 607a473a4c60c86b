package thread

import "errors"

// Pipeline-level failures. Anything else that goes wrong per thread is
// absorbed by dropping that thread from the page.
var (
	// ErrInvalidQuery rejects malformed or out-of-range filter input before
	// any provider call is made.
	ErrInvalidQuery = errors.New("invalid thread query")

	// ErrUnauthenticated means no usable access token exists for the account.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrProviderUnavailable wraps upstream transport or rate-limit failures.
	// Retrying is the caller's concern, not the pipeline's.
	ErrProviderUnavailable = errors.New("mail provider unavailable")

	// ErrTimeout means the overall request deadline elapsed. Partial results
	// are discarded, never returned.
	ErrTimeout = errors.New("thread aggregation timed out")
)
