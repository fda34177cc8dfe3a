package oauth

import (
	"context"
	"errors"
	"time"
)

// StateTTL is how long a pending authorization stays valid. Flows that do
// not complete within this window must be restarted by the user.
const StateTTL = 10 * time.Minute

// ErrStateNotFound is returned when a state token is unknown, expired, or
// already consumed. Callers must not distinguish between those causes.
var ErrStateNotFound = errors.New("oauth state not found or expired")

// FlowState is one pending authorization, keyed by its CSRF state token.
// It is owned by the store from Save until Consume or expiry.
type FlowState struct {
	State        string
	Provider     string
	CodeVerifier string // empty for providers without PKCE
	ReturnURI    string // optional caller-supplied success redirect
	CreatedAt    time.Time
}

// FlowStore persists pending authorizations for the duration of one OAuth
// round trip.
type FlowStore interface {
	// Save stores a pending authorization under its state token.
	Save(ctx context.Context, state *FlowState) error

	// Consume atomically looks up and removes the entry for a state token.
	// Returns ErrStateNotFound for unknown, expired, or already-consumed
	// tokens. Atomicity guarantees at-most-once use of a given state under
	// concurrent (replayed) callbacks.
	Consume(ctx context.Context, state string) (*FlowState, error)
}
