// Package identity verifies third-party identity assertions (Google ID
// tokens) and reports how far each result can be trusted.
//
// Two strategies exist: GoogleVerifier checks the token signature against
// Google's published key set and the platform's client id, and
// UnverifiedParser only decodes the payload segment.  Chain tries them in
// that order.  The parser performs no cryptographic check at all, so any
// caller can mint an identity for any email while it is enabled; results
// from it carry TrustUnverified so the distinction reaches logs and
// metrics.
package identity

import (
	"context"
	"errors"
)

// Trust records which strategy produced an Identity.
type Trust string

const (
	TrustVerified   Trust = "verified"
	TrustUnverified Trust = "unverified"
)

// ErrInvalidAssertion is returned when an assertion cannot be verified or
// parsed, or carries no email.
var ErrInvalidAssertion = errors.New("invalid identity assertion")

// Identity is what an assertion resolves to.
type Identity struct {
	Subject string
	Email   string
	Name    string
	Trust   Trust
}

// Verifier resolves an assertion token into an Identity.
type Verifier interface {
	Verify(ctx context.Context, assertion string) (Identity, error)
}

// VerifierFunc adapts a function to the Verifier interface.
type VerifierFunc func(ctx context.Context, assertion string) (Identity, error)

func (f VerifierFunc) Verify(ctx context.Context, assertion string) (Identity, error) {
	return f(ctx, assertion)
}
