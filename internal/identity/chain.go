package identity

import (
	"context"
	"errors"
	"log/slog"
)

// Chain tries Primary and, when it fails for any reason, Fallback.  A nil
// Fallback disables the second tier.
type Chain struct {
	Primary  Verifier
	Fallback Verifier
	Logger   *slog.Logger
}

// NewChain builds the Google verification chain.  allowUnverified enables
// the structural fallback.
func NewChain(primary Verifier, allowUnverified bool, logger *slog.Logger) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Chain{Primary: primary, Logger: logger}
	if allowUnverified {
		c.Fallback = UnverifiedParser{}
	}
	return c
}

// Verify returns the first successful result.  When both tiers fail the
// error wraps ErrInvalidAssertion and, if the primary tier ran out of time,
// context.DeadlineExceeded.
func (c *Chain) Verify(ctx context.Context, assertion string) (Identity, error) {
	id, primaryErr := c.Primary.Verify(ctx, assertion)
	if primaryErr == nil {
		return id, nil
	}
	if c.Fallback == nil {
		return Identity{}, errors.Join(ErrInvalidAssertion, primaryErr)
	}

	id, err := c.Fallback.Verify(ctx, assertion)
	if err != nil {
		return Identity{}, errors.Join(ErrInvalidAssertion, primaryErr, err)
	}
	c.Logger.Warn("identity assertion accepted without signature verification",
		"subject", id.Subject, "primary_error", primaryErr.Error())
	return id, nil
}
