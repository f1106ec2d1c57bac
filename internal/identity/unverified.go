package identity

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// UnverifiedParser decodes the payload segment of a JWT-shaped assertion
// without checking its signature, audience, issuer or expiry.
type UnverifiedParser struct{}

type assertionPayload struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Verify splits the assertion into its three segments and reads the
// middle one as JSON.  The result carries TrustUnverified.
func (UnverifiedParser) Verify(_ context.Context, assertion string) (Identity, error) {
	parts := strings.Split(assertion, ".")
	if len(parts) != 3 {
		return Identity{}, fmt.Errorf("expected 3 segments, got %d: %w", len(parts), ErrInvalidAssertion)
	}
	raw, err := decodeSegment(parts[1])
	if err != nil {
		return Identity{}, fmt.Errorf("decode payload: %v: %w", err, ErrInvalidAssertion)
	}
	var p assertionPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Identity{}, fmt.Errorf("parse payload: %v: %w", err, ErrInvalidAssertion)
	}
	if p.Email == "" {
		return Identity{}, fmt.Errorf("payload has no email: %w", ErrInvalidAssertion)
	}
	return Identity{Subject: p.Sub, Email: p.Email, Name: p.Name, Trust: TrustUnverified}, nil
}

// decodeSegment accepts url-safe or standard base64, padded or not.
func decodeSegment(s string) ([]byte, error) {
	s = strings.TrimRight(s, "=")
	if b, err := base64.RawURLEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(s)
}
