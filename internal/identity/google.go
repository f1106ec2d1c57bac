package identity

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/time/rate"
)

const (
	// DefaultGoogleCertsURL serves Google's signing keys as a JWK Set.
	DefaultGoogleCertsURL = "https://www.googleapis.com/oauth2/v3/certs"

	defaultRefreshInterval = time.Hour

	// unknownKIDRefreshEvery bounds how often a token naming a key id we
	// have not seen may force a refetch of the key set.
	unknownKIDRefreshEvery = 5 * time.Minute

	// unknownKIDWaitMax caps how long Verify waits for the unknown key id
	// limiter; anything longer fails the token instead.
	unknownKIDWaitMax = time.Second
)

var googleIssuers = map[string]bool{
	"accounts.google.com":         true,
	"https://accounts.google.com": true,
}

// googleClaims is the subset of a Google ID token we read.
type googleClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// GoogleConfig configures a GoogleVerifier.  Zero values fall back to
// DefaultGoogleCertsURL, a 10s HTTP client and an hourly refresh.
type GoogleConfig struct {
	ClientID        string
	CertsURL        string
	Client          *http.Client
	RefreshInterval time.Duration
}

// GoogleVerifier checks RS256 Google ID tokens against Google's published
// key set and the configured client id.  The key set is refreshed in the
// background; a token with an unknown key id triggers at most one extra
// fetch per unknownKIDRefreshEvery.
type GoogleVerifier struct {
	clientID string
	keys     keyfunc.Keyfunc
	now      func() time.Time
}

// NewGoogleVerifier fetches the key set and starts its refresh loop, which
// stops when ctx is cancelled.
func NewGoogleVerifier(ctx context.Context, cfg GoogleConfig) (*GoogleVerifier, error) {
	if cfg.CertsURL == "" {
		cfg.CertsURL = DefaultGoogleCertsURL
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = defaultRefreshInterval
	}
	keys, err := keyfunc.NewDefaultOverrideCtx(ctx, []string{cfg.CertsURL}, keyfunc.Override{
		Client:            cfg.Client,
		RateLimitWaitMax:  unknownKIDWaitMax,
		RefreshInterval:   cfg.RefreshInterval,
		RefreshUnknownKID: rate.NewLimiter(rate.Every(unknownKIDRefreshEvery), 1),
	})
	if err != nil {
		return nil, fmt.Errorf("google key set: %w", err)
	}
	return &GoogleVerifier{clientID: cfg.ClientID, keys: keys, now: time.Now}, nil
}

// Verify validates signature, audience, issuer and expiry and returns the
// identity with TrustVerified.
func (g *GoogleVerifier) Verify(_ context.Context, assertion string) (Identity, error) {
	var claims googleClaims
	_, err := jwt.ParseWithClaims(assertion, &claims, g.keys.Keyfunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(g.clientID),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(g.now),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("google: %w", err)
	}
	if !googleIssuers[claims.Issuer] {
		return Identity{}, fmt.Errorf("google: unexpected issuer %q: %w", claims.Issuer, ErrInvalidAssertion)
	}
	if claims.Email == "" {
		return Identity{}, fmt.Errorf("google: payload has no email: %w", ErrInvalidAssertion)
	}
	return Identity{Subject: claims.Subject, Email: claims.Email, Name: claims.Name, Trust: TrustVerified}, nil
}
