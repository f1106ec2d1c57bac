// Package service holds the application services that sit between the
// HTTP handlers and the repositories.
package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/iliyamo/fullfuel-tv/internal/identity"
	"github.com/iliyamo/fullfuel-tv/internal/model"
	"github.com/iliyamo/fullfuel-tv/internal/queue"
	"github.com/iliyamo/fullfuel-tv/internal/repository"
	"github.com/iliyamo/fullfuel-tv/internal/utils"
)

// UserStore is the credential store the auth flow needs.  *repository.UserRepo
// satisfies it; email and username uniqueness must be enforced by the store.
type UserStore interface {
	Create(ctx context.Context, u *model.User) (uint64, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByUsername(ctx context.Context, username string) (model.User, error)
}

// EventPublisher receives account creation events.  *queue.Publisher
// satisfies it.
type EventPublisher interface {
	PublishAccountCreated(ctx context.Context, ev queue.AccountCreatedEvent) error
}

// Recorder receives auth outcome counts.  *metrics.Collector satisfies it.
type Recorder interface {
	RecordAuth(op, outcome string)
	RecordAssertion(trust string)
}

// AuthConfig bundles the auth service's collaborators and limits.  Events,
// Metrics and Logger are optional.
type AuthConfig struct {
	Users    UserStore
	Tokens   *utils.TokenCodec
	Verifier identity.Verifier
	Events   EventPublisher
	Metrics  Recorder
	Logger   *slog.Logger

	BcryptCost      int
	StoreTimeout    time.Duration
	VerifierTimeout time.Duration
}

// AuthService implements registration, login, Google sign-in and session
// lookup.  It keeps no state of its own between calls.
type AuthService struct {
	users    UserStore
	tokens   *utils.TokenCodec
	verifier identity.Verifier
	events   EventPublisher
	metrics  Recorder
	logger   *slog.Logger

	cost            int
	storeTimeout    time.Duration
	verifierTimeout time.Duration
}

const (
	defaultExternalName = "Google User"
	bearerPrefix        = "Bearer "

	// derivedUsernameAttempts bounds retries when an email-derived username
	// collides with an existing one.
	derivedUsernameAttempts = 3
)

func NewAuthService(cfg AuthConfig) *AuthService {
	s := &AuthService{
		users:           cfg.Users,
		tokens:          cfg.Tokens,
		verifier:        cfg.Verifier,
		events:          cfg.Events,
		metrics:         cfg.Metrics,
		logger:          cfg.Logger,
		cost:            cfg.BcryptCost,
		storeTimeout:    cfg.StoreTimeout,
		verifierTimeout: cfg.VerifierTimeout,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.cost == 0 {
		s.cost = 10
	}
	if s.storeTimeout <= 0 {
		s.storeTimeout = 5 * time.Second
	}
	if s.verifierTimeout <= 0 {
		s.verifierTimeout = 5 * time.Second
	}
	return s
}

// AuthResult is returned by every operation that signs a user in.
type AuthResult struct {
	Token string           `json:"token"`
	User  model.PublicUser `json:"user"`
}

// RegisterInput carries the fields of a password registration.  Username is
// optional.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Username string
}

// Register creates a password account and signs it in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (res AuthResult, err error) {
	defer s.record("register", &err)

	in.Name = strings.TrimSpace(in.Name)
	in.Email = repository.NormalizeEmail(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return AuthResult{}, withMessage(ErrMissingField, "Please provide name, email and password")
	}

	if _, err := s.lookupEmail(ctx, in.Email); err == nil {
		return AuthResult{}, ErrDuplicateEmail
	} else if !errors.Is(err, ErrNotFound) {
		return AuthResult{}, err
	}
	if in.Username != "" {
		if err := s.ensureUsernameFree(ctx, in.Username); err != nil {
			return AuthResult{}, err
		}
	}

	hash, err := utils.HashPassword(in.Password, s.cost)
	if err != nil {
		if errors.Is(err, utils.ErrPasswordTooLong) {
			return AuthResult{}, withMessage(ErrInvalidInput, "Password is too long")
		}
		return AuthResult{}, s.internal("hash password", err)
	}

	u := model.User{
		Name:         in.Name,
		Email:        in.Email,
		Username:     in.Username,
		PasswordHash: hash,
		Role:         model.RoleUser,
	}
	if err := s.insert(ctx, &u, in.Username == ""); err != nil {
		return AuthResult{}, err
	}
	s.publish(ctx, u, queue.MethodPassword, "")
	return s.signIn(u)
}

// Login checks an email/password pair.
func (s *AuthService) Login(ctx context.Context, email, password string) (res AuthResult, err error) {
	defer s.record("login", &err)

	email = repository.NormalizeEmail(email)
	if email == "" || password == "" {
		return AuthResult{}, withMessage(ErrMissingField, "Email and password are required")
	}

	u, err := s.lookupEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return AuthResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return AuthResult{}, err
	}
	if u.PasswordHash == "" {
		return AuthResult{}, ErrUnsupportedAuthMethod
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return AuthResult{}, ErrInvalidCredentials
	}
	return s.signIn(u)
}

// ExternalLogin signs in with a Google assertion, creating the account on
// first use.  Repeated calls for the same email resolve to the same record.
func (s *AuthService) ExternalLogin(ctx context.Context, assertion string) (res AuthResult, err error) {
	defer s.record("external_login", &err)

	id, err := s.resolveAssertion(ctx, assertion)
	if err != nil {
		return AuthResult{}, err
	}

	u, err := s.lookupEmail(ctx, id.Email)
	switch {
	case err == nil:
		return s.signIn(u)
	case !errors.Is(err, ErrNotFound):
		return AuthResult{}, err
	}

	u, err = s.createExternal(ctx, id)
	if errors.Is(err, ErrDuplicateEmail) {
		// A concurrent sign-in created the record between lookup and insert.
		if u, err = s.lookupEmail(ctx, id.Email); err == nil {
			return s.signIn(u)
		}
	}
	if err != nil {
		return AuthResult{}, err
	}
	return s.signIn(u)
}

// ExternalRegister creates an account from a Google assertion.  It never
// reuses an existing record.
func (s *AuthService) ExternalRegister(ctx context.Context, assertion string) (res AuthResult, err error) {
	defer s.record("external_register", &err)

	id, err := s.resolveAssertion(ctx, assertion)
	if err != nil {
		return AuthResult{}, err
	}
	if _, err := s.lookupEmail(ctx, id.Email); err == nil {
		return AuthResult{}, ErrDuplicateEmail
	} else if !errors.Is(err, ErrNotFound) {
		return AuthResult{}, err
	}
	u, err := s.createExternal(ctx, id)
	if err != nil {
		return AuthResult{}, err
	}
	return s.signIn(u)
}

// CurrentUser resolves an Authorization header value to the scrubbed
// record of its owner.
func (s *AuthService) CurrentUser(ctx context.Context, authorization string) (res model.PublicUser, err error) {
	defer s.record("me", &err)

	u, err := s.Authenticate(ctx, authorization)
	if err != nil {
		return model.PublicUser{}, err
	}
	return u.Public(), nil
}

// Authenticate extracts the bearer token from an Authorization header,
// verifies it and loads the user it names.
func (s *AuthService) Authenticate(ctx context.Context, authorization string) (model.User, error) {
	if !strings.HasPrefix(authorization, bearerPrefix) {
		return model.User{}, ErrMissingToken
	}
	raw := strings.TrimSpace(strings.TrimPrefix(authorization, bearerPrefix))
	claims, err := s.tokens.Verify(raw)
	if err != nil {
		return model.User{}, ErrInvalidToken
	}

	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	u, err := s.users.GetByID(sctx, claims.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, s.storeFailure("get user by id", err)
	}
	return u, nil
}

// RequireAdmin is the single authorization gate for admin operations:
// authenticate, then require the admin role.
func (s *AuthService) RequireAdmin(ctx context.Context, authorization string) (model.User, error) {
	u, err := s.Authenticate(ctx, authorization)
	if err != nil {
		return model.User{}, err
	}
	if !u.IsAdmin() {
		return model.User{}, ErrForbidden
	}
	return u, nil
}

func (s *AuthService) resolveAssertion(ctx context.Context, assertion string) (identity.Identity, error) {
	assertion = strings.TrimSpace(assertion)
	if assertion == "" {
		return identity.Identity{}, ErrMissingAssertion
	}

	vctx, cancel := context.WithTimeout(ctx, s.verifierTimeout)
	defer cancel()
	id, err := s.verifier.Verify(vctx, assertion)
	if err != nil {
		if isTimeout(err) {
			return identity.Identity{}, wrap(ErrTimeout, err)
		}
		s.logger.Info("identity assertion rejected", "error", err)
		return identity.Identity{}, wrap(ErrInvalidAssertion, err)
	}
	id.Email = repository.NormalizeEmail(id.Email)
	if id.Email == "" {
		return identity.Identity{}, ErrInvalidAssertion
	}
	if s.metrics != nil {
		s.metrics.RecordAssertion(string(id.Trust))
	}
	return id, nil
}

// createExternal inserts a record for a Google identity.  The password hash
// covers a random secret so every record carries one.
func (s *AuthService) createExternal(ctx context.Context, id identity.Identity) (model.User, error) {
	secret, err := utils.RandomSecret()
	if err != nil {
		return model.User{}, s.internal("random secret", err)
	}
	hash, err := utils.HashPassword(secret, s.cost)
	if err != nil {
		return model.User{}, s.internal("hash password", err)
	}
	name := strings.TrimSpace(id.Name)
	if name == "" {
		name = defaultExternalName
	}
	u := model.User{
		Name:         name,
		Email:        id.Email,
		PasswordHash: hash,
		Role:         model.RoleUser,
	}
	if err := s.insert(ctx, &u, true); err != nil {
		return model.User{}, err
	}
	s.publish(ctx, u, queue.MethodGoogle, string(id.Trust))
	return u, nil
}

// insert writes u, filling ID and timestamps.  When deriveUsername is set
// the username comes from the email local part; if that handle is taken a
// short random suffix is tried a few times.
func (s *AuthService) insert(ctx context.Context, u *model.User, deriveUsername bool) error {
	base := u.Username
	if deriveUsername {
		base = model.UsernameFromEmail(u.Email)
		u.Username = base
	}
	attempts := 1
	if deriveUsername {
		attempts = derivedUsernameAttempts
	}

	for i := 0; ; i++ {
		sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
		id, err := s.users.Create(sctx, u)
		cancel()
		switch {
		case err == nil:
			now := time.Now().UTC()
			u.ID, u.CreatedAt, u.UpdatedAt = id, now, now
			return nil
		case errors.Is(err, repository.ErrEmailExists):
			return ErrDuplicateEmail
		case errors.Is(err, repository.ErrUsernameExists):
			if i+1 >= attempts {
				return ErrDuplicateUsername
			}
			u.Username = base + "-" + randomSuffix()
		default:
			return s.storeFailure("create user", err)
		}
	}
}

func (s *AuthService) ensureUsernameFree(ctx context.Context, username string) error {
	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	_, err := s.users.GetByUsername(sctx, username)
	switch {
	case err == nil:
		return ErrDuplicateUsername
	case errors.Is(err, repository.ErrNotFound):
		return nil
	default:
		return s.storeFailure("get user by username", err)
	}
}

// lookupEmail maps a missing record to ErrNotFound and driver errors to
// StoreFailure or Timeout.
func (s *AuthService) lookupEmail(ctx context.Context, email string) (model.User, error) {
	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	u, err := s.users.GetByEmail(sctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, s.storeFailure("get user by email", err)
	}
	return u, nil
}

func (s *AuthService) signIn(u model.User) (AuthResult, error) {
	tok, _, err := s.tokens.Issue(u.ID, u.Name, u.Email)
	if err != nil {
		return AuthResult{}, s.internal("issue token", err)
	}
	return AuthResult{Token: tok, User: u.Public()}, nil
}

// publish sends an account event.  Failures are logged and never fail the
// request.
func (s *AuthService) publish(ctx context.Context, u model.User, method, trust string) {
	if s.events == nil {
		return
	}
	ev := queue.AccountCreatedEvent{
		UserID:    u.ID,
		Email:     u.Email,
		Username:  u.Username,
		Method:    method,
		Trust:     trust,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.storeTimeout)
	defer cancel()
	if err := s.events.PublishAccountCreated(pctx, ev); err != nil {
		s.logger.Warn("publish account event failed", "user_id", u.ID, "error", err)
	}
}

func (s *AuthService) storeFailure(op string, err error) error {
	if isTimeout(err) {
		s.logger.Error("store call timed out", "op", op, "error", err)
		return wrap(ErrTimeout, err)
	}
	s.logger.Error("store call failed", "op", op, "error", err)
	return wrap(ErrStoreFailure, err)
}

func (s *AuthService) internal(op string, err error) error {
	s.logger.Error("auth internal failure", "op", op, "error", err)
	return wrap(ErrStoreFailure, err)
}

func (s *AuthService) record(op string, errp *error) {
	if s.metrics == nil {
		return
	}
	outcome := "ok"
	if *errp != nil {
		outcome = string(KindOf(*errp))
	}
	s.metrics.RecordAuth(op, outcome)
}

func randomSuffix() string {
	b := make([]byte, 2)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
