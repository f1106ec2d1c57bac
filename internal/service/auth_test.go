package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/fullfuel-tv/internal/identity"
	"github.com/iliyamo/fullfuel-tv/internal/model"
	"github.com/iliyamo/fullfuel-tv/internal/queue"
	"github.com/iliyamo/fullfuel-tv/internal/repository"
	"github.com/iliyamo/fullfuel-tv/internal/utils"
)

// --- fakes ---

// memUsers is an in-memory credential store that enforces the same unique
// keys as the users table.
type memUsers struct {
	mu     sync.Mutex
	nextID uint64
	byID   map[uint64]model.User

	createErr error
	getErr    error
}

func newMemUsers() *memUsers { return &memUsers{byID: map[uint64]model.User{}} }

func (m *memUsers) Create(_ context.Context, u *model.User) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return 0, m.createErr
	}
	for _, ex := range m.byID {
		if ex.Email == u.Email {
			return 0, repository.ErrEmailExists
		}
		if u.Username != "" && ex.Username == u.Username {
			return 0, repository.ErrUsernameExists
		}
	}
	m.nextID++
	cp := *u
	cp.ID = m.nextID
	m.byID[cp.ID] = cp
	return cp.ID, nil
}

func (m *memUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return model.User{}, m.getErr
	}
	u, ok := m.byID[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) find(match func(model.User) bool) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return model.User{}, m.getErr
	}
	for _, u := range m.byID {
		if match(u) {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	return m.find(func(u model.User) bool { return u.Email == email })
}

func (m *memUsers) GetByUsername(_ context.Context, username string) (model.User, error) {
	return m.find(func(u model.User) bool { return u.Username == username })
}

func (m *memUsers) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

type recordingEvents struct {
	mu     sync.Mutex
	events []queue.AccountCreatedEvent
	err    error
}

func (r *recordingEvents) PublishAccountCreated(_ context.Context, ev queue.AccountCreatedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

type countingRecorder struct {
	mu       sync.Mutex
	outcomes map[string]int
	trust    map[string]int
}

func (c *countingRecorder) RecordAuth(op, outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.outcomes == nil {
		c.outcomes = map[string]int{}
	}
	c.outcomes[op+"/"+outcome]++
}

func (c *countingRecorder) RecordAssertion(trust string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.trust == nil {
		c.trust = map[string]int{}
	}
	c.trust[trust]++
}

// assertionVerifier accepts "email|name" strings as verified identities.
var assertionVerifier = identity.VerifierFunc(func(_ context.Context, a string) (identity.Identity, error) {
	email, name, _ := strings.Cut(a, "|")
	if !strings.Contains(email, "@") {
		return identity.Identity{}, identity.ErrInvalidAssertion
	}
	return identity.Identity{Subject: "g-" + email, Email: email, Name: name, Trust: identity.TrustVerified}, nil
})

type fixture struct {
	svc     *AuthService
	users   *memUsers
	tokens  *utils.TokenCodec
	events  *recordingEvents
	metrics *countingRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		users:   newMemUsers(),
		tokens:  utils.NewTokenCodec("test-secret", 7*24*time.Hour),
		events:  &recordingEvents{},
		metrics: &countingRecorder{},
	}
	f.svc = NewAuthService(AuthConfig{
		Users:      f.users,
		Tokens:     f.tokens,
		Verifier:   assertionVerifier,
		Events:     f.events,
		Metrics:    f.metrics,
		BcryptCost: bcrypt.MinCost,
	})
	return f
}

func (f *fixture) register(t *testing.T, name, email, password string) AuthResult {
	t.Helper()
	res, err := f.svc.Register(context.Background(), RegisterInput{Name: name, Email: email, Password: password})
	if err != nil {
		t.Fatalf("Register(%s): %v", email, err)
	}
	return res
}

// --- register ---

func TestRegister_Scenario(t *testing.T) {
	f := newFixture(t)

	res := f.register(t, "Ava", "ava@x.com", "secret1")

	if res.Token == "" {
		t.Error("expected token")
	}
	if res.User.Username != "ava" {
		t.Errorf("username = %q, want ava", res.User.Username)
	}
	if res.User.Role != model.RoleUser {
		t.Errorf("role = %q, want user", res.User.Role)
	}
	claims, err := f.tokens.Verify(res.Token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.UserID != res.User.ID || claims.Name != "Ava" || claims.Email != "ava@x.com" {
		t.Errorf("claims = %+v", claims)
	}

	stored, _ := f.users.GetByID(context.Background(), res.User.ID)
	if !utils.VerifyPassword(stored.PasswordHash, "secret1") {
		t.Error("stored hash does not verify")
	}
	if len(f.events.events) != 1 || f.events.events[0].Method != queue.MethodPassword {
		t.Errorf("events = %+v", f.events.events)
	}
}

func TestRegister_MissingFields(t *testing.T) {
	f := newFixture(t)
	for _, in := range []RegisterInput{
		{Email: "a@x.com", Password: "p"},
		{Name: "A", Password: "p"},
		{Name: "A", Email: "a@x.com"},
		{Name: "   ", Email: "a@x.com", Password: "p"},
	} {
		if _, err := f.svc.Register(context.Background(), in); !errors.Is(err, ErrMissingField) {
			t.Errorf("Register(%+v) error = %v, want MissingField", in, err)
		}
	}
	if f.users.count() != 0 {
		t.Error("no record should be written")
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	f.register(t, "Ava", "ava@x.com", "secret1")

	_, err := f.svc.Register(context.Background(), RegisterInput{Name: "Ava 2", Email: "AVA@x.com ", Password: "other"})
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("error = %v, want DuplicateEmail", err)
	}
	if MessageOf(err) != "User already exists" {
		t.Errorf("message = %q", MessageOf(err))
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	f := newFixture(t)
	f.register(t, "Ava", "ava@x.com", "secret1")

	_, err := f.svc.Register(context.Background(), RegisterInput{Name: "B", Email: "b@x.com", Password: "p", Username: "ava"})
	if !errors.Is(err, ErrDuplicateUsername) {
		t.Fatalf("error = %v, want DuplicateUsername", err)
	}
}

func TestRegister_DerivedUsernameCollision(t *testing.T) {
	f := newFixture(t)
	first := f.register(t, "Ava", "ava@x.com", "secret1")
	second := f.register(t, "Ava Y", "ava@y.com", "secret1")

	if first.User.Username != "ava" {
		t.Errorf("first username = %q", first.User.Username)
	}
	if !strings.HasPrefix(second.User.Username, "ava-") {
		t.Errorf("second username = %q, want ava-<suffix>", second.User.Username)
	}
}

func TestRegister_ConcurrentSameEmail(t *testing.T) {
	f := newFixture(t)

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Register(context.Background(), RegisterInput{Name: "Ava", Email: "ava@x.com", Password: "secret1"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, dup int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrDuplicateEmail):
			dup++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 || dup != n-1 {
		t.Errorf("ok=%d dup=%d, want 1 and %d", ok, dup, n-1)
	}
}

func TestRegister_StoreFailureHidesCause(t *testing.T) {
	f := newFixture(t)
	f.users.getErr = errors.New("Error 1045: Access denied for user 'root'")

	_, err := f.svc.Register(context.Background(), RegisterInput{Name: "A", Email: "a@x.com", Password: "p"})
	if !errors.Is(err, ErrStoreFailure) {
		t.Fatalf("error = %v, want StoreFailure", err)
	}
	if strings.Contains(MessageOf(err), "1045") {
		t.Errorf("driver text leaked: %q", MessageOf(err))
	}
}

func TestRegister_StoreTimeout(t *testing.T) {
	f := newFixture(t)
	f.users.getErr = context.DeadlineExceeded

	_, err := f.svc.Register(context.Background(), RegisterInput{Name: "A", Email: "a@x.com", Password: "p"})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("error = %v, want Timeout", err)
	}
}

func TestRegister_PublishFailureIgnored(t *testing.T) {
	f := newFixture(t)
	f.events.err = errors.New("broker down")

	if _, err := f.svc.Register(context.Background(), RegisterInput{Name: "A", Email: "a@x.com", Password: "p"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
}

// --- login ---

func TestLogin(t *testing.T) {
	f := newFixture(t)
	reg := f.register(t, "Ava", "ava@x.com", "secret1")

	res, err := f.svc.Login(context.Background(), "ava@x.com", "secret1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	claims, err := f.tokens.Verify(res.Token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.UserID != reg.User.ID || claims.Email != "ava@x.com" || claims.Name != "Ava" {
		t.Errorf("claims = %+v, want user %d", claims, reg.User.ID)
	}
	if f.metrics.outcomes["login/ok"] != 1 {
		t.Errorf("metrics = %v", f.metrics.outcomes)
	}
}

func TestLogin_Failures(t *testing.T) {
	f := newFixture(t)
	f.register(t, "Ava", "ava@x.com", "secret1")
	f.users.mu.Lock()
	f.users.byID[99] = model.User{ID: 99, Name: "Legacy", Email: "legacy@x.com", Role: model.RoleUser}
	f.users.mu.Unlock()

	tests := []struct {
		name     string
		email    string
		password string
		want     error
	}{
		{"missing email", "", "secret1", ErrMissingField},
		{"missing password", "ava@x.com", "", ErrMissingField},
		{"unknown email", "nobody@x.com", "secret1", ErrInvalidCredentials},
		{"wrong password", "ava@x.com", "wrong", ErrInvalidCredentials},
		{"no password hash", "legacy@x.com", "anything", ErrUnsupportedAuthMethod},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.svc.Login(context.Background(), tt.email, tt.password)
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			if res.Token != "" {
				t.Error("no token should be issued")
			}
		})
	}
}

// --- external ---

func TestExternalLogin_CreatesThenReuses(t *testing.T) {
	f := newFixture(t)

	first, err := f.svc.ExternalLogin(context.Background(), "bo@x.com|Bo")
	if err != nil {
		t.Fatalf("ExternalLogin #1: %v", err)
	}
	second, err := f.svc.ExternalLogin(context.Background(), "bo@x.com|Bo")
	if err != nil {
		t.Fatalf("ExternalLogin #2: %v", err)
	}
	if first.User.ID != second.User.ID {
		t.Errorf("ids differ: %d vs %d", first.User.ID, second.User.ID)
	}
	if f.users.count() != 1 {
		t.Errorf("records = %d, want 1", f.users.count())
	}
	if first.User.Username != "bo" || first.User.Name != "Bo" {
		t.Errorf("user = %+v", first.User)
	}

	stored, _ := f.users.GetByID(context.Background(), first.User.ID)
	if stored.PasswordHash == "" {
		t.Error("external account must carry a password hash")
	}
	if len(f.events.events) != 1 || f.events.events[0].Trust != string(identity.TrustVerified) {
		t.Errorf("events = %+v", f.events.events)
	}
	if f.metrics.trust["verified"] != 2 {
		t.Errorf("trust metrics = %v", f.metrics.trust)
	}
}

func TestExternalLogin_ReusesPasswordAccount(t *testing.T) {
	f := newFixture(t)
	reg := f.register(t, "Ava", "ava@x.com", "secret1")

	res, err := f.svc.ExternalLogin(context.Background(), "ava@x.com|Someone Else")
	if err != nil {
		t.Fatalf("ExternalLogin: %v", err)
	}
	if res.User.ID != reg.User.ID || res.User.Name != "Ava" {
		t.Errorf("user = %+v, want existing record", res.User)
	}
}

func TestExternalLogin_DefaultName(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.ExternalLogin(context.Background(), "anon@x.com")
	if err != nil {
		t.Fatalf("ExternalLogin: %v", err)
	}
	if res.User.Name != "Google User" {
		t.Errorf("name = %q, want Google User", res.User.Name)
	}
}

func TestExternalLogin_RaceResolvesToExisting(t *testing.T) {
	f := newFixture(t)
	existing := f.register(t, "Bo", "bo@x.com", "pw")

	// Lookup misses once, then the insert collides.
	var calls int
	store := &racingStore{memUsers: f.users, miss: &calls}
	f.svc.users = store

	res, err := f.svc.ExternalLogin(context.Background(), "bo@x.com|Bo")
	if err != nil {
		t.Fatalf("ExternalLogin: %v", err)
	}
	if res.User.ID != existing.User.ID {
		t.Errorf("id = %d, want %d", res.User.ID, existing.User.ID)
	}
}

type racingStore struct {
	*memUsers
	miss *int
}

func (r *racingStore) GetByEmail(ctx context.Context, email string) (model.User, error) {
	if *r.miss == 0 {
		*r.miss++
		return model.User{}, repository.ErrNotFound
	}
	return r.memUsers.GetByEmail(ctx, email)
}

func TestExternalRegister(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.ExternalRegister(context.Background(), "bo@x.com|Bo"); err != nil {
		t.Fatalf("ExternalRegister #1: %v", err)
	}
	_, err := f.svc.ExternalRegister(context.Background(), "bo@x.com|Bo")
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("ExternalRegister #2 error = %v, want DuplicateEmail", err)
	}
	if f.users.count() != 1 {
		t.Errorf("records = %d, want 1", f.users.count())
	}
}

func TestExternal_AssertionErrors(t *testing.T) {
	f := newFixture(t)
	ops := map[string]func(context.Context, string) (AuthResult, error){
		"login":    f.svc.ExternalLogin,
		"register": f.svc.ExternalRegister,
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			if _, err := op(context.Background(), "  "); !errors.Is(err, ErrMissingAssertion) {
				t.Errorf("empty: error = %v, want MissingAssertion", err)
			}
			if _, err := op(context.Background(), "not-an-email"); !errors.Is(err, ErrInvalidAssertion) {
				t.Errorf("invalid: error = %v, want InvalidAssertion", err)
			}
		})
	}
}

func TestExternal_VerifierTimeout(t *testing.T) {
	f := newFixture(t)
	f.svc.verifierTimeout = 20 * time.Millisecond
	f.svc.verifier = identity.VerifierFunc(func(ctx context.Context, _ string) (identity.Identity, error) {
		<-ctx.Done()
		return identity.Identity{}, ctx.Err()
	})

	if _, err := f.svc.ExternalLogin(context.Background(), "x"); !errors.Is(err, ErrTimeout) {
		t.Fatalf("error = %v, want Timeout", err)
	}
}

// --- current user / admin gate ---

func TestCurrentUser(t *testing.T) {
	f := newFixture(t)
	reg := f.register(t, "Ava", "ava@x.com", "secret1")

	u, err := f.svc.CurrentUser(context.Background(), "Bearer "+reg.Token)
	if err != nil {
		t.Fatalf("CurrentUser: %v", err)
	}
	if u.ID != reg.User.ID || u.Email != "ava@x.com" {
		t.Errorf("user = %+v", u)
	}
}

func TestCurrentUser_Failures(t *testing.T) {
	f := newFixture(t)
	orphan, _, err := f.tokens.Issue(404, "Ghost", "ghost@x.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	tests := []struct {
		name   string
		header string
		want   error
		msg    string
	}{
		{"no header", "", ErrMissingToken, "No token provided"},
		{"no bearer prefix", "Token abc", ErrMissingToken, "No token provided"},
		{"garbage", "Bearer garbage", ErrInvalidToken, "Invalid token"},
		{"unknown user", "Bearer " + orphan, ErrNotFound, "User not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CurrentUser(context.Background(), tt.header)
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			if MessageOf(err) != tt.msg {
				t.Errorf("message = %q, want %q", MessageOf(err), tt.msg)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	f := newFixture(t)
	user := f.register(t, "Ava", "ava@x.com", "secret1")
	admin := f.register(t, "Root", "root@x.com", "secret1")
	f.users.mu.Lock()
	a := f.users.byID[admin.User.ID]
	a.Role = model.RoleAdmin
	f.users.byID[admin.User.ID] = a
	f.users.mu.Unlock()

	if _, err := f.svc.RequireAdmin(context.Background(), "Bearer "+user.Token); !errors.Is(err, ErrForbidden) {
		t.Errorf("user: error = %v, want Forbidden", err)
	}
	got, err := f.svc.RequireAdmin(context.Background(), "Bearer "+admin.Token)
	if err != nil || got.ID != admin.User.ID {
		t.Errorf("admin: %+v, %v", got, err)
	}
	if _, err := f.svc.RequireAdmin(context.Background(), ""); !errors.Is(err, ErrMissingToken) {
		t.Errorf("anonymous: error = %v, want MissingToken", err)
	}
}
