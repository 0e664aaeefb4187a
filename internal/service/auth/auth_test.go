package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"taskhub/internal/apperr"
	"taskhub/internal/model"
	"taskhub/internal/repository"
	"taskhub/internal/repository/memory"
	"taskhub/pkg/util"
)

func init() {
	util.PasswordCost = bcrypt.MinCost
}

type fixture struct {
	db     *memory.DB
	issuer *Issuer
	svc    *Service
}

func newFixture(t *testing.T, opts Options, ttl time.Duration) *fixture {
	t.Helper()
	db := memory.NewDB()
	issuer := NewIssuer(db.Tokens(), db.Users(), "test-secret", ttl, zap.NewNop())
	return &fixture{
		db:     db,
		issuer: issuer,
		svc:    NewService(db.Users(), issuer, opts, zap.NewNop()),
	}
}

func registerInput(email string) RegisterInput {
	return RegisterInput{
		Name:                 "Ada",
		Email:                email,
		Password:             "password123",
		PasswordConfirmation: "password123",
	}
}

func wantKind(t *testing.T, err error, kind apperr.Kind) *apperr.Error {
	t.Helper()
	e, ok := apperr.As(err)
	if !ok || e.Kind != kind {
		t.Fatalf("expected %s error, got %v", kind, err)
	}
	return e
}

func TestRegisterIssuesResolvableToken(t *testing.T) {
	f := newFixture(t, Options{}, 0)
	ctx := context.Background()

	res, err := f.svc.Register(ctx, registerInput("ada@example.com"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if res.User.Role != "user" {
		t.Fatalf("expected default role, got %q", res.User.Role)
	}
	if res.User.PasswordHash == "password123" {
		t.Fatal("password stored in plaintext")
	}

	user, tokenID, err := f.issuer.Resolve(ctx, res.Token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if user.ID != res.User.ID || tokenID == "" {
		t.Fatalf("resolved to %+v (%s)", user, tokenID)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newFixture(t, Options{}, 0)
	ctx := context.Background()

	if _, err := f.svc.Register(ctx, registerInput("dup@example.com")); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err := f.svc.Register(ctx, registerInput("dup@example.com"))
	e := wantKind(t, err, apperr.KindValidation)
	if e.Message != "Email already taken." {
		t.Fatalf("unexpected message %q", e.Message)
	}
}

// racingUsers hides existing rows from the pre-check so the insert hits the
// unique index, as a concurrent registration would.
type racingUsers struct {
	repository.UserStore
}

func (racingUsers) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return nil, repository.ErrNotFound
}

func TestRegisterRaceIsConflict(t *testing.T) {
	db := memory.NewDB()
	users := racingUsers{UserStore: db.Users()}
	issuer := NewIssuer(db.Tokens(), db.Users(), "test-secret", 0, zap.NewNop())
	svc := NewService(users, issuer, Options{}, zap.NewNop())
	ctx := context.Background()

	if _, err := svc.Register(ctx, registerInput("race@example.com")); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err := svc.Register(ctx, registerInput("race@example.com"))
	e := wantKind(t, err, apperr.KindConflict)
	if e.Message != "A user with this email already exists." {
		t.Fatalf("unexpected message %q", e.Message)
	}
}

func TestRegisterConcurrentSameEmail(t *testing.T) {
	f := newFixture(t, Options{}, 0)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.Register(ctx, registerInput("same@example.com")); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if succeeded != 1 {
		t.Fatalf("expected exactly one registration, got %d", succeeded)
	}
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t, Options{StrictRoles: true}, 0)
	ctx := context.Background()

	in := registerInput("not-an-email")
	in.PasswordConfirmation = "different"
	e := wantKind(t, f.svc.registerErr(ctx, in), apperr.KindValidation)
	if e.Fields["email"] == "" || e.Fields["password"] == "" {
		t.Fatalf("expected email and password errors, got %v", e.Fields)
	}

	in = registerInput("role@example.com")
	in.Role = "superuser"
	e = wantKind(t, f.svc.registerErr(ctx, in), apperr.KindValidation)
	if e.Fields["role"] != "The selected role is invalid." {
		t.Fatalf("unexpected role error %v", e.Fields)
	}

	in.Role = "admin"
	if err := f.svc.registerErr(ctx, in); err != nil {
		t.Fatalf("known role rejected: %v", err)
	}
}

func (s *Service) registerErr(ctx context.Context, in RegisterInput) error {
	_, err := s.Register(ctx, in)
	return err
}

func TestRegisterOpenRole(t *testing.T) {
	f := newFixture(t, Options{}, 0)
	in := registerInput("open@example.com")
	in.Role = "auditor"
	res, err := f.svc.Register(context.Background(), in)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if res.User.Role != "auditor" {
		t.Fatalf("expected role kept, got %q", res.User.Role)
	}
}

func TestLoginFailuresShareMessage(t *testing.T) {
	f := newFixture(t, Options{}, 0)
	ctx := context.Background()
	if _, err := f.svc.Register(ctx, registerInput("login@example.com")); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, errWrong := f.svc.Login(ctx, LoginInput{Email: "login@example.com", Password: "wrong-password"})
	_, errUnknown := f.svc.Login(ctx, LoginInput{Email: "ghost@example.com", Password: "password123"})

	wrong := wantKind(t, errWrong, apperr.KindUnauthenticated)
	unknown := wantKind(t, errUnknown, apperr.KindUnauthenticated)
	if wrong.Message != unknown.Message || wrong.Message != "Invalid credentials" {
		t.Fatalf("messages differ: %q vs %q", wrong.Message, unknown.Message)
	}
}

func TestLoginTokenResolvesToSameUser(t *testing.T) {
	f := newFixture(t, Options{}, time.Hour)
	ctx := context.Background()
	reg, _ := f.svc.Register(ctx, registerInput("same-user@example.com"))

	res, err := f.svc.Login(ctx, LoginInput{Email: "same-user@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	user, _, err := f.svc.Authenticate(ctx, res.Token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if user.ID != reg.User.ID {
		t.Fatalf("token resolved to user %d, want %d", user.ID, reg.User.ID)
	}
}

func TestLogoutRevokesOnlyCurrentToken(t *testing.T) {
	f := newFixture(t, Options{}, 0)
	ctx := context.Background()
	reg, _ := f.svc.Register(ctx, registerInput("logout@example.com"))
	second, _ := f.svc.Login(ctx, LoginInput{Email: "logout@example.com", Password: "password123"})

	user, tokenID, err := f.svc.Authenticate(ctx, reg.Token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if err := f.svc.Logout(ctx, user, tokenID); err != nil {
		t.Fatalf("logout: %v", err)
	}

	_, _, err = f.svc.Authenticate(ctx, reg.Token)
	wantKind(t, err, apperr.KindUnauthenticated)
	if _, _, err := f.svc.Authenticate(ctx, second.Token); err != nil {
		t.Fatalf("other token revoked too: %v", err)
	}

	// Revoking twice is harmless.
	if err := f.svc.Logout(ctx, user, tokenID); err != nil {
		t.Fatalf("second logout: %v", err)
	}
	wantKind(t, f.svc.Logout(ctx, nil, tokenID), apperr.KindUnauthenticated)
}

func TestResolveRejects(t *testing.T) {
	f := newFixture(t, Options{}, 0)
	ctx := context.Background()
	reg, _ := f.svc.Register(ctx, registerInput("reject@example.com"))

	other := NewIssuer(f.db.Tokens(), f.db.Users(), "other-secret", 0, zap.NewNop())
	forged, _, err := other.Issue(ctx, reg.User)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	for name, bearer := range map[string]string{
		"empty":        "",
		"garbage":      "not-a-jwt",
		"wrong secret": forged,
		"tampered":     reg.Token + "x",
	} {
		if _, _, err := f.issuer.Resolve(ctx, bearer); apperr.KindOf(err) != apperr.KindUnauthenticated {
			t.Errorf("%s: expected unauthenticated, got %v", name, err)
		}
	}
}

func TestResolveExpiredToken(t *testing.T) {
	f := newFixture(t, Options{}, time.Minute)
	ctx := context.Background()
	reg, _ := f.svc.Register(ctx, registerInput("expire@example.com"))

	f.issuer.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, _, err := f.issuer.Resolve(ctx, reg.Token)
	wantKind(t, err, apperr.KindUnauthenticated)

	n, err := f.issuer.PruneExpired(ctx)
	if err != nil || n != 1 {
		t.Fatalf("expected one pruned token, got %d (%v)", n, err)
	}
}

type mapCache struct {
	mu        sync.Mutex
	entries   map[string]cacheEntry
	gets      int
	deleteErr error
}

type cacheEntry struct {
	hash   string
	userID int64
}

func (c *mapCache) Get(ctx context.Context, tokenID string) (string, int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	e, ok := c.entries[tokenID]
	return e.hash, e.userID, ok, nil
}

func (c *mapCache) Set(ctx context.Context, tokenID, hash string, userID int64, expiresAt *time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[tokenID] = cacheEntry{hash: hash, userID: userID}
	return nil
}

func (c *mapCache) Delete(ctx context.Context, tokenID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.deleteErr != nil {
		return c.deleteErr
	}
	delete(c.entries, tokenID)
	return nil
}

func TestResolveUsesCacheAndRevokeEvicts(t *testing.T) {
	f := newFixture(t, Options{}, 0)
	cache := &mapCache{entries: map[string]cacheEntry{}}
	f.issuer.WithCache(cache)
	ctx := context.Background()

	reg, _ := f.svc.Register(ctx, registerInput("cache@example.com"))
	_, tokenID, err := f.issuer.Resolve(ctx, reg.Token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, ok := cache.entries[tokenID]; !ok {
		t.Fatal("expected token cached after first resolve")
	}

	if err := f.issuer.Revoke(ctx, tokenID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, ok := cache.entries[tokenID]; ok {
		t.Fatal("expected cache entry evicted")
	}
	if _, _, err := f.issuer.Resolve(ctx, reg.Token); apperr.KindOf(err) != apperr.KindUnauthenticated {
		t.Fatalf("expected revoked token rejected, got %v", err)
	}
}

func TestLogoutFailsWhenCacheEvictionFails(t *testing.T) {
	f := newFixture(t, Options{}, 0)
	cache := &mapCache{entries: map[string]cacheEntry{}}
	f.issuer.WithCache(cache)
	ctx := context.Background()

	reg, _ := f.svc.Register(ctx, registerInput("sticky@example.com"))
	user, tokenID, err := f.svc.Authenticate(ctx, reg.Token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	cache.deleteErr = errors.New("redis: connection reset")
	if err := f.svc.Logout(ctx, user, tokenID); err == nil {
		t.Fatal("expected logout to report the failed eviction")
	} else if apperr.KindOf(err) != apperr.KindUnexpected {
		t.Fatalf("expected unexpected error, got %v", err)
	}

	// The retry evicts the entry and the token stops resolving.
	cache.deleteErr = nil
	if err := f.svc.Logout(ctx, user, tokenID); err != nil {
		t.Fatalf("retry logout: %v", err)
	}
	_, _, err = f.svc.Authenticate(ctx, reg.Token)
	wantKind(t, err, apperr.KindUnauthenticated)
}

// flakyTokens fails inserts while insertErr is set.
type flakyTokens struct {
	repository.TokenStore
	insertErr error
}

func (s *flakyTokens) Insert(ctx context.Context, t *model.AccessToken) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	return s.TokenStore.Insert(ctx, t)
}

func TestRegisterTokenFailureKeepsAccount(t *testing.T) {
	db := memory.NewDB()
	tokens := &flakyTokens{TokenStore: db.Tokens(), insertErr: errors.New("insert failed")}
	svc := NewService(db.Users(), NewIssuer(tokens, db.Users(), "test-secret", 0, zap.NewNop()), Options{}, zap.NewNop())
	ctx := context.Background()

	_, err := svc.Register(ctx, registerInput("late@example.com"))
	if err == nil || apperr.KindOf(err) != apperr.KindUnexpected {
		t.Fatalf("expected unexpected error, got %v", err)
	}

	tokens.insertErr = nil
	res, err := svc.Login(ctx, LoginInput{Email: "late@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("login after failed register: %v", err)
	}
	if _, _, err := svc.Authenticate(ctx, res.Token); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
}

type countingLimiter struct {
	counts map[string]int64
	err    error
}

func (l *countingLimiter) Hit(ctx context.Context, key string) (int64, error) {
	l.counts[key]++
	return l.counts[key], nil
}

func (l *countingLimiter) Count(ctx context.Context, key string) (int64, error) {
	return l.counts[key], l.err
}

func (l *countingLimiter) Reset(ctx context.Context, key string) error {
	delete(l.counts, key)
	return nil
}

func TestLoginThrottle(t *testing.T) {
	f := newFixture(t, Options{MaxLoginAttempts: 2}, 0)
	limiter := &countingLimiter{counts: map[string]int64{}}
	f.svc.WithLimiter(limiter)
	ctx := context.Background()
	if _, err := f.svc.Register(ctx, registerInput("throttle@example.com")); err != nil {
		t.Fatalf("register: %v", err)
	}

	bad := LoginInput{Email: "throttle@example.com", Password: "nope-nope"}
	for i := 0; i < 2; i++ {
		_, err := f.svc.Login(ctx, bad)
		wantKind(t, err, apperr.KindUnauthenticated)
	}
	_, err := f.svc.Login(ctx, LoginInput{Email: "Throttle@example.com", Password: "password123"})
	wantKind(t, err, apperr.KindTooManyAttempts)

	limiter.counts = map[string]int64{}
	if _, err := f.svc.Login(ctx, LoginInput{Email: "throttle@example.com", Password: "password123"}); err != nil {
		t.Fatalf("login after window: %v", err)
	}

	// A limiter outage does not lock anyone out.
	limiter.err = errors.New("redis down")
	limiter.counts["login_attempts:throttle@example.com"] = 10
	if _, err := f.svc.Login(ctx, LoginInput{Email: "throttle@example.com", Password: "password123"}); err != nil {
		t.Fatalf("expected fail-open login, got %v", err)
	}
}
