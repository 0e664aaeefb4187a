// Package auth registers users, checks credentials and manages the bearer
// tokens that identify the principal on later requests.
package auth

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"taskhub/internal/apperr"
	"taskhub/internal/model"
	"taskhub/internal/policy"
	"taskhub/internal/repository"
	"taskhub/internal/service/validate"
	"taskhub/pkg/logger"
	"taskhub/pkg/metrics"
	"taskhub/pkg/otel"
	"taskhub/pkg/rbac"
	"taskhub/pkg/util"
)

const (
	msgInvalidCredentials = "Invalid credentials"
	msgEmailTaken         = "Email already taken."
	msgEmailConflict      = "A user with this email already exists."
	msgTooManyAttempts    = "Too many login attempts. Please try again later."
)

// AttemptLimiter counts failed logins per key (implemented by
// pkg/util.AttemptCounter).
type AttemptLimiter interface {
	Hit(ctx context.Context, key string) (int64, error)
	Count(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

type Options struct {
	// StrictRoles rejects roles that pkg/rbac does not know.
	StrictRoles bool
	// MaxLoginAttempts is enforced only when a limiter is attached.
	MaxLoginAttempts int
}

type Service struct {
	users   repository.UserStore
	issuer  *Issuer
	limiter AttemptLimiter
	opts    Options
	logger  *zap.Logger
}

func NewService(users repository.UserStore, issuer *Issuer, opts Options, logger *zap.Logger) *Service {
	return &Service{
		users:  users,
		issuer: issuer,
		opts:   opts,
		logger: logger,
	}
}

func (s *Service) WithLimiter(limiter AttemptLimiter) *Service {
	s.limiter = limiter
	return s
}

type RegisterInput struct {
	Name                 string `json:"name" validate:"required,notblank,max=255"`
	Email                string `json:"email" validate:"required,email,max=255"`
	Password             string `json:"password" validate:"required,min=8,max=255,eqfield=PasswordConfirmation"`
	PasswordConfirmation string `json:"password_confirmation"`
	Role                 string `json:"role" validate:"omitempty,max=50"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Result is what register and login hand back: the user and a freshly
// issued bearer token.
type Result struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

// Register creates a user and issues its first token. An email that is
// already registered is a validation failure; losing the insert race to a
// concurrent registration is a conflict.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Result, error) {
	ctx, span := otel.StartSpan(ctx, "auth.register")
	defer span.End()

	in.Email = strings.TrimSpace(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := validate.Struct(in); err != nil {
		metrics.IncrementAuthEvent("register", "invalid")
		return nil, err
	}

	role := strings.TrimSpace(in.Role)
	if role == "" {
		role = rbac.DefaultRole
	}
	if s.opts.StrictRoles && !rbac.IsKnownRole(role) {
		metrics.IncrementAuthEvent("register", "invalid")
		return nil, apperr.FieldInvalid("role", "The selected role is invalid.")
	}

	if _, err := s.users.FindByEmail(ctx, in.Email); err == nil {
		metrics.IncrementAuthEvent("register", "email_taken")
		return nil, apperr.FieldInvalid("email", msgEmailTaken)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := util.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			logger.WithTrace(ctx, s.logger).Warn("Duplicate registration attempt", zap.Error(err))
			metrics.IncrementAuthEvent("register", "conflict")
			return nil, apperr.Conflict(msgEmailConflict, err)
		}
		return nil, err
	}

	// The account is already committed; the client recovers through login.
	token, _, err := s.issuer.Issue(ctx, user)
	if err != nil {
		logger.WithTrace(ctx, s.logger).Error("Registered user but token issue failed",
			zap.Int64("user_id", user.ID),
			zap.Error(err),
		)
		metrics.IncrementAuthEvent("register", "token_failed")
		return nil, err
	}

	metrics.IncrementAuthEvent("register", "success")
	logger.WithTrace(ctx, s.logger).Info("User registered",
		zap.Int64("user_id", user.ID),
		zap.String("role", user.Role),
	)
	return &Result{User: user, Token: token}, nil
}

// Login checks the credentials and issues a new token. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, in LoginInput) (*Result, error) {
	ctx, span := otel.StartSpan(ctx, "auth.login")
	defer span.End()

	in.Email = strings.TrimSpace(in.Email)
	if err := validate.Struct(in); err != nil {
		metrics.IncrementAuthEvent("login", "invalid")
		return nil, err
	}

	key := util.FormatLoginAttemptKey(in.Email)
	if s.throttled(ctx, key) {
		metrics.IncrementAuthEvent("login", "throttled")
		return nil, apperr.TooManyAttempts(msgTooManyAttempts)
	}

	user, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if user == nil || !util.CheckPassword(in.Password, user.PasswordHash) {
		s.recordFailure(ctx, key)
		metrics.IncrementAuthEvent("login", "failure")
		return nil, apperr.Unauthenticated(msgInvalidCredentials)
	}

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, key); err != nil {
			s.logger.Warn("Failed to reset login attempts", zap.Error(err))
		}
	}

	token, _, err := s.issuer.Issue(ctx, user)
	if err != nil {
		return nil, err
	}

	metrics.IncrementAuthEvent("login", "success")
	logger.WithTrace(ctx, s.logger).Info("User logged in", zap.Int64("user_id", user.ID))
	return &Result{User: user, Token: token}, nil
}

// throttled fails open: a limiter outage never locks users out.
func (s *Service) throttled(ctx context.Context, key string) bool {
	if s.limiter == nil || s.opts.MaxLoginAttempts <= 0 {
		return false
	}
	count, err := s.limiter.Count(ctx, key)
	if err != nil {
		s.logger.Warn("Failed to read login attempts", zap.Error(err))
		return false
	}
	return count >= int64(s.opts.MaxLoginAttempts)
}

func (s *Service) recordFailure(ctx context.Context, key string) {
	if s.limiter == nil || s.opts.MaxLoginAttempts <= 0 {
		return
	}
	if _, err := s.limiter.Hit(ctx, key); err != nil {
		s.logger.Warn("Failed to record login attempt", zap.Error(err))
	}
}

// Logout revokes the token the current request was authenticated with.
// Other tokens of the same user stay valid.
func (s *Service) Logout(ctx context.Context, principal *model.User, tokenID string) error {
	if err := policy.RequirePrincipal(principal); err != nil {
		return err
	}
	if err := s.issuer.Revoke(ctx, tokenID); err != nil {
		return err
	}
	metrics.IncrementAuthEvent("logout", "success")
	return nil
}

// Profile returns the authenticated user.
func (s *Service) Profile(principal *model.User) (*model.User, error) {
	if err := policy.RequirePrincipal(principal); err != nil {
		return nil, err
	}
	return principal, nil
}

// Authenticate resolves a bearer string to its user and token id.
func (s *Service) Authenticate(ctx context.Context, bearer string) (*model.User, string, error) {
	return s.issuer.Resolve(ctx, bearer)
}
