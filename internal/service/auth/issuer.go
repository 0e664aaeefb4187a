package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"taskhub/internal/apperr"
	"taskhub/internal/model"
	"taskhub/internal/repository"
	"taskhub/pkg/util"
)

// TokenName is the name recorded on tokens issued at register and login.
const TokenName = "api_token"

// TokenCache is an optional read-through cache of token records
// (implemented by pkg/redis.TokenCache).
type TokenCache interface {
	Get(ctx context.Context, tokenID string) (hash string, userID int64, ok bool, err error)
	Set(ctx context.Context, tokenID, hash string, userID int64, expiresAt *time.Time) error
	Delete(ctx context.Context, tokenID string) error
}

// Issuer issues, resolves and revokes bearer tokens. A token is an HS256
// JWT whose jti names a row in the token store; the row holds the SHA-256
// digest of the signed string, so deleting the row revokes the token.
type Issuer struct {
	tokens repository.TokenStore
	users  repository.UserStore
	cache  TokenCache
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

// NewIssuer creates an Issuer. A zero ttl issues tokens without expiry.
func NewIssuer(tokens repository.TokenStore, users repository.UserStore, secret string, ttl time.Duration, logger *zap.Logger) *Issuer {
	return &Issuer{
		tokens: tokens,
		users:  users,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
		logger: logger,
	}
}

func (i *Issuer) WithCache(cache TokenCache) *Issuer {
	i.cache = cache
	return i
}

// Issue creates a token for user and returns the plaintext bearer string.
// The plaintext is not stored and cannot be recovered later.
func (i *Issuer) Issue(ctx context.Context, user *model.User) (string, *model.AccessToken, error) {
	now := i.now()
	claims := jwt.RegisteredClaims{
		Subject:  strconv.FormatInt(user.ID, 10),
		ID:       uuid.NewString(),
		IssuedAt: jwt.NewNumericDate(now),
	}

	var expiresAt *time.Time
	if i.ttl > 0 {
		exp := now.Add(i.ttl).Truncate(time.Second)
		expiresAt = &exp
		claims.ExpiresAt = jwt.NewNumericDate(exp)
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}

	token := &model.AccessToken{
		ID:        claims.ID,
		UserID:    user.ID,
		Name:      TokenName,
		TokenHash: util.HashToken(signed),
		ExpiresAt: expiresAt,
	}
	if err := i.tokens.Insert(ctx, token); err != nil {
		return "", nil, fmt.Errorf("store token: %w", err)
	}
	return signed, token, nil
}

// Resolve returns the user a bearer string belongs to together with the
// token id. Every rejection is reported as Unauthenticated; only store
// failures come back as plain errors.
func (i *Issuer) Resolve(ctx context.Context, bearer string) (*model.User, string, error) {
	if bearer == "" {
		return nil, "", apperr.Unauthenticated("")
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(bearer, &claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		i.logger.Debug("Rejected bearer token", zap.Error(err))
		return nil, "", apperr.Unauthenticated("")
	}

	if _, err := uuid.Parse(claims.ID); err != nil {
		return nil, "", apperr.Unauthenticated("")
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, "", apperr.Unauthenticated("")
	}

	hash, ownerID, err := i.lookup(ctx, claims.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, "", apperr.Unauthenticated("")
	}
	if err != nil {
		return nil, "", err
	}
	if ownerID != userID || !util.TokenHashEqual(hash, util.HashToken(bearer)) {
		return nil, "", apperr.Unauthenticated("")
	}

	user, err := i.users.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, "", apperr.Unauthenticated("")
	}
	if err != nil {
		return nil, "", fmt.Errorf("load token owner: %w", err)
	}
	return user, claims.ID, nil
}

// lookup returns the stored digest and owner of tokenID, consulting the
// cache first. Expired records are reported as not found.
func (i *Issuer) lookup(ctx context.Context, tokenID string) (string, int64, error) {
	if i.cache != nil {
		hash, userID, ok, err := i.cache.Get(ctx, tokenID)
		if err != nil {
			i.logger.Warn("Token cache read failed", zap.String("token_id", tokenID), zap.Error(err))
		} else if ok {
			return hash, userID, nil
		}
	}

	token, err := i.tokens.FindByID(ctx, tokenID)
	if err != nil {
		return "", 0, err
	}
	if token.Expired(i.now()) {
		return "", 0, repository.ErrNotFound
	}

	if i.cache != nil {
		if err := i.cache.Set(ctx, token.ID, token.TokenHash, token.UserID, token.ExpiresAt); err != nil {
			i.logger.Warn("Token cache write failed", zap.String("token_id", tokenID), zap.Error(err))
		}
	}
	return token.TokenHash, token.UserID, nil
}

// Revoke deletes the token record and its cache entry. Revoking an unknown
// token succeeds. A failed eviction is returned because lookup trusts the
// cache; the caller can retry while the cached entry still resolves.
func (i *Issuer) Revoke(ctx context.Context, tokenID string) error {
	if err := i.tokens.Delete(ctx, tokenID); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	if i.cache != nil {
		if err := i.cache.Delete(ctx, tokenID); err != nil {
			i.logger.Error("Token cache eviction failed", zap.String("token_id", tokenID), zap.Error(err))
			return fmt.Errorf("evict token: %w", err)
		}
	}
	return nil
}

// PruneExpired removes expired token records and returns how many went.
func (i *Issuer) PruneExpired(ctx context.Context) (int64, error) {
	return i.tokens.DeleteExpired(ctx, i.now())
}
