package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenCache 缓存 token id -> user id，减少每个请求对 access_tokens 表的查询
type TokenCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewTokenCache(rdb *redis.Client, ttl time.Duration) *TokenCache {
	return &TokenCache{rdb: rdb, ttl: ttl}
}

func tokenKey(tokenID string) string {
	return fmt.Sprintf("access_token:%s", tokenID)
}

// Get 返回缓存的 token 哈希和 user id；未命中时 ok 为 false
func (c *TokenCache) Get(ctx context.Context, tokenID string) (hash string, userID int64, ok bool, err error) {
	vals, err := c.rdb.HGetAll(ctx, tokenKey(tokenID)).Result()
	if err != nil {
		return "", 0, false, err
	}
	if len(vals) == 0 {
		return "", 0, false, nil
	}
	var uid int64
	if _, err := fmt.Sscan(vals["user_id"], &uid); err != nil {
		return "", 0, false, fmt.Errorf("corrupt token cache entry: %w", err)
	}
	return vals["hash"], uid, true, nil
}

// Set 写入缓存；ttl 不会超过 token 自身的剩余有效期
func (c *TokenCache) Set(ctx context.Context, tokenID, hash string, userID int64, expiresAt *time.Time) error {
	ttl := c.ttl
	if expiresAt != nil {
		if remaining := time.Until(*expiresAt); remaining < ttl {
			ttl = remaining
		}
	}
	if ttl <= 0 {
		return nil
	}

	key := tokenKey(tokenID)
	pipe := c.rdb.TxPipeline()
	pipe.HSet(ctx, key, "hash", hash, "user_id", userID)
	pipe.Expire(ctx, key, ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// Delete 吊销时删除缓存，key 不存在不算错误
func (c *TokenCache) Delete(ctx context.Context, tokenID string) error {
	err := c.rdb.Del(ctx, tokenKey(tokenID)).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}
