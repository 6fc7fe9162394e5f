// Package redis provides a Redis-backed pending-link registry for
// deployments that run more than one server instance. Redis key expiry
// replaces the in-process TTL cache, and redeem atomicity comes from a
// single Lua script instead of a process-local lock.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rewardly/rewardly/domain"
)

// redeemScript atomically reads, validates, and deletes a pending link. A
// platform mismatch leaves the entry in place, matching the in-memory store.
var redeemScript = redis.NewScript(`
local vals = redis.call('HMGET', KEYS[1], 'user_id', 'platform', 'created_at', 'expires_at')
if vals[1] == false then
	return {}
end
if ARGV[1] ~= '' and vals[2] ~= ARGV[1] then
	return redis.error_reply('platform_mismatch')
end
redis.call('DEL', KEYS[1])
return vals
`)

// LinkStore implements domain.LinkStore on top of Redis.
type LinkStore struct {
	client *redis.Client
	prefix string
}

// NewLinkStore creates a new LinkStore. prefix namespaces the keys so the
// registry can share a Redis database with other components.
func NewLinkStore(client *redis.Client, prefix string) *LinkStore {
	return &LinkStore{client: client, prefix: prefix}
}

func (s *LinkStore) key(token string) string {
	return fmt.Sprintf("%s:pending_link:%s", s.prefix, token)
}

// Create implements domain.LinkStore. The key TTL mirrors the link expiry,
// so Redis evicts stale entries on its own; an expired token is reported as
// not found, which the LinkStore contract permits.
func (s *LinkStore) Create(ctx context.Context, link *domain.PendingLink) error {
	key := s.key(link.Token)

	fields := map[string]interface{}{
		"user_id":    link.UserID,
		"platform":   link.Platform,
		"created_at": link.CreatedAt.Unix(),
		"expires_at": link.ExpiresAt.Unix(),
	}
	if err := s.client.HSet(ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("failed to store pending link: %w", err)
	}
	if err := s.client.ExpireAt(ctx, key, link.ExpiresAt).Err(); err != nil {
		return fmt.Errorf("failed to set pending link expiry: %w", err)
	}
	return nil
}

// Redeem implements domain.LinkStore.
func (s *LinkStore) Redeem(ctx context.Context, token, expectedPlatform string) (*domain.PendingLink, error) {
	res, err := redeemScript.Run(ctx, s.client, []string{s.key(token)}, expectedPlatform).Result()
	if err != nil {
		if strings.Contains(err.Error(), "platform_mismatch") {
			return nil, domain.ErrPlatformMismatch
		}
		return nil, fmt.Errorf("failed to redeem pending link: %w", err)
	}

	vals, ok := res.([]interface{})
	if !ok || len(vals) < 4 {
		return nil, domain.ErrLinkNotFound
	}
	return s.decode(token, vals)
}

// Peek implements domain.LinkStore.
func (s *LinkStore) Peek(ctx context.Context, token string) (*domain.PendingLink, error) {
	res, err := s.client.HGetAll(ctx, s.key(token)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read pending link: %w", err)
	}
	if len(res) == 0 {
		return nil, domain.ErrLinkNotFound
	}

	vals := []interface{}{res["user_id"], res["platform"], res["created_at"], res["expires_at"]}
	return s.decode(token, vals)
}

func (s *LinkStore) decode(token string, vals []interface{}) (*domain.PendingLink, error) {
	str := func(v interface{}) string {
		sv, _ := v.(string)
		return sv
	}
	createdAt, _ := strconv.ParseInt(str(vals[2]), 10, 64)
	expiresAt, err := strconv.ParseInt(str(vals[3]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt pending link entry for token: %w", err)
	}

	return &domain.PendingLink{
		Token:     token,
		UserID:    str(vals[0]),
		Platform:  str(vals[1]),
		CreatedAt: time.Unix(createdAt, 0),
		ExpiresAt: time.Unix(expiresAt, 0),
	}, nil
}

// Close is a no-op; the Redis client is owned by the caller.
func (s *LinkStore) Close() error {
	return nil
}

var _ domain.LinkStore = (*LinkStore)(nil)
