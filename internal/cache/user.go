package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/userhub/userhub/internal/model"
)

// Cache key prefixes and TTLs.
const (
	userKeyPrefix      = "user:"
	userEmailKeyPrefix = "user:email:"

	// DefaultUserTTL is the TTL for cached user snapshots.
	DefaultUserTTL = 5 * time.Minute
)

// Common cache errors.
var (
	ErrCacheMiss = errors.New("cache miss")
)

// UserKey returns the cache key for a user id.
func UserKey(id int64) string {
	return userKeyPrefix + strconv.FormatInt(id, 10)
}

// UserEmailKey returns the cache key for a user email.
func UserEmailKey(email string) string {
	return userEmailKeyPrefix + email
}

// GetUserByID retrieves a cached user snapshot by id.
// Returns ErrCacheMiss if not found.
func (c *Cache) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	return c.getUser(ctx, UserKey(id))
}

// GetUserByEmail retrieves a cached user snapshot by email.
// Returns ErrCacheMiss if not found.
func (c *Cache) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return c.getUser(ctx, UserEmailKey(email))
}

func (c *Cache) getUser(ctx context.Context, key string) (*model.User, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var user model.User
	if err := json.Unmarshal(data, &user); err != nil {
		// Corrupt entry: evict it and report a miss so the caller
		// falls through to the store.
		c.client.Del(ctx, key)
		return nil, ErrCacheMiss
	}

	return &user, nil
}

// SetUser stores a user snapshot under both its id and email keys.
func (c *Cache) SetUser(ctx context.Context, user *model.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}

	pipe := c.client.Pipeline()
	pipe.Set(ctx, UserKey(user.ID), data, DefaultUserTTL)
	pipe.Set(ctx, UserEmailKey(user.Email), data, DefaultUserTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache user: %w", err)
	}

	return nil
}

// DeleteUser removes the id key and every given email key in one round trip.
// Callers pass both the pre- and post-mutation email so a renamed user
// cannot leave a stale entry under the old address.
func (c *Cache) DeleteUser(ctx context.Context, id int64, emails ...string) error {
	keys := []string{UserKey(id)}
	seen := make(map[string]struct{}, len(emails))
	for _, email := range emails {
		if email == "" {
			continue
		}
		if _, ok := seen[email]; ok {
			continue
		}
		seen[email] = struct{}{}
		keys = append(keys, UserEmailKey(email))
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete user from cache: %w", err)
	}

	return nil
}
