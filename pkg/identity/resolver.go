// Package identity is the boundary to the platform's identity store.
// The chat core only ever needs display names; accounts themselves live
// elsewhere.
package identity

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// Resolver looks up a participant's presentation name. An empty name
// with a nil error means the participant is unknown here; callers fall
// back to the raw id.
type Resolver interface {
	DisplayName(ctx context.Context, participantID string) (string, error)
}

const displayNameHash = "chat:display_names"

// RedisResolver reads the display-name cache the platform maintains in a
// Redis hash (participant id -> name).
type RedisResolver struct {
	rdb *redis.Client
}

func NewRedisResolver(rdb *redis.Client) *RedisResolver {
	return &RedisResolver{rdb: rdb}
}

func (r *RedisResolver) DisplayName(ctx context.Context, participantID string) (string, error) {
	name, err := r.rdb.HGet(ctx, displayNameHash, participantID).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return name, nil
}

// Static serves a fixed mapping. Used by tests and local development.
type Static map[string]string

func (s Static) DisplayName(_ context.Context, participantID string) (string, error) {
	return s[participantID], nil
}
