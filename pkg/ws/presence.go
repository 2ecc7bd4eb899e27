package ws

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const onlineSet = "chat:online"

// Mirror reflects which participants have live connections into a Redis
// set, so the REST presence endpoint and the wider platform can see
// liveness without touching the in-process registry. The registry itself
// stays I/O-free; the transport calls the mirror on first-join and
// last-leave transitions. Mirror failures are logged and ignored,
// presence is advisory.
type Mirror struct {
	rdb *redis.Client
	log *slog.Logger
}

func NewMirror(rdb *redis.Client, log *slog.Logger) *Mirror {
	return &Mirror{rdb: rdb, log: log}
}

func (m *Mirror) Add(ctx context.Context, participantID string) {
	if err := m.rdb.SAdd(ctx, onlineSet, participantID).Err(); err != nil {
		m.log.Warn("failed to mirror presence", "participant", participantID, "error", err)
	}
}

func (m *Mirror) Remove(ctx context.Context, participantID string) {
	if err := m.rdb.SRem(ctx, onlineSet, participantID).Err(); err != nil {
		m.log.Warn("failed to clear presence", "participant", participantID, "error", err)
	}
}

func (m *Mirror) Online(ctx context.Context, participantID string) (bool, error) {
	return m.rdb.SIsMember(ctx, onlineSet, participantID).Result()
}
