// Package receipt transitions a counterpart's unread messages into the
// read state and, when the counterpart is online, pushes them a live
// "seen" notification.
package receipt

import (
	"context"
	"log/slog"
	"time"

	"github.com/edulink/supportchat/pkg/model"
	"github.com/edulink/supportchat/pkg/registry"
	"github.com/edulink/supportchat/pkg/store"
)

type Service struct {
	store    store.Store
	registry *registry.Registry
	log      *slog.Logger
}

func New(st store.Store, reg *registry.Registry, log *slog.Logger) *Service {
	return &Service{store: st, registry: reg, log: log}
}

// MarkRead marks every unread message from counterpart to recipient as
// read. Idempotent. On success a read_receipt event is published to the
// counterpart's channel; like all live delivery it is best-effort, the
// durable read state is the source of truth.
func (s *Service) MarkRead(ctx context.Context, recipient, counterpart string) error {
	if err := s.store.MarkRead(ctx, recipient, counterpart); err != nil {
		return err
	}

	now := time.Now().UTC()
	s.registry.Publish(counterpart, model.ServerEvent{
		Type:   model.EventReadReceipt,
		Reader: recipient,
		ReadAt: &now,
	})
	return nil
}
