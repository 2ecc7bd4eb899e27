// Package relay executes the receive -> persist -> broadcast state
// machine for one inbound message.
package relay

import (
	"context"
	"errors"
	"log/slog"

	"github.com/edulink/supportchat/pkg/model"
	"github.com/edulink/supportchat/pkg/registry"
	"github.com/edulink/supportchat/pkg/store"
)

// State of one send intent.
type State int

const (
	Received State = iota
	Validated
	Persisted
	Broadcast
	Complete
	Rejected
)

func (s State) String() string {
	switch s {
	case Received:
		return "received"
	case Validated:
		return "validated"
	case Persisted:
		return "persisted"
	case Broadcast:
		return "broadcast"
	case Complete:
		return model.AckComplete
	case Rejected:
		return model.AckRejected
	default:
		return "unknown"
	}
}

// Intent is one inbound send request.
type Intent struct {
	CorrelationID string
	Sender        string
	Receiver      string
	Content       string
}

// Outcome is the terminal state of an intent, reported back to the
// originating transport so it can ack or nack the sender.
type Outcome struct {
	State   State
	Message *model.Message
	Err     error
}

// Firehose receives a copy of every persisted message after broadcast.
// Optional downstream tap (archival, analytics); never on the
// persist-before-broadcast critical path.
type Firehose interface {
	Publish(ctx context.Context, msg *model.Message) error
}

// Relay persists inbound messages and fans them out to the live
// connections of both participants. Persistence happens strictly before
// broadcast: no participant ever observes a message that is not already
// durable. Each intent is independent; a failure rejects that intent
// only and leaves no partial state.
type Relay struct {
	store    store.Store
	registry *registry.Registry
	firehose Firehose
	log      *slog.Logger
}

// New wires a relay. firehose may be nil.
func New(st store.Store, reg *registry.Registry, firehose Firehose, log *slog.Logger) *Relay {
	return &Relay{store: st, registry: reg, firehose: firehose, log: log}
}

// Send runs one intent through the full state machine. It holds no locks
// across the persistence call, so intents from different connections may
// interleave freely; ordering within one connection comes from the
// transport dispatching its events one at a time.
func (r *Relay) Send(ctx context.Context, intent Intent) Outcome {
	if _, err := store.ValidateNew(intent.Sender, intent.Receiver, intent.Content); err != nil {
		r.log.Debug("send rejected",
			"sender", intent.Sender, "receiver", intent.Receiver, "reason", err)
		return Outcome{State: Rejected, Err: err}
	}

	msg, err := r.store.Create(ctx, intent.Sender, intent.Receiver, intent.Content)
	if err != nil {
		if !errors.Is(err, ctx.Err()) {
			r.log.Error("persist failed",
				"sender", intent.Sender, "receiver", intent.Receiver, "error", err)
		}
		return Outcome{State: Rejected, Err: err}
	}

	ev := model.ServerEvent{Type: model.EventNewMessage, Message: msg}
	r.registry.Publish(msg.Receiver, ev)
	// Echo the canonical record back to the sender's own channel so
	// optimistic local copies can be reconciled.
	r.registry.Publish(msg.Sender, ev)

	if r.firehose != nil {
		if err := r.firehose.Publish(ctx, msg); err != nil {
			r.log.Warn("firehose publish failed", "id", msg.ID, "error", err)
		}
	}

	return Outcome{State: Complete, Message: msg}
}
