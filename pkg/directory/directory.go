// Package directory builds the admin inbox: one summary per counterpart
// who has written to the recipient, most recently active first.
package directory

import (
	"context"
	"log/slog"
	"time"

	"github.com/edulink/supportchat/pkg/identity"
	"github.com/edulink/supportchat/pkg/store"
)

// Summary describes one conversation from the recipient's point of view.
// Derived on demand from the message store, never persisted.
type Summary struct {
	CounterpartID string    `json:"counterpart_id"`
	DisplayName   string    `json:"display_name"`
	LastMessage   string    `json:"last_message"`
	LastTime      time.Time `json:"last_time"`
	UnreadCount   int       `json:"unread_count"`
}

type Directory struct {
	store store.Store
	names identity.Resolver
	log   *slog.Logger
}

func New(st store.Store, names identity.Resolver, log *slog.Logger) *Directory {
	return &Directory{store: st, names: names, log: log}
}

// Summaries aggregates the recipient's inbox by counterpart. The inbox
// is newest-first, so the first message seen per counterpart is that
// conversation's head, and first-seen order is most-recently-active
// order; unread counts accumulate across the whole scan.
func (d *Directory) Summaries(ctx context.Context, recipient string) ([]Summary, error) {
	inbox, err := d.store.Inbox(ctx, recipient)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int)
	summaries := []Summary{}
	for _, msg := range inbox {
		i, seen := index[msg.Sender]
		if !seen {
			i = len(summaries)
			index[msg.Sender] = i
			summaries = append(summaries, Summary{
				CounterpartID: msg.Sender,
				LastMessage:   msg.Content,
				LastTime:      msg.CreatedAt,
			})
		}
		if !msg.IsRead {
			summaries[i].UnreadCount++
		}
	}

	for i := range summaries {
		name, err := d.names.DisplayName(ctx, summaries[i].CounterpartID)
		if err != nil {
			d.log.Warn("display name lookup failed",
				"participant", summaries[i].CounterpartID, "error", err)
		}
		if name == "" {
			name = summaries[i].CounterpartID
		}
		summaries[i].DisplayName = name
	}

	return summaries, nil
}
