package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/edulink/supportchat/pkg/model"
	"github.com/edulink/supportchat/pkg/snowflake"
)

// Memory is an in-process Store with the same semantics as the Scylla
// adapter. It backs the test suite and local development without a
// cluster. Messages are held in insertion order, which is also id order.
type Memory struct {
	mu       sync.RWMutex
	messages []*model.Message
	ids      *snowflake.Node
	failWith error
}

func NewMemory() *Memory {
	node, err := snowflake.NewNode(0)
	if err != nil {
		panic(err) // node 0 is always in range
	}
	return &Memory{ids: node}
}

// FailWith forces every subsequent operation to fail with err until
// called again with nil. Test hook for store-unavailable paths.
func (m *Memory) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}

func (m *Memory) Create(ctx context.Context, sender, receiver, content string) (*model.Message, error) {
	trimmed, err := ValidateNew(sender, receiver, content)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, m.failWith)
	}

	msg := &model.Message{
		ID:        m.ids.Generate(),
		Sender:    sender,
		Receiver:  receiver,
		Content:   trimmed,
		CreatedAt: time.Now().UTC(),
	}
	m.messages = append(m.messages, msg)

	out := *msg
	return &out, nil
}

func (m *Memory) Conversation(ctx context.Context, a, b string) ([]model.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failWith != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, m.failWith)
	}

	key := model.ConversationKey(a, b)
	var out []model.Message
	for _, msg := range m.messages {
		if model.ConversationKey(msg.Sender, msg.Receiver) == key {
			out = append(out, *msg)
		}
	}
	return out, nil
}

func (m *Memory) Inbox(ctx context.Context, recipient string) ([]model.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failWith != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, m.failWith)
	}

	var out []model.Message
	for i := len(m.messages) - 1; i >= 0; i-- {
		if m.messages[i].Receiver == recipient {
			out = append(out, *m.messages[i])
		}
	}
	return out, nil
}

func (m *Memory) MarkRead(ctx context.Context, recipient, counterpart string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, m.failWith)
	}

	now := time.Now().UTC()
	for _, msg := range m.messages {
		if msg.Receiver == recipient && msg.Sender == counterpart && !msg.IsRead {
			msg.IsRead = true
			at := now
			msg.ReadAt = &at
		}
	}
	return nil
}
