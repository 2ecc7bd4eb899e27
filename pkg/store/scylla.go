package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gocql/gocql"

	"github.com/edulink/supportchat/pkg/db"
	"github.com/edulink/supportchat/pkg/model"
	"github.com/edulink/supportchat/pkg/snowflake"
)

// Scylla persists messages in two tables: dm_messages partitioned by the
// canonical conversation key (clustered by id ascending, so a partition
// scan is the conversation oldest-first) and inbox_messages partitioned
// by recipient (clustered descending, so a partition scan is the inbox
// newest-first). Every write goes to both tables in a logged batch.
type Scylla struct {
	session *db.Session
	ids     *snowflake.Node
	log     *slog.Logger
}

func NewScylla(session *db.Session, ids *snowflake.Node, log *slog.Logger) *Scylla {
	return &Scylla{session: session, ids: ids, log: log}
}

func (s *Scylla) Create(ctx context.Context, sender, receiver, content string) (*model.Message, error) {
	trimmed, err := ValidateNew(sender, receiver, content)
	if err != nil {
		return nil, err
	}

	msg := &model.Message{
		ID:        s.ids.Generate(),
		Sender:    sender,
		Receiver:  receiver,
		Content:   trimmed,
		CreatedAt: time.Now().UTC(),
	}

	batch := s.session.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	batch.Query(
		`INSERT INTO dm_messages (convo, id, sender, receiver, content, created_at, is_read) VALUES (?, ?, ?, ?, ?, ?, false)`,
		model.ConversationKey(sender, receiver), msg.ID, msg.Sender, msg.Receiver, msg.Content, msg.CreatedAt,
	)
	batch.Query(
		`INSERT INTO inbox_messages (recipient, id, sender, content, created_at, is_read) VALUES (?, ?, ?, ?, ?, false)`,
		msg.Receiver, msg.ID, msg.Sender, msg.Content, msg.CreatedAt,
	)
	if err := s.session.ExecuteBatch(batch); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return msg, nil
}

func (s *Scylla) Conversation(ctx context.Context, a, b string) ([]model.Message, error) {
	iter := s.session.Query(
		`SELECT id, sender, receiver, content, created_at, is_read, read_at FROM dm_messages WHERE convo = ?`,
		model.ConversationKey(a, b),
	).WithContext(ctx).Iter()

	var messages []model.Message
	var m model.Message
	var readAt time.Time
	for iter.Scan(&m.ID, &m.Sender, &m.Receiver, &m.Content, &m.CreatedAt, &m.IsRead, &readAt) {
		m.ReadAt = nil
		if !readAt.IsZero() {
			at := readAt
			m.ReadAt = &at
		}
		messages = append(messages, m)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return messages, nil
}

func (s *Scylla) Inbox(ctx context.Context, recipient string) ([]model.Message, error) {
	iter := s.session.Query(
		`SELECT id, sender, content, created_at, is_read, read_at FROM inbox_messages WHERE recipient = ?`,
		recipient,
	).WithContext(ctx).Iter()

	var messages []model.Message
	var m model.Message
	var readAt time.Time
	for iter.Scan(&m.ID, &m.Sender, &m.Content, &m.CreatedAt, &m.IsRead, &readAt) {
		m.Receiver = recipient
		m.ReadAt = nil
		if !readAt.IsZero() {
			at := readAt
			m.ReadAt = &at
		}
		messages = append(messages, m)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return messages, nil
}

func (s *Scylla) MarkRead(ctx context.Context, recipient, counterpart string) error {
	// Collect the unread ids first; the read transition then updates
	// both tables per message in one logged batch.
	iter := s.session.Query(
		`SELECT id, sender, is_read FROM inbox_messages WHERE recipient = ?`,
		recipient,
	).WithContext(ctx).Iter()

	var unread []int64
	var id int64
	var sender string
	var isRead bool
	for iter.Scan(&id, &sender, &isRead) {
		if sender == counterpart && !isRead {
			unread = append(unread, id)
		}
	}
	if err := iter.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(unread) == 0 {
		return nil
	}

	now := time.Now().UTC()
	convo := model.ConversationKey(recipient, counterpart)
	batch := s.session.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	for _, id := range unread {
		batch.Query(
			`UPDATE dm_messages SET is_read = true, read_at = ? WHERE convo = ? AND id = ?`,
			now, convo, id,
		)
		batch.Query(
			`UPDATE inbox_messages SET is_read = true, read_at = ? WHERE recipient = ? AND id = ?`,
			now, recipient, id,
		)
	}
	if err := s.session.ExecuteBatch(batch); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	s.log.Debug("marked conversation read",
		"recipient", recipient, "counterpart", counterpart, "messages", len(unread))
	return nil
}
