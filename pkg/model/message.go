package model

import "time"

// MaxContentLength bounds a message body after trimming, in runes.
const MaxContentLength = 2000

// Message is the durable unit of chat between two participants.
// Sender, Receiver, Content and CreatedAt are immutable once persisted;
// IsRead/ReadAt transition false -> true exactly once, via the store's
// mark-read operation.
type Message struct {
	ID        int64      `json:"id"`
	Sender    string     `json:"sender"`
	Receiver  string     `json:"receiver"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"created_at"`
	IsRead    bool       `json:"is_read"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
}

// ConversationKey returns the canonical partition key for a participant
// pair. Ids are sorted so both orderings map to the same key.
func ConversationKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}
