package model

import "time"

// EventType identifies a frame on the websocket protocol.
type EventType string

const (
	// Client -> server.
	EventJoin        EventType = "join"
	EventSendMessage EventType = "send_message"

	// Server -> client.
	EventNewMessage  EventType = "new_message"
	EventAck         EventType = "ack"
	EventReadReceipt EventType = "read_receipt"
)

// Ack statuses. A send intent always terminates in exactly one of these.
const (
	AckComplete = "complete"
	AckRejected = "rejected"
)

// ClientEvent is a frame sent by a client over the websocket.
type ClientEvent struct {
	Type EventType `json:"type"`

	// CorrelationID lets the client match the ack for a send_message.
	// Assigned by the server when the client omits it.
	CorrelationID string `json:"correlation_id,omitempty"`

	// ParticipantID names the channel to join. Must equal the
	// authenticated identity; channel name = participant id.
	ParticipantID string `json:"participant_id,omitempty"`

	// send_message payload. Sender defaults to the authenticated
	// identity and is rejected when it names anyone else.
	Sender   string `json:"sender,omitempty"`
	Receiver string `json:"receiver,omitempty"`
	Content  string `json:"content,omitempty"`
}

// ServerEvent is a frame pushed to a client over the websocket.
type ServerEvent struct {
	Type          EventType `json:"type"`
	CorrelationID string    `json:"correlation_id,omitempty"`

	// new_message payload: the full persisted record.
	Message *Message `json:"message,omitempty"`

	// ack payload.
	Status string `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`

	// read_receipt payload: Reader has read all messages addressed to
	// them from the receiving participant.
	Reader string     `json:"reader,omitempty"`
	ReadAt *time.Time `json:"read_at,omitempty"`
}
