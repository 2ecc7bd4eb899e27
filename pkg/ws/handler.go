// Package ws is the websocket transport: it authenticates connections,
// registers them with the connection registry, and dispatches inbound
// events into the relay. Events from one connection are processed
// strictly in arrival order; connections are independent of each other.
package ws

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/edulink/supportchat/pkg/auth"
	"github.com/edulink/supportchat/pkg/model"
	"github.com/edulink/supportchat/pkg/registry"
	"github.com/edulink/supportchat/pkg/relay"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum frame size allowed from peer. JSON escaping can cost up
	// to six bytes per rune, so a maximum-length body alone can reach
	// 12000 bytes on the wire; the rest is headroom for ids, keys and
	// framing.
	maxFrameSize = 16384
)

type Handler struct {
	registry *registry.Registry
	relay    *relay.Relay
	auth     *auth.Authenticator
	presence *Mirror // nil disables mirroring
	buffer   int
	log      *slog.Logger
	upgrader websocket.Upgrader
}

func NewHandler(reg *registry.Registry, rel *relay.Relay, authn *auth.Authenticator, presence *Mirror, buffer int, log *slog.Logger) *Handler {
	return &Handler{
		registry: reg,
		relay:    rel,
		auth:     authn,
		presence: presence,
		buffer:   buffer,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // cross-origin handled at the platform edge
			},
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims, err := h.auth.FromRequest(r)
	if err != nil {
		h.log.Debug("websocket handshake unauthorized", "error", err)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	s := &session{
		handler: h,
		conn:    conn,
		sub:     registry.NewConnection(h.buffer),
		userID:  claims.UserID,
	}
	go s.writePump()
	go s.readPump()
}

// session pairs one websocket connection with its registry entry.
type session struct {
	handler *Handler
	conn    *websocket.Conn
	sub     *registry.Connection
	userID  string
}

// readPump processes inbound frames one at a time; each send intent runs
// its full relay state machine before the next frame is read, which
// gives per-connection FIFO ordering.
func (s *session) readPump() {
	h := s.handler
	defer func() {
		if h.registry.Leave(s.sub) && h.presence != nil {
			h.presence.Remove(context.Background(), s.userID)
		}
		s.conn.Close()
	}()
	s.conn.SetReadLimit(maxFrameSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error { s.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		var ev model.ClientEvent
		if err := s.conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Debug("websocket read error", "participant", s.userID, "error", err)
			}
			break
		}
		s.dispatch(ev)
	}
}

func (s *session) dispatch(ev model.ClientEvent) {
	h := s.handler
	switch ev.Type {
	case model.EventJoin:
		// Channel name = participant id: a connection may only join the
		// channel of its authenticated identity.
		if ev.ParticipantID != "" && ev.ParticipantID != s.userID {
			s.nack(ev.CorrelationID, "cannot join another participant's channel")
			return
		}
		if h.registry.Join(s.userID, s.sub) && h.presence != nil {
			h.presence.Add(context.Background(), s.userID)
		}

	case model.EventSendMessage:
		corr := ev.CorrelationID
		if corr == "" {
			corr = uuid.NewString()
		}
		if ev.Sender != "" && ev.Sender != s.userID {
			s.nack(corr, "sender must be the authenticated participant")
			return
		}

		out := h.relay.Send(context.Background(), relay.Intent{
			CorrelationID: corr,
			Sender:        s.userID,
			Receiver:      ev.Receiver,
			Content:       ev.Content,
		})

		ack := model.ServerEvent{
			Type:          model.EventAck,
			CorrelationID: corr,
			Status:        out.State.String(),
		}
		if out.Err != nil {
			ack.Error = out.Err.Error()
		}
		h.registry.Deliver(s.sub, ack)

	default:
		s.nack(ev.CorrelationID, "unknown event type")
	}
}

func (s *session) nack(correlationID, reason string) {
	s.handler.registry.Deliver(s.sub, model.ServerEvent{
		Type:          model.EventAck,
		CorrelationID: correlationID,
		Status:        model.AckRejected,
		Error:         reason,
	})
}

// writePump drains the registry event stream to the peer and keeps the
// connection alive with pings.
func (s *session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()
	for {
		select {
		case ev, ok := <-s.sub.Events():
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The registry dropped this connection.
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
