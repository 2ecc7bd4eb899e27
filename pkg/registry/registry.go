// Package registry tracks which transport connections currently
// represent each participant. Channel name = participant id: there is no
// separate subscription topic, a connection joins the channel named
// after its own identity and live events are published to that name.
// The registry is pure bookkeeping; it performs no I/O and never
// persists anything.
package registry

import (
	"log/slog"
	"sync"

	"github.com/edulink/supportchat/pkg/model"
)

// Connection is one live transport session. Events are delivered through
// a buffered channel drained by the transport's write loop; delivery
// never blocks the publisher. A connection whose buffer is full is
// considered dead and is dropped from its channel.
type Connection struct {
	send chan model.ServerEvent

	// Guarded by the owning registry's mutex.
	participant string
	closed      bool
}

// NewConnection returns an unregistered connection with the given
// outbound buffer size.
func NewConnection(buffer int) *Connection {
	return &Connection{send: make(chan model.ServerEvent, buffer)}
}

// Events is the outbound stream for the transport's write loop. The
// channel is closed when the connection is dropped or leaves.
func (c *Connection) Events() <-chan model.ServerEvent {
	return c.send
}

// Registry maps participant ids to their live connections.
type Registry struct {
	mu       sync.Mutex
	channels map[string]map[*Connection]struct{}
	log      *slog.Logger
}

func New(log *slog.Logger) *Registry {
	return &Registry{
		channels: make(map[string]map[*Connection]struct{}),
		log:      log,
	}
}

// Join registers conn under the channel named by participantID. A
// connection binds to one channel for its lifetime; repeat joins,
// including with a different id, are no-ops. Returns true when this is
// the participant's first live connection.
func (r *Registry) Join(participantID string, conn *Connection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if conn.closed || conn.participant != "" {
		return false
	}
	conn.participant = participantID

	conns := r.channels[participantID]
	first := len(conns) == 0
	if conns == nil {
		conns = make(map[*Connection]struct{})
		r.channels[participantID] = conns
	}
	conns[conn] = struct{}{}

	r.log.Debug("connection joined", "participant", participantID, "connections", len(conns))
	return first
}

// Leave removes conn from its channel and closes its event stream.
// Never fails; leaving an unregistered or already-dropped connection is
// a no-op. Returns true when the participant has no connections left.
func (r *Registry) Leave(conn *Connection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropLocked(conn)
}

// Publish delivers ev to every connection on the participant's channel
// and reports how many accepted it. Zero registered connections is a
// normal outcome: the event is dropped, nothing is queued for later.
func (r *Registry) Publish(participantID string, ev model.ServerEvent) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	delivered := 0
	for conn := range r.channels[participantID] {
		select {
		case conn.send <- ev:
			delivered++
		default:
			// Write loop not draining; drop the connection.
			r.log.Warn("dropping stalled connection", "participant", participantID)
			r.dropLocked(conn)
		}
	}
	return delivered
}

// Deliver queues ev directly on one connection, bypassing channel
// fan-out. Used for acks addressed to the origin connection only.
// Reports false when the connection is closed; a full buffer drops the
// connection as in Publish.
func (r *Registry) Deliver(conn *Connection, ev model.ServerEvent) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if conn.closed {
		return false
	}
	select {
	case conn.send <- ev:
		return true
	default:
		r.log.Warn("dropping stalled connection", "participant", conn.participant)
		r.dropLocked(conn)
		return false
	}
}

// Connections reports how many live connections a participant has.
func (r *Registry) Connections(participantID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.channels[participantID])
}

func (r *Registry) dropLocked(conn *Connection) bool {
	if conn.closed {
		return false
	}
	conn.closed = true
	close(conn.send)

	if conn.participant == "" {
		return false
	}
	conns := r.channels[conn.participant]
	delete(conns, conn)
	if len(conns) == 0 {
		delete(r.channels, conn.participant)
		r.log.Debug("participant offline", "participant", conn.participant)
		return true
	}
	return false
}
