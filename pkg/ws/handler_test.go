package ws

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/edulink/supportchat/pkg/auth"
	"github.com/edulink/supportchat/pkg/model"
	"github.com/edulink/supportchat/pkg/registry"
	"github.com/edulink/supportchat/pkg/relay"
	"github.com/edulink/supportchat/pkg/store"
)

type harness struct {
	store  *store.Memory
	authn  *auth.Authenticator
	server *httptest.Server
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := slog.Default()
	st := store.NewMemory()
	reg := registry.New(log)
	authn := auth.New("test-secret")
	h := NewHandler(reg, relay.New(st, reg, nil, log), authn, nil, 16, log)
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	return &harness{store: st, authn: authn, server: server}
}

// connect dials the websocket as userID and joins its channel.
func (h *harness) connect(t *testing.T, userID string) *websocket.Conn {
	t.Helper()
	conn := h.dial(t, userID)
	require.NoError(t, conn.WriteJSON(model.ClientEvent{Type: model.EventJoin}))
	return conn
}

func (h *harness) dial(t *testing.T, userID string) *websocket.Conn {
	t.Helper()
	token, err := h.authn.Mint(userID, time.Hour)
	require.NoError(t, err)
	url := "ws" + strings.TrimPrefix(h.server.URL, "http") + "?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) model.ServerEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev model.ServerEvent
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func expectNoEvent(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(150*time.Millisecond)))
	var ev model.ServerEvent
	err := conn.ReadJSON(&ev)
	require.Error(t, err, "unexpected event: %+v", ev)
}

func Test_Send_Reaches_Receiver_And_Echoes_Sender(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)

	s1 := h.connect(t, "s1")
	s2 := h.connect(t, "s2")

	req.NoError(s1.WriteJSON(model.ClientEvent{
		Type:          model.EventSendMessage,
		CorrelationID: "c-1",
		Receiver:      "s2",
		Content:       "hello",
	}))

	got := readEvent(t, s2)
	req.Equal(model.EventNewMessage, got.Type)
	req.Equal("hello", got.Message.Content)
	req.Equal("s1", got.Message.Sender)
	req.False(got.Message.IsRead)
	req.NotZero(got.Message.ID)

	echo := readEvent(t, s1)
	req.Equal(model.EventNewMessage, echo.Type)
	req.Equal(got.Message.ID, echo.Message.ID, "sender gets the identical canonical record")

	ack := readEvent(t, s1)
	req.Equal(model.EventAck, ack.Type)
	req.Equal("c-1", ack.CorrelationID)
	req.Equal(model.AckComplete, ack.Status)
}

func Test_Invalid_Send_Is_Nacked_Not_Silent(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)

	s1 := h.connect(t, "s1")
	req.NoError(s1.WriteJSON(model.ClientEvent{
		Type:          model.EventSendMessage,
		CorrelationID: "c-2",
		Receiver:      "s2",
		Content:       "   ",
	}))

	ack := readEvent(t, s1)
	req.Equal(model.EventAck, ack.Type)
	req.Equal("c-2", ack.CorrelationID)
	req.Equal(model.AckRejected, ack.Status)
	req.NotEmpty(ack.Error)

	msgs, err := h.store.Conversation(context.Background(), "s1", "s2")
	req.NoError(err)
	req.Empty(msgs)
}

func Test_Max_Length_Content_Survives_Wire_Escaping(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)

	s1 := h.connect(t, "s1")
	s2 := h.connect(t, "s2")

	// Every rune escapes to  in JSON, so a body at the length
	// bound encodes to roughly 12 KB on the wire. The read limit must
	// still admit the frame.
	content := strings.Repeat(string(rune(1)), model.MaxContentLength)
	req.NoError(s1.WriteJSON(model.ClientEvent{
		Type:          model.EventSendMessage,
		CorrelationID: "c-max",
		Receiver:      "s2",
		Content:       content,
	}))

	got := readEvent(t, s2)
	req.Equal(model.EventNewMessage, got.Type)
	req.Equal(content, got.Message.Content)

	echo := readEvent(t, s1)
	req.Equal(model.EventNewMessage, echo.Type)

	ack := readEvent(t, s1)
	req.Equal(model.EventAck, ack.Type)
	req.Equal("c-max", ack.CorrelationID)
	req.Equal(model.AckComplete, ack.Status)
}

func Test_Spoofed_Sender_Is_Rejected(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)

	s1 := h.connect(t, "s1")
	req.NoError(s1.WriteJSON(model.ClientEvent{
		Type:          model.EventSendMessage,
		CorrelationID: "c-3",
		Sender:        "someone-else",
		Receiver:      "s2",
		Content:       "hello",
	}))

	ack := readEvent(t, s1)
	req.Equal(model.AckRejected, ack.Status)
}

func Test_Offline_Receiver_Gets_Nothing_Retroactively(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)

	s1 := h.connect(t, "s1")
	req.NoError(s1.WriteJSON(model.ClientEvent{
		Type:          model.EventSendMessage,
		CorrelationID: "c-4",
		Receiver:      "s2",
		Content:       "missed me",
	}))

	ack := readEvent(t, s1)
	req.Equal(model.AckComplete, ack.Status, "delivery is best-effort, persistence is the contract")

	// s2 joins after the fact: no live replay, history comes from the
	// store.
	s2 := h.connect(t, "s2")
	expectNoEvent(t, s2)

	msgs, err := h.store.Conversation(context.Background(), "s1", "s2")
	req.NoError(err)
	req.Len(msgs, 1)
	req.Equal("missed me", msgs[0].Content)
}

func Test_Join_Foreign_Channel_Is_Rejected(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)

	s1 := h.dial(t, "s1")
	req.NoError(s1.WriteJSON(model.ClientEvent{Type: model.EventJoin, ParticipantID: "s2"}))

	ack := readEvent(t, s1)
	req.Equal(model.AckRejected, ack.Status)
}

func Test_Handshake_Requires_Token(t *testing.T) {
	h := newHarness(t)
	url := "ws" + strings.TrimPrefix(h.server.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.Equal(t, 401, resp.StatusCode)
}

func Test_Per_Connection_Send_Order_Is_Preserved(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)

	s1 := h.connect(t, "s1")
	s2 := h.connect(t, "s2")

	for _, content := range []string{"m1", "m2", "m3"} {
		req.NoError(s1.WriteJSON(model.ClientEvent{
			Type:     model.EventSendMessage,
			Receiver: "s2",
			Content:  content,
		}))
	}

	for _, want := range []string{"m1", "m2", "m3"} {
		got := readEvent(t, s2)
		req.Equal(model.EventNewMessage, got.Type)
		req.Equal(want, got.Message.Content)
	}

	msgs, err := h.store.Conversation(context.Background(), "s1", "s2")
	req.NoError(err)
	req.Len(msgs, 3)
	req.Equal("m1", msgs[0].Content)
	req.Equal("m3", msgs[2].Content)
}
