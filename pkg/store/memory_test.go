package store

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Create_Then_Conversation_Returns_It_Last(t *testing.T) {
	req := require.New(t)
	st := NewMemory()
	ctx := context.Background()

	_, err := st.Create(ctx, "s1", "s2", "first")
	req.NoError(err)
	created, err := st.Create(ctx, "s1", "s2", "second")
	req.NoError(err)

	msgs, err := st.Conversation(ctx, "s1", "s2")
	req.NoError(err)
	req.Len(msgs, 2)
	req.Equal(*created, msgs[len(msgs)-1])
}

func Test_Create_Assigns_Id_And_Timestamp(t *testing.T) {
	req := require.New(t)
	st := NewMemory()

	msg, err := st.Create(context.Background(), "s1", "s2", "  hello  ")
	req.NoError(err)
	req.NotZero(msg.ID)
	req.False(msg.CreatedAt.IsZero())
	req.Equal("hello", msg.Content, "content is trimmed before persistence")
	req.False(msg.IsRead)
	req.Nil(msg.ReadAt)
}

func Test_Create_Rejects_Invalid_Input(t *testing.T) {
	st := NewMemory()
	ctx := context.Background()

	cases := []struct {
		name                      string
		sender, receiver, content string
	}{
		{"blank content", "s1", "s2", ""},
		{"whitespace content", "s1", "s2", "   "},
		{"oversized content", "s1", "s2", strings.Repeat("x", 2001)},
		{"missing sender", "", "s2", "hello"},
		{"missing receiver", "s1", "", "hello"},
		{"self addressed", "s1", "s1", "hello"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := require.New(t)
			_, err := st.Create(ctx, tc.sender, tc.receiver, tc.content)
			var verr *ValidationError
			req.ErrorAs(err, &verr)

			msgs, err := st.Conversation(ctx, "s1", "s2")
			req.NoError(err)
			req.Empty(msgs, "no record is stored on rejection")
		})
	}
}

func Test_Create_Accepts_Content_At_Length_Bound(t *testing.T) {
	req := require.New(t)
	st := NewMemory()
	_, err := st.Create(context.Background(), "s1", "s2", strings.Repeat("x", 2000))
	req.NoError(err)
}

func Test_Conversation_Covers_Both_Directions_Oldest_First(t *testing.T) {
	req := require.New(t)
	st := NewMemory()
	ctx := context.Background()

	_, err := st.Create(ctx, "s1", "s2", "m1")
	req.NoError(err)
	_, err = st.Create(ctx, "s2", "s1", "m2")
	req.NoError(err)
	_, err = st.Create(ctx, "s1", "s3", "other pair")
	req.NoError(err)

	msgs, err := st.Conversation(ctx, "s2", "s1")
	req.NoError(err)
	req.Len(msgs, 2)
	req.Equal("m1", msgs[0].Content)
	req.Equal("m2", msgs[1].Content)
}

func Test_Inbox_Newest_First(t *testing.T) {
	req := require.New(t)
	st := NewMemory()
	ctx := context.Background()

	_, err := st.Create(ctx, "s1", "admin", "oldest")
	req.NoError(err)
	_, err = st.Create(ctx, "s2", "admin", "middle")
	req.NoError(err)
	_, err = st.Create(ctx, "s1", "admin", "newest")
	req.NoError(err)
	_, err = st.Create(ctx, "admin", "s1", "not in inbox")
	req.NoError(err)

	msgs, err := st.Inbox(ctx, "admin")
	req.NoError(err)
	req.Len(msgs, 3)
	req.Equal("newest", msgs[0].Content)
	req.Equal("middle", msgs[1].Content)
	req.Equal("oldest", msgs[2].Content)
}

func Test_MarkRead_Is_Idempotent_And_Scoped(t *testing.T) {
	req := require.New(t)
	st := NewMemory()
	ctx := context.Background()

	_, err := st.Create(ctx, "s1", "s2", "hello")
	req.NoError(err)
	_, err = st.Create(ctx, "s2", "s1", "reply")
	req.NoError(err)

	req.NoError(st.MarkRead(ctx, "s2", "s1"))

	msgs, err := st.Conversation(ctx, "s1", "s2")
	req.NoError(err)
	req.True(msgs[0].IsRead)
	req.NotNil(msgs[0].ReadAt)
	req.False(msgs[1].IsRead, "counter-direction message unaffected")
	req.Nil(msgs[1].ReadAt)

	firstReadAt := *msgs[0].ReadAt
	req.NoError(st.MarkRead(ctx, "s2", "s1"))

	again, err := st.Conversation(ctx, "s1", "s2")
	req.NoError(err)
	req.True(again[0].IsRead)
	req.Equal(firstReadAt, *again[0].ReadAt, "readAt is stamped exactly once")
}

func Test_MarkRead_On_Empty_Set_Succeeds(t *testing.T) {
	st := NewMemory()
	require.NoError(t, st.MarkRead(context.Background(), "s2", "s1"))
}

func Test_FailWith_Surfaces_Unavailable(t *testing.T) {
	req := require.New(t)
	st := NewMemory()
	st.FailWith(errors.New("connection refused"))

	_, err := st.Create(context.Background(), "s1", "s2", "hello")
	req.ErrorIs(err, ErrUnavailable)
	_, err = st.Inbox(context.Background(), "s2")
	req.ErrorIs(err, ErrUnavailable)
	req.ErrorIs(st.MarkRead(context.Background(), "s2", "s1"), ErrUnavailable)

	st.FailWith(nil)
	_, err = st.Create(context.Background(), "s1", "s2", "hello")
	req.NoError(err)
}
