package redis

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sharetube/partysync/internal/repository/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) (*repo, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { rc.Close() })

	return NewRepo(rc, slog.New(slog.NewTextHandler(io.Discard, nil))), s
}

func TestCreateGet(t *testing.T) {
	r, s := newTestRepo(t)
	ctx := context.Background()

	createdAt := time.UnixMilli(time.Now().UnixMilli()).UTC()
	msg := message.Message{
		Id:        "m1",
		From:      "alice",
		To:        "bob",
		Text:      "hi",
		CreatedAt: createdAt,
	}
	require.NoError(t, r.Create(ctx, &msg))

	got, err := r.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, msg, got)

	// absent optional fields are not stored
	assert.Equal(t, "", s.HGet("message:m1", "image_url"))
	assert.Equal(t, "hi", s.HGet("message:m1", "text"))
}

func TestGetMissing(t *testing.T) {
	r, _ := newTestRepo(t)

	_, err := r.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, message.ErrMessageNotFound)
}

func TestMarkRead(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Create(ctx, &message.Message{Id: "m1", From: "alice", To: "bob", GifUrl: "https://gif", CreatedAt: time.Now()}))
	require.NoError(t, r.MarkRead(ctx, "m1"))

	got, err := r.Get(ctx, "m1")
	require.NoError(t, err)
	assert.True(t, got.Read)
	assert.Equal(t, "https://gif", got.GifUrl)

	assert.ErrorIs(t, r.MarkRead(ctx, "nope"), message.ErrMessageNotFound)
}

func TestListConversationAndChats(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	send := func(id, from, to string, offset time.Duration) {
		require.NoError(t, r.Create(ctx, &message.Message{Id: id, From: from, To: to, Text: id, CreatedAt: base.Add(offset)}))
	}
	send("m1", "alice", "bob", 1*time.Second)
	send("m2", "bob", "alice", 2*time.Second)
	send("m3", "alice", "carol", 3*time.Second)
	send("m4", "alice", "bob", 4*time.Second)

	conv, err := r.ListConversation(ctx, "bob", "alice", 10)
	require.NoError(t, err)
	require.Len(t, conv, 3)
	assert.Equal(t, "m1", conv[0].Id)
	assert.Equal(t, "m4", conv[2].Id)

	conv, err = r.ListConversation(ctx, "alice", "bob", 2)
	require.NoError(t, err)
	require.Len(t, conv, 2)
	assert.Equal(t, "m2", conv[0].Id)
	assert.Equal(t, "m4", conv[1].Id)

	chats, err := r.ListChats(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, "bob", chats[0].PeerId)
	assert.Equal(t, "m4", chats[0].LastMessage.Id)
	assert.Equal(t, "carol", chats[1].PeerId)

	chats, err = r.ListChats(ctx, "dave")
	require.NoError(t, err)
	assert.Empty(t, chats)
}
