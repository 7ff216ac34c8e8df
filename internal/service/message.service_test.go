package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendMessageRoundTrip(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	bobConn := newFakeConn("bob-conn")
	env.connRepo.Register(bobConn, "bob")

	resp, err := env.svc.SendMessage(ctx, &SendMessageParams{FromUserId: "alice", ToUserId: "bob", Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, bobConn, resp.Recipient)
	assert.NotEmpty(t, resp.Message.Id)
	assert.False(t, resp.Message.Read)
	assert.Equal(t, "hi", resp.Message.Message)

	msgs, err := env.svc.GetConversation(ctx, &GetConversationParams{UserId: "bob", PeerId: "alice"})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, resp.Message.Id, msgs[0].Id)
	assert.False(t, msgs[0].Read)

	chats, err := env.svc.GetChatList(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, "bob", chats[0].PeerId)
}

func TestSendMessageOfflineRecipient(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, err := env.svc.SendMessage(context.Background(), &SendMessageParams{FromUserId: "alice", ToUserId: "bob", GifUrl: "https://media.example.com/a.gif"})
	require.NoError(t, err)
	assert.Nil(t, resp.Recipient)
	assert.Equal(t, "https://media.example.com/a.gif", resp.Message.GifUrl)
}

func TestSendMessageRejected(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	cases := []SendMessageParams{
		{FromUserId: "alice", ToUserId: "bob"},
		{FromUserId: "", ToUserId: "bob", Message: "hi"},
		{FromUserId: "alice", ToUserId: "", Message: "hi"},
		{FromUserId: "alice", ToUserId: "bob", ImageUrl: "not a url"},
	}
	for _, params := range cases {
		_, err := env.svc.SendMessage(ctx, &params)
		assert.ErrorIs(t, err, ErrValidation)
	}

	msgs, err := env.svc.GetConversation(ctx, &GetConversationParams{UserId: "alice", PeerId: "bob"})
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestTypingRecipient(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	conn, err := env.svc.ResolveTypingRecipient(ctx, &TypingParams{FromUserId: "alice", ToUserId: "bob"})
	require.NoError(t, err)
	assert.Nil(t, conn)

	bobConn := newFakeConn("bob-conn")
	env.connRepo.Register(bobConn, "bob")
	conn, err = env.svc.ResolveTypingRecipient(ctx, &TypingParams{FromUserId: "alice", ToUserId: "bob", Name: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, bobConn, conn)

	_, err = env.svc.ResolveTypingRecipient(ctx, &TypingParams{FromUserId: "alice"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestMessageReadRelayOnly(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	aliceConn := newFakeConn("alice-conn")
	env.connRepo.Register(aliceConn, "alice")

	resp, err := env.svc.SendMessage(ctx, &SendMessageParams{FromUserId: "alice", ToUserId: "bob", Message: "hi"})
	require.NoError(t, err)

	conn, err := env.svc.MessageRead(ctx, &MessageReadParams{FromUserId: "bob", ToUserId: "alice", MessageId: resp.Message.Id})
	require.NoError(t, err)
	assert.Equal(t, aliceConn, conn)

	stored, err := env.svc.messageRepo.Get(ctx, resp.Message.Id)
	require.NoError(t, err)
	assert.False(t, stored.Read)
}

func TestMessageReadPersisted(t *testing.T) {
	cfg := defaultTestConfig()
	cfg.PersistReadReceipts = true
	env := newTestEnv(t, cfg)
	ctx := context.Background()

	resp, err := env.svc.SendMessage(ctx, &SendMessageParams{FromUserId: "alice", ToUserId: "bob", Message: "hi"})
	require.NoError(t, err)

	_, err = env.svc.MessageRead(ctx, &MessageReadParams{FromUserId: "carol", ToUserId: "alice", MessageId: resp.Message.Id})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = env.svc.MessageRead(ctx, &MessageReadParams{FromUserId: "bob", ToUserId: "alice", MessageId: "missing"})
	assert.ErrorIs(t, err, ErrMessageNotFound)

	conn, err := env.svc.MessageRead(ctx, &MessageReadParams{FromUserId: "bob", ToUserId: "alice", MessageId: resp.Message.Id})
	require.NoError(t, err)
	assert.Nil(t, conn)

	stored, err := env.svc.messageRepo.Get(ctx, resp.Message.Id)
	require.NoError(t, err)
	assert.True(t, stored.Read)
}
