package redis

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sharetube/partysync/internal/repository/message"
)

// messageHash is the stored layout of message:{id}. Optional fields are left out of the
// hash entirely when not supplied.
type messageHash struct {
	From      string  `redis:"from"`
	To        string  `redis:"to"`
	Text      *string `redis:"text"`
	ImageUrl  *string `redis:"image_url"`
	GifUrl    *string `redis:"gif_url"`
	Read      bool    `redis:"read"`
	CreatedAt int64   `redis:"created_at"`
}

type messageScan struct {
	From      string `redis:"from"`
	To        string `redis:"to"`
	Text      string `redis:"text"`
	ImageUrl  string `redis:"image_url"`
	GifUrl    string `redis:"gif_url"`
	Read      bool   `redis:"read"`
	CreatedAt int64  `redis:"created_at"`
}

func (r repo) getMessageKey(messageId string) string {
	return "message:" + messageId
}

func (r repo) getConversationKey(a, b string) string {
	if b < a {
		a, b = b, a
	}

	return "conversation:" + a + ":" + b
}

func (r repo) getChatsKey(identity string) string {
	return "user:" + identity + ":chats"
}

func (r repo) Create(ctx context.Context, msg *message.Message) error {
	r.logger.DebugContext(ctx, "called", "message_id", msg.Id)
	pipe := r.rc.TxPipeline()

	r.hSetStruct(ctx, pipe, r.getMessageKey(msg.Id), messageHash{
		From:      msg.From,
		To:        msg.To,
		Text:      optional(msg.Text),
		ImageUrl:  optional(msg.ImageUrl),
		GifUrl:    optional(msg.GifUrl),
		Read:      msg.Read,
		CreatedAt: msg.CreatedAt.UnixMilli(),
	})

	score := float64(msg.CreatedAt.UnixMilli())
	pipe.ZAdd(ctx, r.getConversationKey(msg.From, msg.To), redis.Z{Score: score, Member: msg.Id})
	pipe.ZAdd(ctx, r.getChatsKey(msg.From), redis.Z{Score: score, Member: msg.To})
	pipe.ZAdd(ctx, r.getChatsKey(msg.To), redis.Z{Score: score, Member: msg.From})

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return fmt.Errorf("failed to create message: %w", err)
	}

	return nil
}

func (r repo) Get(ctx context.Context, messageId string) (message.Message, error) {
	r.logger.DebugContext(ctx, "called", "message_id", messageId)
	cmd := r.rc.HGetAll(ctx, r.getMessageKey(messageId))
	msg, err := r.scanMessage(messageId, cmd)
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return message.Message{}, err
	}

	return msg, nil
}

func (r repo) scanMessage(messageId string, cmd *redis.MapStringStringCmd) (message.Message, error) {
	fields, err := cmd.Result()
	if err != nil {
		return message.Message{}, fmt.Errorf("failed to get message: %w", err)
	}
	if len(fields) == 0 {
		return message.Message{}, message.ErrMessageNotFound
	}

	var m messageScan
	if err := cmd.Scan(&m); err != nil {
		return message.Message{}, fmt.Errorf("failed to scan message: %w", err)
	}

	return message.Message{
		Id:        messageId,
		From:      m.From,
		To:        m.To,
		Text:      m.Text,
		ImageUrl:  m.ImageUrl,
		GifUrl:    m.GifUrl,
		Read:      m.Read,
		CreatedAt: time.UnixMilli(m.CreatedAt).UTC(),
	}, nil
}

func (r repo) MarkRead(ctx context.Context, messageId string) error {
	r.logger.DebugContext(ctx, "called", "message_id", messageId)
	key := r.getMessageKey(messageId)
	exists, err := r.rc.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to check message: %w", err)
	}
	if exists == 0 {
		r.logger.DebugContext(ctx, "returned", "error", message.ErrMessageNotFound)
		return message.ErrMessageNotFound
	}

	if err := r.rc.HSet(ctx, key, "read", true).Err(); err != nil {
		return fmt.Errorf("failed to mark message read: %w", err)
	}

	return nil
}

// ListConversation returns up to limit of the latest messages between a and b, oldest
// first. A non-positive limit returns the whole conversation.
func (r repo) ListConversation(ctx context.Context, a, b string, limit int) ([]message.Message, error) {
	r.logger.DebugContext(ctx, "called", "a", a, "b", b, "limit", limit)
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	ids, err := r.rc.ZRevRange(ctx, r.getConversationKey(a, b), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	slices.Reverse(ids)

	return r.getMany(ctx, ids)
}

func (r repo) getMany(ctx context.Context, ids []string) ([]message.Message, error) {
	if len(ids) == 0 {
		return []message.Message{}, nil
	}

	pipe := r.rc.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, 0, len(ids))
	for _, id := range ids {
		cmds = append(cmds, pipe.HGetAll(ctx, r.getMessageKey(id)))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}

	messages := make([]message.Message, 0, len(ids))
	for i, cmd := range cmds {
		msg, err := r.scanMessage(ids[i], cmd)
		if err != nil {
			if errors.Is(err, message.ErrMessageNotFound) {
				continue
			}

			return nil, err
		}
		messages = append(messages, msg)
	}

	return messages, nil
}

// ListChats returns the last message with every peer identity has talked to, most recent
// conversation first.
func (r repo) ListChats(ctx context.Context, identity string) ([]message.Chat, error) {
	r.logger.DebugContext(ctx, "called", "identity", identity)
	peers, err := r.rc.ZRevRange(ctx, r.getChatsKey(identity), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get chats: %w", err)
	}

	chats := make([]message.Chat, 0, len(peers))
	for _, peer := range peers {
		last, err := r.ListConversation(ctx, identity, peer, 1)
		if err != nil {
			return nil, err
		}
		if len(last) == 0 {
			continue
		}

		chats = append(chats, message.Chat{PeerId: peer, LastMessage: last[0]})
	}

	return chats, nil
}
