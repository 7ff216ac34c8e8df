package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sharetube/partysync/internal/playback"
	"github.com/sharetube/partysync/internal/service"
	"github.com/sharetube/partysync/pkg/wsrouter"
)

// IdInput is an identifier sent as a bare JSON string or number. Numbers keep their
// literal text, so 42 and "42" name the same user.
type IdInput string

func (id *IdInput) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}

	switch v := v.(type) {
	case string:
		*id = IdInput(v)
	case json.Number:
		*id = IdInput(v.String())
	default:
		return fmt.Errorf("id must be a string or a number, got %s", data)
	}

	return nil
}

func (c controller) handleRegisterUser(ctx context.Context, conn wsrouter.Conn, input IdInput) error {
	userId := string(input)
	lc, err := liveConn(conn)
	if err != nil {
		return err
	}

	if err := c.service.RegisterUser(ctx, &service.RegisterUserParams{
		Conn:   lc,
		UserId: userId,
	}); err != nil {
		return fmt.Errorf("failed to register user: %w", err)
	}

	c.logger.InfoContext(ctx, "user registered", "user_id", userId, "conn_id", lc.Id())

	return nil
}

func (c controller) handleJoinPost(ctx context.Context, conn wsrouter.Conn, input IdInput) error {
	postId := string(input)
	lc, err := liveConn(conn)
	if err != nil {
		return err
	}

	if err := c.service.JoinPost(ctx, &service.PostParams{Conn: lc, PostId: postId}); err != nil {
		return fmt.Errorf("failed to join post: %w", err)
	}

	return nil
}

func (c controller) handleLeavePost(ctx context.Context, conn wsrouter.Conn, input IdInput) error {
	postId := string(input)
	lc, err := liveConn(conn)
	if err != nil {
		return err
	}

	if err := c.service.LeavePost(ctx, &service.PostParams{Conn: lc, PostId: postId}); err != nil {
		return fmt.Errorf("failed to leave post: %w", err)
	}

	return nil
}

type RoomInput struct {
	RoomId string `json:"roomId"`
}

type watchPartyEndedPayload struct {
	RoomId string `json:"roomId"`
}

func (c controller) handleJoinWatchRoom(ctx context.Context, conn wsrouter.Conn, input RoomInput) error {
	lc, err := liveConn(conn)
	if err != nil {
		return err
	}

	joinResp, err := c.service.JoinWatchRoom(ctx, &service.JoinWatchRoomParams{
		Conn:   lc,
		RoomId: input.RoomId,
	})
	if err != nil {
		if errors.Is(err, service.ErrRoomNotFound) {
			c.writeToConn(ctx, lc, &Output{
				Type:    "watchPartyEnded",
				Payload: watchPartyEndedPayload{RoomId: input.RoomId},
			})
			return nil
		}

		return fmt.Errorf("failed to join watch room: %w", err)
	}

	c.writeToConn(ctx, lc, &Output{
		Type:    "watchRoomState",
		Payload: joinResp.Room,
	})

	return nil
}

func (c controller) handleLeaveWatchRoom(ctx context.Context, conn wsrouter.Conn, input RoomInput) error {
	lc, err := liveConn(conn)
	if err != nil {
		return err
	}

	if err := c.service.LeaveWatchRoom(ctx, &service.LeaveWatchRoomParams{
		Conn:   lc,
		RoomId: input.RoomId,
	}); err != nil {
		return fmt.Errorf("failed to leave watch room: %w", err)
	}

	return nil
}

type WatchChatMessageInput struct {
	RoomId  string `json:"roomId"`
	UserId  string `json:"userId"`
	Message string `json:"message"`
}

func (c controller) handleWatchChatMessage(ctx context.Context, _ wsrouter.Conn, input WatchChatMessageInput) error {
	chatResp, err := c.service.SendChatMessage(ctx, &service.SendChatMessageParams{
		RoomId:  input.RoomId,
		UserId:  input.UserId,
		Message: input.Message,
	})
	if err != nil {
		return fmt.Errorf("failed to send chat message: %w", err)
	}

	c.broadcast(ctx, chatResp.Conns, &Output{
		Type:    "watchChatMessage",
		Payload: chatResp.Message,
	})

	return nil
}

type PlaybackInput struct {
	RoomId      string  `json:"roomId"`
	CurrentTime float64 `json:"currentTime"`
}

func (c controller) submitPlayback(ctx context.Context, conn wsrouter.Conn, kind playback.Kind, input PlaybackInput) error {
	lc, err := liveConn(conn)
	if err != nil {
		return err
	}

	if err := c.service.SubmitPlayback(ctx, &service.PlaybackParams{
		Conn:        lc,
		RoomId:      input.RoomId,
		Kind:        kind,
		CurrentTime: input.CurrentTime,
	}); err != nil {
		return fmt.Errorf("failed to submit playback: %w", err)
	}

	return nil
}

func (c controller) handleWatchPlay(ctx context.Context, conn wsrouter.Conn, input PlaybackInput) error {
	return c.submitPlayback(ctx, conn, playback.KindPlay, input)
}

func (c controller) handleWatchPause(ctx context.Context, conn wsrouter.Conn, input PlaybackInput) error {
	return c.submitPlayback(ctx, conn, playback.KindPause, input)
}

type AddVideoToQueueInput struct {
	RoomId  string `json:"roomId"`
	VideoId string `json:"videoId"`
	Title   string `json:"title"`
}

func (c controller) handleAddVideoToQueue(ctx context.Context, _ wsrouter.Conn, input AddVideoToQueueInput) error {
	queueResp, err := c.service.Enqueue(ctx, &service.EnqueueParams{
		RoomId:  input.RoomId,
		VideoId: input.VideoId,
		Title:   input.Title,
	})
	if err != nil {
		return fmt.Errorf("failed to add video to queue: %w", err)
	}

	c.broadcast(ctx, queueResp.Conns, &Output{
		Type:    "queueUpdated",
		Payload: queueResp.Queue,
	})

	return nil
}

func (c controller) handleSkipVideo(ctx context.Context, _ wsrouter.Conn, input RoomInput) error {
	queueResp, err := c.service.Skip(ctx, &service.SkipParams{
		RoomId: input.RoomId,
	})
	if err != nil {
		return fmt.Errorf("failed to skip video: %w", err)
	}

	c.broadcast(ctx, queueResp.Conns, &Output{
		Type:    "videoChanged",
		Payload: queueResp.Queue,
	})

	return nil
}

type RemoveFromQueueInput struct {
	RoomId string `json:"roomId"`
	Index  int    `json:"index"`
}

func (c controller) handleRemoveFromQueue(ctx context.Context, _ wsrouter.Conn, input RemoveFromQueueInput) error {
	queueResp, err := c.service.RemoveAt(ctx, &service.RemoveAtParams{
		RoomId: input.RoomId,
		Index:  input.Index,
	})
	if err != nil {
		return fmt.Errorf("failed to remove from queue: %w", err)
	}

	c.broadcast(ctx, queueResp.Conns, &Output{
		Type:    "queueUpdated",
		Payload: queueResp.Queue,
	})

	return nil
}

type PrivateMessageInput struct {
	ToUserId   string `json:"toUserId"`
	FromUserId string `json:"fromUserId"`
	Message    string `json:"message"`
	ImageUrl   string `json:"imageUrl"`
	GifUrl     string `json:"gifUrl"`
}

func (c controller) handlePrivateMessage(ctx context.Context, conn wsrouter.Conn, input PrivateMessageInput) error {
	lc, err := liveConn(conn)
	if err != nil {
		return err
	}

	sendResp, err := c.service.SendMessage(ctx, &service.SendMessageParams{
		FromUserId: input.FromUserId,
		ToUserId:   input.ToUserId,
		Message:    input.Message,
		ImageUrl:   input.ImageUrl,
		GifUrl:     input.GifUrl,
	})
	if err != nil {
		return fmt.Errorf("failed to send private message: %w", err)
	}

	if sendResp.Recipient != nil {
		c.writeToConn(ctx, sendResp.Recipient, &Output{
			Type:    "privateMessage",
			Payload: sendResp.Message,
		})
	}

	echo := sendResp.Message
	echo.Read = true
	c.writeToConn(ctx, lc, &Output{
		Type:    "privateMessage",
		Payload: echo,
	})

	return nil
}

type TypingInput struct {
	ToUserId   string `json:"toUserId"`
	FromUserId string `json:"fromUserId"`
	Name       string `json:"name"`
}

type typingPayload struct {
	FromUserId string `json:"fromUserId"`
	Name       string `json:"name,omitempty"`
}

func (c controller) relayTyping(ctx context.Context, msgType string, input TypingInput) error {
	recipient, err := c.service.ResolveTypingRecipient(ctx, &service.TypingParams{
		FromUserId: input.FromUserId,
		ToUserId:   input.ToUserId,
		Name:       input.Name,
	})
	if err != nil {
		return fmt.Errorf("failed to relay %s: %w", msgType, err)
	}

	payload := typingPayload{FromUserId: input.FromUserId}
	if msgType == "typing" {
		payload.Name = input.Name
	}

	c.writeToConn(ctx, recipient, &Output{
		Type:    msgType,
		Payload: payload,
	})

	return nil
}

func (c controller) handleTyping(ctx context.Context, _ wsrouter.Conn, input TypingInput) error {
	return c.relayTyping(ctx, "typing", input)
}

func (c controller) handleStopTyping(ctx context.Context, _ wsrouter.Conn, input TypingInput) error {
	return c.relayTyping(ctx, "stopTyping", input)
}

type MessageReadInput struct {
	ToUserId   string `json:"toUserId"`
	FromUserId string `json:"fromUserId"`
	MessageId  string `json:"messageId"`
}

type messageReadPayload struct {
	FromUserId string `json:"fromUserId"`
	MessageId  string `json:"messageId"`
}

func (c controller) handleMessageRead(ctx context.Context, _ wsrouter.Conn, input MessageReadInput) error {
	author, err := c.service.MessageRead(ctx, &service.MessageReadParams{
		FromUserId: input.FromUserId,
		ToUserId:   input.ToUserId,
		MessageId:  input.MessageId,
	})
	if err != nil {
		return fmt.Errorf("failed to relay message read: %w", err)
	}

	c.writeToConn(ctx, author, &Output{
		Type: "messageRead",
		Payload: messageReadPayload{
			FromUserId: input.FromUserId,
			MessageId:  input.MessageId,
		},
	})

	return nil
}
