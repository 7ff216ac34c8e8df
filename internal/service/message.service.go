package service

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/oklog/ulid/v2"
	"github.com/sharetube/partysync/internal/repository/connection"
	"github.com/sharetube/partysync/internal/repository/message"
)

type SendMessageParams struct {
	FromUserId string
	ToUserId   string
	Message    string
	ImageUrl   string
	GifUrl     string
}

type SendMessageResponse struct {
	Message Message
	// Recipient is nil when the recipient is offline.
	Recipient connection.Conn
}

// SendMessage stores a direct message with read = false and resolves the recipient's
// connection. The caller delivers it unread to Recipient and echoes it back as read to
// the sending connection.
func (s *service) SendMessage(ctx context.Context, params *SendMessageParams) (SendMessageResponse, error) {
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.FromUserId, IdentityRule...),
		validation.Field(&params.ToUserId, IdentityRule...),
		validation.Field(&params.Message, MessageTextRule...),
		validation.Field(&params.ImageUrl, MediaUrlRule...),
		validation.Field(&params.GifUrl, MediaUrlRule...),
	); err != nil {
		return SendMessageResponse{}, validationError(err)
	}

	if params.Message == "" && params.ImageUrl == "" && params.GifUrl == "" {
		return SendMessageResponse{}, ErrEmptyMessage
	}

	msg := message.Message{
		Id:        ulid.Make().String(),
		From:      params.FromUserId,
		To:        params.ToUserId,
		Text:      params.Message,
		ImageUrl:  params.ImageUrl,
		GifUrl:    params.GifUrl,
		Read:      false,
		CreatedAt: s.now(),
	}
	if err := s.messageRepo.Create(ctx, &msg); err != nil {
		return SendMessageResponse{}, storeError("create message", err)
	}

	recipient, _ := s.connRepo.GetConn(params.ToUserId)

	return SendMessageResponse{
		Message:   messageFromRepo(&msg),
		Recipient: recipient,
	}, nil
}

type TypingParams struct {
	FromUserId string
	ToUserId   string
	Name       string
}

// ResolveTypingRecipient returns the recipient's connection for a typing notice, or nil
// when the recipient is offline.
func (s *service) ResolveTypingRecipient(ctx context.Context, params *TypingParams) (connection.Conn, error) {
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.FromUserId, IdentityRule...),
		validation.Field(&params.ToUserId, IdentityRule...),
		validation.Field(&params.Name, validation.Length(0, 100)),
	); err != nil {
		return nil, validationError(err)
	}

	conn, ok := s.connRepo.GetConn(params.ToUserId)
	if !ok {
		return nil, nil
	}

	return conn, nil
}

type MessageReadParams struct {
	// FromUserId is the reader.
	FromUserId string
	// ToUserId is the author of the message being acknowledged.
	ToUserId  string
	MessageId string
}

// MessageRead resolves the author's connection for a read receipt. With persisted read
// receipts the stored message is marked read first, which only its recipient may do.
func (s *service) MessageRead(ctx context.Context, params *MessageReadParams) (connection.Conn, error) {
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.FromUserId, IdentityRule...),
		validation.Field(&params.ToUserId, IdentityRule...),
		validation.Field(&params.MessageId, MessageIdRule...),
	); err != nil {
		return nil, validationError(err)
	}

	if s.persistReadReceipts {
		msg, err := s.getMessage(ctx, params.MessageId)
		if err != nil {
			return nil, err
		}

		if msg.To != params.FromUserId || msg.From != params.ToUserId {
			return nil, ErrPermissionDenied
		}

		if !msg.Read {
			if err := s.messageRepo.MarkRead(ctx, params.MessageId); err != nil {
				return nil, storeError("mark message read", err)
			}
		}
	}

	conn, ok := s.connRepo.GetConn(params.ToUserId)
	if !ok {
		return nil, nil
	}

	return conn, nil
}

type GetConversationParams struct {
	UserId string
	PeerId string
}

// GetConversation returns the latest messages between two identities, oldest first.
func (s *service) GetConversation(ctx context.Context, params *GetConversationParams) ([]Message, error) {
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.UserId, IdentityRule...),
		validation.Field(&params.PeerId, IdentityRule...),
	); err != nil {
		return nil, validationError(err)
	}

	msgs, err := s.messageRepo.ListConversation(ctx, params.UserId, params.PeerId, s.conversationLimit)
	if err != nil {
		return nil, storeError("list conversation", err)
	}

	res := make([]Message, 0, len(msgs))
	for i := range msgs {
		res = append(res, messageFromRepo(&msgs[i]))
	}

	return res, nil
}

func (s *service) GetChatList(ctx context.Context, identity string) ([]Chat, error) {
	if err := validation.Validate(identity, IdentityRule...); err != nil {
		return nil, validationError(err)
	}

	chats, err := s.messageRepo.ListChats(ctx, identity)
	if err != nil {
		return nil, storeError("list chats", err)
	}

	res := make([]Chat, 0, len(chats))
	for i := range chats {
		res = append(res, Chat{
			PeerId:      chats[i].PeerId,
			LastMessage: messageFromRepo(&chats[i].LastMessage),
		})
	}

	return res, nil
}
