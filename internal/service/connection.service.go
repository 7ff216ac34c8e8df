package service

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/sharetube/partysync/internal/repository/connection"
)

type RegisterUserParams struct {
	Conn   connection.Conn
	UserId string
}

// RegisterUser binds UserId to Conn. A previous connection of the same identity stops
// resolving.
func (s *service) RegisterUser(ctx context.Context, params *RegisterUserParams) error {
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.UserId, IdentityRule...),
	); err != nil {
		return validationError(err)
	}

	s.connRepo.Register(params.Conn, params.UserId)

	return nil
}

type DisconnectResponse struct {
	UserId     string
	Registered bool
}

// Disconnect drops every registry entry of conn. Safe to call more than once and for
// connections that never registered.
func (s *service) Disconnect(ctx context.Context, conn connection.Conn) DisconnectResponse {
	userId, ok := s.connRepo.RemoveByConn(conn)

	return DisconnectResponse{
		UserId:     userId,
		Registered: ok,
	}
}

type PostParams struct {
	Conn   connection.Conn
	PostId string
}

func (s *service) validatePostParams(ctx context.Context, params *PostParams) error {
	return validationError(validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.PostId, PostIdRule...),
	))
}

func (s *service) JoinPost(ctx context.Context, params *PostParams) error {
	if err := s.validatePostParams(ctx, params); err != nil {
		return err
	}

	s.connRepo.Subscribe(params.Conn, connection.PostTopic(params.PostId))

	return nil
}

func (s *service) LeavePost(ctx context.Context, params *PostParams) error {
	if err := s.validatePostParams(ctx, params); err != nil {
		return err
	}

	s.connRepo.Unsubscribe(params.Conn, connection.PostTopic(params.PostId))

	return nil
}

// GetPostConns returns the connections following a post's engagement events.
func (s *service) GetPostConns(postId string) []connection.Conn {
	return s.connRepo.GetSubscribers(connection.PostTopic(postId))
}
