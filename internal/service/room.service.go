package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/jaevor/go-nanoid"
	"github.com/sharetube/partysync/internal/repository/connection"
	"github.com/sharetube/partysync/internal/repository/room"
)

const (
	roomIdLength     = 12
	inviteCodeLength = 8
	createAttempts   = 3
)

var (
	generateRoomId     = mustNanoid(nanoid.Standard(roomIdLength))
	generateInviteCode = mustNanoid(nanoid.CustomASCII("0123456789abcdef", inviteCodeLength))
)

func mustNanoid(gen func() string, err error) func() string {
	if err != nil {
		panic(err)
	}

	return gen
}

type JoinWatchRoomParams struct {
	Conn   connection.Conn
	RoomId string
}

type JoinWatchRoomResponse struct {
	Room Room
}

// JoinWatchRoom subscribes the connection to the room and returns its snapshot. A missing
// room yields ErrRoomNotFound and no subscription.
func (s *service) JoinWatchRoom(ctx context.Context, params *JoinWatchRoomParams) (JoinWatchRoomResponse, error) {
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.RoomId, RoomIdRule...),
	); err != nil {
		return JoinWatchRoomResponse{}, validationError(err)
	}

	// held until subscribed so an EndRoom sweep cannot miss this connection
	unlock := s.roomLocker.Lock(params.RoomId)
	defer unlock()

	rm, err := s.loadRoom(ctx, params.RoomId)
	if err != nil {
		return JoinWatchRoomResponse{}, err
	}

	s.connRepo.Subscribe(params.Conn, connection.RoomTopic(params.RoomId))

	return JoinWatchRoomResponse{
		Room: roomFromRepo(&rm),
	}, nil
}

type LeaveWatchRoomParams struct {
	Conn   connection.Conn
	RoomId string
}

func (s *service) LeaveWatchRoom(ctx context.Context, params *LeaveWatchRoomParams) error {
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.RoomId, RoomIdRule...),
	); err != nil {
		return validationError(err)
	}

	s.connRepo.Unsubscribe(params.Conn, connection.RoomTopic(params.RoomId))

	return nil
}

type SendChatMessageParams struct {
	RoomId  string
	UserId  string
	Message string
}

type SendChatMessageResponse struct {
	Message ChatMessage
	Conns   []connection.Conn
}

// SendChatMessage appends to the room's chat history, keeping at most chatHistoryLimit
// entries, and returns the stored message with the room's connections.
func (s *service) SendChatMessage(ctx context.Context, params *SendChatMessageParams) (SendChatMessageResponse, error) {
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.RoomId, RoomIdRule...),
		validation.Field(&params.UserId, IdentityRule...),
		validation.Field(&params.Message, ChatMessageRule...),
	); err != nil {
		return SendChatMessageResponse{}, validationError(err)
	}

	var added room.ChatMessage
	if _, err := s.mutateRoom(ctx, params.RoomId, func(rm *room.Room) (bool, error) {
		added = room.ChatMessage{
			UserId:    params.UserId,
			Message:   params.Message,
			Timestamp: s.now(),
		}
		rm.ChatMessages = append(rm.ChatMessages, added)
		if s.chatHistoryLimit > 0 && len(rm.ChatMessages) > s.chatHistoryLimit {
			rm.ChatMessages = slices.Clone(rm.ChatMessages[len(rm.ChatMessages)-s.chatHistoryLimit:])
		}

		return true, nil
	}); err != nil {
		return SendChatMessageResponse{}, err
	}

	return SendChatMessageResponse{
		Message: chatMessageFromRepo(added),
		Conns:   s.getRoomConns(params.RoomId),
	}, nil
}

type CreateRoomParams struct {
	CreatorId    string
	Name         string
	InvitedUsers []string
}

type CreateRoomResponse struct {
	Room     Room
	Invitees []connection.Conn
}

func (s *service) CreateRoom(ctx context.Context, params *CreateRoomParams) (CreateRoomResponse, error) {
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.CreatorId, IdentityRule...),
		validation.Field(&params.Name, RoomNameRule...),
		validation.Field(&params.InvitedUsers, InvitedUsersRule...),
	); err != nil {
		return CreateRoomResponse{}, validationError(err)
	}

	invited := make([]string, 0, len(params.InvitedUsers))
	for _, u := range params.InvitedUsers {
		if u != params.CreatorId && !slices.Contains(invited, u) {
			invited = append(invited, u)
		}
	}

	now := s.now()
	rm := room.Room{
		Name:         params.Name,
		CreatedBy:    params.CreatorId,
		InvitedUsers: invited,
		VideoQueue:   []room.Video{},
		ChatMessages: []room.ChatMessage{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var err error
	for i := 0; i < createAttempts; i++ {
		rm.Id = generateRoomId()
		rm.InviteCode = generateInviteCode()
		err = s.roomRepo.Create(ctx, &rm)
		if !errors.Is(err, room.ErrRoomAlreadyExists) {
			break
		}
	}
	if err != nil {
		return CreateRoomResponse{}, storeError("create room", err)
	}

	return CreateRoomResponse{
		Room:     roomFromRepo(&rm),
		Invitees: s.getOnlineConns(invited),
	}, nil
}

type InviteUsersParams struct {
	SenderId     string
	RoomId       string
	InvitedUsers []string
}

type InviteUsersResponse struct {
	Room     Room
	Invitees []connection.Conn
}

// InviteUsers adds identities to the room's invite set. Only the creator may invite.
// Invitees are the online connections of every identity named in the request.
func (s *service) InviteUsers(ctx context.Context, params *InviteUsersParams) (InviteUsersResponse, error) {
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.SenderId, IdentityRule...),
		validation.Field(&params.RoomId, RoomIdRule...),
		validation.Field(&params.InvitedUsers, validation.Required, validation.Each(IdentityRule...)),
	); err != nil {
		return InviteUsersResponse{}, validationError(err)
	}

	rm, err := s.mutateRoom(ctx, params.RoomId, func(rm *room.Room) (bool, error) {
		if rm.CreatedBy != params.SenderId {
			return false, ErrPermissionDenied
		}

		changed := false
		for _, u := range params.InvitedUsers {
			if !rm.HasMember(u) {
				rm.InvitedUsers = append(rm.InvitedUsers, u)
				changed = true
			}
		}

		return changed, nil
	})
	if err != nil {
		return InviteUsersResponse{}, err
	}

	return InviteUsersResponse{
		Room:     roomFromRepo(&rm),
		Invitees: s.getOnlineConns(params.InvitedUsers),
	}, nil
}

type RemoveInviteParams struct {
	UserId string
	RoomId string
}

// RemoveInvite removes the caller from the room's invite set. It is a no-op when the
// caller was not invited.
func (s *service) RemoveInvite(ctx context.Context, params *RemoveInviteParams) error {
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.UserId, IdentityRule...),
		validation.Field(&params.RoomId, RoomIdRule...),
	); err != nil {
		return validationError(err)
	}

	_, err := s.mutateRoom(ctx, params.RoomId, func(rm *room.Room) (bool, error) {
		before := len(rm.InvitedUsers)
		rm.InvitedUsers = slices.DeleteFunc(rm.InvitedUsers, func(u string) bool {
			return u == params.UserId
		})

		return len(rm.InvitedUsers) != before, nil
	})

	return err
}

type EndRoomParams struct {
	SenderId string
	RoomId   string
}

type EndRoomResponse struct {
	Conns []connection.Conn
}

// EndRoom deletes the room. Only the creator may end it. The returned connections were
// subscribed to the room and should be told it ended; their subscriptions are dropped.
func (s *service) EndRoom(ctx context.Context, params *EndRoomParams) (EndRoomResponse, error) {
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.SenderId, IdentityRule...),
		validation.Field(&params.RoomId, RoomIdRule...),
	); err != nil {
		return EndRoomResponse{}, validationError(err)
	}

	unlock := s.roomLocker.Lock(params.RoomId)
	defer unlock()

	rm, err := s.loadRoom(ctx, params.RoomId)
	if err != nil {
		return EndRoomResponse{}, err
	}

	if rm.CreatedBy != params.SenderId {
		return EndRoomResponse{}, ErrPermissionDenied
	}

	if err := s.roomRepo.Delete(ctx, params.RoomId); err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			return EndRoomResponse{}, ErrRoomNotFound
		}

		return EndRoomResponse{}, storeError("delete room", err)
	}

	s.playback.Forget(params.RoomId)

	topic := connection.RoomTopic(params.RoomId)
	conns := s.connRepo.GetSubscribers(topic)
	for _, conn := range conns {
		s.connRepo.Unsubscribe(conn, topic)
	}

	return EndRoomResponse{
		Conns: conns,
	}, nil
}

func (s *service) ListMyRooms(ctx context.Context, identity string) ([]Room, error) {
	if err := validation.Validate(identity, IdentityRule...); err != nil {
		return nil, validationError(fmt.Errorf("identity: %w", err))
	}

	rms, err := s.roomRepo.ListByMember(ctx, identity)
	if err != nil {
		return nil, storeError("list rooms", err)
	}

	rooms := make([]Room, 0, len(rms))
	for i := range rms {
		rooms = append(rooms, roomFromRepo(&rms[i]))
	}

	return rooms, nil
}
