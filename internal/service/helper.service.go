package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/sharetube/partysync/internal/repository/connection"
	"github.com/sharetube/partysync/internal/repository/message"
	"github.com/sharetube/partysync/internal/repository/room"
)

// validationError tags ozzo errors with ErrValidation. Internal ozzo errors (bad rule
// setup) are passed through unchanged.
func validationError(err error) error {
	if err == nil {
		return nil
	}

	var internal validation.InternalError
	if errors.As(err, &internal) {
		return err
	}

	return fmt.Errorf("%w: %w", ErrValidation, err)
}

func (s *service) now() time.Time {
	return time.Now().UTC()
}

func storeError(op string, err error) error {
	return fmt.Errorf("%w: failed to %s: %w", ErrStore, op, err)
}

func (s *service) loadRoom(ctx context.Context, roomId string) (room.Room, error) {
	rm, err := s.roomRepo.Load(ctx, roomId)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			return room.Room{}, ErrRoomNotFound
		}

		return room.Room{}, storeError("load room", err)
	}

	return rm, nil
}

// mutateRoom runs the load, mutate, save cycle for roomId while holding the room's lock.
// When mutate returns changed == false nothing is saved.
func (s *service) mutateRoom(ctx context.Context, roomId string, mutate func(rm *room.Room) (bool, error)) (room.Room, error) {
	unlock := s.roomLocker.Lock(roomId)
	defer unlock()

	rm, err := s.loadRoom(ctx, roomId)
	if err != nil {
		return room.Room{}, err
	}

	changed, err := mutate(&rm)
	if err != nil {
		return room.Room{}, err
	}
	if !changed {
		return rm, nil
	}

	rm.UpdatedAt = s.now()
	if err := s.roomRepo.Save(ctx, &rm); err != nil {
		return room.Room{}, storeError("save room", err)
	}

	return rm, nil
}

func (s *service) getRoomConns(roomId string) []connection.Conn {
	return s.connRepo.GetSubscribers(connection.RoomTopic(roomId))
}

func (s *service) getRoomConnsExcept(roomId, connId string) []connection.Conn {
	conns := s.getRoomConns(roomId)
	filtered := make([]connection.Conn, 0, len(conns))
	for _, c := range conns {
		if c.Id() != connId {
			filtered = append(filtered, c)
		}
	}

	return filtered
}

// getOnlineConns resolves the live connections of identities, skipping offline ones.
func (s *service) getOnlineConns(identities []string) []connection.Conn {
	conns := make([]connection.Conn, 0, len(identities))
	for _, identity := range identities {
		if conn, ok := s.connRepo.GetConn(identity); ok {
			conns = append(conns, conn)
		}
	}

	return conns
}

func (s *service) getMessage(ctx context.Context, messageId string) (message.Message, error) {
	msg, err := s.messageRepo.Get(ctx, messageId)
	if err != nil {
		if errors.Is(err, message.ErrMessageNotFound) {
			return message.Message{}, ErrMessageNotFound
		}

		return message.Message{}, storeError("get message", err)
	}

	return msg, nil
}
