package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sharetube/partysync/internal/repository/room"
)

func (r repo) getRoomKey(roomId string) string {
	return "room:" + roomId
}

func (r repo) getMemberRoomsKey(identity string) string {
	return "member:" + identity + ":rooms"
}

func (r repo) Load(ctx context.Context, roomId string) (room.Room, error) {
	r.logger.DebugContext(ctx, "called", "room_id", roomId)
	data, err := r.rc.Get(ctx, r.getRoomKey(roomId)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			r.logger.DebugContext(ctx, "returned", "error", room.ErrRoomNotFound)
			return room.Room{}, room.ErrRoomNotFound
		}

		return room.Room{}, fmt.Errorf("failed to get room: %w", err)
	}

	var rm room.Room
	if err := json.Unmarshal(data, &rm); err != nil {
		return room.Room{}, fmt.Errorf("failed to decode room: %w", err)
	}

	return rm, nil
}

// Create stores rm only if no room with the same id exists.
func (r repo) Create(ctx context.Context, rm *room.Room) error {
	r.logger.DebugContext(ctx, "called", "room_id", rm.Id)
	data, err := json.Marshal(rm)
	if err != nil {
		return fmt.Errorf("failed to encode room: %w", err)
	}

	ok, err := r.rc.SetNX(ctx, r.getRoomKey(rm.Id), data, r.expireDuration).Result()
	if err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}
	if !ok {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrRoomAlreadyExists)
		return room.ErrRoomAlreadyExists
	}

	pipe := r.rc.TxPipeline()
	r.indexMembers(ctx, pipe, rm)
	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to index room members: %w", err)
	}

	return nil
}

// Save replaces the whole document.
func (r repo) Save(ctx context.Context, rm *room.Room) error {
	r.logger.DebugContext(ctx, "called", "room_id", rm.Id)
	data, err := json.Marshal(rm)
	if err != nil {
		return fmt.Errorf("failed to encode room: %w", err)
	}

	pipe := r.rc.TxPipeline()
	pipe.Set(ctx, r.getRoomKey(rm.Id), data, r.expireDuration)
	r.indexMembers(ctx, pipe, rm)

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return fmt.Errorf("failed to save room: %w", err)
	}

	return nil
}

func (r repo) indexMembers(ctx context.Context, pipe redis.Pipeliner, rm *room.Room) {
	for _, identity := range rm.Members() {
		key := r.getMemberRoomsKey(identity)
		pipe.SAdd(ctx, key, rm.Id)
		r.expire(ctx, pipe, key)
	}
}

func (r repo) Delete(ctx context.Context, roomId string) error {
	r.logger.DebugContext(ctx, "called", "room_id", roomId)
	rm, err := r.Load(ctx, roomId)
	if err != nil {
		return err
	}

	pipe := r.rc.TxPipeline()
	pipe.Del(ctx, r.getRoomKey(roomId))
	for _, identity := range rm.Members() {
		pipe.SRem(ctx, r.getMemberRoomsKey(identity), roomId)
	}

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}

	return nil
}

// ListByMember returns the rooms identity created or is invited to, newest first. Index
// entries left behind by removed invites or deleted rooms are pruned on the way.
func (r repo) ListByMember(ctx context.Context, identity string) ([]room.Room, error) {
	r.logger.DebugContext(ctx, "called", "identity", identity)
	memberRoomsKey := r.getMemberRoomsKey(identity)
	roomIds, err := r.rc.SMembers(ctx, memberRoomsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get member rooms: %w", err)
	}
	if len(roomIds) == 0 {
		return []room.Room{}, nil
	}

	keys := make([]string, 0, len(roomIds))
	for _, roomId := range roomIds {
		keys = append(keys, r.getRoomKey(roomId))
	}

	docs, err := r.rc.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get rooms: %w", err)
	}

	rooms := make([]room.Room, 0, len(docs))
	stale := make([]any, 0)
	for i, doc := range docs {
		s, ok := doc.(string)
		if !ok {
			stale = append(stale, roomIds[i])
			continue
		}

		var rm room.Room
		if err := json.Unmarshal([]byte(s), &rm); err != nil {
			return nil, fmt.Errorf("failed to decode room: %w", err)
		}
		if !rm.HasMember(identity) {
			stale = append(stale, roomIds[i])
			continue
		}

		rooms = append(rooms, rm)
	}

	if len(stale) > 0 {
		if err := r.rc.SRem(ctx, memberRoomsKey, stale...).Err(); err != nil {
			r.logger.WarnContext(ctx, "failed to prune member rooms", "error", err)
		}
	}

	sortByCreatedAtDesc(rooms)

	return rooms, nil
}
