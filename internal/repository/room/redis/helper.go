package redis

import (
	"context"
	"slices"

	"github.com/redis/go-redis/v9"
	"github.com/sharetube/partysync/internal/repository/room"
)

func (r repo) executePipe(ctx context.Context, pipe redis.Pipeliner) error {
	cmds, err := pipe.Exec(ctx)
	if err != nil {
		for _, cmd := range cmds {
			if err := cmd.Err(); err != nil {
				return err
			}
		}

		return err
	}

	return nil
}

func (r repo) expire(ctx context.Context, pipe redis.Pipeliner, key string) {
	if r.expireDuration > 0 {
		pipe.Expire(ctx, key, r.expireDuration)
	}
}

func sortByCreatedAtDesc(rooms []room.Room) {
	slices.SortFunc(rooms, func(a, b room.Room) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}
