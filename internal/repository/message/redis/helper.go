package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
	omitnilpointers "github.com/sharetube/partysync/pkg/omit-nil-pointers"
)

func (r repo) hSetStruct(ctx context.Context, c redis.Pipeliner, key string, value any) {
	c.HSet(ctx, key, omitnilpointers.StructFields(value, "redis"))
}

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

func optional(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}
