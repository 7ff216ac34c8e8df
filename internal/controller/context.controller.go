package controller

import "context"

type contextKey int

const (
	identityCtxKey contextKey = iota
)

func (c controller) getIdentityFromCtx(ctx context.Context) string {
	identity, ok := ctx.Value(identityCtxKey).(string)
	if !ok {
		return ""
	}

	return identity
}
