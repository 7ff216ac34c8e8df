package wsrouter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	in      []string
	written []any
}

func (c *fakeConn) ReadJSON(v any) error {
	if len(c.in) == 0 {
		return io.EOF
	}
	next := c.in[0]
	c.in = c.in[1:]

	return json.Unmarshal([]byte(next), v)
}

func (c *fakeConn) WriteJSON(v any) error {
	c.written = append(c.written, v)
	return nil
}

type joinInput struct {
	RoomId string `json:"roomId"`
}

func TestDispatchDecodesTypedPayload(t *testing.T) {
	r := New()
	var got joinInput
	Handle(r, "joinWatchRoom", func(ctx context.Context, conn Conn, input joinInput) error {
		got = input
		assert.Equal(t, "joinWatchRoom", GetMessageTypeFromCtx(ctx))
		return nil
	})

	err := r.Dispatch(context.Background(), &fakeConn{}, "joinWatchRoom", json.RawMessage(`{"roomId":"r1"}`))
	require.NoError(t, err)
	assert.Equal(t, "r1", got.RoomId)
}

func TestDispatchStringPayload(t *testing.T) {
	r := New()
	var got string
	Handle(r, "registerUser", func(_ context.Context, _ Conn, input string) error {
		got = input
		return nil
	})

	require.NoError(t, r.Dispatch(context.Background(), &fakeConn{}, "registerUser", json.RawMessage(`"u1"`)))
	assert.Equal(t, "u1", got)
}

func TestDispatchErrors(t *testing.T) {
	r := New()
	Handle(r, "joinWatchRoom", func(context.Context, Conn, joinInput) error { return nil })

	err := r.Dispatch(context.Background(), &fakeConn{}, "nope", nil)
	assert.ErrorIs(t, err, ErrUnknownMessageType)

	err = r.Dispatch(context.Background(), &fakeConn{}, "joinWatchRoom", json.RawMessage(`{"roomId":1}`))
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestMiddlewareOrder(t *testing.T) {
	r := New()
	var order []string
	mw := func(name string) Middleware {
		return func(next HandlerFunc[any]) HandlerFunc[any] {
			return func(ctx context.Context, conn Conn, payload any) error {
				order = append(order, name)
				return next(ctx, conn, payload)
			}
		}
	}
	r.Use(mw("first"), mw("second"))
	Handle(r, "typing", func(context.Context, Conn, struct{}) error {
		order = append(order, "handler")
		return nil
	})

	require.NoError(t, r.Dispatch(context.Background(), &fakeConn{}, "typing", nil))
	assert.Equal(t, []string{"first", "second", "handler"}, order)
}

func TestServeConnProcessesInOrderAndReportsErrors(t *testing.T) {
	r := New()
	var seen []string
	Handle(r, "registerUser", func(_ context.Context, _ Conn, input string) error {
		seen = append(seen, input)
		return nil
	})
	boom := errors.New("boom")
	Handle(r, "fail", func(context.Context, Conn, struct{}) error { return boom })

	var handled []error
	r.SetErrorHandler(func(_ context.Context, _ Conn, err error) {
		handled = append(handled, err)
	})

	conn := &fakeConn{in: []string{
		`{"type":"registerUser","payload":"a"}`,
		`{"type":"fail"}`,
		`{"type":"registerUser","payload":"b"}`,
		`{"type":"unknown"}`,
	}}
	err := r.ServeConn(context.Background(), conn)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, []string{"a", "b"}, seen)
	require.Len(t, handled, 2)
	assert.ErrorIs(t, handled[0], boom)
	assert.ErrorIs(t, handled[1], ErrUnknownMessageType)
}
