package wsrouter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrUnknownMessageType = errors.New("unknown message type")
	ErrInvalidPayload     = errors.New("invalid payload")
)

type message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Conn is the transport a router reads from and handlers reply to.
type Conn interface {
	ReadJSON(v any) error
	WriteJSON(v any) error
}

type HandlerFunc[T any] func(ctx context.Context, conn Conn, input T) error

type Middleware func(next HandlerFunc[any]) HandlerFunc[any]

// ErrorHandler receives every error returned while dispatching a message.
type ErrorHandler func(ctx context.Context, conn Conn, err error)

type route struct {
	decode  func(json.RawMessage) (any, error)
	handler HandlerFunc[any]
}

type WSRouter struct {
	routes       map[string]route
	middlewares  []Middleware
	errorHandler ErrorHandler
}

func New() *WSRouter {
	return &WSRouter{
		routes: make(map[string]route),
	}
}

func (r *WSRouter) Use(mws ...Middleware) {
	r.middlewares = append(r.middlewares, mws...)
}

func (r *WSRouter) SetErrorHandler(h ErrorHandler) {
	r.errorHandler = h
}

// Handle registers handler for messageType. The payload is decoded into T before the
// middleware chain runs.
func Handle[T any](r *WSRouter, messageType string, handler HandlerFunc[T]) {
	r.routes[messageType] = route{
		decode: func(raw json.RawMessage) (any, error) {
			var input T
			if len(raw) == 0 || string(raw) == "null" {
				return input, nil
			}
			if err := json.Unmarshal(raw, &input); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
			}

			return input, nil
		},
		handler: func(ctx context.Context, conn Conn, input any) error {
			typed, ok := input.(T)
			if !ok {
				return ErrInvalidPayload
			}

			return handler(ctx, conn, typed)
		},
	}
}

// Dispatch runs the handler registered for messageType with the given raw payload.
func (r *WSRouter) Dispatch(ctx context.Context, conn Conn, messageType string, payload json.RawMessage) error {
	rt, ok := r.routes[messageType]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMessageType, messageType)
	}

	input, err := rt.decode(payload)
	if err != nil {
		return err
	}

	ctx = context.WithValue(ctx, messageTypeKey, messageType)

	h := rt.handler
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		h = r.middlewares[i](h)
	}

	return h(ctx, conn, input)
}

// ServeConn reads messages until the connection fails and dispatches them one at a time,
// in arrival order. The read error is returned.
func (r *WSRouter) ServeConn(ctx context.Context, conn Conn) error {
	for {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				r.handleError(ctx, conn, fmt.Errorf("%w: %w", ErrInvalidPayload, err))
				continue
			}

			return err
		}

		if err := r.Dispatch(ctx, conn, msg.Type, msg.Payload); err != nil {
			r.handleError(context.WithValue(ctx, messageTypeKey, msg.Type), conn, err)
		}
	}
}

func (r *WSRouter) handleError(ctx context.Context, conn Conn, err error) {
	if r.errorHandler != nil {
		r.errorHandler(ctx, conn, err)
	}
}
