package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/sharetube/partysync/internal/service"
	"github.com/sharetube/partysync/pkg/rest"
	"github.com/sharetube/partysync/pkg/wsrouter"
)

const (
	kindValidation       = "validation"
	kindNotFound         = "not_found"
	kindPermissionDenied = "permission_denied"
	kindStore            = "store"
	kindInternal         = "internal"
)

type errorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Event   string `json:"event,omitempty"`
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, wsrouter.ErrInvalidPayload),
		errors.Is(err, wsrouter.ErrUnknownMessageType):
		return kindValidation
	case errors.Is(err, service.ErrRoomNotFound),
		errors.Is(err, service.ErrMessageNotFound):
		return kindNotFound
	case errors.Is(err, service.ErrPermissionDenied):
		return kindPermissionDenied
	case errors.Is(err, service.ErrStore):
		return kindStore
	default:
		return kindInternal
	}
}

func statusFromKind(kind string) int {
	switch kind {
	case kindValidation:
		return http.StatusBadRequest
	case kindNotFound:
		return http.StatusNotFound
	case kindPermissionDenied:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage hides store and internal error details from clients.
func publicMessage(kind string, err error) string {
	switch kind {
	case kindStore, kindInternal:
		return "internal error"
	default:
		return err.Error()
	}
}

// handleWSError is the websocket error policy. Every error is logged. In strict mode the
// sender also receives an error event; in lenient mode nothing is sent back.
func (c controller) handleWSError(ctx context.Context, conn wsrouter.Conn, err error) {
	kind := errorKind(err)
	switch kind {
	case kindStore, kindInternal:
		c.logger.ErrorContext(ctx, "websocket message failed", "kind", kind, "error", err)
	default:
		c.logger.InfoContext(ctx, "websocket message rejected", "kind", kind, "error", err)
	}

	if !c.strictMode {
		return
	}

	if err := conn.WriteJSON(&Output{
		Type: "error",
		Payload: errorPayload{
			Kind:    kind,
			Message: publicMessage(kind, err),
			Event:   wsrouter.GetMessageTypeFromCtx(ctx),
		},
	}); err != nil {
		c.logger.WarnContext(ctx, "failed to write error", "error", err)
	}
}

func (c controller) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := errorKind(err)
	status := statusFromKind(kind)
	if status >= http.StatusInternalServerError {
		c.logger.ErrorContext(r.Context(), "request failed", "kind", kind, "error", err)
	} else {
		c.logger.InfoContext(r.Context(), "request rejected", "kind", kind, "error", err)
	}

	rest.WriteJSON(w, status, rest.Envelope{"error": errorPayload{
		Kind:    kind,
		Message: publicMessage(kind, err),
	}})
}
