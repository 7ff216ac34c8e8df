package controller

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/sharetube/partysync/pkg/ctxlogger"
	"github.com/sharetube/partysync/pkg/rest"
)

func (c controller) requestIdMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestId := r.Header.Get(middleware.RequestIDHeader)
		if requestId == "" {
			requestId = uuid.NewString()
		}
		w.Header().Set(middleware.RequestIDHeader, requestId)

		ctx := ctxlogger.AppendCtx(r.Context(), slog.String("request_id", requestId))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (c controller) requestLoggingMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		c.logger.InfoContext(r.Context(), "request",
			"method", r.Method,
			"url", r.URL.String(),
			"remote_addr", r.RemoteAddr,
			"status", ww.Status(),
			"duration_us", time.Since(start).Microseconds(),
		)
	})
}

// authMw verifies the bearer token and stores the caller's identity in the request
// context.
func (c controller) authMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			rest.WriteJSON(w, http.StatusUnauthorized, rest.Envelope{"error": errorPayload{
				Kind:    "unauthorized",
				Message: "missing bearer token",
			}})
			return
		}

		claims, err := c.service.ParseJWT(token)
		if err != nil {
			c.logger.DebugContext(r.Context(), "failed to parse token", "error", err)
			rest.WriteJSON(w, http.StatusUnauthorized, rest.Envelope{"error": errorPayload{
				Kind:    "unauthorized",
				Message: "invalid token",
			}})
			return
		}

		ctx := context.WithValue(r.Context(), identityCtxKey, claims.Identity)
		ctx = ctxlogger.AppendCtx(ctx, slog.String("identity", claims.Identity))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
