package service

import (
	"context"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/sharetube/partysync/internal/playback"
	"github.com/sharetube/partysync/internal/repository/connection"
)

type PlaybackParams struct {
	Conn        connection.Conn
	RoomId      string
	Kind        playback.Kind
	CurrentTime float64
}

type PlaybackBroadcast struct {
	RoomId      string
	Kind        playback.Kind
	CurrentTime float64
	Conns       []connection.Conn
}

// SubmitPlayback feeds a play or pause tick into the room's throttle. Only connections that
// joined the room may report ticks. Ticks that pass are delivered to the playback sink.
func (s *service) SubmitPlayback(ctx context.Context, params *PlaybackParams) error {
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.RoomId, RoomIdRule...),
		validation.Field(&params.Kind, validation.Required, validation.In(playback.KindPlay, playback.KindPause)),
		validation.Field(&params.CurrentTime, CurrentTimeRule...),
	); err != nil {
		return validationError(err)
	}

	if !s.connRepo.IsSubscribed(params.Conn, connection.RoomTopic(params.RoomId)) {
		return fmt.Errorf("%w: connection has not joined room %s", ErrPermissionDenied, params.RoomId)
	}

	s.playback.Submit(playback.Tick{
		RoomId:      params.RoomId,
		Kind:        params.Kind,
		CurrentTime: params.CurrentTime,
		OriginId:    params.Conn.Id(),
	})

	return nil
}

func (s *service) emitPlayback(tick playback.Tick) {
	s.sinkMu.RLock()
	sink := s.sink
	s.sinkMu.RUnlock()

	if sink == nil {
		return
	}

	sink(context.Background(), PlaybackBroadcast{
		RoomId:      tick.RoomId,
		Kind:        tick.Kind,
		CurrentTime: tick.CurrentTime,
		Conns:       s.getRoomConnsExcept(tick.RoomId, tick.OriginId),
	})
}
