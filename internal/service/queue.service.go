package service

import (
	"context"
	"slices"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/sharetube/partysync/internal/repository/connection"
	"github.com/sharetube/partysync/internal/repository/room"
)

type QueueResponse struct {
	Queue Queue
	Conns []connection.Conn
}

type EnqueueParams struct {
	RoomId  string
	VideoId string
	Title   string
}

// promoteHead moves the queue head into play and resets the playback clock. An empty
// queue promotes the empty sentinel video.
func promoteHead(rm *room.Room) {
	next := room.Video{}
	if len(rm.VideoQueue) > 0 {
		next = rm.VideoQueue[0]
		rm.VideoQueue = slices.Delete(rm.VideoQueue, 0, 1)
	}
	rm.CurrentVideo = &next
	rm.CurrentTime = 0
	rm.IsPlaying = false
}

func hasCurrentVideo(rm *room.Room) bool {
	return rm.CurrentVideo != nil && rm.CurrentVideo.VideoId != ""
}

// Enqueue appends a video to the room's queue. When nothing is playing the head of the
// queue is promoted at once.
func (s *service) Enqueue(ctx context.Context, params *EnqueueParams) (QueueResponse, error) {
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.RoomId, RoomIdRule...),
		validation.Field(&params.VideoId, VideoIdRule...),
		validation.Field(&params.Title, VideoTitleRule...),
	); err != nil {
		return QueueResponse{}, validationError(err)
	}

	rm, err := s.mutateRoom(ctx, params.RoomId, func(rm *room.Room) (bool, error) {
		if s.playlistLimit > 0 && len(rm.VideoQueue) >= s.playlistLimit {
			return false, ErrPlaylistLimitReached
		}

		rm.VideoQueue = append(rm.VideoQueue, room.Video{
			VideoId: params.VideoId,
			Title:   params.Title,
		})
		if !hasCurrentVideo(rm) {
			promoteHead(rm)
		}

		return true, nil
	})
	if err != nil {
		return QueueResponse{}, err
	}

	return QueueResponse{
		Queue: queueFromRepo(&rm),
		Conns: s.getRoomConns(params.RoomId),
	}, nil
}

type SkipParams struct {
	RoomId string
}

// Skip promotes the next queued video, or the empty sentinel when the queue is empty.
func (s *service) Skip(ctx context.Context, params *SkipParams) (QueueResponse, error) {
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.RoomId, RoomIdRule...),
	); err != nil {
		return QueueResponse{}, validationError(err)
	}

	rm, err := s.mutateRoom(ctx, params.RoomId, func(rm *room.Room) (bool, error) {
		promoteHead(rm)
		return true, nil
	})
	if err != nil {
		return QueueResponse{}, err
	}

	return QueueResponse{
		Queue: queueFromRepo(&rm),
		Conns: s.getRoomConns(params.RoomId),
	}, nil
}

type RemoveAtParams struct {
	RoomId string
	Index  int
}

// RemoveAt drops the queue entry at Index. An index outside the queue leaves the room
// untouched and returns ErrQueueIndexOutOfRange.
func (s *service) RemoveAt(ctx context.Context, params *RemoveAtParams) (QueueResponse, error) {
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.RoomId, RoomIdRule...),
	); err != nil {
		return QueueResponse{}, validationError(err)
	}

	rm, err := s.mutateRoom(ctx, params.RoomId, func(rm *room.Room) (bool, error) {
		if params.Index < 0 || params.Index >= len(rm.VideoQueue) {
			return false, ErrQueueIndexOutOfRange
		}

		rm.VideoQueue = slices.Delete(rm.VideoQueue, params.Index, params.Index+1)

		return true, nil
	})
	if err != nil {
		return QueueResponse{}, err
	}

	return QueueResponse{
		Queue: queueFromRepo(&rm),
		Conns: s.getRoomConns(params.RoomId),
	}, nil
}
