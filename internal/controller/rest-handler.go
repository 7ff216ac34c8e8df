package controller

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sharetube/partysync/internal/service"
	"github.com/sharetube/partysync/pkg/rest"
	"github.com/sharetube/partysync/pkg/ytvideodata"
)

// decodeAndValidate reads the JSON body into dst and runs struct validation. On failure
// the response is written and false is returned.
func (c controller) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := rest.ReadJSON(r, dst); err != nil {
		c.logger.InfoContext(r.Context(), "failed to read json", "error", err)
		rest.WriteJSON(w, http.StatusUnprocessableEntity, rest.Envelope{"error": errorPayload{
			Kind:    kindValidation,
			Message: err.Error(),
		}})
		return false
	}

	if validationErrors, ok := c.validate.Validate(dst); !ok {
		c.logger.InfoContext(r.Context(), "validation failed", "errors", validationErrors)
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"errors": validationErrors})
		return false
	}

	return true
}

type watchPartyInvitePayload struct {
	RoomId     string `json:"roomId"`
	RoomName   string `json:"roomName"`
	InviteCode string `json:"inviteCode"`
}

type createWatchPartyRequest struct {
	Name         string   `json:"name" validate:"required,max=100"`
	InvitedUsers []string `json:"invited_users" validate:"omitempty,max=100,unique,dive,required"`
}

func (c controller) createWatchParty(w http.ResponseWriter, r *http.Request) {
	var req createWatchPartyRequest
	if !c.decodeAndValidate(w, r, &req) {
		return
	}

	createResp, err := c.service.CreateRoom(r.Context(), &service.CreateRoomParams{
		CreatorId:    c.getIdentityFromCtx(r.Context()),
		Name:         req.Name,
		InvitedUsers: req.InvitedUsers,
	})
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	c.broadcast(r.Context(), createResp.Invitees, &Output{
		Type: "watchPartyInvite",
		Payload: watchPartyInvitePayload{
			RoomId:     createResp.Room.Id,
			RoomName:   createResp.Room.Name,
			InviteCode: createResp.Room.InviteCode,
		},
	})

	rest.WriteJSON(w, http.StatusCreated, rest.Envelope{"data": createResp.Room})
}

func (c controller) getMyInvites(w http.ResponseWriter, r *http.Request) {
	rooms, err := c.service.ListMyRooms(r.Context(), c.getIdentityFromCtx(r.Context()))
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": rooms})
}

type inviteUsersRequest struct {
	InvitedUsers []string `json:"invited_users" validate:"required,min=1,max=100,unique,dive,required"`
}

func (c controller) inviteUsers(w http.ResponseWriter, r *http.Request) {
	var req inviteUsersRequest
	if !c.decodeAndValidate(w, r, &req) {
		return
	}

	inviteResp, err := c.service.InviteUsers(r.Context(), &service.InviteUsersParams{
		SenderId:     c.getIdentityFromCtx(r.Context()),
		RoomId:       chi.URLParam(r, "room-id"),
		InvitedUsers: req.InvitedUsers,
	})
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	c.broadcast(r.Context(), inviteResp.Invitees, &Output{
		Type: "watchPartyInvite",
		Payload: watchPartyInvitePayload{
			RoomId:     inviteResp.Room.Id,
			RoomName:   inviteResp.Room.Name,
			InviteCode: inviteResp.Room.InviteCode,
		},
	})

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": inviteResp.Room})
}

func (c controller) removeMyInvite(w http.ResponseWriter, r *http.Request) {
	if err := c.service.RemoveInvite(r.Context(), &service.RemoveInviteParams{
		UserId: c.getIdentityFromCtx(r.Context()),
		RoomId: chi.URLParam(r, "room-id"),
	}); err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"message": "invite removed"})
}

func (c controller) endWatchParty(w http.ResponseWriter, r *http.Request) {
	roomId := chi.URLParam(r, "room-id")
	endResp, err := c.service.EndRoom(r.Context(), &service.EndRoomParams{
		SenderId: c.getIdentityFromCtx(r.Context()),
		RoomId:   roomId,
	})
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	c.broadcast(r.Context(), endResp.Conns, &Output{
		Type:    "watchPartyEnded",
		Payload: watchPartyEndedPayload{RoomId: roomId},
	})

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"message": "ended"})
}

func (c controller) getChatList(w http.ResponseWriter, r *http.Request) {
	chats, err := c.service.GetChatList(r.Context(), c.getIdentityFromCtx(r.Context()))
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": chats})
}

func (c controller) getConversation(w http.ResponseWriter, r *http.Request) {
	messages, err := c.service.GetConversation(r.Context(), &service.GetConversationParams{
		UserId: c.getIdentityFromCtx(r.Context()),
		PeerId: chi.URLParam(r, "user-id"),
	})
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": messages})
}

func (c controller) getVideo(w http.ResponseWriter, r *http.Request) {
	videoData, err := c.videoData.Get(r.Context(), chi.URLParam(r, "video-id"))
	if err != nil {
		switch {
		case errors.Is(err, ytvideodata.ErrInvalidVideoId):
			c.writeError(w, r, fmt.Errorf("%w: %w", service.ErrValidation, err))
		case errors.Is(err, ytvideodata.ErrVideoNotFound):
			rest.WriteJSON(w, http.StatusNotFound, rest.Envelope{"error": errorPayload{
				Kind:    kindNotFound,
				Message: err.Error(),
			}})
		default:
			c.logger.WarnContext(r.Context(), "failed to get video data", "error", err)
			rest.WriteJSON(w, http.StatusBadGateway, rest.Envelope{"error": errorPayload{
				Kind:    kindInternal,
				Message: "video provider unavailable",
			}})
		}
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": videoData})
}

type postEventRequest struct {
	Type    string         `json:"type" validate:"required,oneof=postLiked newComment commentDeleted"`
	Payload map[string]any `json:"payload" validate:"required"`
}

// publishPostEvent fans a post engagement event out to every connection following the
// post.
func (c controller) publishPostEvent(w http.ResponseWriter, r *http.Request) {
	var req postEventRequest
	if !c.decodeAndValidate(w, r, &req) {
		return
	}

	conns := c.service.GetPostConns(chi.URLParam(r, "post-id"))
	c.broadcast(r.Context(), conns, &Output{
		Type:    req.Type,
		Payload: req.Payload,
	})

	rest.WriteJSON(w, http.StatusAccepted, rest.Envelope{"data": map[string]int{"delivered": len(conns)}})
}
