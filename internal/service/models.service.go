package service

import (
	"time"

	"github.com/sharetube/partysync/internal/repository/message"
	"github.com/sharetube/partysync/internal/repository/room"
)

type Video struct {
	VideoId string `json:"videoId"`
	Title   string `json:"title"`
}

type ChatMessage struct {
	UserId    string    `json:"userId"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type Room struct {
	Id           string        `json:"id"`
	Name         string        `json:"name"`
	InviteCode   string        `json:"inviteCode"`
	CreatedBy    string        `json:"createdBy"`
	InvitedUsers []string      `json:"invitedUsers"`
	CurrentVideo *Video        `json:"currentVideo"`
	VideoQueue   []Video       `json:"videoQueue"`
	CurrentTime  float64       `json:"currentTime"`
	IsPlaying    bool          `json:"isPlaying"`
	ChatMessages []ChatMessage `json:"chatMessages"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

type Queue struct {
	CurrentVideo *Video  `json:"currentVideo"`
	VideoQueue   []Video `json:"videoQueue"`
}

type Message struct {
	Id         string    `json:"messageId"`
	FromUserId string    `json:"fromUserId"`
	ToUserId   string    `json:"toUserId"`
	Message    string    `json:"message,omitempty"`
	ImageUrl   string    `json:"imageUrl,omitempty"`
	GifUrl     string    `json:"gifUrl,omitempty"`
	Read       bool      `json:"read"`
	Timestamp  time.Time `json:"timestamp"`
}

type Chat struct {
	PeerId      string  `json:"peerId"`
	LastMessage Message `json:"lastMessage"`
}

func videoFromRepo(v room.Video) Video {
	return Video{VideoId: v.VideoId, Title: v.Title}
}

func videosFromRepo(vs []room.Video) []Video {
	videos := make([]Video, 0, len(vs))
	for _, v := range vs {
		videos = append(videos, videoFromRepo(v))
	}

	return videos
}

func queueFromRepo(rm *room.Room) Queue {
	q := Queue{VideoQueue: videosFromRepo(rm.VideoQueue)}
	if rm.CurrentVideo != nil {
		v := videoFromRepo(*rm.CurrentVideo)
		q.CurrentVideo = &v
	}

	return q
}

func chatMessageFromRepo(m room.ChatMessage) ChatMessage {
	return ChatMessage{UserId: m.UserId, Message: m.Message, Timestamp: m.Timestamp}
}

func roomFromRepo(rm *room.Room) Room {
	q := queueFromRepo(rm)
	chat := make([]ChatMessage, 0, len(rm.ChatMessages))
	for _, m := range rm.ChatMessages {
		chat = append(chat, chatMessageFromRepo(m))
	}
	invited := rm.InvitedUsers
	if invited == nil {
		invited = []string{}
	}

	return Room{
		Id:           rm.Id,
		Name:         rm.Name,
		InviteCode:   rm.InviteCode,
		CreatedBy:    rm.CreatedBy,
		InvitedUsers: invited,
		CurrentVideo: q.CurrentVideo,
		VideoQueue:   q.VideoQueue,
		CurrentTime:  rm.CurrentTime,
		IsPlaying:    rm.IsPlaying,
		ChatMessages: chat,
		CreatedAt:    rm.CreatedAt,
		UpdatedAt:    rm.UpdatedAt,
	}
}

func messageFromRepo(m *message.Message) Message {
	return Message{
		Id:         m.Id,
		FromUserId: m.From,
		ToUserId:   m.To,
		Message:    m.Text,
		ImageUrl:   m.ImageUrl,
		GifUrl:     m.GifUrl,
		Read:       m.Read,
		Timestamp:  m.CreatedAt,
	}
}
