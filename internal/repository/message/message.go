package message

import (
	"errors"
	"time"
)

var ErrMessageNotFound = errors.New("message not found")

// Message is a stored direct message. Empty Text, ImageUrl or GifUrl means the field was
// not supplied.
type Message struct {
	Id        string    `json:"id"`
	From      string    `json:"from_user_id"`
	To        string    `json:"to_user_id"`
	Text      string    `json:"message,omitempty"`
	ImageUrl  string    `json:"image_url,omitempty"`
	GifUrl    string    `json:"gif_url,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// Chat is the latest message exchanged with one peer.
type Chat struct {
	PeerId      string  `json:"peer_id"`
	LastMessage Message `json:"last_message"`
}

// Peer returns the other side of the conversation from identity's point of view.
func (m *Message) Peer(identity string) string {
	if m.From == identity {
		return m.To
	}

	return m.From
}
