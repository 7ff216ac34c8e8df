package room

import "time"

type Video struct {
	VideoId string `json:"video_id"`
	Title   string `json:"title"`
}

type ChatMessage struct {
	UserId    string    `json:"user_id"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Room is the persisted watch-party document. CurrentVideo is nil until a video has been
// promoted into play at least once.
type Room struct {
	Id           string        `json:"id"`
	Name         string        `json:"name"`
	InviteCode   string        `json:"invite_code"`
	CreatedBy    string        `json:"created_by"`
	InvitedUsers []string      `json:"invited_users"`
	CurrentVideo *Video        `json:"current_video"`
	VideoQueue   []Video       `json:"video_queue"`
	CurrentTime  float64       `json:"current_time"`
	IsPlaying    bool          `json:"is_playing"`
	ChatMessages []ChatMessage `json:"chat_messages"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Members returns the creator followed by every invited identity.
func (r *Room) Members() []string {
	members := make([]string, 0, len(r.InvitedUsers)+1)
	members = append(members, r.CreatedBy)
	for _, u := range r.InvitedUsers {
		if u != r.CreatedBy {
			members = append(members, u)
		}
	}

	return members
}

func (r *Room) HasMember(identity string) bool {
	if r.CreatedBy == identity {
		return true
	}
	for _, u := range r.InvitedUsers {
		if u == identity {
			return true
		}
	}

	return false
}
