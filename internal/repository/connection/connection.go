package connection

// Conn is a live transport connection. Implementations must be comparable (pointer
// types) and safe for concurrent WriteJSON calls.
type Conn interface {
	Id() string
	WriteJSON(v any) error
}

func RoomTopic(roomId string) string {
	return "room:" + roomId
}

func PostTopic(postId string) string {
	return "post:" + postId
}
