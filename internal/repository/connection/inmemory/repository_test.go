package inmemory

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/sharetube/partysync/internal/repository/connection"
	"github.com/stretchr/testify/assert"
)

type testConn struct{ id string }

func (c *testConn) Id() string          { return c.id }
func (c *testConn) WriteJSON(any) error { return nil }

func TestRegisterAndResolve(t *testing.T) {
	r := NewRepo(slog.Default())
	c1 := &testConn{id: "c1"}

	_, ok := r.GetConn("alice")
	assert.False(t, ok)

	r.Register(c1, "alice")
	conn, ok := r.GetConn("alice")
	assert.True(t, ok)
	assert.Same(t, c1, conn)

	identity, ok := r.GetIdentity(c1)
	assert.True(t, ok)
	assert.Equal(t, "alice", identity)
}

func TestRegisterLastWins(t *testing.T) {
	r := NewRepo(slog.Default())
	c1 := &testConn{id: "c1"}
	c2 := &testConn{id: "c2"}

	r.Register(c1, "alice")
	r.Register(c2, "alice")

	conn, ok := r.GetConn("alice")
	assert.True(t, ok)
	assert.Same(t, c2, conn)

	// the stale connection disconnecting must not drop the newer binding
	_, removed := r.RemoveByConn(c1)
	assert.False(t, removed)
	conn, ok = r.GetConn("alice")
	assert.True(t, ok)
	assert.Same(t, c2, conn)
}

func TestReRegisterConnUnderNewIdentity(t *testing.T) {
	r := NewRepo(slog.Default())
	c1 := &testConn{id: "c1"}

	r.Register(c1, "alice")
	r.Register(c1, "bob")

	_, ok := r.GetConn("alice")
	assert.False(t, ok)
	conn, ok := r.GetConn("bob")
	assert.True(t, ok)
	assert.Same(t, c1, conn)
}

func TestRemoveByConnIsIdempotent(t *testing.T) {
	r := NewRepo(slog.Default())
	c1 := &testConn{id: "c1"}

	r.Register(c1, "alice")
	r.Subscribe(c1, connection.RoomTopic("r1"))

	identity, removed := r.RemoveByConn(c1)
	assert.True(t, removed)
	assert.Equal(t, "alice", identity)

	_, ok := r.GetConn("alice")
	assert.False(t, ok)
	assert.Empty(t, r.GetSubscribers(connection.RoomTopic("r1")))

	_, removed = r.RemoveByConn(c1)
	assert.False(t, removed)
}

func TestRemoveByConnNeverRegistered(t *testing.T) {
	r := NewRepo(slog.Default())
	c1 := &testConn{id: "c1"}
	r.Subscribe(c1, connection.PostTopic("p1"))

	_, removed := r.RemoveByConn(c1)
	assert.False(t, removed)
	assert.Empty(t, r.GetSubscribers(connection.PostTopic("p1")))
}

func TestSubscriptions(t *testing.T) {
	r := NewRepo(slog.Default())
	c1 := &testConn{id: "c1"}
	c2 := &testConn{id: "c2"}
	topic := connection.RoomTopic("r1")

	r.Subscribe(c1, topic)
	r.Subscribe(c2, topic)
	r.Subscribe(c2, topic)
	assert.ElementsMatch(t, []connection.Conn{c1, c2}, r.GetSubscribers(topic))
	assert.True(t, r.IsSubscribed(c1, topic))

	r.Unsubscribe(c1, topic)
	assert.ElementsMatch(t, []connection.Conn{c2}, r.GetSubscribers(topic))
	assert.False(t, r.IsSubscribed(c1, topic))

	r.Unsubscribe(c1, topic)
	r.Unsubscribe(c2, topic)
	assert.Empty(t, r.GetSubscribers(topic))
}

func TestConcurrentAccess(t *testing.T) {
	r := NewRepo(slog.New(slog.NewTextHandler(io.Discard, nil)))
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := &testConn{id: fmt.Sprint(i)}
			identity := fmt.Sprintf("user-%d", i)
			r.Register(c, identity)
			r.Subscribe(c, connection.RoomTopic("shared"))
			r.GetConn(identity)
			r.GetSubscribers(connection.RoomTopic("shared"))
			r.RemoveByConn(c)
		}(i)
	}
	wg.Wait()

	assert.Empty(t, r.GetSubscribers(connection.RoomTopic("shared")))
}
