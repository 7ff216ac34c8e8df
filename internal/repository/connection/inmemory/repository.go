package inmemory

import (
	"log/slog"
	"sync"

	"github.com/sharetube/partysync/internal/repository/connection"
	"golang.org/x/exp/maps"
)

type set[T comparable] map[T]struct{}

// repo tracks identity <-> connection bindings and topic subscriptions. One identity maps
// to at most one connection; the last registration wins.
type repo struct {
	mu          sync.RWMutex
	connById    map[string]connection.Conn
	idByConn    map[connection.Conn]string
	topics      map[connection.Conn]set[string]
	subscribers map[string]set[connection.Conn]
	logger      *slog.Logger
}

func NewRepo(logger *slog.Logger) *repo {
	return &repo{
		connById:    make(map[string]connection.Conn),
		idByConn:    make(map[connection.Conn]string),
		topics:      make(map[connection.Conn]set[string]),
		subscribers: make(map[string]set[connection.Conn]),
		logger:      logger,
	}
}

func (r *repo) Register(conn connection.Conn, identity string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Debug("called", "conn_id", conn.Id(), "identity", identity)

	if prev, ok := r.connById[identity]; ok && prev != conn {
		delete(r.idByConn, prev)
		r.logger.Debug("replaced previous connection", "identity", identity, "prev_conn_id", prev.Id())
	}
	if prevId, ok := r.idByConn[conn]; ok && prevId != identity {
		delete(r.connById, prevId)
	}

	r.connById[identity] = conn
	r.idByConn[conn] = identity
}

func (r *repo) GetConn(identity string) (connection.Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.connById[identity]
	return conn, ok
}

func (r *repo) GetIdentity(conn connection.Conn) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	identity, ok := r.idByConn[conn]
	return identity, ok
}

// RemoveByConn drops the identity binding held by conn and every subscription of conn.
// Calling it for an unknown or already removed conn is a no-op.
func (r *repo) RemoveByConn(conn connection.Conn) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for topic := range r.topics[conn] {
		r.unsubscribe(conn, topic)
	}
	delete(r.topics, conn)

	identity, ok := r.idByConn[conn]
	if !ok {
		r.logger.Debug("returned", "conn_id", conn.Id(), "result", "not registered")
		return "", false
	}

	delete(r.idByConn, conn)
	if r.connById[identity] == conn {
		delete(r.connById, identity)
	}

	r.logger.Debug("returned", "conn_id", conn.Id(), "identity", identity)
	return identity, true
}

func (r *repo) Subscribe(conn connection.Conn, topic string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.topics[conn] == nil {
		r.topics[conn] = make(set[string])
	}
	r.topics[conn][topic] = struct{}{}

	if r.subscribers[topic] == nil {
		r.subscribers[topic] = make(set[connection.Conn])
	}
	r.subscribers[topic][conn] = struct{}{}
}

func (r *repo) Unsubscribe(conn connection.Conn, topic string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.unsubscribe(conn, topic)
	if len(r.topics[conn]) == 0 {
		delete(r.topics, conn)
	}
}

func (r *repo) unsubscribe(conn connection.Conn, topic string) {
	if topics, ok := r.topics[conn]; ok {
		delete(topics, topic)
	}

	subs, ok := r.subscribers[topic]
	if !ok {
		return
	}
	delete(subs, conn)
	if len(subs) == 0 {
		delete(r.subscribers, topic)
	}
}

func (r *repo) GetSubscribers(topic string) []connection.Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return maps.Keys(r.subscribers[topic])
}

func (r *repo) IsSubscribed(conn connection.Conn, topic string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.topics[conn][topic]
	return ok
}
