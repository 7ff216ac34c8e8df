package playback

import (
	"math"
	"sync"
	"time"
)

const (
	DefaultInterval = 700 * time.Millisecond
	DefaultJitter   = 0.4
)

type Kind string

const (
	KindPlay  Kind = "play"
	KindPause Kind = "pause"
)

// Tick is a playback position reported by one connection for one room.
type Tick struct {
	RoomId      string
	Kind        Kind
	CurrentTime float64
	// OriginId identifies the connection that reported the tick.
	OriginId string
}

// EmitFunc is called with every tick that passed the throttle. Emits for one (room, kind)
// pair are never concurrent and arrive in order.
type EmitFunc func(Tick)

type key struct {
	roomId string
	kind   Kind
}

type state struct {
	mu       sync.Mutex
	hasLast  bool
	lastTime float64
	lastAt   time.Time
	pending  *Tick
	timer    *time.Timer

	// outbox holds decided ticks in emit order; one goroutine drains it at a time.
	outbox   []Tick
	draining bool
}

type Throttle struct {
	interval time.Duration
	jitter   float64
	emit     EmitFunc

	mu     sync.Mutex
	states map[key]*state
	closed bool
}

type Config struct {
	Interval time.Duration
	Jitter   float64
}

func New(cfg *Config, emit EmitFunc) *Throttle {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	jitter := cfg.Jitter
	if jitter < 0 {
		jitter = DefaultJitter
	}

	return &Throttle{
		interval: interval,
		jitter:   jitter,
		emit:     emit,
		states:   make(map[key]*state),
	}
}

func (t *Throttle) getState(k key) *state {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}

	st, ok := t.states[k]
	if !ok {
		st = &state{}
		t.states[k] = st
	}

	return st
}

func (t *Throttle) differs(a, b float64) bool {
	return math.Abs(a-b) > t.jitter
}

// Submit feeds one tick into the throttle for its room and kind. The first tick for a key
// is emitted immediately. Outside the interval window a tick is emitted only if it moved
// past the jitter threshold. Inside the window the latest tick is held and considered
// once the window closes.
//
// The state lock is never held while emitting. A Submit that finds another goroutine
// already emitting for the same key only queues its tick and returns.
func (t *Throttle) Submit(tick Tick) {
	k := key{roomId: tick.RoomId, kind: tick.Kind}
	st := t.getState(k)
	if st == nil {
		return
	}

	st.mu.Lock()
	drain := t.decide(st, tick, time.Now())
	st.mu.Unlock()

	if drain {
		t.drain(st)
	}
}

// decide must be called with st.mu held. It reports whether the caller has to drain.
func (t *Throttle) decide(st *state, tick Tick, now time.Time) bool {
	if !st.hasLast {
		return t.record(st, tick, now)
	}

	elapsed := now.Sub(st.lastAt)
	if elapsed >= t.interval && st.timer == nil {
		if t.differs(tick.CurrentTime, st.lastTime) {
			return t.record(st, tick, now)
		}
		return false
	}

	st.pending = &tick
	if st.timer == nil {
		st.timer = time.AfterFunc(t.interval-elapsed, func() {
			t.flush(st)
		})
	}

	return false
}

func (t *Throttle) flush(st *state) {
	st.mu.Lock()
	st.timer = nil
	pending := st.pending
	st.pending = nil

	drain := false
	if pending != nil && t.differs(pending.CurrentTime, st.lastTime) {
		drain = t.record(st, *pending, time.Now())
	}
	st.mu.Unlock()

	if drain {
		t.drain(st)
	}
}

// record must be called with st.mu held. It marks tick as broadcast and queues it. The
// returned value is true when no goroutine is draining the outbox yet.
func (t *Throttle) record(st *state, tick Tick, now time.Time) bool {
	st.hasLast = true
	st.lastTime = tick.CurrentTime
	st.lastAt = now
	st.outbox = append(st.outbox, tick)

	if st.draining {
		return false
	}
	st.draining = true

	return true
}

func (t *Throttle) drain(st *state) {
	for {
		st.mu.Lock()
		if len(st.outbox) == 0 {
			st.outbox = nil
			st.draining = false
			st.mu.Unlock()
			return
		}
		tick := st.outbox[0]
		st.outbox = st.outbox[1:]
		st.mu.Unlock()

		t.emit(tick)
	}
}

// Forget drops the throttle state of a room, discarding held ticks.
func (t *Throttle) Forget(roomId string) {
	t.mu.Lock()
	removed := make([]*state, 0, 2)
	for _, kind := range []Kind{KindPlay, KindPause} {
		k := key{roomId: roomId, kind: kind}
		if st, ok := t.states[k]; ok {
			removed = append(removed, st)
			delete(t.states, k)
		}
	}
	t.mu.Unlock()

	for _, st := range removed {
		st.stop()
	}
}

// Close stops every pending timer. Ticks submitted afterwards are ignored.
func (t *Throttle) Close() {
	t.mu.Lock()
	states := t.states
	t.states = make(map[key]*state)
	t.closed = true
	t.mu.Unlock()

	for _, st := range states {
		st.stop()
	}
}

func (st *state) stop() {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.timer != nil {
		st.timer.Stop()
		st.timer = nil
	}
	st.pending = nil
}
