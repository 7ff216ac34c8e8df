package playback

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testInterval = 80 * time.Millisecond

type recorder struct {
	mu    sync.Mutex
	ticks []Tick
}

func (r *recorder) emit(t Tick) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ticks = append(r.ticks, t)
}

func (r *recorder) get() []Tick {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Tick(nil), r.ticks...)
}

func newTestThrottle(t *testing.T) (*Throttle, *recorder) {
	t.Helper()
	rec := &recorder{}
	th := New(&Config{Interval: testInterval, Jitter: DefaultJitter}, rec.emit)
	t.Cleanup(th.Close)

	return th, rec
}

func play(roomId string, currentTime float64) Tick {
	return Tick{RoomId: roomId, Kind: KindPlay, CurrentTime: currentTime, OriginId: "c1"}
}

func TestFirstTickEmitsImmediately(t *testing.T) {
	th, rec := newTestThrottle(t)

	th.Submit(play("r1", 3))

	ticks := rec.get()
	require.Len(t, ticks, 1)
	assert.Equal(t, 3.0, ticks[0].CurrentTime)
	assert.Equal(t, "c1", ticks[0].OriginId)
}

func TestBurstWithinJitterEmitsOnce(t *testing.T) {
	th, rec := newTestThrottle(t)

	for _, ct := range []float64{10, 10.1, 10.2, 10.3} {
		th.Submit(play("r1", ct))
	}

	time.Sleep(3 * testInterval)
	assert.Len(t, rec.get(), 1)
}

func TestLargeJumpInsideWindowWaitsForInterval(t *testing.T) {
	th, rec := newTestThrottle(t)

	th.Submit(play("r1", 10))
	th.Submit(play("r1", 11))
	th.Submit(play("r1", 12))

	assert.Len(t, rec.get(), 1)
	require.Eventually(t, func() bool { return len(rec.get()) == 2 }, 5*testInterval, 5*time.Millisecond)
	assert.Equal(t, 12.0, rec.get()[1].CurrentTime)

	time.Sleep(2 * testInterval)
	assert.Len(t, rec.get(), 2)
}

func TestOutsideWindow(t *testing.T) {
	th, rec := newTestThrottle(t)

	th.Submit(play("r1", 10))
	time.Sleep(testInterval + 20*time.Millisecond)

	th.Submit(play("r1", 10.2))
	assert.Len(t, rec.get(), 1)

	th.Submit(play("r1", 11))
	ticks := rec.get()
	require.Len(t, ticks, 2)
	assert.Equal(t, 11.0, ticks[1].CurrentTime)
}

func TestKeysAreIndependent(t *testing.T) {
	th, rec := newTestThrottle(t)

	th.Submit(play("r1", 1))
	th.Submit(Tick{RoomId: "r1", Kind: KindPause, CurrentTime: 1})
	th.Submit(play("r2", 1))

	assert.Len(t, rec.get(), 3)
}

func TestForgetDiscardsPending(t *testing.T) {
	th, rec := newTestThrottle(t)

	th.Submit(play("r1", 1))
	th.Submit(play("r1", 5))
	th.Forget("r1")

	time.Sleep(2 * testInterval)
	assert.Len(t, rec.get(), 1)

	th.Submit(play("r1", 1))
	assert.Len(t, rec.get(), 2)
}

func TestCloseIgnoresTicks(t *testing.T) {
	rec := &recorder{}
	th := New(&Config{Interval: testInterval, Jitter: DefaultJitter}, rec.emit)

	th.Submit(play("r1", 1))
	th.Submit(play("r1", 5))
	th.Close()
	th.Submit(play("r2", 1))

	time.Sleep(2 * testInterval)
	assert.Len(t, rec.get(), 1)
}

func TestConcurrentSubmit(t *testing.T) {
	th, rec := newTestThrottle(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			th.Submit(play("r1", float64(i%2)*0.1))
		}(i)
	}
	wg.Wait()

	time.Sleep(2 * testInterval)
	assert.Len(t, rec.get(), 1)
}

func TestSlowEmitDoesNotBlockOtherSubmitters(t *testing.T) {
	entered := make(chan float64, 10)
	release := make(chan struct{})
	rec := &recorder{}
	th := New(&Config{Interval: testInterval, Jitter: DefaultJitter}, func(tick Tick) {
		entered <- tick.CurrentTime
		<-release
		rec.emit(tick)
	})
	t.Cleanup(th.Close)

	go th.Submit(play("r1", 1))
	select {
	case ct := <-entered:
		require.Equal(t, 1.0, ct)
	case <-time.After(time.Second):
		t.Fatal("first tick was not emitted")
	}

	done := make(chan struct{})
	go func() {
		th.Submit(play("r1", 5))
		time.Sleep(2 * testInterval)
		th.Submit(play("r1", 9))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("submit blocked behind a slow emit")
	}

	close(release)
	require.Eventually(t, func() bool {
		return len(rec.get()) == 3
	}, time.Second, 10*time.Millisecond)

	ticks := rec.get()
	assert.Equal(t, 1.0, ticks[0].CurrentTime)
	assert.Equal(t, 5.0, ticks[1].CurrentTime)
	assert.Equal(t, 9.0, ticks[2].CurrentTime)
}
