package stream

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"lrc/internal/capture"
)

// fakeClock advances only when the source works or the loop sleeps.
type fakeClock struct {
	t      time.Time
	sleeps []time.Duration
}

func (c *fakeClock) now() time.Time {
	return c.t
}

func (c *fakeClock) sleep(ctx context.Context, d time.Duration) error {
	c.sleeps = append(c.sleeps, d)
	c.t = c.t.Add(d)
	return nil
}

type fakeSource struct {
	clock *fakeClock
	cost  time.Duration
	fail  func(call int) bool
	calls int
}

func (s *fakeSource) Capture() (*capture.Frame, error) {
	s.calls++
	if s.clock != nil {
		s.clock.t = s.clock.t.Add(s.cost)
	}
	if s.fail != nil && s.fail(s.calls) {
		return nil, &capture.CaptureError{Stage: "encode", Err: errors.New("boom")}
	}
	return &capture.Frame{Data: []byte{0xFF, 0xD8, 0xFF, 0xD9}, Width: 2, Height: 2}, nil
}

// limitWriter accepts n writes, then fails like a disconnected peer.
type limitWriter struct {
	bytes.Buffer
	n       int
	writes  int
	flushes int
}

var errPeerGone = errors.New("peer gone")

func (w *limitWriter) Write(p []byte) (int, error) {
	if w.writes >= w.n {
		return 0, errPeerGone
	}
	w.writes++
	return w.Buffer.Write(p)
}

func (w *limitWriter) Flush() {
	w.flushes++
}

func newTestStreamer(src FrameSource, clock *fakeClock, fps int) *Streamer {
	return New(src, "secret", fps, zap.NewNop(), WithClock(clock.now, clock.sleep))
}

func TestServeRejectsWrongToken(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	src := &fakeSource{clock: clock}
	s := newTestStreamer(src, clock, 10)

	for _, token := range []string{"", "Secret", "secret ", "wrong"} {
		err := s.Serve(context.Background(), &limitWriter{n: 100}, token)
		if !errors.Is(err, ErrUnauthorized) {
			t.Errorf("Token %q: expected ErrUnauthorized, got %v", token, err)
		}
	}
	if src.calls != 0 {
		t.Errorf("Expected no captures for bad tokens, got %d", src.calls)
	}
	if s.Stats().Viewers != 0 {
		t.Errorf("Expected no viewers, got %d", s.Stats().Viewers)
	}
}

func TestServeFramesParts(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	s := newTestStreamer(&fakeSource{clock: clock}, clock, 10)
	w := &limitWriter{n: 2}

	err := s.Serve(context.Background(), w, "secret")
	if !errors.Is(err, errPeerGone) {
		t.Fatalf("Expected write error to end the loop, got %v", err)
	}

	part := "--frame\r\nContent-Type: image/jpeg\r\n\r\n\xff\xd8\xff\xd9\r\n"
	if w.String() != part+part {
		t.Errorf("Unexpected stream body: %q", w.String())
	}
	if w.flushes != 2 {
		t.Errorf("Expected 2 flushes, got %d", w.flushes)
	}
	if got := s.Stats().Frames; got != 2 {
		t.Errorf("Expected 2 frames counted, got %d", got)
	}
}

func TestServeSleepsRemainingInterval(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	src := &fakeSource{clock: clock, cost: 30 * time.Millisecond}
	s := newTestStreamer(src, clock, 10)

	s.Serve(context.Background(), &limitWriter{n: 3}, "secret")

	// Three written frames pace; the fourth fails on write before pacing.
	if len(clock.sleeps) != 3 {
		t.Fatalf("Expected 3 sleeps, got %d", len(clock.sleeps))
	}
	for i, d := range clock.sleeps {
		if d != 70*time.Millisecond {
			t.Errorf("Sleep %d: expected 70ms, got %v", i, d)
		}
	}
}

func TestServeNoSleepWhenOverBudget(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	src := &fakeSource{clock: clock, cost: 150 * time.Millisecond}
	s := newTestStreamer(src, clock, 10)

	s.Serve(context.Background(), &limitWriter{n: 5}, "secret")

	if len(clock.sleeps) != 0 {
		t.Errorf("Expected no sleeps when capture exceeds the interval, got %v", clock.sleeps)
	}
	if src.calls != 6 {
		t.Errorf("Expected 6 captures, got %d", src.calls)
	}
}

func TestServeSkipsFailedFrames(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	src := &fakeSource{
		clock: clock,
		cost:  10 * time.Millisecond,
		fail:  func(call int) bool { return call%2 == 1 },
	}
	s := newTestStreamer(src, clock, 10)
	w := &limitWriter{n: 2}

	err := s.Serve(context.Background(), w, "secret")
	if !errors.Is(err, errPeerGone) {
		t.Fatalf("Expected loop to survive failed captures, got %v", err)
	}

	// calls 1,3,5 fail; 2,4 written; 6 fails to write
	if src.calls != 6 {
		t.Errorf("Expected 6 captures, got %d", src.calls)
	}
	if st := s.Stats(); st.Dropped != 3 || st.Frames != 2 {
		t.Errorf("Expected 3 dropped and 2 frames, got %+v", st)
	}
	for _, d := range clock.sleeps {
		if d != 90*time.Millisecond {
			t.Errorf("Expected dropped frames to keep normal pacing, got %v", d)
		}
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := &fakeSource{}
	s := New(src, "secret", 1000, zap.NewNop())

	done := make(chan error, 1)
	go func() {
		done <- s.Serve(ctx, &limitWriter{n: 1 << 30}, "secret")
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not stop after cancel")
	}
	if s.Stats().Viewers != 0 {
		t.Errorf("Expected viewer count back to 0, got %d", s.Stats().Viewers)
	}
}

func TestIntervalFromFPS(t *testing.T) {
	s := New(&fakeSource{}, "x", 10, zap.NewNop())
	if s.interval != 100*time.Millisecond {
		t.Errorf("Expected 100ms, got %v", s.interval)
	}
	if New(&fakeSource{}, "x", 0, zap.NewNop()).interval != time.Second {
		t.Error("Expected FPS below 1 to fall back to 1")
	}
}
