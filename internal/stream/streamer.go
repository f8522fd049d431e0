// Package stream serves paced MJPEG streams of the captured display.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"lrc/internal/capture"
	"lrc/internal/session"
)

// Boundary separates the parts of the multipart response.
const Boundary = "frame"

// ContentType is the MIME type of a stream response.
const ContentType = "multipart/x-mixed-replace; boundary=" + Boundary

// ErrUnauthorized is returned by Serve when the token does not match.
var ErrUnauthorized = errors.New("invalid stream token")

var (
	partHeader  = []byte("--" + Boundary + "\r\nContent-Type: image/jpeg\r\n\r\n")
	partTrailer = []byte("\r\n")
)

// FrameSource produces one encoded frame per call.
type FrameSource interface {
	Capture() (*capture.Frame, error)
}

// Stats is a snapshot of streaming counters.
type Stats struct {
	Viewers int64 `json:"viewers"`
	Frames  int64 `json:"frames"`
	Dropped int64 `json:"dropped"`
}

// Streamer runs one paced capture loop per viewer. Viewers share nothing
// but the FrameSource; each loop captures for itself.
type Streamer struct {
	source   FrameSource
	password string
	interval time.Duration
	logger   *zap.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	viewers atomic.Int64
	frames  atomic.Int64
	dropped atomic.Int64
}

// Option configures a Streamer.
type Option func(*Streamer)

// WithClock replaces the wall clock and the pacing sleep.
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Streamer) {
		s.now = now
		s.sleep = sleep
	}
}

// New creates a Streamer targeting fps frames per second.
func New(source FrameSource, password string, fps int, logger *zap.Logger, opts ...Option) *Streamer {
	if fps < 1 {
		fps = 1
	}
	s := &Streamer{
		source:   source,
		password: password,
		interval: time.Second / time.Duration(fps),
		logger:   logger.With(zap.String("component", "streamer")),
		now:      time.Now,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Authorize reports whether token equals the configured password.
func (s *Streamer) Authorize(token string) bool {
	return session.PasswordMatches(s.password, token)
}

// Stats returns the current counters.
func (s *Streamer) Stats() Stats {
	return Stats{
		Viewers: s.viewers.Load(),
		Frames:  s.frames.Load(),
		Dropped: s.dropped.Load(),
	}
}

// Serve streams frames to w until a write fails or ctx is done.
// A wrong token returns ErrUnauthorized before anything is captured.
// Failed captures are dropped and the loop keeps its pace.
func (s *Streamer) Serve(ctx context.Context, w io.Writer, token string) error {
	if !s.Authorize(token) {
		return ErrUnauthorized
	}

	s.viewers.Add(1)
	defer s.viewers.Add(-1)

	flusher, _ := w.(interface{ Flush() })

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		start := s.now()
		frame, err := s.source.Capture()
		if err != nil {
			s.dropped.Add(1)
			s.logger.Debug("Dropped frame", zap.Error(err))
		} else {
			if err := WriteFrame(w, frame.Data); err != nil {
				return fmt.Errorf("write frame: %w", err)
			}
			if flusher != nil {
				flusher.Flush()
			}
			s.frames.Add(1)
		}

		// Best effort: never sleep a negative amount and never catch up.
		if wait := s.interval - s.now().Sub(start); wait > 0 {
			if err := s.sleep(ctx, wait); err != nil {
				return err
			}
		}
	}
}

// WriteFrame writes one multipart part holding jpeg in a single Write.
func WriteFrame(w io.Writer, jpeg []byte) error {
	buf := make([]byte, 0, len(partHeader)+len(jpeg)+len(partTrailer))
	buf = append(buf, partHeader...)
	buf = append(buf, jpeg...)
	buf = append(buf, partTrailer...)
	_, err := w.Write(buf)
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
