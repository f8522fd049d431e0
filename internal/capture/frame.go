// Package capture turns the primary display into JPEG frames.
package capture

import (
	"errors"
	"fmt"
	"image"
)

// ErrNoDisplay is returned when no active display can be found.
var ErrNoDisplay = errors.New("no active display")

// Frame is one compressed image of the display. It is never cached:
// each Capture call returns a fresh Frame owned by the caller.
type Frame struct {
	Data    []byte
	Width   int
	Height  int
	Quality int
}

// CaptureError reports which stage of producing a frame failed.
type CaptureError struct {
	Stage string // "grab" or "encode"
	Err   error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture %s: %v", e.Stage, e.Err)
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}

// Screen is the raw capture primitive. Grab returns the full display as a
// 4-channel image; the alpha channel carries no signal.
type Screen interface {
	Bounds() image.Rectangle
	Grab() (*image.RGBA, error)
}

// unavailableScreen stands in when no display could be opened at startup,
// so every Grab fails and viewers get dropped frames instead of a crash.
type unavailableScreen struct {
	err error
}

// Unavailable returns a Screen whose Grab always fails with err.
func Unavailable(err error) Screen {
	return unavailableScreen{err: err}
}

func (s unavailableScreen) Bounds() image.Rectangle {
	return image.Rectangle{}
}

func (s unavailableScreen) Grab() (*image.RGBA, error) {
	return nil, s.err
}
