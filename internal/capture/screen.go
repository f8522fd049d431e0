package capture

import (
	"image"

	"github.com/kbinani/screenshot"
)

// primaryScreen captures display 0. The display is chosen once in
// NewPrimaryScreen; monitor changes at runtime are not followed.
type primaryScreen struct {
	bounds image.Rectangle
}

// NewPrimaryScreen opens the primary display.
func NewPrimaryScreen() (Screen, error) {
	if screenshot.NumActiveDisplays() < 1 {
		return nil, ErrNoDisplay
	}
	return &primaryScreen{bounds: screenshot.GetDisplayBounds(0)}, nil
}

func (s *primaryScreen) Bounds() image.Rectangle {
	return s.bounds
}

func (s *primaryScreen) Grab() (*image.RGBA, error) {
	return screenshot.CaptureRect(s.bounds)
}
