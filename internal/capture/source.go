package capture

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"

	"golang.org/x/image/draw"
)

const (
	// MaxWidth is the widest frame sent to viewers; wider captures are downscaled.
	MaxWidth = 1280

	// DefaultQuality is the JPEG quality used when none is configured.
	DefaultQuality = 70
)

// areaKernel is a box filter. x/image/draw widens the kernel support by the
// shrink factor, so downscaling with it averages every covered source pixel.
var areaKernel = &draw.Kernel{
	Support: 0.5,
	At: func(t float64) float64 {
		return 1
	},
}

// Source produces one encoded frame per Capture call.
type Source struct {
	screen   Screen
	quality  int
	maxWidth int
}

// SourceOption configures a Source.
type SourceOption func(*Source)

// WithMaxWidth overrides the downscale threshold.
func WithMaxWidth(w int) SourceOption {
	return func(s *Source) {
		if w > 0 {
			s.maxWidth = w
		}
	}
}

// NewSource creates a Source over screen. Quality is clamped to 0-100.
func NewSource(screen Screen, quality int, opts ...SourceOption) *Source {
	if quality < 0 {
		quality = 0
	}
	if quality > 100 {
		quality = 100
	}
	s := &Source{
		screen:   screen,
		quality:  quality,
		maxWidth: MaxWidth,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Capture grabs the screen, downscales it if wider than the maximum,
// drops the alpha channel and encodes the result as JPEG.
func (s *Source) Capture() (*Frame, error) {
	raw, err := s.screen.Grab()
	if err != nil {
		return nil, &CaptureError{Stage: "grab", Err: err}
	}

	scaled := downscale(raw, s.maxWidth)
	img := flatten(scaled)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: s.quality}); err != nil {
		return nil, &CaptureError{Stage: "encode", Err: err}
	}

	b := img.Bounds()
	return &Frame{
		Data:    buf.Bytes(),
		Width:   b.Dx(),
		Height:  b.Dy(),
		Quality: s.quality,
	}, nil
}

// ScaledSize returns the output size for a w x h capture: width becomes
// exactly maxWidth when larger, height follows proportionally, truncated.
func ScaledSize(w, h, maxWidth int) (int, int) {
	if w <= maxWidth {
		return w, h
	}
	nh := h * maxWidth / w
	if nh < 1 {
		nh = 1
	}
	return maxWidth, nh
}

func downscale(src *image.RGBA, maxWidth int) *image.RGBA {
	b := src.Bounds()
	w, h := ScaledSize(b.Dx(), b.Dy(), maxWidth)
	if w == b.Dx() && h == b.Dy() {
		return src
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	areaKernel.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

// flatten copies the color channels into a 3-channel YCbCr image.
// Alpha is read past, not applied: captures often leave it zero.
func flatten(src *image.RGBA) *image.YCbCr {
	b := src.Bounds()
	dst := image.NewYCbCr(image.Rect(0, 0, b.Dx(), b.Dy()), image.YCbCrSubsampleRatio444)

	for y := 0; y < b.Dy(); y++ {
		i := src.PixOffset(b.Min.X, b.Min.Y+y)
		for x := 0; x < b.Dx(); x++ {
			p := src.Pix[i+x*4 : i+x*4+3]
			yy, cb, cr := color.RGBToYCbCr(p[0], p[1], p[2])
			dst.Y[dst.YOffset(x, y)] = yy
			off := dst.COffset(x, y)
			dst.Cb[off] = cb
			dst.Cr[off] = cr
		}
	}
	return dst
}
