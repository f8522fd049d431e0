// Package control turns control-channel events into input injection.
package control

import (
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"lrc/internal/input"
	"lrc/internal/protocol"
)

// Authorizer answers whether a connection may issue events.
type Authorizer interface {
	IsAuthorized(id uuid.UUID) bool
}

// Notifier sends a message back on the connection an event came from.
type Notifier interface {
	Send(msg protocol.Message)
}

// MaxScrollClicks bounds a single scroll event in either direction.
const MaxScrollClicks = 100

type handlerFunc func(payload gjson.Result) error

// Dispatcher validates events and forwards them to an InputInjector.
// Handle runs synchronously on the caller's goroutine, so events from one
// connection are injected in arrival order.
type Dispatcher struct {
	auth     Authorizer
	injector input.InputInjector
	logger   *zap.Logger
	handlers map[protocol.MessageType]handlerFunc
}

// NewDispatcher creates a dispatcher guarded by auth.
func NewDispatcher(auth Authorizer, injector input.InputInjector, logger *zap.Logger) *Dispatcher {
	d := &Dispatcher{
		auth:     auth,
		injector: injector,
		logger:   logger.With(zap.String("component", "control")),
	}
	d.handlers = map[protocol.MessageType]handlerFunc{
		protocol.TypeMouseMove:   d.mouseMove,
		protocol.TypeMouseClick:  d.mouseClick,
		protocol.TypeKeyType:     d.keyType,
		protocol.TypeKeyPress:    d.keyPress,
		protocol.TypeMouseScroll: d.mouseScroll,
		protocol.TypeMouseDown:   d.mouseDown,
		protocol.TypeMouseUp:     d.mouseUp,
	}
	return d
}

// Handle processes one event from connection id. Unauthorized connections
// get an "Unauthorized" notice and nothing is injected, whatever the kind.
// Malformed payloads and injection failures are logged, never returned.
func (d *Dispatcher) Handle(id uuid.UUID, conn Notifier, kind protocol.MessageType, payload []byte) {
	if !d.auth.IsAuthorized(id) {
		d.logger.Debug("Rejected event from unauthorized connection",
			zap.String("connID", id.String()), zap.String("type", string(kind)))
		conn.Send(protocol.Unauthorized())
		return
	}

	h, ok := d.handlers[kind]
	if !ok {
		d.logger.Debug("Ignoring unknown event", zap.String("type", string(kind)))
		return
	}

	fields, ok := parsePayload(payload)
	if !ok {
		d.logger.Debug("Ignoring event with non-object payload", zap.String("type", string(kind)))
		return
	}

	if err := h(fields); err != nil {
		d.logger.Warn("Event failed",
			zap.String("connID", id.String()),
			zap.String("type", string(kind)),
			zap.Error(err))
	}
}

// parsePayload treats an absent payload as an empty object.
func parsePayload(payload []byte) (gjson.Result, bool) {
	trimmed := strings.TrimSpace(string(payload))
	if trimmed == "" || trimmed == "null" {
		return gjson.Parse("{}"), true
	}
	r := gjson.Parse(trimmed)
	return r, r.IsObject()
}

func (d *Dispatcher) mouseMove(p gjson.Result) error {
	nx, ok1 := floatField(p, "nx", 0)
	ny, ok2 := floatField(p, "ny", 0)
	if !ok1 || !ok2 {
		return nil
	}

	w, h, err := d.injector.ScreenSize()
	if err != nil {
		return err
	}
	x, y := ToPixels(nx, ny, w, h)
	return d.injector.MoveTo(x, y)
}

func (d *Dispatcher) mouseClick(p gjson.Result) error {
	button, ok := buttonField(p)
	if !ok {
		return nil
	}
	if p.Get("double").Bool() {
		return d.injector.DoubleClick(button)
	}
	return d.injector.Click(button)
}

func (d *Dispatcher) keyType(p gjson.Result) error {
	text, ok := stringField(p, "text", "")
	if !ok || text == "" {
		return nil
	}
	return d.injector.TypeText(text)
}

func (d *Dispatcher) keyPress(p gjson.Result) error {
	key, ok := stringField(p, "key", "")
	if !ok || key == "" {
		return nil
	}
	return d.injector.PressKey(key)
}

// mouseScroll always scrolls vertically (even by zero) and horizontally
// only when dx is non-zero. Both deltas are clamped to MaxScrollClicks.
func (d *Dispatcher) mouseScroll(p gjson.Result) error {
	dy, ok1 := intField(p, "dy", 0)
	dx, ok2 := intField(p, "dx", 0)
	if !ok1 || !ok2 {
		return nil
	}
	dy, dx = clampClicks(dy), clampClicks(dx)
	if err := d.injector.Scroll(dy); err != nil {
		return err
	}
	if dx != 0 {
		return d.injector.HScroll(dx)
	}
	return nil
}

func (d *Dispatcher) mouseDown(p gjson.Result) error {
	button, ok := buttonField(p)
	if !ok {
		return nil
	}
	return d.injector.MouseDown(button)
}

func (d *Dispatcher) mouseUp(p gjson.Result) error {
	button, ok := buttonField(p)
	if !ok {
		return nil
	}
	return d.injector.MouseUp(button)
}

// ToPixels maps normalized coordinates onto a w x h screen. Each axis is
// clamped to [0,1], scaled by (dimension - 1) and truncated.
func ToPixels(nx, ny float64, w, h int) (int, int) {
	return int(clamp(nx, 0, 1) * float64(w-1)), int(clamp(ny, 0, 1) * float64(h-1))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func clampClicks(n int) int {
	return max(-MaxScrollClicks, min(MaxScrollClicks, n))
}

// Field readers return the default when a field is absent and ok=false when
// it is present but unusable (null, wrong type, unparseable).

func floatField(p gjson.Result, name string, def float64) (float64, bool) {
	r := p.Get(name)
	if !r.Exists() {
		return def, true
	}
	var v float64
	switch r.Type {
	case gjson.Number:
		v = r.Num
	case gjson.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(r.Str), 64)
		if err != nil {
			return 0, false
		}
		v = f
	case gjson.True:
		v = 1
	case gjson.False:
		v = 0
	default:
		return 0, false
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// intField truncates fractional numbers toward zero.
func intField(p gjson.Result, name string, def int) (int, bool) {
	r := p.Get(name)
	if !r.Exists() {
		return def, true
	}
	switch r.Type {
	case gjson.Number:
		if math.IsNaN(r.Num) || math.Abs(r.Num) > math.MaxInt32 {
			return 0, false
		}
		return int(r.Num), true
	case gjson.String:
		n, err := strconv.Atoi(strings.TrimSpace(r.Str))
		if err != nil {
			return 0, false
		}
		return n, true
	case gjson.True:
		return 1, true
	case gjson.False:
		return 0, true
	default:
		return 0, false
	}
}

func stringField(p gjson.Result, name, def string) (string, bool) {
	r := p.Get(name)
	if !r.Exists() {
		return def, true
	}
	if r.Type != gjson.String {
		return "", false
	}
	return r.Str, true
}

// buttonField reads "button" (default "left"). Unknown names are unusable.
func buttonField(p gjson.Result) (input.Button, bool) {
	name, ok := stringField(p, "button", "left")
	if !ok {
		return 0, false
	}
	b, err := input.ParseButton(name)
	if err != nil {
		return 0, false
	}
	return b, true
}
