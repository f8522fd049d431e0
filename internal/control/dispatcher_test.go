package control

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"lrc/internal/input"
	"lrc/internal/protocol"
)

type recordingInjector struct {
	mu     sync.Mutex
	calls  []string
	w, h   int
	fail   error
	sizeOK bool
}

func newRecorder() *recordingInjector {
	return &recordingInjector{w: 1920, h: 1080, sizeOK: true}
}

func (r *recordingInjector) record(format string, args ...interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
	return r.fail
}

func (r *recordingInjector) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *recordingInjector) ScreenSize() (int, int, error) {
	if !r.sizeOK {
		return 0, 0, errors.New("no display")
	}
	return r.w, r.h, nil
}
func (r *recordingInjector) MoveTo(x, y int) error      { return r.record("move %d %d", x, y) }
func (r *recordingInjector) Click(b input.Button) error { return r.record("click %s", b) }
func (r *recordingInjector) DoubleClick(b input.Button) error {
	return r.record("dblclick %s", b)
}
func (r *recordingInjector) MouseDown(b input.Button) error { return r.record("down %s", b) }
func (r *recordingInjector) MouseUp(b input.Button) error   { return r.record("up %s", b) }
func (r *recordingInjector) TypeText(t string) error        { return r.record("type %q", t) }
func (r *recordingInjector) PressKey(k string) error        { return r.record("key %q", k) }
func (r *recordingInjector) Scroll(n int) error             { return r.record("scroll %d", n) }
func (r *recordingInjector) HScroll(n int) error            { return r.record("hscroll %d", n) }

type staticAuth map[uuid.UUID]bool

func (a staticAuth) IsAuthorized(id uuid.UUID) bool { return a[id] }

type recordingConn struct {
	sent []protocol.Message
}

func (c *recordingConn) Send(msg protocol.Message) { c.sent = append(c.sent, msg) }

func newTestDispatcher(t *testing.T) (*Dispatcher, *recordingInjector, uuid.UUID) {
	t.Helper()
	id := uuid.New()
	rec := newRecorder()
	return NewDispatcher(staticAuth{id: true}, rec, zap.NewNop()), rec, id
}

func TestHandleInjectsEvents(t *testing.T) {
	tests := []struct {
		name    string
		kind    protocol.MessageType
		payload string
		want    []string
	}{
		{"move center", protocol.TypeMouseMove, `{"nx":0.5,"ny":0.5}`, []string{"move 959 539"}},
		{"move origin", protocol.TypeMouseMove, `{"nx":0,"ny":0}`, []string{"move 0 0"}},
		{"move clamped", protocol.TypeMouseMove, `{"nx":1.7,"ny":-3}`, []string{"move 1919 0"}},
		{"move missing fields", protocol.TypeMouseMove, `{}`, []string{"move 0 0"}},
		{"move string numbers", protocol.TypeMouseMove, `{"nx":"1","ny":"1"}`, []string{"move 1919 1079"}},
		{"click default", protocol.TypeMouseClick, `{}`, []string{"click left"}},
		{"click right", protocol.TypeMouseClick, `{"button":"right"}`, []string{"click right"}},
		{"double click", protocol.TypeMouseClick, `{"button":"left","double":true}`, []string{"dblclick left"}},
		{"click unknown button", protocol.TypeMouseClick, `{"button":"fourth"}`, nil},
		{"type text", protocol.TypeKeyType, `{"text":"hello"}`, []string{`type "hello"`}},
		{"type empty", protocol.TypeKeyType, `{"text":""}`, nil},
		{"type missing", protocol.TypeKeyType, `{}`, nil},
		{"press key", protocol.TypeKeyPress, `{"key":"Enter"}`, []string{`key "Enter"`}},
		{"press empty", protocol.TypeKeyPress, `{"key":""}`, nil},
		{"scroll up", protocol.TypeMouseScroll, `{"dy":3}`, []string{"scroll 3"}},
		{"scroll both", protocol.TypeMouseScroll, `{"dy":-1,"dx":2}`, []string{"scroll -1", "hscroll 2"}},
		{"scroll default", protocol.TypeMouseScroll, `{}`, []string{"scroll 0"}},
		{"scroll fractional", protocol.TypeMouseScroll, `{"dy":2.9}`, []string{"scroll 2"}},
		{"scroll clamped", protocol.TypeMouseScroll, `{"dy":2147483647,"dx":-2147483647}`, []string{"scroll 100", "hscroll -100"}},
		{"scroll clamped string", protocol.TypeMouseScroll, `{"dy":"-5000"}`, []string{"scroll -100"}},
		{"mouse down", protocol.TypeMouseDown, `{"button":"middle"}`, []string{"down middle"}},
		{"mouse up default", protocol.TypeMouseUp, ``, []string{"up left"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, rec, id := newTestDispatcher(t)
			conn := &recordingConn{}

			d.Handle(id, conn, tt.kind, []byte(tt.payload))

			if got := rec.Calls(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("calls = %v, want %v", got, tt.want)
			}
			if len(conn.sent) != 0 {
				t.Errorf("unexpected notices: %v", conn.sent)
			}
		})
	}
}

func TestHandleMalformedFieldsAreNoOps(t *testing.T) {
	cases := []struct {
		kind    protocol.MessageType
		payload string
	}{
		{protocol.TypeMouseMove, `{"nx":"abc","ny":0.5}`},
		{protocol.TypeMouseMove, `{"nx":null,"ny":0.5}`},
		{protocol.TypeMouseMove, `{"nx":[1],"ny":0.5}`},
		{protocol.TypeMouseClick, `{"button":5}`},
		{protocol.TypeKeyType, `{"text":42}`},
		{protocol.TypeKeyPress, `{"key":null}`},
		{protocol.TypeMouseScroll, `{"dy":"up"}`},
		{protocol.TypeMouseScroll, `{"dy":1,"dx":{}}`},
		{protocol.TypeMouseDown, `[1,2,3]`},
		{protocol.TypeMouseUp, `"left"`},
		{protocol.TypeMouseMove, `not json`},
	}

	for _, c := range cases {
		d, rec, id := newTestDispatcher(t)
		d.Handle(id, &recordingConn{}, c.kind, []byte(c.payload))
		if got := rec.Calls(); len(got) != 0 {
			t.Errorf("%s %s: calls = %v, want none", c.kind, c.payload, got)
		}
	}
}

func TestHandleRejectsUnauthorized(t *testing.T) {
	rec := newRecorder()
	d := NewDispatcher(staticAuth{}, rec, zap.NewNop())
	conn := &recordingConn{}

	kinds := []protocol.MessageType{
		protocol.TypeMouseMove,
		protocol.TypeMouseClick,
		protocol.TypeKeyType,
		"no_such_event",
	}
	for _, kind := range kinds {
		d.Handle(uuid.New(), conn, kind, []byte(`{"nx":0.5,"ny":0.5,"text":"x"}`))
	}

	if got := rec.Calls(); len(got) != 0 {
		t.Errorf("unauthorized events injected: %v", got)
	}
	if len(conn.sent) != len(kinds) {
		t.Fatalf("sent %d notices, want %d", len(conn.sent), len(kinds))
	}
	want := protocol.Unauthorized()
	for n, msg := range conn.sent {
		if msg.Type != protocol.TypeError || string(msg.Payload) != string(want.Payload) {
			t.Errorf("notice %d = %s %s, want %s %s", n, msg.Type, msg.Payload, want.Type, want.Payload)
		}
	}
}

func TestHandleUnknownKindIgnored(t *testing.T) {
	d, rec, id := newTestDispatcher(t)
	conn := &recordingConn{}

	d.Handle(id, conn, "teleport", []byte(`{}`))

	if len(rec.Calls()) != 0 || len(conn.sent) != 0 {
		t.Errorf("unknown event had effects: calls=%v sent=%v", rec.Calls(), conn.sent)
	}
}

func TestHandleScreenSizeFailureSkipsMove(t *testing.T) {
	d, rec, id := newTestDispatcher(t)
	rec.sizeOK = false

	d.Handle(id, &recordingConn{}, protocol.TypeMouseMove, []byte(`{"nx":0.5,"ny":0.5}`))

	if got := rec.Calls(); len(got) != 0 {
		t.Errorf("calls = %v, want none", got)
	}
}

func TestHandleInjectionErrorStopsScroll(t *testing.T) {
	d, rec, id := newTestDispatcher(t)
	rec.fail = errors.New("backend gone")

	d.Handle(id, &recordingConn{}, protocol.TypeMouseScroll, []byte(`{"dy":1,"dx":1}`))

	want := []string{"scroll 1"}
	if got := rec.Calls(); !reflect.DeepEqual(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
}

func TestToPixels(t *testing.T) {
	tests := []struct {
		nx, ny float64
		w, h   int
		x, y   int
	}{
		{0.5, 0.5, 1920, 1080, 959, 539},
		{1, 1, 1920, 1080, 1919, 1079},
		{0, 0, 1920, 1080, 0, 0},
		{2, -1, 800, 600, 799, 0},
		{0.25, 0.75, 101, 201, 25, 150},
	}
	for _, tt := range tests {
		x, y := ToPixels(tt.nx, tt.ny, tt.w, tt.h)
		if x != tt.x || y != tt.y {
			t.Errorf("ToPixels(%v, %v, %d, %d) = (%d, %d), want (%d, %d)",
				tt.nx, tt.ny, tt.w, tt.h, x, y, tt.x, tt.y)
		}
	}
}
