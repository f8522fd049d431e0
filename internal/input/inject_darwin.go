//go:build darwin

package input

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework CoreGraphics -framework CoreFoundation -framework ApplicationServices

#include <CoreGraphics/CoreGraphics.h>
#include <CoreFoundation/CoreFoundation.h>
#include <ApplicationServices/ApplicationServices.h>

static bool hasAccessibilityPermissions() {
    return AXIsProcessTrusted();
}

static CGPoint currentMousePosition() {
    CGEventRef event = CGEventCreate(NULL);
    CGPoint cursor = CGEventGetLocation(event);
    CFRelease(event);
    return cursor;
}

static void mainDisplaySize(double *w, double *h) {
    CGRect r = CGDisplayBounds(CGMainDisplayID());
    *w = r.size.width;
    *h = r.size.height;
}

static void moveTo(double x, double y) {
    CGEventRef event = CGEventCreateMouseEvent(NULL, kCGEventMouseMoved, CGPointMake(x, y), kCGMouseButtonLeft);
    CGEventPost(kCGHIDEventTap, event);
    CFRelease(event);
}

// button: 1 left, 2 middle, 3 right. clicks sets the click state so that
// a second press is seen as a double click.
static void mouseButton(int button, bool pressed, int clicks) {
    CGMouseButton cgButton = kCGMouseButtonLeft;
    CGEventType type = pressed ? kCGEventLeftMouseDown : kCGEventLeftMouseUp;
    if (button == 3) {
        cgButton = kCGMouseButtonRight;
        type = pressed ? kCGEventRightMouseDown : kCGEventRightMouseUp;
    } else if (button == 2) {
        cgButton = kCGMouseButtonCenter;
        type = pressed ? kCGEventOtherMouseDown : kCGEventOtherMouseUp;
    }

    CGEventRef event = CGEventCreateMouseEvent(NULL, type, currentMousePosition(), cgButton);
    CGEventSetIntegerValueField(event, kCGMouseEventClickState, clicks);
    CGEventPost(kCGHIDEventTap, event);
    CFRelease(event);
}

static void scroll(int dy, int dx) {
    CGEventRef event = CGEventCreateScrollWheelEvent(NULL, kCGScrollEventUnitLine, 2, dy, dx);
    CGEventPost(kCGHIDEventTap, event);
    CFRelease(event);
}

static void keyCode(CGKeyCode code, bool pressed) {
    CGEventRef event = CGEventCreateKeyboardEvent(NULL, code, pressed);
    CGEventPost(kCGHIDEventTap, event);
    CFRelease(event);
}

static void typeUnits(const UniChar *units, int n) {
    CGEventRef down = CGEventCreateKeyboardEvent(NULL, 0, true);
    CGEventRef up = CGEventCreateKeyboardEvent(NULL, 0, false);
    CGEventKeyboardSetUnicodeString(down, n, units);
    CGEventKeyboardSetUnicodeString(up, n, units);
    CGEventPost(kCGHIDEventTap, down);
    CGEventPost(kCGHIDEventTap, up);
    CFRelease(down);
    CFRelease(up);
}
*/
import "C"

import (
	"errors"
	"strconv"
	"unicode/utf16"
	"unsafe"
)

// macOS implementation posting CoreGraphics events

var errNoAccessibility = errors.New("accessibility permission not granted")

// macKeyCodes maps normalized key names to kVK_* virtual key codes.
var macKeyCodes = map[string]uint16{
	"enter":     0x24,
	"tab":       0x30,
	"space":     0x31,
	"backspace": 0x33,
	"esc":       0x35,
	"win":       0x37,
	"shift":     0x38,
	"capslock":  0x39,
	"alt":       0x3A,
	"ctrl":      0x3B,
	"insert":    0x72,
	"home":      0x73,
	"pageup":    0x74,
	"delete":    0x75,
	"end":       0x77,
	"pagedown":  0x79,
	"left":      0x7B,
	"right":     0x7C,
	"down":      0x7D,
	"up":        0x7E,
}

// macFunctionKeys are kVK_F1 through kVK_F12.
var macFunctionKeys = [...]uint16{0x7A, 0x78, 0x63, 0x76, 0x60, 0x61, 0x62, 0x64, 0x65, 0x6D, 0x67, 0x6F}

// Injector posts events to the HID event tap. The process needs the
// Accessibility permission.
type Injector struct{}

// NewInjector creates a new input injector for macOS
func NewInjector() *Injector {
	return &Injector{}
}

func (i *Injector) check() error {
	if !bool(C.hasAccessibilityPermissions()) {
		return errNoAccessibility
	}
	return nil
}

// ScreenSize returns the main display size in points, the unit CGEvent
// locations use.
func (i *Injector) ScreenSize() (int, int, error) {
	var w, h C.double
	C.mainDisplaySize(&w, &h)
	return int(w), int(h), nil
}

func (i *Injector) MoveTo(x, y int) error {
	if err := i.check(); err != nil {
		return err
	}
	C.moveTo(C.double(x), C.double(y))
	return nil
}

func (i *Injector) Click(button Button) error {
	if err := i.check(); err != nil {
		return err
	}
	C.mouseButton(C.int(button), C.bool(true), 1)
	C.mouseButton(C.int(button), C.bool(false), 1)
	return nil
}

func (i *Injector) DoubleClick(button Button) error {
	if err := i.check(); err != nil {
		return err
	}
	for n := 1; n <= 2; n++ {
		C.mouseButton(C.int(button), C.bool(true), C.int(n))
		C.mouseButton(C.int(button), C.bool(false), C.int(n))
	}
	return nil
}

func (i *Injector) MouseDown(button Button) error {
	if err := i.check(); err != nil {
		return err
	}
	C.mouseButton(C.int(button), C.bool(true), 1)
	return nil
}

func (i *Injector) MouseUp(button Button) error {
	if err := i.check(); err != nil {
		return err
	}
	C.mouseButton(C.int(button), C.bool(false), 1)
	return nil
}

func (i *Injector) Scroll(clicks int) error {
	if clicks == 0 {
		return nil
	}
	if err := i.check(); err != nil {
		return err
	}
	C.scroll(C.int(clicks), 0)
	return nil
}

func (i *Injector) HScroll(clicks int) error {
	if clicks == 0 {
		return nil
	}
	if err := i.check(); err != nil {
		return err
	}
	// CoreGraphics treats positive horizontal deltas as left
	C.scroll(0, C.int(-clicks))
	return nil
}

// TypeText posts the text as unicode key events, one rune at a time.
func (i *Injector) TypeText(text string) error {
	if err := i.check(); err != nil {
		return err
	}
	for _, r := range text {
		units := utf16.Encode([]rune{r})
		C.typeUnits((*C.UniChar)(unsafe.Pointer(&units[0])), C.int(len(units)))
	}
	return nil
}

func (i *Injector) PressKey(key string) error {
	if err := i.check(); err != nil {
		return err
	}
	k := NormalizeKey(key)
	code, ok := macKeyCode(k)
	if !ok {
		// not a named key: type it
		return i.TypeText(k)
	}
	C.keyCode(C.CGKeyCode(code), C.bool(true))
	C.keyCode(C.CGKeyCode(code), C.bool(false))
	return nil
}

func macKeyCode(k string) (uint16, bool) {
	if code, ok := macKeyCodes[k]; ok {
		return code, true
	}
	if len(k) > 1 && k[0] == 'f' {
		if n, err := strconv.Atoi(k[1:]); err == nil && n >= 1 && n <= len(macFunctionKeys) {
			return macFunctionKeys[n-1], true
		}
	}
	return 0, false
}
