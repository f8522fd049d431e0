//go:build windows

package input

import (
	"fmt"
	"strconv"
	"unicode/utf16"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Windows implementation using user32 SendInput

var (
	user32               = windows.NewLazySystemDLL("user32.dll")
	procSendInput        = user32.NewProc("SendInput")
	procSetCursorPos     = user32.NewProc("SetCursorPos")
	procGetSystemMetrics = user32.NewProc("GetSystemMetrics")
)

const (
	inputMouse    = 0
	inputKeyboard = 1

	mouseeventfLeftDown   = 0x0002
	mouseeventfLeftUp     = 0x0004
	mouseeventfRightDown  = 0x0008
	mouseeventfRightUp    = 0x0010
	mouseeventfMiddleDown = 0x0020
	mouseeventfMiddleUp   = 0x0040
	mouseeventfWheel      = 0x0800
	mouseeventfHWheel     = 0x1000

	keyeventfKeyUp   = 0x0002
	keyeventfUnicode = 0x0004

	wheelDelta = 120

	smCxScreen = 0
	smCyScreen = 1
)

// mouseInput and keybdInput mirror MOUSEINPUT and KEYBDINPUT. The INPUT
// union is sized by MOUSEINPUT, so keybdInput is padded to match.
type mouseInput struct {
	Dx        int32
	Dy        int32
	MouseData uint32
	Flags     uint32
	Time      uint32
	ExtraInfo uintptr
}

type keybdInput struct {
	Vk        uint16
	Scan      uint16
	Flags     uint32
	Time      uint32
	ExtraInfo uintptr
	_         [8]byte
}

type mouseINPUT struct {
	Type uint32
	Mi   mouseInput
}

type keyINPUT struct {
	Type uint32
	Ki   keybdInput
}

// virtualKeys maps normalized key names to Windows virtual-key codes.
var virtualKeys = map[string]uint16{
	"enter":     0x0D,
	"esc":       0x1B,
	"backspace": 0x08,
	"tab":       0x09,
	"space":     0x20,
	"delete":    0x2E,
	"insert":    0x2D,
	"home":      0x24,
	"end":       0x23,
	"pageup":    0x21,
	"pagedown":  0x22,
	"left":      0x25,
	"up":        0x26,
	"right":     0x27,
	"down":      0x28,
	"shift":     0x10,
	"ctrl":      0x11,
	"alt":       0x12,
	"win":       0x5B,
	"capslock":  0x14,
}

// Injector injects input through SendInput.
type Injector struct{}

// NewInjector creates a new Windows injector
func NewInjector() *Injector {
	return &Injector{}
}

func (i *Injector) ScreenSize() (int, int, error) {
	w, _, _ := procGetSystemMetrics.Call(smCxScreen)
	h, _, _ := procGetSystemMetrics.Call(smCyScreen)
	if w == 0 || h == 0 {
		return 0, 0, fmt.Errorf("GetSystemMetrics returned %dx%d", w, h)
	}
	return int(w), int(h), nil
}

func (i *Injector) MoveTo(x, y int) error {
	r, _, err := procSetCursorPos.Call(uintptr(x), uintptr(y))
	if r == 0 {
		return fmt.Errorf("SetCursorPos: %w", err)
	}
	return nil
}

func (i *Injector) Click(button Button) error {
	down, up := buttonFlags(button)
	return sendMouse(mouseInput{Flags: down}, mouseInput{Flags: up})
}

func (i *Injector) DoubleClick(button Button) error {
	down, up := buttonFlags(button)
	return sendMouse(mouseInput{Flags: down}, mouseInput{Flags: up}, mouseInput{Flags: down}, mouseInput{Flags: up})
}

func (i *Injector) MouseDown(button Button) error {
	down, _ := buttonFlags(button)
	return sendMouse(mouseInput{Flags: down})
}

func (i *Injector) MouseUp(button Button) error {
	_, up := buttonFlags(button)
	return sendMouse(mouseInput{Flags: up})
}

func (i *Injector) Scroll(clicks int) error {
	if clicks == 0 {
		return nil
	}
	return sendMouse(mouseInput{Flags: mouseeventfWheel, MouseData: uint32(int32(clicks * wheelDelta))})
}

func (i *Injector) HScroll(clicks int) error {
	if clicks == 0 {
		return nil
	}
	return sendMouse(mouseInput{Flags: mouseeventfHWheel, MouseData: uint32(int32(clicks * wheelDelta))})
}

// TypeText sends each UTF-16 code unit as a unicode key press.
func (i *Injector) TypeText(text string) error {
	var inputs []keyINPUT
	for _, unit := range utf16.Encode([]rune(text)) {
		inputs = append(inputs,
			keyINPUT{Type: inputKeyboard, Ki: keybdInput{Scan: unit, Flags: keyeventfUnicode}},
			keyINPUT{Type: inputKeyboard, Ki: keybdInput{Scan: unit, Flags: keyeventfUnicode | keyeventfKeyUp}},
		)
	}
	return sendKeys(inputs)
}

func (i *Injector) PressKey(key string) error {
	k := NormalizeKey(key)
	vk, ok := virtualKey(k)
	if !ok {
		// not a named key: type it
		return i.TypeText(k)
	}
	return sendKeys([]keyINPUT{
		{Type: inputKeyboard, Ki: keybdInput{Vk: vk}},
		{Type: inputKeyboard, Ki: keybdInput{Vk: vk, Flags: keyeventfKeyUp}},
	})
}

func virtualKey(k string) (uint16, bool) {
	if vk, ok := virtualKeys[k]; ok {
		return vk, true
	}
	if len(k) == 1 {
		c := k[0]
		switch {
		case c >= 'a' && c <= 'z':
			return uint16(c - 'a' + 'A'), true
		case c >= '0' && c <= '9':
			return uint16(c), true
		}
		return 0, false
	}
	if len(k) > 1 && k[0] == 'f' {
		if n, err := strconv.Atoi(k[1:]); err == nil && n >= 1 && n <= 24 {
			return uint16(0x70 + n - 1), true
		}
	}
	return 0, false
}

func buttonFlags(b Button) (down, up uint32) {
	switch b {
	case ButtonRight:
		return mouseeventfRightDown, mouseeventfRightUp
	case ButtonMiddle:
		return mouseeventfMiddleDown, mouseeventfMiddleUp
	default:
		return mouseeventfLeftDown, mouseeventfLeftUp
	}
}

func sendMouse(events ...mouseInput) error {
	inputs := make([]mouseINPUT, len(events))
	for n, ev := range events {
		inputs[n] = mouseINPUT{Type: inputMouse, Mi: ev}
	}
	r, _, err := procSendInput.Call(
		uintptr(len(inputs)),
		uintptr(unsafe.Pointer(&inputs[0])),
		unsafe.Sizeof(inputs[0]),
	)
	if int(r) != len(inputs) {
		return fmt.Errorf("SendInput: %w", err)
	}
	return nil
}

func sendKeys(inputs []keyINPUT) error {
	if len(inputs) == 0 {
		return nil
	}
	r, _, err := procSendInput.Call(
		uintptr(len(inputs)),
		uintptr(unsafe.Pointer(&inputs[0])),
		unsafe.Sizeof(inputs[0]),
	)
	if int(r) != len(inputs) {
		return fmt.Errorf("SendInput: %w", err)
	}
	return nil
}
