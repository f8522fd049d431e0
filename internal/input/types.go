// Package input provides cross-platform synthetic mouse and keyboard injection.
package input

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrUnsupported is returned by injectors on platforms without a backend.
var ErrUnsupported = errors.New("input injection not supported on this platform")

// Button is a mouse button.
type Button int

const (
	ButtonLeft Button = iota + 1
	ButtonMiddle
	ButtonRight
)

func (b Button) String() string {
	switch b {
	case ButtonLeft:
		return "left"
	case ButtonMiddle:
		return "middle"
	case ButtonRight:
		return "right"
	default:
		return fmt.Sprintf("button(%d)", int(b))
	}
}

// ParseButton accepts "left", "middle" and "right" (case-insensitive).
func ParseButton(name string) (Button, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "left":
		return ButtonLeft, nil
	case "middle":
		return ButtonMiddle, nil
	case "right":
		return ButtonRight, nil
	default:
		return 0, fmt.Errorf("unknown mouse button %q", name)
	}
}

// InputInjector drives the local pointer and keyboard. Coordinates are absolute
// pixels on the primary display. Positive Scroll clicks scroll up,
// positive HScroll clicks scroll right.
type InputInjector interface {
	ScreenSize() (width, height int, err error)
	MoveTo(x, y int) error
	Click(button Button) error
	DoubleClick(button Button) error
	MouseDown(button Button) error
	MouseUp(button Button) error
	TypeText(text string) error
	PressKey(key string) error
	Scroll(clicks int) error
	HScroll(clicks int) error
}

// keyAliases folds the common spellings of named keys onto one name.
var keyAliases = map[string]string{
	"return":     "enter",
	"escape":     "esc",
	"del":        "delete",
	"control":    "ctrl",
	"ctrlleft":   "ctrl",
	"shiftleft":  "shift",
	"altleft":    "alt",
	"option":     "alt",
	"super":      "win",
	"command":    "win",
	"cmd":        "win",
	"pgup":       "pageup",
	"pgdn":       "pagedown",
	"arrowup":    "up",
	"arrowdown":  "down",
	"arrowleft":  "left",
	"arrowright": "right",
	"spacebar":   "space",
}

// NormalizeKey lowercases named keys and resolves aliases. Single
// characters are returned unchanged so that case is preserved.
func NormalizeKey(key string) string {
	if key == " " {
		return "space"
	}
	if utf8.RuneCountInString(key) == 1 {
		return key
	}
	k := strings.ToLower(strings.TrimSpace(key))
	if alias, ok := keyAliases[k]; ok {
		return alias
	}
	return k
}
