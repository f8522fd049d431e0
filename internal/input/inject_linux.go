//go:build linux

package input

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Linux implementation driving X11 through xdotool

// xKeysyms maps normalized key names to X keysym names.
var xKeysyms = map[string]string{
	"enter":     "Return",
	"esc":       "Escape",
	"backspace": "BackSpace",
	"tab":       "Tab",
	"space":     "space",
	"delete":    "Delete",
	"insert":    "Insert",
	"home":      "Home",
	"end":       "End",
	"pageup":    "Prior",
	"pagedown":  "Next",
	"up":        "Up",
	"down":      "Down",
	"left":      "Left",
	"right":     "Right",
	"shift":     "Shift_L",
	"ctrl":      "Control_L",
	"alt":       "Alt_L",
	"win":       "Super_L",
	"capslock":  "Caps_Lock",
}

// xButtons are the X11 pointer button numbers.
var xButtons = map[Button]int{
	ButtonLeft:   1,
	ButtonMiddle: 2,
	ButtonRight:  3,
}

const (
	xWheelUp    = 4
	xWheelDown  = 5
	xWheelLeft  = 6
	xWheelRight = 7
)

// Injector injects input by running xdotool.
type Injector struct {
	run func(args ...string) ([]byte, error)
}

// NewInjector creates an injector using the xdotool binary on PATH.
func NewInjector() *Injector {
	return &Injector{run: runXdotool}
}

// xdotoolTimeout bounds a single xdotool invocation.
const xdotoolTimeout = 5 * time.Second

func runXdotool(args ...string) ([]byte, error) {
	bin, err := exec.LookPath("xdotool")
	if err != nil {
		return nil, fmt.Errorf("%w: xdotool not found", ErrUnsupported)
	}
	return runCommand(bin, xdotoolTimeout, args...)
}

func runCommand(bin string, timeout time.Duration, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, bin, args...).Output()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%s %s: timed out after %s", filepath.Base(bin), args[0], timeout)
	}
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", filepath.Base(bin), args[0], err)
	}
	return out, nil
}

func (i *Injector) exec(args ...string) error {
	_, err := i.run(args...)
	return err
}

// ScreenSize returns the X display geometry.
func (i *Injector) ScreenSize() (int, int, error) {
	out, err := i.run("getdisplaygeometry")
	if err != nil {
		return 0, 0, err
	}
	fields := strings.Fields(string(out))
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("unexpected display geometry %q", out)
	}
	w, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0, fmt.Errorf("bad display width %q", fields[0])
	}
	h, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, fmt.Errorf("bad display height %q", fields[1])
	}
	return w, h, nil
}

func (i *Injector) MoveTo(x, y int) error {
	return i.exec("mousemove", strconv.Itoa(x), strconv.Itoa(y))
}

func (i *Injector) Click(button Button) error {
	return i.exec("click", xButton(button))
}

func (i *Injector) DoubleClick(button Button) error {
	return i.exec("click", "--repeat", "2", xButton(button))
}

func (i *Injector) MouseDown(button Button) error {
	return i.exec("mousedown", xButton(button))
}

func (i *Injector) MouseUp(button Button) error {
	return i.exec("mouseup", xButton(button))
}

func (i *Injector) TypeText(text string) error {
	return i.exec("type", "--delay", "0", "--", text)
}

func (i *Injector) PressKey(key string) error {
	return i.exec("key", "--", xKeysym(key))
}

func (i *Injector) Scroll(clicks int) error {
	return i.wheel(clicks, xWheelUp, xWheelDown)
}

func (i *Injector) HScroll(clicks int) error {
	return i.wheel(clicks, xWheelRight, xWheelLeft)
}

// wheel clicks the positive or negative wheel button |clicks| times.
func (i *Injector) wheel(clicks, positive, negative int) error {
	if clicks == 0 {
		return nil
	}
	button := positive
	if clicks < 0 {
		button = negative
		clicks = -clicks
	}
	return i.exec("click", "--repeat", strconv.Itoa(clicks), strconv.Itoa(button))
}

func xButton(b Button) string {
	n, ok := xButtons[b]
	if !ok {
		n = xButtons[ButtonLeft]
	}
	return strconv.Itoa(n)
}

func xKeysym(key string) string {
	k := NormalizeKey(key)
	if sym, ok := xKeysyms[k]; ok {
		return sym
	}
	// f1..f24
	if len(k) > 1 && k[0] == 'f' {
		if n, err := strconv.Atoi(k[1:]); err == nil && n >= 1 && n <= 24 {
			return "F" + k[1:]
		}
	}
	return k
}
