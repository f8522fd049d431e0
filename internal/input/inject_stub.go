//go:build !linux && !windows && !darwin

package input

// Stub implementation for platforms without an injection backend

// Injector represents a stub input injector
type Injector struct{}

// NewInjector creates a new stub injector
func NewInjector() *Injector {
	return &Injector{}
}

func (i *Injector) ScreenSize() (int, int, error)   { return 0, 0, ErrUnsupported }
func (i *Injector) MoveTo(x, y int) error           { return ErrUnsupported }
func (i *Injector) Click(button Button) error       { return ErrUnsupported }
func (i *Injector) DoubleClick(button Button) error { return ErrUnsupported }
func (i *Injector) MouseDown(button Button) error   { return ErrUnsupported }
func (i *Injector) MouseUp(button Button) error     { return ErrUnsupported }
func (i *Injector) TypeText(text string) error      { return ErrUnsupported }
func (i *Injector) PressKey(key string) error       { return ErrUnsupported }
func (i *Injector) Scroll(clicks int) error         { return ErrUnsupported }
func (i *Injector) HScroll(clicks int) error        { return ErrUnsupported }
