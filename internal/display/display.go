// Package display enumerates monitors and toggles borderless fullscreen
// for preview windows. Native support needs the sdl build tag.
package display

import (
	"errors"
	"fmt"
	"sync"
)

// ErrUnsupported is returned when the binary was built without native
// display support.
var ErrUnsupported = errors.New("display: native display support not built (rebuild with -tags sdl)")

// ErrNoDisplays is returned when no monitor is reported.
var ErrNoDisplays = errors.New("display: no displays found")

// Rect is a screen area in desktop coordinates.
type Rect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Contains reports whether the point lies inside r.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

func (r Rect) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.W, r.H, r.X, r.Y)
}

// Window is a top-level window whose geometry can be changed.
type Window interface {
	Geometry() Rect
	SetGeometry(r Rect) error
	SetDecorated(decorated bool) error
}

// Lister enumerates the connected displays.
type Lister interface {
	ListDisplays() ([]Rect, error)
}

// Service lists displays and toggles windows between their normal geometry
// and borderless fullscreen.
type Service interface {
	Lister
	ToggleFullscreen(w Window) error
}

// PickDisplay returns the index of the display containing (x, y), or 0.
func PickDisplay(displays []Rect, x, y int) int {
	for k, d := range displays {
		if d.Contains(x, y) {
			return k
		}
	}
	return 0
}

// Toggler remembers the normal geometry of each fullscreen window.
type Toggler struct {
	lister Lister

	mu    sync.Mutex
	saved map[Window]Rect
}

// NewToggler returns a toggler using l to find displays.
func NewToggler(l Lister) *Toggler {
	return &Toggler{lister: l, saved: make(map[Window]Rect)}
}

// ListDisplays implements Lister.
func (t *Toggler) ListDisplays() ([]Rect, error) {
	return t.lister.ListDisplays()
}

// Fullscreen reports whether w is currently toggled to fullscreen.
func (t *Toggler) Fullscreen(w Window) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.saved[w]
	return ok
}

// ToggleFullscreen covers the display holding the window origin with w,
// without decorations. Toggling again restores the saved geometry.
func (t *Toggler) ToggleFullscreen(w Window) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if geo, ok := t.saved[w]; ok {
		if err := w.SetGeometry(geo); err != nil {
			return err
		}
		delete(t.saved, w)
		return w.SetDecorated(true)
	}

	displays, err := t.lister.ListDisplays()
	if err != nil {
		return err
	}
	if len(displays) == 0 {
		return ErrNoDisplays
	}

	geo := w.Geometry()
	target := displays[PickDisplay(displays, geo.X, geo.Y)]
	if err := w.SetDecorated(false); err != nil {
		return err
	}
	if err := w.SetGeometry(target); err != nil {
		_ = w.SetDecorated(true)
		return err
	}
	t.saved[w] = geo
	return nil
}
