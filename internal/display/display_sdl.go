//go:build sdl

package display

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"runtime"
	"time"

	"github.com/veandco/go-sdl2/sdl"
)

type sdlLister struct{}

func (sdlLister) ListDisplays() ([]Rect, error) {
	n, err := sdl.GetNumVideoDisplays()
	if err != nil {
		return nil, err
	}
	out := make([]Rect, 0, n)
	for i := 0; i < n; i++ {
		b, err := sdl.GetDisplayBounds(i)
		if err != nil {
			return nil, fmt.Errorf("display %d: %w", i, err)
		}
		out = append(out, Rect{X: int(b.X), Y: int(b.Y), W: int(b.W), H: int(b.H)})
	}
	return out, nil
}

// Native initializes the SDL video subsystem and returns a display service.
func Native() (Service, error) {
	if err := sdl.InitSubSystem(sdl.INIT_VIDEO); err != nil {
		return nil, err
	}
	return NewToggler(sdlLister{}), nil
}

// Supported reports whether native display support is built in.
func Supported() bool { return true }

type sdlWindow struct {
	w *sdl.Window
}

func (s sdlWindow) Geometry() Rect {
	x, y := s.w.GetPosition()
	w, h := s.w.GetSize()
	return Rect{X: int(x), Y: int(y), W: int(w), H: int(h)}
}

func (s sdlWindow) SetGeometry(r Rect) error {
	s.w.SetPosition(int32(r.X), int32(r.Y))
	s.w.SetSize(int32(r.W), int32(r.H))
	return nil
}

func (s sdlWindow) SetDecorated(decorated bool) error {
	s.w.SetBordered(decorated)
	return nil
}

type viewer struct {
	window   *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture
	width    int
	height   int
	pixels   []byte
}

func (v *viewer) upload(img image.Image) error {
	b := img.Bounds()
	if v.texture == nil || v.width != b.Dx() || v.height != b.Dy() {
		if v.texture != nil {
			v.texture.Destroy()
			v.texture = nil
		}
		tex, err := v.renderer.CreateTexture(
			sdl.PIXELFORMAT_ABGR8888,
			sdl.TEXTUREACCESS_STREAMING,
			int32(b.Dx()), int32(b.Dy()),
		)
		if err != nil {
			return err
		}
		v.texture = tex
		v.width, v.height = b.Dx(), b.Dy()
		_ = v.renderer.SetLogicalSize(int32(v.width), int32(v.height))
	}

	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != 4*b.Dx() {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}
	v.pixels = rgba.Pix
	return v.texture.Update(nil, v.pixels, 4*v.width)
}

func (v *viewer) present() error {
	if err := v.renderer.Clear(); err != nil {
		return err
	}
	if v.texture != nil {
		if err := v.renderer.Copy(v.texture, nil, nil); err != nil {
			return err
		}
	}
	v.renderer.Present()
	return nil
}

func (v *viewer) close() {
	if v.texture != nil {
		v.texture.Destroy()
	}
	if v.renderer != nil {
		v.renderer.Destroy()
	}
	if v.window != nil {
		v.window.Destroy()
	}
}

// RunViewer shows every image received on images in a native window until
// ctx is done or the window is closed. A double click toggles fullscreen.
// It must be called from the main goroutine.
func RunViewer(ctx context.Context, title string, images <-chan image.Image) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	svc, err := Native()
	if err != nil {
		return err
	}
	defer sdl.QuitSubSystem(sdl.INIT_VIDEO)
	toggler := svc.(*Toggler)

	v := &viewer{}
	defer v.close()
	v.window, err = sdl.CreateWindow(title,
		sdl.WINDOWPOS_CENTERED, sdl.WINDOWPOS_CENTERED,
		960, 540,
		sdl.WINDOW_SHOWN|sdl.WINDOW_RESIZABLE,
	)
	if err != nil {
		return err
	}
	v.renderer, err = sdl.CreateRenderer(v.window, -1, sdl.RENDERER_ACCELERATED|sdl.RENDERER_PRESENTVSYNC)
	if err != nil {
		return err
	}
	win := sdlWindow{w: v.window}

	ticker := time.NewTicker(16 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case img, ok := <-images:
			if !ok {
				return nil
			}
			if err := v.upload(img); err != nil {
				return err
			}
		case <-ticker.C:
		}

		for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
			switch e := event.(type) {
			case *sdl.QuitEvent:
				return nil
			case *sdl.MouseButtonEvent:
				if e.State == sdl.PRESSED && e.Clicks == 2 {
					if err := toggler.ToggleFullscreen(win); err != nil {
						return err
					}
				}
			}
		}
		if err := v.present(); err != nil {
			return err
		}
	}
}
