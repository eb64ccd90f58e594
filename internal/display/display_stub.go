//go:build !sdl

package display

import (
	"context"
	"image"
)

// Native returns ErrUnsupported in builds without the sdl tag.
func Native() (Service, error) {
	return nil, ErrUnsupported
}

// RunViewer returns ErrUnsupported in builds without the sdl tag.
func RunViewer(ctx context.Context, title string, images <-chan image.Image) error {
	return ErrUnsupported
}

// Supported reports whether native display support is built in.
func Supported() bool { return false }
