package camera

import (
	"context"
	"errors"
	"image"
)

var (
	// ErrNoFrames is returned by Read once a finite source is exhausted.
	ErrNoFrames = errors.New("no more frames")

	// ErrUnsupported is returned when camera support was not compiled in.
	ErrUnsupported = errors.New("camera support not enabled: rebuild with -tags=gocv")
)

// Source produces frames for the pipeline.
type Source interface {
	Name() string
	// Read blocks until the next frame is available.
	Read(ctx context.Context) (image.Image, error)
	Close() error
}

// Display shows named frames.
type Display interface {
	Show(name string, img image.Image) error
	Close() error
}
