package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/ironsheep/target-vision/internal/camera"
)

// maxConsecutiveErrors stops a run whose source keeps failing.
const maxConsecutiveErrors = 30

// Listener receives every processed frame.
type Listener interface {
	Frame(frame image.Image, res Result)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(frame image.Image, res Result)

// Frame calls f.
func (f ListenerFunc) Frame(frame image.Image, res Result) {
	f(frame, res)
}

// Listeners fans each result out to every non-nil listener in order.
func Listeners(ls ...Listener) Listener {
	return ListenerFunc(func(frame image.Image, res Result) {
		for _, l := range ls {
			if l != nil {
				l.Frame(frame, res)
			}
		}
	})
}

// RunStats summarises one Run.
type RunStats struct {
	Frames int
	Found  int
	Errors int
}

// Runner feeds frames from a source through a pipeline.
type Runner struct {
	Pipeline *Pipeline
}

// NewRunner creates a runner for p.
func NewRunner(p *Pipeline) *Runner {
	return &Runner{Pipeline: p}
}

// Run processes frames until the source is exhausted or ctx is done.
//
// Read errors are logged and the frame skipped; a finite source running out
// ends the run without error.
func (r *Runner) Run(ctx context.Context, src camera.Source, listener Listener) (RunStats, error) {
	var stats RunStats
	consecutive := 0

	defer func() {
		diagf("run on %s finished: frames=%d found=%d errors=%d",
			src.Name(), stats.Frames, stats.Found, stats.Errors)
	}()

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		frame, err := src.Read(ctx)
		if err != nil {
			switch {
			case errors.Is(err, camera.ErrNoFrames):
				return stats, nil
			case ctx.Err() != nil:
				return stats, ctx.Err()
			}
			stats.Errors++
			consecutive++
			opsf("read from %s failed: %v", src.Name(), err)
			if consecutive >= maxConsecutiveErrors {
				return stats, fmt.Errorf("giving up on %s after %d consecutive errors: %w", src.Name(), consecutive, err)
			}
			select {
			case <-ctx.Done():
				return stats, ctx.Err()
			case <-time.After(retryDelay(consecutive)):
			}
			continue
		}
		consecutive = 0

		res := r.Pipeline.Process(frame)
		stats.Frames++
		if res.Found {
			stats.Found++
		}
		if listener != nil {
			listener.Frame(frame, res)
		}
	}
}

// retryDelay is the pause after the nth consecutive read error.
var retryDelay = backoff

// backoff grows with repeated failures, up to half a second.
func backoff(n int) time.Duration {
	d := time.Duration(n) * 10 * time.Millisecond
	if d > 500*time.Millisecond {
		d = 500 * time.Millisecond
	}
	return d
}
