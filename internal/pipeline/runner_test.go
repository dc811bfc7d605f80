package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/target-vision/internal/camera"
)

// fakeSource returns frames and errors from a script, then ErrNoFrames.
type fakeSource struct {
	frames []image.Image
	errs   []error
	next   int
	closed bool
}

func (s *fakeSource) Name() string { return "fake" }

func (s *fakeSource) Read(ctx context.Context) (image.Image, error) {
	if s.next >= len(s.frames) {
		return nil, camera.ErrNoFrames
	}
	i := s.next
	s.next++
	if s.errs != nil && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	return s.frames[i], nil
}

func (s *fakeSource) Close() error {
	s.closed = true
	return nil
}

// endlessSource fails forever.
type endlessSource struct{ err error }

func (s endlessSource) Name() string { return "endless" }
func (s endlessSource) Read(ctx context.Context) (image.Image, error) {
	return nil, s.err
}
func (s endlessSource) Close() error { return nil }

func noDelay(t *testing.T) {
	t.Helper()
	old := retryDelay
	retryDelay = func(int) time.Duration { return 0 }
	t.Cleanup(func() { retryDelay = old })
}

func TestRunner_ProcessesUntilExhausted(t *testing.T) {
	p, err := New(testConfig(true), nil)
	require.NoError(t, err)

	src := &fakeSource{frames: []image.Image{
		createTargetFrame(),
		createBlankFrame(432, 240),
		createTargetFrame(),
	}}

	var found []bool
	stats, err := NewRunner(p).Run(context.Background(), src, ListenerFunc(func(frame image.Image, res Result) {
		found = append(found, res.Found)
	}))
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false, true}, found)
	assert.Equal(t, RunStats{Frames: 3, Found: 2}, stats)
}

func TestRunner_SkipsFailedReads(t *testing.T) {
	noDelay(t)
	p, err := New(testConfig(true), nil)
	require.NoError(t, err)

	var ops bytes.Buffer
	SetLogWriters(&ops, nil, nil)
	defer SetLogWriters(nil, nil, nil)

	src := &fakeSource{
		frames: []image.Image{nil, createTargetFrame()},
		errs:   []error{errors.New("bad jpeg"), nil},
	}
	stats, err := NewRunner(p).Run(context.Background(), src, nil)
	require.NoError(t, err)
	assert.Equal(t, RunStats{Frames: 1, Found: 1, Errors: 1}, stats)
	assert.Contains(t, ops.String(), "bad jpeg")
}

func TestRunner_GivesUpOnPersistentErrors(t *testing.T) {
	noDelay(t)
	p, err := New(testConfig(true), nil)
	require.NoError(t, err)

	stats, err := NewRunner(p).Run(context.Background(), endlessSource{err: errors.New("unplugged")}, nil)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "consecutive errors"))
	assert.Equal(t, maxConsecutiveErrors, stats.Errors)
}

func TestRunner_StopsOnCancel(t *testing.T) {
	p, err := New(testConfig(true), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats, err := NewRunner(p).Run(ctx, &fakeSource{frames: []image.Image{createTargetFrame()}}, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, stats.Frames)
}

func TestListeners_FanOut(t *testing.T) {
	var calls []string
	l := Listeners(
		ListenerFunc(func(image.Image, Result) { calls = append(calls, "a") }),
		nil,
		ListenerFunc(func(image.Image, Result) { calls = append(calls, "b") }),
	)
	l.Frame(nil, Result{})
	assert.Equal(t, []string{"a", "b"}, calls)
}
