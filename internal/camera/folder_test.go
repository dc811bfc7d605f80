package camera

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vimg "github.com/ironsheep/target-vision/internal/imaging"
)

// writeFrame saves a solid w x h PNG to dir/name
func writeFrame(t *testing.T, dir, name string, w, h int, c color.Color) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	path := filepath.Join(dir, name)
	require.NoError(t, vimg.SaveFrame(path, img))
	return path
}

func TestFolderSource_ReadsInNameOrder(t *testing.T) {
	dir := t.TempDir()
	writeFrame(t, dir, "b.png", 4, 2, color.White)
	writeFrame(t, dir, "a.png", 2, 2, color.White)
	writeFrame(t, dir, "c.png", 6, 2, color.White)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.png"), 0755))

	src, err := NewFolderSource(dir)
	require.NoError(t, err)
	defer src.Close()
	assert.Equal(t, 3, src.Len())
	assert.Equal(t, dir, src.Name())

	ctx := context.Background()
	for _, want := range []int{2, 4, 6} {
		img, err := src.Read(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, img.Bounds().Dx())
	}

	_, err = src.Read(ctx)
	assert.ErrorIs(t, err, ErrNoFrames)
}

func TestFolderSource_SingleFile(t *testing.T) {
	path := writeFrame(t, t.TempDir(), "frame.png", 8, 5, color.Black)

	src, err := NewFolderSource(path)
	require.NoError(t, err)

	img, err := src.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 8, 5), img.Bounds())

	_, err = src.Read(context.Background())
	assert.ErrorIs(t, err, ErrNoFrames)

	assert.Error(t, src.Watch(), "a single file cannot be watched")
}

func TestFolderSource_Missing(t *testing.T) {
	_, err := NewFolderSource(filepath.Join(t.TempDir(), "nope"))
	assert.ErrorContains(t, err, "failed to open image source")
}

func TestFolderSource_BadFileIsSkipped(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.png"), []byte("not a png"), 0644))
	writeFrame(t, dir, "b.png", 3, 3, color.White)

	src, err := NewFolderSource(dir)
	require.NoError(t, err)

	_, err = src.Read(context.Background())
	assert.Error(t, err)

	img, err := src.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, img.Bounds().Dx())
}

func TestFolderSource_WatchPicksUpNewFiles(t *testing.T) {
	dir := t.TempDir()
	writeFrame(t, dir, "first.png", 2, 2, color.White)

	src, err := NewFolderSource(dir)
	require.NoError(t, err)
	require.NoError(t, src.Watch())
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = src.Read(ctx)
	require.NoError(t, err)

	// write elsewhere and move in so the watcher never sees a partial file
	staging := t.TempDir()
	tmp := writeFrame(t, staging, "second.png", 7, 3, color.White)
	go func() {
		time.Sleep(50 * time.Millisecond)
		os.Rename(tmp, filepath.Join(dir, "second.png"))
	}()

	img, err := src.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, img.Bounds().Dx())
}

func TestFolderSource_WatchHonoursContext(t *testing.T) {
	src, err := NewFolderSource(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, src.Watch())
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = src.Read(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestFileDisplay(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	d, err := NewFileDisplay(dir)
	require.NoError(t, err)

	img := image.NewGray(image.Rect(0, 0, 4, 4))
	require.NoError(t, d.Show("Proc", img))
	require.NoError(t, d.Show("Proc", img))
	require.NoError(t, d.Show("Bin", img))
	require.NoError(t, d.Close())

	for _, name := range []string{"Proc-00000.png", "Proc-00001.png", "Bin-00000.png"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
}
