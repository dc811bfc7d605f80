package camera

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"

	vimg "github.com/ironsheep/target-vision/internal/imaging"
)

// FileDisplay writes every shown frame to dir as <name>-NNNNN.png.
type FileDisplay struct {
	dir string

	mu     sync.Mutex
	counts map[string]int
}

// NewFileDisplay creates dir if needed.
func NewFileDisplay(dir string) (*FileDisplay, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &FileDisplay{dir: dir, counts: make(map[string]int)}, nil
}

// Show saves img.
func (d *FileDisplay) Show(name string, img image.Image) error {
	d.mu.Lock()
	n := d.counts[name]
	d.counts[name] = n + 1
	d.mu.Unlock()

	return vimg.SaveFrame(filepath.Join(d.dir, fmt.Sprintf("%s-%05d.png", name, n)), img)
}

// Close is a no-op.
func (d *FileDisplay) Close() error {
	return nil
}
