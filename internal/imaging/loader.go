package imaging

import (
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
)

// ImageCache keeps decoded frames keyed by path for the offline tuning
// server, so repeated threshold experiments on one capture decode it once.
//
// Every Load stats the file. When its modification time or size differs from
// the cached copy the frame is decoded again, so re-capturing to the same
// path during a tuning session is picked up. Evict drops an entry outright.
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]cachedFrame
}

type cachedFrame struct {
	img     image.Image
	modTime time.Time
	size    int64
}

// NewImageCache creates an empty cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images: make(map[string]cachedFrame),
	}
}

// Load returns the frame at path, decoding it when it is not cached or the
// file changed since it was cached. Paths are used verbatim as keys.
func (c *ImageCache) Load(path string) (image.Image, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load frame %s: %w", path, err)
	}

	c.mu.RLock()
	entry, ok := c.images[path]
	c.mu.RUnlock()
	if ok && entry.modTime.Equal(info.ModTime()) && entry.size == info.Size() {
		return entry.img, nil
	}

	img, err := LoadFrame(path)
	if err != nil {
		c.Evict(path)
		return nil, err
	}

	c.mu.Lock()
	c.images[path] = cachedFrame{img: img, modTime: info.ModTime(), size: info.Size()}
	c.mu.Unlock()
	return img, nil
}

// Evict removes path from the cache. The next Load reads the file again.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	c.mu.Unlock()
}

// LoadFrame decodes a single frame from disk.
//
// Camera stills saved by phones and some USB cameras carry an EXIF orientation
// tag; it is applied so the frame is analysed the way it is displayed.
func LoadFrame(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to load frame %s: %w", path, err)
	}
	return img, nil
}

// SaveFrame encodes img to path. The format is chosen from the file extension.
func SaveFrame(path string, img image.Image) error {
	if err := imaging.Save(img, path, imaging.JPEGQuality(90)); err != nil {
		return fmt.Errorf("failed to save frame %s: %w", path, err)
	}
	return nil
}

// IsFrameFile reports whether path has an extension LoadFrame can decode.
func IsFrameFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".png", ".gif":
		return true
	}
	return false
}

// IsEmpty reports whether img is nil or has no pixels.
func IsEmpty(img image.Image) bool {
	return img == nil || img.Bounds().Empty()
}
