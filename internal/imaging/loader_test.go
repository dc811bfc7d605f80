package imaging

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// createTestImage creates a simple test image file and returns its path.
// The caller is responsible for removing the file.
func createTestImage(t *testing.T, width, height int, c color.Color) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}

	tmpFile, err := os.CreateTemp("", "test-image-*.png")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer tmpFile.Close()

	if err := png.Encode(tmpFile, img); err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("failed to encode image: %v", err)
	}

	return tmpFile.Name()
}

// createTestImageWithPattern creates a test image with a specific pattern
func createTestImageWithPattern(t *testing.T, width, height int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	// Create a pattern: red top-left, green top-right, blue bottom-left, white bottom-right
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var c color.Color
			if x < width/2 && y < height/2 {
				c = color.RGBA{255, 0, 0, 255} // Red
			} else if x >= width/2 && y < height/2 {
				c = color.RGBA{0, 255, 0, 255} // Green
			} else if x < width/2 && y >= height/2 {
				c = color.RGBA{0, 0, 255, 255} // Blue
			} else {
				c = color.RGBA{255, 255, 255, 255} // White
			}
			img.Set(x, y, c)
		}
	}

	tmpFile, err := os.CreateTemp("", "test-pattern-*.png")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer tmpFile.Close()

	if err := png.Encode(tmpFile, img); err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("failed to encode image: %v", err)
	}

	return tmpFile.Name()
}

func TestNewImageCache(t *testing.T) {
	cache := NewImageCache()
	if cache == nil {
		t.Fatal("NewImageCache returned nil")
	}
	if cache.images == nil {
		t.Fatal("NewImageCache did not initialize images map")
	}
}

func TestImageCache_Load(t *testing.T) {
	cache := NewImageCache()
	imgPath := createTestImage(t, 100, 100, color.RGBA{255, 0, 0, 255})
	defer os.Remove(imgPath)

	// First load
	img1, err := cache.Load(imgPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if img1 == nil {
		t.Fatal("Load returned nil image")
	}

	bounds := img1.Bounds()
	if bounds.Dx() != 100 || bounds.Dy() != 100 {
		t.Errorf("unexpected dimensions: got %dx%d, want 100x100", bounds.Dx(), bounds.Dy())
	}

	// Second load should return cached image
	img2, err := cache.Load(imgPath)
	if err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	if img1 != img2 {
		t.Error("second Load did not return cached image")
	}
}

func TestImageCache_Load_NonExistent(t *testing.T) {
	cache := NewImageCache()
	_, err := cache.Load("/nonexistent/path/to/image.png")
	if err == nil {
		t.Error("Load should fail for non-existent file")
	}
}

func TestImageCache_Load_InvalidImage(t *testing.T) {
	cache := NewImageCache()

	// Create a file with invalid image data
	tmpFile, err := os.CreateTemp("", "invalid-image-*.png")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpFile.WriteString("not an image")
	tmpFile.Close()
	defer os.Remove(tmpFile.Name())

	_, err = cache.Load(tmpFile.Name())
	if err == nil {
		t.Error("Load should fail for invalid image data")
	}
}

func TestImageCache_ReloadsChangedFile(t *testing.T) {
	cache := NewImageCache()
	imgPath := createTestImage(t, 50, 50, color.RGBA{0, 255, 0, 255})
	defer os.Remove(imgPath)

	first, err := cache.Load(imgPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// re-capture to the same path with a different size
	replacement := createTestImage(t, 80, 40, color.RGBA{255, 0, 0, 255})
	defer os.Remove(replacement)
	data, err := os.ReadFile(replacement)
	if err != nil {
		t.Fatalf("read replacement: %v", err)
	}
	if err := os.WriteFile(imgPath, data, 0644); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	later := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(imgPath, later, later); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	second, err := cache.Load(imgPath)
	if err != nil {
		t.Fatalf("Load after overwrite failed: %v", err)
	}
	if first.Bounds().Dx() != 50 {
		t.Errorf("first frame: got width %d, want 50", first.Bounds().Dx())
	}
	if second.Bounds().Dx() != 80 || second.Bounds().Dy() != 40 {
		t.Errorf("stale frame returned: got %v, want 80x40", second.Bounds())
	}
}

func TestImageCache_DeletedFile(t *testing.T) {
	cache := NewImageCache()
	imgPath := createTestImage(t, 20, 20, color.RGBA{0, 0, 255, 255})

	if _, err := cache.Load(imgPath); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	os.Remove(imgPath)

	if _, err := cache.Load(imgPath); err == nil {
		t.Error("Load should fail once the file is gone")
	}
}

func TestImageCache_Evict(t *testing.T) {
	cache := NewImageCache()
	imgPath := createTestImage(t, 50, 50, color.RGBA{0, 0, 255, 255})
	defer os.Remove(imgPath)

	// Load image
	_, err := cache.Load(imgPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Evict
	cache.Evict(imgPath)

	// Verify image is evicted
	cache.mu.RLock()
	_, exists := cache.images[imgPath]
	cache.mu.RUnlock()

	if exists {
		t.Error("Evict did not remove image from cache")
	}
}

func TestImageCache_Evict_NonExistent(t *testing.T) {
	cache := NewImageCache()
	// Should not panic
	cache.Evict("/nonexistent/path")
}

func TestImageCache_ConcurrentAccess(t *testing.T) {
	cache := NewImageCache()
	imgPath := createTestImage(t, 50, 50, color.RGBA{128, 128, 128, 255})
	defer os.Remove(imgPath)

	var wg sync.WaitGroup
	errors := make(chan error, 100)

	// Concurrent loads
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.Load(imgPath)
			if err != nil {
				errors <- err
			}
		}()
	}

	wg.Wait()
	close(errors)

	for err := range errors {
		t.Errorf("concurrent Load error: %v", err)
	}
}

func TestLoadFrame(t *testing.T) {
	imgPath := createTestImageWithPattern(t, 64, 32)
	defer os.Remove(imgPath)

	frame, err := LoadFrame(imgPath)
	if err != nil {
		t.Fatalf("LoadFrame failed: %v", err)
	}

	bounds := frame.Bounds()
	if bounds.Dx() != 64 || bounds.Dy() != 32 {
		t.Fatalf("unexpected dimensions: got %dx%d, want 64x32", bounds.Dx(), bounds.Dy())
	}

	// Bottom-left quadrant of the pattern is blue
	r, g, b, _ := frame.At(bounds.Min.X+5, bounds.Min.Y+25).RGBA()
	if r>>8 != 0 || g>>8 != 0 || b>>8 != 255 {
		t.Errorf("pixel (5,25): got (%d,%d,%d), want (0,0,255)", r>>8, g>>8, b>>8)
	}
}

func TestLoadFrame_NonExistent(t *testing.T) {
	if _, err := LoadFrame("/nonexistent/path/to/frame.jpg"); err == nil {
		t.Error("LoadFrame should fail for non-existent file")
	}
}

func TestSaveFrame_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "frame.png")

	img := image.NewRGBA(image.Rect(0, 0, 20, 10))
	img.Set(3, 4, color.RGBA{0, 255, 0, 255})

	if err := SaveFrame(path, img); err != nil {
		t.Fatalf("SaveFrame failed: %v", err)
	}

	loaded, err := LoadFrame(path)
	if err != nil {
		t.Fatalf("LoadFrame failed: %v", err)
	}
	if loaded.Bounds().Dx() != 20 || loaded.Bounds().Dy() != 10 {
		t.Errorf("unexpected dimensions: got %v", loaded.Bounds())
	}
	_, g, _, _ := loaded.At(3, 4).RGBA()
	if g>>8 != 255 {
		t.Errorf("green channel at (3,4): got %d, want 255", g>>8)
	}
}

func TestSaveFrame_UnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.unknown")
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	if err := SaveFrame(path, img); err == nil {
		t.Error("SaveFrame should fail for an unsupported extension")
	}
}

func TestIsFrameFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"capture.jpg", true},
		{"capture.JPEG", true},
		{"/tmp/x/capture.png", true},
		{"capture.gif", true},
		{"notes.txt", false},
		{"capture", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := IsFrameFile(tt.path); got != tt.want {
				t.Errorf("IsFrameFile(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestIsEmpty(t *testing.T) {
	if !IsEmpty(nil) {
		t.Error("nil image should be empty")
	}
	if !IsEmpty(image.NewRGBA(image.Rectangle{})) {
		t.Error("zero-sized image should be empty")
	}
	if IsEmpty(image.NewRGBA(image.Rect(0, 0, 1, 1))) {
		t.Error("1x1 image should not be empty")
	}
}
