package camera

import (
	"context"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/fsnotify/fsnotify"

	vimg "github.com/ironsheep/target-vision/internal/imaging"
)

// FolderSource reads frames from a single image file or from every image
// in a directory, in name order.
type FolderSource struct {
	path    string
	dir     string
	files   []string
	seen    map[string]bool
	next    int
	watcher *fsnotify.Watcher
}

// NewFolderSource lists the frames at path.
func NewFolderSource(path string) (*FolderSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image source: %w", err)
	}

	s := &FolderSource{path: path, seen: make(map[string]bool)}
	if !info.IsDir() {
		s.files = []string{path}
		s.seen[path] = true
		return s, nil
	}

	s.dir = path
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", path, err)
	}
	for _, e := range entries {
		if e.IsDir() || !vimg.IsFrameFile(e.Name()) {
			continue
		}
		full := filepath.Join(path, e.Name())
		s.files = append(s.files, full)
		s.seen[full] = true
	}
	sort.Strings(s.files)
	return s, nil
}

// Watch makes the source wait for new files once the existing ones are
// consumed. It only applies to directory sources.
func (s *FolderSource) Watch() error {
	if s.dir == "" {
		return fmt.Errorf("cannot watch %s: not a directory", s.path)
	}
	if s.watcher != nil {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", s.dir, err)
	}
	s.watcher = watcher
	return nil
}

// Name returns the path the source was opened with.
func (s *FolderSource) Name() string {
	return s.path
}

// Len returns the number of frames known so far.
func (s *FolderSource) Len() int {
	return len(s.files)
}

// Read returns the next frame. A file that fails to decode is skipped and
// its error returned; the following Read moves on to the next file.
func (s *FolderSource) Read(ctx context.Context) (image.Image, error) {
	for s.next >= len(s.files) {
		if s.watcher == nil {
			return nil, ErrNoFrames
		}
		if err := s.waitForFile(ctx); err != nil {
			return nil, err
		}
	}

	path := s.files[s.next]
	s.next++
	return vimg.LoadFrame(path)
}

func (s *FolderSource) waitForFile(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-s.watcher.Events:
			if !ok {
				return ErrNoFrames
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if s.seen[event.Name] || !vimg.IsFrameFile(event.Name) {
				continue
			}
			if info, err := os.Stat(event.Name); err != nil || info.IsDir() {
				continue
			}
			s.seen[event.Name] = true
			s.files = append(s.files, event.Name)
			return nil
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return ErrNoFrames
			}
			log.Printf("[camera] watch error on %s: %v", s.dir, err)
		}
	}
}

// Close stops watching.
func (s *FolderSource) Close() error {
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}
