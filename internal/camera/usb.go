//go:build gocv

package camera

import (
	"context"
	"fmt"
	"image"
	"log"
	"strconv"
	"strings"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ironsheep/target-vision/internal/config"
)

// USBSource reads frames from a V4L2 camera through OpenCV.
type USBSource struct {
	name    string
	capture *gocv.VideoCapture
	mat     gocv.Mat
}

// OpenUSB opens the camera described by cam and applies its video mode and
// controls. Controls the driver rejects are logged and skipped.
func OpenUSB(cam config.CameraConfig) (Source, error) {
	capture, err := gocv.OpenVideoCapture(cam.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open camera %s on %s: %w", cam.Name, cam.Path, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("camera %s on %s did not open", cam.Name, cam.Path)
	}

	set := func(prop gocv.VideoCaptureProperties, label string, v float64) {
		capture.Set(prop, v)
		if got := capture.Get(prop); got != v {
			log.Printf("[camera] %s: %s requested %v, driver reports %v", cam.Name, label, v, got)
		}
	}

	if cam.PixelFormat != "" {
		set(gocv.VideoCaptureFOURCC, "pixel format", capture.ToCodec(fourcc(cam.PixelFormat)))
	}
	if cam.Width > 0 {
		set(gocv.VideoCaptureFrameWidth, "width", float64(cam.Width))
	}
	if cam.Height > 0 {
		set(gocv.VideoCaptureFrameHeight, "height", float64(cam.Height))
	}
	if cam.FPS > 0 {
		set(gocv.VideoCaptureFPS, "fps", float64(cam.FPS))
	}
	if cam.Brightness != nil {
		set(gocv.VideoCaptureBrightness, "brightness", float64(*cam.Brightness)/100)
	}

	// V4L2 auto exposure through OpenCV: 0.75 automatic, 0.25 manual
	switch cam.Exposure.Mode {
	case "auto":
		set(gocv.VideoCaptureAutoExposure, "auto exposure", 0.75)
	case "hold":
		set(gocv.VideoCaptureAutoExposure, "auto exposure", 0.25)
	case "manual":
		set(gocv.VideoCaptureAutoExposure, "auto exposure", 0.25)
		set(gocv.VideoCaptureExposure, "exposure", float64(cam.Exposure.Value))
	}

	switch cam.WhiteBalance.Mode {
	case "auto":
		set(gocv.VideoCaptureAutoWB, "auto white balance", 1)
	case "hold":
		set(gocv.VideoCaptureAutoWB, "auto white balance", 0)
	case "manual":
		set(gocv.VideoCaptureAutoWB, "auto white balance", 0)
		set(gocv.VideoCaptureWBTemperature, "white balance", float64(cam.WhiteBalance.Value))
	}

	for _, p := range cam.Properties {
		if prop, ok := namedProperties[strings.ToLower(p.Name)]; ok {
			if v, err := strconv.ParseFloat(string(p.Value), 64); err == nil {
				set(prop, p.Name, v)
				continue
			}
		}
		log.Printf("[camera] %s: ignoring property %s", cam.Name, p.Name)
	}

	log.Printf("[camera] opened %s on %s", cam.Name, cam.Path)
	return &USBSource{name: cam.Name, capture: capture, mat: gocv.NewMat()}, nil
}

var namedProperties = map[string]gocv.VideoCaptureProperties{
	"brightness": gocv.VideoCaptureBrightness,
	"contrast":   gocv.VideoCaptureContrast,
	"saturation": gocv.VideoCaptureSaturation,
	"hue":        gocv.VideoCaptureHue,
	"gain":       gocv.VideoCaptureGain,
	"sharpness":  gocv.VideoCaptureSharpness,
	"gamma":      gocv.VideoCaptureGamma,
	"focus":      gocv.VideoCaptureFocus,
}

// fourcc maps configuration pixel format names onto OpenCV codes.
func fourcc(format string) string {
	switch strings.ToUpper(format) {
	case "MJPEG":
		return "MJPG"
	case "YUYV":
		return "YUYV"
	case "RGB565":
		return "RGBP"
	}
	return strings.ToUpper(format)
}

// Name returns the configured camera name.
func (s *USBSource) Name() string {
	return s.name
}

// Read grabs the next frame.
func (s *USBSource) Read(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ok := s.capture.Read(&s.mat); !ok {
		return nil, ErrNoFrames
	}
	if s.mat.Empty() {
		return nil, fmt.Errorf("camera %s returned an empty frame", s.name)
	}
	img, err := s.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("failed to convert frame: %w", err)
	}
	return img, nil
}

// Close releases the camera.
func (s *USBSource) Close() error {
	s.mat.Close()
	return s.capture.Close()
}

// WindowDisplay shows frames in OpenCV windows. Show must be called from the
// goroutine that owns the UI thread.
type WindowDisplay struct {
	mu      sync.Mutex
	windows map[string]*gocv.Window
}

// NewWindowDisplay creates an empty window set; windows open on first Show.
func NewWindowDisplay() (Display, error) {
	return &WindowDisplay{windows: make(map[string]*gocv.Window)}, nil
}

// Show draws img in the window called name.
func (d *WindowDisplay) Show(name string, img image.Image) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	w, ok := d.windows[name]
	if !ok {
		w = gocv.NewWindow(name)
		d.windows[name] = w
	}
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return fmt.Errorf("failed to convert frame for display: %w", err)
	}
	defer mat.Close()
	w.IMShow(mat)
	w.WaitKey(1)
	return nil
}

// Close closes every window.
func (d *WindowDisplay) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for name, w := range d.windows {
		w.Close()
		delete(d.windows, name)
	}
	return nil
}
