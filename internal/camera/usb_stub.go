//go:build !gocv

package camera

import "github.com/ironsheep/target-vision/internal/config"

// OpenUSB is unavailable without OpenCV.
func OpenUSB(cam config.CameraConfig) (Source, error) {
	return nil, ErrUnsupported
}

// NewWindowDisplay is unavailable without OpenCV.
func NewWindowDisplay() (Display, error) {
	return nil, ErrUnsupported
}
