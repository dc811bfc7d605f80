package imaging

import (
	"fmt"
	"image"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// HSV represents a colour on the 8-bit OpenCV HSV scale.
//
// The hue is halved so that it fits a byte:
//   - H: 0-180 (0=red, 60=green, 120=blue)
//   - S: 0-255 (0=gray, 255=vivid)
//   - V: 0-255 (0=black, 255=full brightness)
type HSV struct {
	H uint8 `json:"h"`
	S uint8 `json:"s"`
	V uint8 `json:"v"`
}

// RGBColor represents an RGB color with 8-bit components.
type RGBColor struct {
	R uint8 `json:"r"` // Red component (0-255)
	G uint8 `json:"g"` // Green component (0-255)
	B uint8 `json:"b"` // Blue component (0-255)
}

// ColorSample contains the colour of one pixel in the representations used
// when tuning thresholds.
type ColorSample struct {
	X   int      `json:"x"`
	Y   int      `json:"y"`
	Hex string   `json:"hex"` // Hex format "#RRGGBB" (no alpha)
	RGB RGBColor `json:"rgb"`
	HSV HSV      `json:"hsv"`
}

// ToHSV converts 8-bit RGB components to the OpenCV HSV scale.
//
// The conversion itself is done by go-colorful (H in [0,360), S and V in
// [0,1]); the result is then rescaled and rounded.
func ToHSV(r, g, b uint8) HSV {
	h, s, v := colorful.Color{
		R: float64(r) / 255.0,
		G: float64(g) / 255.0,
		B: float64(b) / 255.0,
	}.Hsv()

	return HSV{
		H: scaleChannel(h/2, 180),
		S: scaleChannel(s*255, 255),
		V: scaleChannel(v*255, 255),
	}
}

// SampleHSV extracts the colour at a specific pixel coordinate.
//
// Parameters:
//   - img: The source frame to sample from.
//   - x: X coordinate (0-based, 0 = leftmost pixel).
//   - y: Y coordinate (0-based, 0 = topmost pixel).
//
// Returns:
//   - *ColorSample: The colour at (x, y) as hex, RGB and OpenCV-scale HSV.
//   - error: Non-nil if coordinates are outside the image bounds.
func SampleHSV(img image.Image, x, y int) (*ColorSample, error) {
	bounds := img.Bounds()
	if x < bounds.Min.X || x >= bounds.Max.X || y < bounds.Min.Y || y >= bounds.Max.Y {
		return nil, fmt.Errorf("coordinates (%d,%d) outside image bounds", x, y)
	}

	r, g, b, _ := img.At(x, y).RGBA()
	// Convert from 16-bit to 8-bit
	r8, g8, b8 := uint8(r>>8), uint8(g>>8), uint8(b>>8)

	return &ColorSample{
		X:   x,
		Y:   y,
		Hex: fmt.Sprintf("#%02X%02X%02X", r8, g8, b8),
		RGB: RGBColor{R: r8, G: g8, B: b8},
		HSV: ToHSV(r8, g8, b8),
	}, nil
}

func scaleChannel(v, max float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > max {
		return uint8(max)
	}
	return uint8(v)
}
