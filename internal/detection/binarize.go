package detection

import (
	"fmt"
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"

	vimg "github.com/ironsheep/target-vision/internal/imaging"
)

// closingRadius gives the 5x5 footprint used by the optional closing pass.
const closingRadius = 2

// Thresholds holds the numeric filters applied by Binarize and Extract.
//
// HSV bounds use the OpenCV 8-bit scale (H 0-180, S and V 0-255) and are
// inclusive. Angle windows are in degrees and inclusive at both ends.
type Thresholds struct {
	HMin, HMax uint8
	SMin, SMax uint8
	VMin, VMax uint8

	// AreaMin is the smallest contour area (square pixels) kept.
	AreaMin float64

	// TNegLow..TNegUp and TPosLow..TPosUp are the two accepted tilt windows.
	TNegLow, TNegUp float64
	TPosLow, TPosUp float64

	// RatioMin..RatioMax bounds height/width of the fitted rectangle.
	RatioMin, RatioMax float64
}

// Validate rejects filters that could never match or would match by
// accident: inverted HSV bounds, a negative area, inverted tilt windows or a
// ratio window that is inverted or not positive.
func (t Thresholds) Validate() error {
	bounds := []struct {
		name   string
		lo, hi uint8
	}{
		{"h", t.HMin, t.HMax},
		{"s", t.SMin, t.SMax},
		{"v", t.VMin, t.VMax},
	}
	for _, b := range bounds {
		if b.lo > b.hi {
			return fmt.Errorf("%s_min (%d) must not exceed %s_max (%d)", b.name, b.lo, b.name, b.hi)
		}
	}
	if t.AreaMin < 0 {
		return fmt.Errorf("area_min must be non-negative, got %f", t.AreaMin)
	}
	if t.TPosLow > t.TPosUp {
		return fmt.Errorf("t_pos_low (%f) must not exceed t_pos_up (%f)", t.TPosLow, t.TPosUp)
	}
	if t.TNegLow > t.TNegUp {
		return fmt.Errorf("t_neg_low (%f) must not exceed t_neg_up (%f)", t.TNegLow, t.TNegUp)
	}
	if t.RatioMin <= 0 {
		return fmt.Errorf("ratio_min must be positive, got %f", t.RatioMin)
	}
	if t.RatioMin > t.RatioMax {
		return fmt.Errorf("ratio_min (%f) must not exceed ratio_max (%f)", t.RatioMin, t.RatioMax)
	}
	return nil
}

// InRange reports whether c lies inside the HSV bounds.
func (t Thresholds) InRange(c vimg.HSV) bool {
	return c.H >= t.HMin && c.H <= t.HMax &&
		c.S >= t.SMin && c.S <= t.SMax &&
		c.V >= t.VMin && c.V <= t.VMax
}

// AcceptAngle reports whether angle falls in either tilt window.
func (t Thresholds) AcceptAngle(angle float64) bool {
	return (angle >= t.TNegLow && angle <= t.TNegUp) ||
		(angle >= t.TPosLow && angle <= t.TPosUp)
}

// AcceptRatio reports whether height/width is inside the ratio window. A zero
// width never passes.
func (t Thresholds) AcceptRatio(width, height float64) bool {
	if width <= 0 {
		return false
	}
	r := height / width
	return r >= t.RatioMin && r <= t.RatioMax
}

// Binarize thresholds frame in HSV space and returns the binary mask.
//
// Mask pixels are 255 when the source pixel is inside the HSV bounds and 0
// otherwise. dst is reused when it already has the frame's size, which lets
// a pipeline keep one mask buffer for its whole run; otherwise a new mask is
// allocated. The mask origin is always (0,0).
//
// When closing is set, one dilate-then-erode pass with a 5x5 footprint is
// applied to merge speckle noise.
//
// An empty frame yields a nil mask.
func Binarize(frame image.Image, th Thresholds, closing bool, dst *image.Gray) *image.Gray {
	if vimg.IsEmpty(frame) {
		return nil
	}

	b := frame.Bounds()
	w, h := b.Dx(), b.Dy()
	if dst == nil || dst.Bounds() != image.Rect(0, 0, w, h) {
		dst = image.NewGray(image.Rect(0, 0, w, h))
	}

	src, ok := frame.(*image.NRGBA)
	if !ok || src.Bounds().Min != (image.Point{}) {
		src = imaging.Clone(frame)
	}

	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w*4]
		out := dst.Pix[y*dst.Stride : y*dst.Stride+w]
		for x := 0; x < w; x++ {
			p := row[x*4 : x*4+3]
			if th.InRange(vimg.ToHSV(p[0], p[1], p[2])) {
				out[x] = 255
			} else {
				out[x] = 0
			}
		}
	}

	if closing {
		closeMask(dst)
	}
	return dst
}

// closeMask applies a morphological closing in place.
func closeMask(mask *image.Gray) {
	closed := effect.Erode(effect.Dilate(mask, closingRadius), closingRadius)

	b := mask.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, _, _, _ := closed.At(x-b.Min.X+closed.Bounds().Min.X, y-b.Min.Y+closed.Bounds().Min.Y).RGBA()
			if r>>8 >= 128 {
				mask.SetGray(x, y, color.Gray{Y: 255})
			} else {
				mask.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}
}
