package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strconv"

	"github.com/disintegration/imaging"
)

// OutlineColor is the colour contour outlines and pair centres are drawn in.
var OutlineColor = color.NRGBA{R: 255, G: 0, B: 0, A: 255}

const (
	outlineThickness = 2
	markerRadius     = 3
)

// Label is a short text drawn next to a point of interest, such as the
// angular offset of a detected target.
type Label struct {
	At   image.Point
	Text string
}

// Annotation describes everything drawn on the debug copy of one frame.
type Annotation struct {
	// Outlines are closed polygons, typically the four corners of the rotated
	// rectangle fitted to a paired candidate.
	Outlines [][]image.Point

	// Markers are filled dots, typically pair centres.
	Markers []image.Point

	// Labels are rendered with a small built-in digit font.
	Labels []Label
}

// Annotate draws a onto a copy of frame and returns the copy.
//
// The input frame is never modified, so callers may keep using it (or hand it
// back to the frame source) after annotation. The result always has the same
// dimensions as the input, with its origin moved to (0,0).
func Annotate(frame image.Image, a Annotation, c color.Color) *image.NRGBA {
	out := imaging.Clone(frame)
	offset := frame.Bounds().Min

	for _, outline := range a.Outlines {
		DrawPolygon(out, shift(outline, offset), c, outlineThickness)
	}
	for _, m := range a.Markers {
		FillCircle(out, m.Sub(offset), markerRadius, c)
	}
	for _, l := range a.Labels {
		drawLabel(out, l.At.X-offset.X, l.At.Y-offset.Y, l.Text, color.RGBA{255, 255, 255, 255}, color.RGBA{0, 0, 0, 180})
	}
	return out
}

// DrawPolygon draws the closed polygon pts with lines of the given thickness.
func DrawPolygon(img draw.Image, pts []image.Point, c color.Color, thickness int) {
	if len(pts) == 0 {
		return
	}
	for i := range pts {
		DrawLine(img, pts[i], pts[(i+1)%len(pts)], c, thickness)
	}
}

// DrawLine draws a straight line using Bresenham's algorithm with a square
// brush of the given thickness. Pixels outside the image are clipped.
func DrawLine(img draw.Image, p0, p1 image.Point, c color.Color, thickness int) {
	if thickness < 1 {
		thickness = 1
	}
	lo := -(thickness / 2)
	hi := lo + thickness

	dx := abs(p1.X - p0.X)
	dy := -abs(p1.Y - p0.Y)
	sx, sy := 1, 1
	if p0.X > p1.X {
		sx = -1
	}
	if p0.Y > p1.Y {
		sy = -1
	}
	e := dx + dy
	x, y := p0.X, p0.Y

	for {
		for by := lo; by < hi; by++ {
			for bx := lo; bx < hi; bx++ {
				setClipped(img, x+bx, y+by, c)
			}
		}
		if x == p1.X && y == p1.Y {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x += sx
		}
		if e2 <= dx {
			e += dx
			y += sy
		}
	}
}

// FillCircle draws a filled disc of the given radius around centre.
func FillCircle(img draw.Image, centre image.Point, radius int, c color.Color) {
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy <= radius*radius {
				setClipped(img, centre.X+dx, centre.Y+dy, c)
			}
		}
	}
}

// FormatDegrees renders an angle for an on-frame label, e.g. "-12.5".
func FormatDegrees(deg float64) string {
	return strconv.FormatFloat(deg, 'f', 1, 64)
}

// ParseHexColor parses a hex color string like "#FF0000" or "#FF000080"
func ParseHexColor(hex string) (color.RGBA, error) {
	if len(hex) == 0 {
		return color.RGBA{}, fmt.Errorf("empty color string")
	}
	if hex[0] == '#' {
		hex = hex[1:]
	}

	var r, g, b, a uint8 = 0, 0, 0, 255

	switch len(hex) {
	case 6:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.RGBA{}, err
		}
		r = uint8(val >> 16)
		g = uint8(val >> 8)
		b = uint8(val)
	case 8:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.RGBA{}, err
		}
		r = uint8(val >> 24)
		g = uint8(val >> 16)
		b = uint8(val >> 8)
		a = uint8(val)
	default:
		return color.RGBA{}, fmt.Errorf("invalid hex color length")
	}

	return color.RGBA{R: r, G: g, B: b, A: a}, nil
}

// drawLabel draws a simple text label at the given position using a 3x5 pixel font.
func drawLabel(img draw.Image, x, y int, text string, fg, bg color.RGBA) {
	glyphs := map[rune][]string{
		'0': {"111", "101", "101", "101", "111"},
		'1': {"010", "110", "010", "010", "111"},
		'2': {"111", "001", "111", "100", "111"},
		'3': {"111", "001", "111", "001", "111"},
		'4': {"101", "101", "111", "001", "001"},
		'5': {"111", "100", "111", "001", "111"},
		'6': {"111", "100", "111", "101", "111"},
		'7': {"111", "001", "001", "001", "001"},
		'8': {"111", "101", "111", "101", "111"},
		'9': {"111", "101", "111", "001", "111"},
		',': {"000", "000", "000", "010", "010"},
		'.': {"000", "000", "000", "000", "010"},
		'-': {"000", "000", "111", "000", "000"},
	}

	charWidth := 4
	labelWidth := len(text) * charWidth
	labelHeight := 7

	for dy := -1; dy < labelHeight; dy++ {
		for dx := -1; dx < labelWidth; dx++ {
			setClipped(img, x+dx, y+dy, bg)
		}
	}

	cx := x
	for _, ch := range text {
		glyph, ok := glyphs[ch]
		if !ok {
			cx += charWidth
			continue
		}
		for row, line := range glyph {
			for col, pixel := range line {
				if pixel == '1' {
					setClipped(img, cx+col, y+row, fg)
				}
			}
		}
		cx += charWidth
	}
}

func setClipped(img draw.Image, x, y int, c color.Color) {
	if (image.Point{X: x, Y: y}).In(img.Bounds()) {
		img.Set(x, y, c)
	}
}

func shift(pts []image.Point, by image.Point) []image.Point {
	out := make([]image.Point, len(pts))
	for i, p := range pts {
		out[i] = p.Sub(by)
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
