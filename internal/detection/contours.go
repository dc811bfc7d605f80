package detection

import (
	"image"
	"math"
)

// Contour is one traced border of a mask region.
type Contour struct {
	// Points are border pixel centres in tracing order (clockwise on screen).
	Points []image.Point

	// Hole is set for the border of a background region enclosed by
	// foreground.
	Hole bool
}

// Area returns the polygon area enclosed by the contour (shoelace formula).
func (c Contour) Area() float64 {
	return polygonArea(c.Points)
}

// neighbours lists the 8 directions clockwise on screen, starting east.
var neighbours = [8]image.Point{
	{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1},
}

const west = 4

// FindContours returns every contour of mask in list mode.
//
// A pixel is foreground when its value is non-zero. Foreground regions are
// 8-connected and background holes 4-connected, so a diagonal gap in a ring
// does not open the hole. Outer borders come first, in raster order of their
// topmost-leftmost pixel, followed by holes in the same order.
func FindContours(mask *image.Gray) []Contour {
	if mask == nil || mask.Bounds().Empty() {
		return nil
	}
	b := mask.Bounds()
	width, height := b.Dx(), b.Dy()

	fg := make([][]bool, height)
	for y := 0; y < height; y++ {
		fg[y] = make([]bool, width)
		row := mask.Pix[y*mask.Stride : y*mask.Stride+width]
		for x := 0; x < width; x++ {
			fg[y][x] = row[x] != 0
		}
	}

	contours := make([]Contour, 0)

	// Outer borders of foreground components.
	labels := newLabels(width, height)
	next := 1
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if !fg[y][x] || labels[y][x] != 0 {
				continue
			}
			label := next
			next++
			floodFill(fg, labels, x, y, width, height, label, true, true)
			in := func(px, py int) bool {
				return px >= 0 && py >= 0 && px < width && py < height && labels[py][px] == label
			}
			contours = append(contours, Contour{Points: traceBorder(image.Point{X: x, Y: y}, in, width*height)})
		}
	}

	// Background components that never reach the image edge are holes.
	holeLabels := newLabels(width, height)
	next = 1
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if fg[y][x] || holeLabels[y][x] != 0 {
				continue
			}
			label := next
			next++
			if !floodFill(fg, holeLabels, x, y, width, height, label, false, false) {
				continue
			}
			in := func(px, py int) bool {
				return px >= 0 && py >= 0 && px < width && py < height && holeLabels[py][px] == label
			}
			contours = append(contours, Contour{
				Points: traceBorder(image.Point{X: x, Y: y}, in, width*height),
				Hole:   true,
			})
		}
	}

	// Shift to the mask's own coordinates.
	if b.Min != (image.Point{}) {
		for _, c := range contours {
			for i := range c.Points {
				c.Points[i] = c.Points[i].Add(b.Min)
			}
		}
	}
	return contours
}

func newLabels(width, height int) [][]int {
	labels := make([][]int, height)
	for y := range labels {
		labels[y] = make([]int, width)
	}
	return labels
}

// floodFill labels the region of pixels whose foreground flag equals want,
// starting at (startX, startY).
//
// Uses a stack-based approach (not recursive) to avoid stack overflow on
// large regions. eight selects 8-connectivity instead of 4-connectivity. The
// return value reports whether the region stays clear of the image edge.
func floodFill(fg [][]bool, labels [][]int, startX, startY, width, height, label int, want, eight bool) bool {
	enclosed := true
	stack := []image.Point{{X: startX, Y: startY}}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.X < 0 || p.X >= width || p.Y < 0 || p.Y >= height {
			continue
		}
		if labels[p.Y][p.X] != 0 || fg[p.Y][p.X] != want {
			continue
		}

		labels[p.Y][p.X] = label
		if p.X == 0 || p.Y == 0 || p.X == width-1 || p.Y == height-1 {
			enclosed = false
		}

		for d, n := range neighbours {
			if !eight && d%2 == 1 {
				continue
			}
			stack = append(stack, p.Add(n))
		}
	}
	return enclosed
}

// traceBorder follows the border of the region containing start using Moore
// neighbour tracing. start must be the region's first pixel in raster order,
// so its west neighbour is known to be outside.
//
// Tracing stops when the walk is about to leave start in the same direction
// as its first step, which also handles regions that pass through start more
// than once. limit bounds the number of steps.
func traceBorder(start image.Point, in func(x, y int) bool, limit int) []image.Point {
	points := []image.Point{start}
	cur := start
	back := west
	first := -1

	for steps := 0; steps <= 4*limit+8; steps++ {
		dir := -1
		for k := 1; k <= 8; k++ {
			d := (back + k) % 8
			n := cur.Add(neighbours[d])
			if in(n.X, n.Y) {
				dir = d
				break
			}
		}
		if dir < 0 {
			// isolated pixel
			return points
		}
		if cur == start {
			if dir == first {
				return points
			}
			if first < 0 {
				first = dir
			}
		}

		// The pixel examined just before dir is outside the region and
		// becomes the backtrack point for the next step.
		outside := cur.Add(neighbours[(dir+7)%8])
		cur = cur.Add(neighbours[dir])
		back = direction(outside.Sub(cur))

		if cur == start {
			continue
		}
		points = append(points, cur)
	}
	return points
}

// direction returns the index in neighbours of the unit step d.
func direction(d image.Point) int {
	for i, n := range neighbours {
		if n == d {
			return i
		}
	}
	return west
}

// polygonArea returns the absolute shoelace area of a closed polygon.
func polygonArea(pts []image.Point) float64 {
	if len(pts) < 3 {
		return 0
	}
	sum := 0
	for i, p := range pts {
		q := pts[(i+1)%len(pts)]
		sum += p.X*q.Y - q.X*p.Y
	}
	return math.Abs(float64(sum)) / 2
}
