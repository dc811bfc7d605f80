package detection

import (
	"image"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r2"
)

// RotatedRect is a rectangle of arbitrary orientation.
//
// Angle is in degrees in [-90, 0) and is the direction of the edge Width is
// measured along; Height is measured along the perpendicular edge.
type RotatedRect struct {
	Center r2.Vec
	Width  float64
	Height float64
	Angle  float64
}

// Area returns Width*Height.
func (r RotatedRect) Area() float64 {
	return r.Width * r.Height
}

// Corners returns the four corners in order around the rectangle.
func (r RotatedRect) Corners() [4]r2.Vec {
	rad := r.Angle * math.Pi / 180
	u := r2.Vec{X: math.Cos(rad), Y: math.Sin(rad)}
	v := r2.Vec{X: -u.Y, Y: u.X}
	hu := r2.Scale(r.Width/2, u)
	hv := r2.Scale(r.Height/2, v)
	return [4]r2.Vec{
		r2.Sub(r2.Sub(r.Center, hu), hv),
		r2.Sub(r2.Add(r.Center, hu), hv),
		r2.Add(r2.Add(r.Center, hu), hv),
		r2.Add(r2.Sub(r.Center, hu), hv),
	}
}

// MinAreaRect fits the minimum-area rectangle enclosing pts.
//
// The convex hull is computed first, then every hull edge is tried as a
// rectangle side (rotating calipers). A single point gives a zero-sized
// rectangle; collinear points give a zero height.
func MinAreaRect(pts []image.Point) RotatedRect {
	hull := convexHull(pts)
	switch len(hull) {
	case 0:
		return RotatedRect{Angle: -90}
	case 1:
		return RotatedRect{Center: hull[0], Angle: -90}
	}

	best := math.Inf(1)
	var bestU, bestV r2.Vec
	var minU, maxU, minV, maxV float64

	for i := range hull {
		edge := r2.Sub(hull[(i+1)%len(hull)], hull[i])
		if r2.Norm(edge) == 0 {
			continue
		}
		u := r2.Unit(edge)
		v := r2.Vec{X: -u.Y, Y: u.X}

		lu, hu := math.Inf(1), math.Inf(-1)
		lv, hv := math.Inf(1), math.Inf(-1)
		for _, p := range hull {
			pu, pv := r2.Dot(p, u), r2.Dot(p, v)
			lu, hu = math.Min(lu, pu), math.Max(hu, pu)
			lv, hv = math.Min(lv, pv), math.Max(hv, pv)
		}

		if area := (hu - lu) * (hv - lv); area < best-1e-9 {
			best = area
			bestU, bestV = u, v
			minU, maxU, minV, maxV = lu, hu, lv, hv
		}
	}

	center := r2.Add(
		r2.Scale((minU+maxU)/2, bestU),
		r2.Scale((minV+maxV)/2, bestV),
	)
	extU, extV := maxU-minU, maxV-minV

	// Exactly one of the four side directions lies in [-90, 0).
	for _, s := range []struct {
		dir    r2.Vec
		width  float64
		height float64
	}{
		{bestU, extU, extV},
		{bestV, extV, extU},
		{r2.Scale(-1, bestU), extU, extV},
		{r2.Scale(-1, bestV), extV, extU},
	} {
		a := math.Atan2(s.dir.Y, s.dir.X) * 180 / math.Pi
		if a >= -90 && a < 0 {
			return RotatedRect{Center: center, Width: s.width, Height: s.height, Angle: a}
		}
	}

	// Floating point left every direction a hair outside the interval; the
	// edge closest to -90 is upright.
	return RotatedRect{Center: center, Width: extV, Height: extU, Angle: -90}
}

// convexHull returns the convex hull of pts in counter-clockwise order
// (Andrew's monotone chain). Collinear points are dropped.
func convexHull(pts []image.Point) []r2.Vec {
	if len(pts) == 0 {
		return nil
	}
	ps := make([]image.Point, len(pts))
	copy(ps, pts)
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].X != ps[j].X {
			return ps[i].X < ps[j].X
		}
		return ps[i].Y < ps[j].Y
	})

	uniq := ps[:1]
	for _, p := range ps[1:] {
		if p != uniq[len(uniq)-1] {
			uniq = append(uniq, p)
		}
	}
	if len(uniq) < 3 {
		out := make([]r2.Vec, len(uniq))
		for i, p := range uniq {
			out[i] = toVec(p)
		}
		return out
	}

	cross := func(o, a, b image.Point) int {
		return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
	}

	hull := make([]image.Point, 0, 2*len(uniq))
	for _, p := range uniq {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(uniq) - 2; i >= 0; i-- {
		p := uniq[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	hull = hull[:len(hull)-1]

	out := make([]r2.Vec, len(hull))
	for i, p := range hull {
		out[i] = toVec(p)
	}
	return out
}

func toVec(p image.Point) r2.Vec {
	return r2.Vec{X: float64(p.X), Y: float64(p.Y)}
}
