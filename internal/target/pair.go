package target

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/ironsheep/target-vision/internal/detection"
)

const (
	// loneSpacing is the centre distance of a phantom partner in widths.
	loneSpacing = 5.5
	// loneSplitAngle separates lone strips whose partner lies to the right.
	loneSplitAngle = -45.0
	// phantomTilt is the magnitude of a phantom partner's angle.
	phantomTilt = 15.0

	// minAngleDiff is the smallest difference of absolute tilts in a pair.
	minAngleDiff = 13.0
	// maxWidthDiff is the largest width difference in a pair, in pixels.
	maxWidthDiff = 50.0
	// minSpacing and maxSpacing bound centre distance over mean width.
	minSpacing = 4.0
	maxSpacing = 6.0
)

// Phantom is the index of a pair member that was synthesised rather than
// detected.
const Phantom = -1

// Pair is one target: the strip with the smaller x and angle is Left.
type Pair struct {
	Left  detection.Candidate `json:"left"`
	Right detection.Candidate `json:"right"`

	// LeftIndex and RightIndex point into the candidate slice given to
	// Pair, or hold Phantom.
	LeftIndex  int `json:"left_index"`
	RightIndex int `json:"right_index"`
}

// Center returns the midpoint of the two member centres.
func (p Pair) Center() r2.Vec {
	return r2.Scale(0.5, r2.Add(p.Left.Center, p.Right.Center))
}

// HasPhantom reports whether one member was synthesised.
func (p Pair) HasPhantom() bool {
	return p.LeftIndex == Phantom || p.RightIndex == Phantom
}

// Match groups candidates into targets.
//
// No candidates give no pairs. A single candidate is paired with a phantom.
// Otherwise every unordered pair (i, j) with i < j and neither taken is
// tested in order; a candidate index appears in at most one result.
func Match(cands []detection.Candidate) []Pair {
	switch len(cands) {
	case 0:
		return nil
	case 1:
		return []Pair{lonePair(cands[0])}
	}

	var pairs []Pair
	taken := make([]bool, len(cands))
	for i := range cands {
		if taken[i] {
			continue
		}
		for j := i + 1; j < len(cands); j++ {
			if taken[j] {
				continue
			}
			p, ok := tryPair(cands, i, j)
			if !ok {
				continue
			}
			pairs = append(pairs, p)
			taken[i], taken[j] = true, true
			break
		}
	}
	return pairs
}

// lonePair synthesises the missing half of a target.
//
// A strip tilted below -45 degrees is taken to be the left half, with the
// phantom loneSpacing widths to its right; any other strip is the right half.
func lonePair(c detection.Candidate) Pair {
	phantom := c
	phantom.Area = 0
	phantom.Contour = Phantom

	shift := loneSpacing * c.Width
	if c.Angle < loneSplitAngle {
		phantom.Angle = -phantomTilt
		phantom.Center.X += shift
	} else {
		phantom.Angle = phantomTilt
		phantom.Center.X -= shift
	}
	phantom.Corners = detection.RotatedRect{
		Center: phantom.Center,
		Width:  phantom.Width,
		Height: phantom.Height,
		Angle:  phantom.Angle,
	}.Corners()

	if phantom.Center.X > c.Center.X {
		return Pair{Left: c, Right: phantom, LeftIndex: 0, RightIndex: Phantom}
	}
	return Pair{Left: phantom, Right: c, LeftIndex: Phantom, RightIndex: 0}
}

// tryPair applies the pairing predicates to candidates i and j.
func tryPair(cands []detection.Candidate, i, j int) (Pair, bool) {
	a, b := cands[i], cands[j]

	if math.Abs(math.Abs(a.Angle)-math.Abs(b.Angle)) < minAngleDiff {
		return Pair{}, false
	}
	if math.Abs(a.Width-b.Width) > maxWidthDiff {
		return Pair{}, false
	}

	avgWidth := (a.Width + b.Width) / 2
	spacing := math.Abs(a.Center.X-b.Center.X) / avgWidth
	if avgWidth == 0 || spacing < minSpacing || spacing > maxSpacing {
		return Pair{}, false
	}

	// The left strip must also be the one with the smaller angle.
	dx := a.Center.X - b.Center.X
	switch {
	case dx < 0 && a.Angle < b.Angle:
		return Pair{Left: a, Right: b, LeftIndex: i, RightIndex: j}, true
	case dx > 0 && a.Angle > b.Angle:
		return Pair{Left: b, Right: a, LeftIndex: j, RightIndex: i}, true
	}
	return Pair{}, false
}
