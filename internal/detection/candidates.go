package detection

import (
	"image"

	"gonum.org/v1/gonum/spatial/r2"
)

// Candidate is a contour whose fitted rectangle survived filtering.
type Candidate struct {
	// Center of the fitted rectangle in image coordinates.
	Center r2.Vec `json:"center"`

	// Width and Height of the fitted rectangle, normalised so Width <= Height.
	Width  float64 `json:"width"`
	Height float64 `json:"height"`

	// Angle of the fitted rectangle in degrees.
	Angle float64 `json:"angle"`

	// Area enclosed by the contour in square pixels.
	Area float64 `json:"area"`

	// Corners of the fitted rectangle, in order around it.
	Corners [4]r2.Vec `json:"corners"`

	// Contour is the index of the source contour in FindContours order.
	Contour int `json:"contour"`
}

// Ratio returns Height/Width, or 0 for a zero width.
func (c Candidate) Ratio() float64 {
	if c.Width == 0 {
		return 0
	}
	return c.Height / c.Width
}

// Outline returns the corners rounded to pixel positions, ready for drawing.
func (c Candidate) Outline() []image.Point {
	out := make([]image.Point, len(c.Corners))
	for i, v := range c.Corners {
		out[i] = image.Point{X: round(v.X), Y: round(v.Y)}
	}
	return out
}

// Stats counts how contours were disposed of by one Extract call.
type Stats struct {
	Contours   int `json:"contours"`
	SmallArea  int `json:"small_area"`
	BadAngle   int `json:"bad_angle"`
	BadRatio   int `json:"bad_ratio"`
	Candidates int `json:"candidates"`
}

// Extract finds the target candidates in mask.
//
// Every contour is checked in turn: its area must reach th.AreaMin, the
// fitted rectangle's angle must fall in one of the tilt windows and its
// height/width ratio must be inside the ratio window. A nil or empty mask
// yields no candidates.
func Extract(mask *image.Gray, th Thresholds) []Candidate {
	cands, _ := ExtractStats(mask, th)
	return cands
}

// ExtractStats is Extract, also reporting why contours were rejected.
func ExtractStats(mask *image.Gray, th Thresholds) ([]Candidate, Stats) {
	var st Stats
	contours := FindContours(mask)
	st.Contours = len(contours)

	cands := make([]Candidate, 0)
	for i, c := range contours {
		area := c.Area()
		if area < th.AreaMin {
			st.SmallArea++
			continue
		}

		rect := MinAreaRect(c.Points)
		if !th.AcceptAngle(rect.Angle) {
			st.BadAngle++
			continue
		}

		width, height := rect.Width, rect.Height
		if width > height {
			width, height = height, width
		}
		if !th.AcceptRatio(width, height) {
			st.BadRatio++
			continue
		}

		cands = append(cands, Candidate{
			Center:  rect.Center,
			Width:   width,
			Height:  height,
			Angle:   rect.Angle,
			Area:    area,
			Corners: rect.Corners(),
			Contour: i,
		})
	}
	st.Candidates = len(cands)
	return cands, st
}

func round(v float64) int {
	if v < 0 {
		return int(v - 0.5)
	}
	return int(v + 0.5)
}
