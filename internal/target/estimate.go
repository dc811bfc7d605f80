package target

// Optics describes the camera geometry used to convert pixels to angles.
type Optics struct {
	// FOV is the horizontal field of view in degrees.
	FOV float64 `json:"fov"`

	// FrameWidth and FrameHeight are the dimensions of analysed frames.
	FrameWidth  float64 `json:"frame_width"`
	FrameHeight float64 `json:"frame_height"`
}

// Offset converts an image x coordinate to an angle from the image centre.
// Positive angles are to the right.
func (o Optics) Offset(x float64) float64 {
	if o.FrameWidth == 0 {
		return 0
	}
	return ((x - o.FrameWidth/2) / o.FrameWidth) * (o.FOV / 2)
}

// Estimate is the outcome of one frame.
type Estimate struct {
	Found   bool    `json:"found"`
	Heading float64 `json:"heading"`
	// Offset is the correction applied to the previous heading.
	Offset float64 `json:"offset"`
	// Chosen indexes the pair that produced Offset, or -1.
	Chosen int `json:"chosen"`
}

// EstimateHeading folds the best pair's offset into previous.
//
// The selected pair is the one with the smallest signed offset, so a target
// well to the left beats one slightly to the right. Without pairs the
// heading is returned unchanged and Found is false.
func EstimateHeading(pairs []Pair, optics Optics, previous float64) Estimate {
	est := Estimate{Heading: previous, Chosen: -1}
	for i, p := range pairs {
		off := optics.Offset(p.Center().X)
		if est.Chosen < 0 || off < est.Offset {
			est.Offset = off
			est.Chosen = i
		}
	}
	if est.Chosen >= 0 {
		est.Found = true
		est.Heading = previous + est.Offset
	}
	return est
}
