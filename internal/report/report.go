// Package report summarises recorded sessions and charts them.
package report

import (
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/ironsheep/target-vision/internal/recorder"
)

// Summary describes a session in a few numbers. Offset statistics only
// cover frames where a target was found.
type Summary struct {
	Frames     int     `json:"frames"`
	Found      int     `json:"found"`
	FoundRatio float64 `json:"found_ratio"`

	MeanOffset   float64 `json:"mean_offset"`
	StdDevOffset float64 `json:"stddev_offset"`

	MinHeading float64 `json:"min_heading"`
	MaxHeading float64 `json:"max_heading"`

	MeanElapsedMS float64 `json:"mean_elapsed_ms"`
	P95ElapsedMS  float64 `json:"p95_elapsed_ms"`
}

// Summarize computes the summary of frames.
func Summarize(frames []recorder.FrameRecord) Summary {
	s := Summary{Frames: len(frames)}
	if len(frames) == 0 {
		return s
	}

	var offsets []float64
	elapsed := make([]float64, 0, len(frames))
	s.MinHeading, s.MaxHeading = math.Inf(1), math.Inf(-1)
	for _, f := range frames {
		if f.Found {
			s.Found++
			offsets = append(offsets, f.Offset)
		}
		s.MinHeading = math.Min(s.MinHeading, f.Heading)
		s.MaxHeading = math.Max(s.MaxHeading, f.Heading)
		elapsed = append(elapsed, f.ElapsedMS)
	}
	s.FoundRatio = float64(s.Found) / float64(s.Frames)

	switch len(offsets) {
	case 0:
	case 1:
		s.MeanOffset = offsets[0]
	default:
		s.MeanOffset, s.StdDevOffset = stat.MeanStdDev(offsets, nil)
	}

	s.MeanElapsedMS = stat.Mean(elapsed, nil)
	sort.Float64s(elapsed)
	s.P95ElapsedMS = stat.Quantile(0.95, stat.Empirical, elapsed, nil)
	return s
}

// WriteHTML renders an interactive chart of heading and offset per frame.
// Frames without a target leave a gap in the offset series.
func WriteHTML(w io.Writer, title string, frames []recorder.FrameRecord) error {
	sum := Summarize(frames)

	seq := make([]int, len(frames))
	heading := make([]opts.LineData, len(frames))
	offset := make([]opts.LineData, len(frames))
	for i, f := range frames {
		seq[i] = f.Seq
		heading[i] = opts.LineData{Value: f.Heading}
		if f.Found {
			offset[i] = opts.LineData{Value: f.Offset}
		} else {
			offset[i] = opts.LineData{Value: "-"}
		}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "100%", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: fmt.Sprintf("frames=%d found=%.0f%% mean offset=%.2f°", sum.Frames, sum.FoundRatio*100, sum.MeanOffset),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "frame"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "degrees"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)
	line.SetXAxis(seq).
		AddSeries("heading", heading).
		AddSeries("offset", offset)

	if err := line.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}

// WritePNG saves a static chart of heading and offset per frame to path.
func WritePNG(path, title string, frames []recorder.FrameRecord) error {
	if len(frames) == 0 {
		return fmt.Errorf("no frames to plot")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "frame"
	p.Y.Label.Text = "degrees"
	p.Add(plotter.NewGrid())

	headingPts := make(plotter.XYs, 0, len(frames))
	offsetPts := make(plotter.XYs, 0, len(frames))
	for _, f := range frames {
		headingPts = append(headingPts, plotter.XY{X: float64(f.Seq), Y: f.Heading})
		if f.Found {
			offsetPts = append(offsetPts, plotter.XY{X: float64(f.Seq), Y: f.Offset})
		}
	}

	headingLine, err := plotter.NewLine(headingPts)
	if err != nil {
		return fmt.Errorf("failed to create heading line: %w", err)
	}
	headingLine.Width = vg.Points(1)
	p.Add(headingLine)
	p.Legend.Add("heading", headingLine)

	if len(offsetPts) > 0 {
		offsetScatter, err := plotter.NewScatter(offsetPts)
		if err != nil {
			return fmt.Errorf("failed to create offset points: %w", err)
		}
		offsetScatter.GlyphStyle.Radius = vg.Points(2)
		p.Add(offsetScatter)
		p.Legend.Add("offset", offsetScatter)
	}

	if err := p.Save(10*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save plot: %w", err)
	}
	return nil
}
