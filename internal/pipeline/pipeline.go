package pipeline

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/target-vision/internal/config"
	"github.com/ironsheep/target-vision/internal/detection"
	vimg "github.com/ironsheep/target-vision/internal/imaging"
	"github.com/ironsheep/target-vision/internal/target"
	"github.com/ironsheep/target-vision/internal/telemetry"
)

// ErrEmptyFrame marks a frame with no pixels. Process reports such frames
// as "no target" and only uses the error for logging.
var ErrEmptyFrame = errors.New("empty frame")

// Config holds everything Process needs for one run.
type Config struct {
	Thresholds detection.Thresholds
	Optics     target.Optics
	MorphClose bool

	// Debug disables telemetry; the previous heading is always 0.
	Debug bool

	OutputWidth  int
	OutputHeight int
}

// ConfigFrom builds a Config from a validated tuning file.
func ConfigFrom(pc *config.PipelineConfig, debug bool) Config {
	return Config{
		Thresholds:   pc.Thresholds(),
		Optics:       pc.Optics(),
		MorphClose:   pc.GetMorphClose(),
		Debug:        debug,
		OutputWidth:  pc.GetOutputWidth(),
		OutputHeight: pc.GetOutputHeight(),
	}
}

// Result is everything Process produced for one frame.
type Result struct {
	Found   bool    `json:"found"`
	Heading float64 `json:"heading"`
	Offset  float64 `json:"offset"`

	Candidates []detection.Candidate `json:"candidates"`
	Pairs      []target.Pair         `json:"pairs"`
	Stats      detection.Stats       `json:"stats"`

	// Mask is the binarized frame. It is overwritten by the next Process call.
	Mask *image.Gray `json:"-"`
	// Annotated is a copy of the frame with paired candidates outlined and
	// pair centres marked.
	Annotated *image.NRGBA `json:"-"`

	Elapsed time.Duration `json:"elapsed"`
}

// Pipeline processes frames. Create one with New.
type Pipeline struct {
	cfg   Config
	table telemetry.Table
	mask  *image.Gray
}

// New validates cfg and creates a pipeline. A telemetry table is required
// unless cfg.Debug is set.
func New(cfg Config, table telemetry.Table) (*Pipeline, error) {
	if !cfg.Debug && table == nil {
		return nil, fmt.Errorf("telemetry table is required outside debug mode")
	}
	if cfg.Optics.FrameWidth <= 0 {
		return nil, fmt.Errorf("frame width must be positive, got %v", cfg.Optics.FrameWidth)
	}
	if cfg.Optics.FOV <= 0 {
		return nil, fmt.Errorf("fov must be positive, got %v", cfg.Optics.FOV)
	}
	if err := cfg.Thresholds.Validate(); err != nil {
		return nil, fmt.Errorf("invalid thresholds: %w", err)
	}

	diagf("thresholds h=[%d,%d] s=[%d,%d] v=[%d,%d] area>=%v ratio=[%v,%v] fov=%v debug=%v",
		cfg.Thresholds.HMin, cfg.Thresholds.HMax, cfg.Thresholds.SMin, cfg.Thresholds.SMax,
		cfg.Thresholds.VMin, cfg.Thresholds.VMax, cfg.Thresholds.AreaMin,
		cfg.Thresholds.RatioMin, cfg.Thresholds.RatioMax, cfg.Optics.FOV, cfg.Debug)

	return &Pipeline{cfg: cfg, table: table}, nil
}

// Config returns the configuration the pipeline was created with.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Process runs every stage on frame and publishes the outcome.
func (p *Pipeline) Process(frame image.Image) Result {
	start := time.Now()

	previous := 0.0
	if !p.cfg.Debug {
		previous = p.table.GetNumber(telemetry.KeyHeading, 0)
	}

	if vimg.IsEmpty(frame) {
		opsf("skipping frame: %v", ErrEmptyFrame)
		mask, annotated := p.blankOutputs()
		res := Result{Heading: previous, Mask: mask, Annotated: annotated}
		p.publish(res)
		res.Elapsed = time.Since(start)
		return res
	}

	p.mask = detection.Binarize(frame, p.cfg.Thresholds, p.cfg.MorphClose, p.mask)
	cands, stats := detection.ExtractStats(p.mask, p.cfg.Thresholds)
	pairs := target.Match(cands)
	est := target.EstimateHeading(pairs, p.cfg.Optics, previous)

	res := Result{
		Found:      est.Found,
		Heading:    est.Heading,
		Offset:     est.Offset,
		Candidates: cands,
		Pairs:      pairs,
		Stats:      stats,
		Mask:       p.mask,
		Annotated:  vimg.Annotate(frame, annotation(pairs), vimg.OutlineColor),
	}
	p.publish(res)
	res.Elapsed = time.Since(start)

	tracef("contours=%d candidates=%d pairs=%d found=%v heading=%.2f elapsed=%v",
		stats.Contours, len(cands), len(pairs), res.Found, res.Heading, res.Elapsed)
	return res
}

// blankOutputs returns a black mask and frame of the output size, falling
// back to the configured frame size when no output size is set.
func (p *Pipeline) blankOutputs() (*image.Gray, *image.NRGBA) {
	w, h := p.cfg.OutputWidth, p.cfg.OutputHeight
	if w <= 0 || h <= 0 {
		w, h = int(p.cfg.Optics.FrameWidth), int(p.cfg.Optics.FrameHeight)
	}
	if w <= 0 || h <= 0 {
		w, h = 1, 1
	}
	return image.NewGray(image.Rect(0, 0, w, h)), imaging.New(w, h, color.NRGBA{A: 255})
}

func (p *Pipeline) publish(res Result) {
	if p.cfg.Debug {
		return
	}
	p.table.PutBoolean(telemetry.KeyTargetFound, res.Found)
	p.table.PutNumber(telemetry.KeyTargetAngle, res.Heading)
}

// annotation outlines both halves of every pair and marks its centre.
func annotation(pairs []target.Pair) vimg.Annotation {
	var a vimg.Annotation
	for _, pair := range pairs {
		a.Outlines = append(a.Outlines, pair.Left.Outline(), pair.Right.Outline())
		c := pair.Center()
		a.Markers = append(a.Markers, image.Point{X: int(c.X + 0.5), Y: int(c.Y + 0.5)})
	}
	return a
}
