package server

import (
	"encoding/json"
	"fmt"
	"image"

	"github.com/ironsheep/target-vision/internal/config"
	"github.com/ironsheep/target-vision/internal/detection"
	"github.com/ironsheep/target-vision/internal/imaging"
	"github.com/ironsheep/target-vision/internal/pipeline"
	"github.com/ironsheep/target-vision/internal/target"
	"github.com/ironsheep/target-vision/internal/telemetry"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "target_analyze").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}
	if len(params.Arguments) == 0 {
		params.Arguments = json.RawMessage("{}")
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		return errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "target_analyze":
		return s.handleAnalyze(args)
	case "target_mask":
		return s.handleMask(args)
	case "target_annotate":
		return s.handleAnnotate(args)
	case "target_sample_hsv":
		return s.handleSampleHSV(args)
	case "target_config":
		return s.handleConfig(args)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// resolveConfig layers overrides on top of the base configuration and
// validates the result.
func (s *Server) resolveConfig(overrides json.RawMessage) (*config.PipelineConfig, error) {
	merged := []byte("{}")
	if s.base != nil {
		merged = []byte(s.base.JSON())
	}
	cfg := &config.PipelineConfig{}
	if err := json.Unmarshal(merged, cfg); err != nil {
		return nil, fmt.Errorf("failed to copy base config: %w", err)
	}
	if len(overrides) > 0 && string(overrides) != "null" {
		if err := json.Unmarshal(overrides, cfg); err != nil {
			return nil, fmt.Errorf("invalid config overrides: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// load reads a frame through the cache; reload forces a fresh decode.
func (s *Server) load(path string, reload bool) (image.Image, error) {
	if reload {
		s.cache.Evict(path)
	}
	return s.cache.Load(path)
}

type frameArgs struct {
	Path    string          `json:"path"`
	Scale   float64         `json:"scale"`
	Heading float64         `json:"heading"`
	Reload  bool            `json:"reload"`
	Config  json.RawMessage `json:"config,omitempty"`
}

// run processes the frame at a.Path with a throwaway telemetry table seeded
// with a.Heading.
func (s *Server) run(a frameArgs) (image.Image, pipeline.Result, *config.PipelineConfig, error) {
	if a.Path == "" {
		return nil, pipeline.Result{}, nil, fmt.Errorf("path is required")
	}
	cfg, err := s.resolveConfig(a.Config)
	if err != nil {
		return nil, pipeline.Result{}, nil, err
	}
	frame, err := s.load(a.Path, a.Reload)
	if err != nil {
		return nil, pipeline.Result{}, nil, err
	}

	table := telemetry.NewMemoryTable()
	table.PutNumber(telemetry.KeyHeading, a.Heading)
	p, err := pipeline.New(pipeline.ConfigFrom(cfg, false), table)
	if err != nil {
		return nil, pipeline.Result{}, nil, err
	}
	return frame, p.Process(frame), cfg, nil
}

// PairResult describes one pair in tool output.
type PairResult struct {
	LeftIndex  int     `json:"left_index"`
	RightIndex int     `json:"right_index"`
	CenterX    float64 `json:"center_x"`
	CenterY    float64 `json:"center_y"`
	Offset     float64 `json:"offset"`
	Phantom    bool    `json:"phantom"`
}

// AnalyzeResult is returned by target_analyze.
type AnalyzeResult struct {
	Path       string                `json:"path"`
	Width      int                   `json:"width"`
	Height     int                   `json:"height"`
	Found      bool                  `json:"found"`
	Heading    float64               `json:"heading"`
	Offset     float64               `json:"offset"`
	Stats      detection.Stats       `json:"stats"`
	Candidates []detection.Candidate `json:"candidates"`
	Pairs      []PairResult          `json:"pairs"`
	ElapsedMS  float64               `json:"elapsed_ms"`
}

func pairResults(pairs []target.Pair, optics target.Optics) []PairResult {
	out := make([]PairResult, len(pairs))
	for i, p := range pairs {
		c := p.Center()
		out[i] = PairResult{
			LeftIndex:  p.LeftIndex,
			RightIndex: p.RightIndex,
			CenterX:    c.X,
			CenterY:    c.Y,
			Offset:     optics.Offset(c.X),
			Phantom:    p.HasPhantom(),
		}
	}
	return out
}

func (s *Server) handleAnalyze(args json.RawMessage) (interface{}, error) {
	var a frameArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	frame, res, cfg, err := s.run(a)
	if err != nil {
		return nil, err
	}

	cands := res.Candidates
	if cands == nil {
		cands = []detection.Candidate{}
	}
	return &AnalyzeResult{
		Path:       a.Path,
		Width:      frame.Bounds().Dx(),
		Height:     frame.Bounds().Dy(),
		Found:      res.Found,
		Heading:    res.Heading,
		Offset:     res.Offset,
		Stats:      res.Stats,
		Candidates: cands,
		Pairs:      pairResults(res.Pairs, cfg.Optics()),
		ElapsedMS:  float64(res.Elapsed.Microseconds()) / 1000,
	}, nil
}

// MaskResult is returned by target_mask.
type MaskResult struct {
	*imaging.EncodedImage
	WhitePixels int     `json:"white_pixels"`
	Coverage    float64 `json:"coverage"`
}

func (s *Server) handleMask(args json.RawMessage) (interface{}, error) {
	var a frameArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	_, res, _, err := s.run(a)
	if err != nil {
		return nil, err
	}
	if res.Mask == nil {
		return nil, fmt.Errorf("frame %s is empty", a.Path)
	}

	white := 0
	for _, v := range res.Mask.Pix {
		if v != 0 {
			white++
		}
	}
	enc, err := imaging.EncodePNG(res.Mask, a.Scale)
	if err != nil {
		return nil, err
	}
	return &MaskResult{
		EncodedImage: enc,
		WhitePixels:  white,
		Coverage:     float64(white) / float64(len(res.Mask.Pix)),
	}, nil
}

func (s *Server) handleAnnotate(args json.RawMessage) (interface{}, error) {
	var a frameArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	_, res, cfg, err := s.run(a)
	if err != nil {
		return nil, err
	}
	if res.Annotated == nil {
		return nil, fmt.Errorf("frame %s is empty", a.Path)
	}

	// offsets go on top of the pipeline's own outlines
	var labels imaging.Annotation
	optics := cfg.Optics()
	for _, p := range res.Pairs {
		c := p.Center()
		labels.Labels = append(labels.Labels, imaging.Label{
			At:   image.Point{X: int(c.X) + 6, Y: int(c.Y) + 6},
			Text: imaging.FormatDegrees(optics.Offset(c.X)),
		})
	}
	out := imaging.Annotate(res.Annotated, labels, imaging.OutlineColor)
	return imaging.EncodePNG(out, a.Scale)
}

type samplePoint struct {
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Label string `json:"label,omitempty"`
}

type sampleArgs struct {
	Path   string          `json:"path"`
	Points []samplePoint   `json:"points"`
	Reload bool            `json:"reload"`
	Config json.RawMessage `json:"config,omitempty"`
}

// SampleResult is one sampled pixel.
type SampleResult struct {
	*imaging.ColorSample
	Label   string `json:"label,omitempty"`
	InRange bool   `json:"in_range"`
}

func (s *Server) handleSampleHSV(args json.RawMessage) (interface{}, error) {
	var a sampleArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if len(a.Points) == 0 {
		return nil, fmt.Errorf("at least one point is required")
	}
	cfg, err := s.resolveConfig(a.Config)
	if err != nil {
		return nil, err
	}
	img, err := s.load(a.Path, a.Reload)
	if err != nil {
		return nil, err
	}

	th := cfg.Thresholds()
	out := make([]SampleResult, 0, len(a.Points))
	for _, p := range a.Points {
		sample, err := imaging.SampleHSV(img, p.X, p.Y)
		if err != nil {
			return nil, fmt.Errorf("point %d,%d: %w", p.X, p.Y, err)
		}
		out = append(out, SampleResult{
			ColorSample: sample,
			Label:       p.Label,
			InRange:     th.InRange(sample.HSV),
		})
	}
	return map[string]interface{}{"samples": out}, nil
}

func (s *Server) handleConfig(args json.RawMessage) (interface{}, error) {
	var a struct {
		Config json.RawMessage `json:"config,omitempty"`
	}
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	cfg, err := s.resolveConfig(a.Config)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"config":      cfg,
		"morph_close": cfg.GetMorphClose(),
		"thresholds":  cfg.Thresholds(),
		"optics":      cfg.Optics(),
	}, nil
}
