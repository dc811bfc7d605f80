package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ironsheep/target-vision/internal/detection"
	"github.com/ironsheep/target-vision/internal/target"
)

// DefaultConfigPath is the path to the canonical pipeline defaults file.
const DefaultConfigPath = "config/pipeline.defaults.json"

// ErrMissingField is returned when a required numeric field is absent.
var ErrMissingField = errors.New("missing required field")

const maxFileSize = 1 * 1024 * 1024 // 1MB

// PipelineConfig holds the per-run numeric thresholds of the vision pipeline.
//
// Every threshold is required: a file that omits one is rejected rather than
// filled with a guess. Only the output and morphology switches have defaults.
type PipelineConfig struct {
	// HSV bounds on the OpenCV 8-bit scale
	HMin *int `json:"h_min,omitempty"`
	HMax *int `json:"h_max,omitempty"`
	SMin *int `json:"s_min,omitempty"`
	SMax *int `json:"s_max,omitempty"`
	VMin *int `json:"v_min,omitempty"`
	VMax *int `json:"v_max,omitempty"`

	// Candidate filters
	AreaMin  *float64 `json:"area_min,omitempty"`
	TPosLow  *float64 `json:"t_pos_low,omitempty"`
	TPosUp   *float64 `json:"t_pos_up,omitempty"`
	TNegLow  *float64 `json:"t_neg_low,omitempty"`
	TNegUp   *float64 `json:"t_neg_up,omitempty"`
	RatioMin *float64 `json:"ratio_min,omitempty"`
	RatioMax *float64 `json:"ratio_max,omitempty"`

	// Camera geometry
	FOV         *float64 `json:"fov,omitempty"`
	FrameWidth  *int     `json:"frame_width,omitempty"`
	FrameHeight *int     `json:"frame_height,omitempty"`

	// Optional
	MorphClose   *bool `json:"morph_close,omitempty"`
	OutputWidth  *int  `json:"output_width,omitempty"`
	OutputHeight *int  `json:"output_height,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrInt(v int) *int             { return &v }

// LoadPipelineConfig loads and validates a PipelineConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadPipelineConfig(path string) (*PipelineConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return ParsePipelineConfig(data)
}

// ParsePipelineConfig parses and validates JSON config data.
func ParsePipelineConfig(data []byte) (*PipelineConfig, error) {
	cfg := &PipelineConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath.
// It searches the current directory and its parents. Panics if the file
// cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *PipelineConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadPipelineConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that every required field is present and that the values
// describe a usable pipeline.
func (c *PipelineConfig) Validate() error {
	required := []struct {
		name string
		set  bool
	}{
		{"h_min", c.HMin != nil},
		{"h_max", c.HMax != nil},
		{"s_min", c.SMin != nil},
		{"s_max", c.SMax != nil},
		{"v_min", c.VMin != nil},
		{"v_max", c.VMax != nil},
		{"area_min", c.AreaMin != nil},
		{"t_pos_low", c.TPosLow != nil},
		{"t_pos_up", c.TPosUp != nil},
		{"t_neg_low", c.TNegLow != nil},
		{"t_neg_up", c.TNegUp != nil},
		{"ratio_min", c.RatioMin != nil},
		{"ratio_max", c.RatioMax != nil},
		{"fov", c.FOV != nil},
		{"frame_width", c.FrameWidth != nil},
		{"frame_height", c.FrameHeight != nil},
	}
	for _, r := range required {
		if !r.set {
			return fmt.Errorf("%w: %s", ErrMissingField, r.name)
		}
	}

	if err := checkBounds("h", *c.HMin, *c.HMax, 180); err != nil {
		return err
	}
	if err := checkBounds("s", *c.SMin, *c.SMax, 255); err != nil {
		return err
	}
	if err := checkBounds("v", *c.VMin, *c.VMax, 255); err != nil {
		return err
	}

	if err := c.Thresholds().Validate(); err != nil {
		return err
	}
	if *c.FOV <= 0 || *c.FOV >= 180 {
		return fmt.Errorf("fov must be between 0 and 180 degrees, got %f", *c.FOV)
	}
	if *c.FrameWidth <= 0 || *c.FrameHeight <= 0 {
		return fmt.Errorf("frame size must be positive, got %dx%d", *c.FrameWidth, *c.FrameHeight)
	}
	if c.OutputWidth != nil && *c.OutputWidth < 0 {
		return fmt.Errorf("output_width must be non-negative, got %d", *c.OutputWidth)
	}
	if c.OutputHeight != nil && *c.OutputHeight < 0 {
		return fmt.Errorf("output_height must be non-negative, got %d", *c.OutputHeight)
	}
	return nil
}

func checkBounds(channel string, lo, hi, max int) error {
	if lo < 0 || hi > max {
		return fmt.Errorf("%s bounds must lie in [0,%d], got [%d,%d]", channel, max, lo, hi)
	}
	if lo > hi {
		return fmt.Errorf("%s_min (%d) must not exceed %s_max (%d)", channel, lo, channel, hi)
	}
	return nil
}

// Thresholds returns the detection filters. Call Validate first.
func (c *PipelineConfig) Thresholds() detection.Thresholds {
	return detection.Thresholds{
		HMin:     uint8(*c.HMin),
		HMax:     uint8(*c.HMax),
		SMin:     uint8(*c.SMin),
		SMax:     uint8(*c.SMax),
		VMin:     uint8(*c.VMin),
		VMax:     uint8(*c.VMax),
		AreaMin:  *c.AreaMin,
		TNegLow:  *c.TNegLow,
		TNegUp:   *c.TNegUp,
		TPosLow:  *c.TPosLow,
		TPosUp:   *c.TPosUp,
		RatioMin: *c.RatioMin,
		RatioMax: *c.RatioMax,
	}
}

// Optics returns the camera geometry. Call Validate first.
func (c *PipelineConfig) Optics() target.Optics {
	return target.Optics{
		FOV:         *c.FOV,
		FrameWidth:  float64(*c.FrameWidth),
		FrameHeight: float64(*c.FrameHeight),
	}
}

// GetMorphClose returns the morph_close value or the default.
func (c *PipelineConfig) GetMorphClose() bool {
	if c.MorphClose == nil {
		return true // default
	}
	return *c.MorphClose
}

// GetOutputWidth returns the output_width value or the default.
func (c *PipelineConfig) GetOutputWidth() int {
	if c.OutputWidth == nil {
		return 432
	}
	return *c.OutputWidth
}

// GetOutputHeight returns the output_height value or the default.
func (c *PipelineConfig) GetOutputHeight() int {
	if c.OutputHeight == nil {
		return 240
	}
	return *c.OutputHeight
}

// JSON returns the config re-encoded, as stored alongside recorded sessions.
func (c *PipelineConfig) JSON() string {
	data, err := json.Marshal(c)
	if err != nil {
		return "{}"
	}
	return string(data)
}
