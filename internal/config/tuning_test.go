package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig returns a config with every required field set
func validConfig() *PipelineConfig {
	return &PipelineConfig{
		HMin: ptrInt(29), HMax: ptrInt(100),
		SMin: ptrInt(90), SMax: ptrInt(255),
		VMin: ptrInt(60), VMax: ptrInt(255),
		AreaMin:     ptrFloat64(90),
		TPosLow:     ptrFloat64(43),
		TPosUp:      ptrFloat64(64),
		TNegLow:     ptrFloat64(-81),
		TNegUp:      ptrFloat64(-8),
		RatioMin:    ptrFloat64(2.2),
		RatioMax:    ptrFloat64(4),
		FOV:         ptrFloat64(60),
		FrameWidth:  ptrInt(432),
		FrameHeight: ptrInt(240),
	}
}

func TestMustLoadDefaultConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()

	th := cfg.Thresholds()
	if th.HMin != 29 || th.HMax != 100 || th.SMin != 90 || th.VMin != 60 {
		t.Errorf("unexpected HSV bounds: %+v", th)
	}
	if th.AreaMin != 90 || th.RatioMin != 2.2 || th.RatioMax != 4 {
		t.Errorf("unexpected filters: %+v", th)
	}
	if th.TNegLow != -81 || th.TNegUp != -8 || th.TPosLow != 43 || th.TPosUp != 64 {
		t.Errorf("unexpected angle windows: %+v", th)
	}

	optics := cfg.Optics()
	if optics.FOV != 60 || optics.FrameWidth != 432 || optics.FrameHeight != 240 {
		t.Errorf("unexpected optics: %+v", optics)
	}
	if !cfg.GetMorphClose() {
		t.Error("morph_close should be enabled in the defaults")
	}
}

func TestLoadPipelineConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "pipeline.json")

	testJSON := `{
  "h_min": 50, "h_max": 90,
  "s_min": 100, "s_max": 255,
  "v_min": 80, "v_max": 255,
  "area_min": 120,
  "t_pos_low": 40, "t_pos_up": 60,
  "t_neg_low": -85, "t_neg_up": -5,
  "ratio_min": 2, "ratio_max": 5,
  "fov": 68.5,
  "frame_width": 320, "frame_height": 240,
  "morph_close": false,
  "output_width": 160
}`
	require.NoError(t, os.WriteFile(configPath, []byte(testJSON), 0644))

	cfg, err := LoadPipelineConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, uint8(50), cfg.Thresholds().HMin)
	assert.Equal(t, 120.0, cfg.Thresholds().AreaMin)
	assert.Equal(t, 68.5, cfg.Optics().FOV)
	assert.False(t, cfg.GetMorphClose())
	assert.Equal(t, 160, cfg.GetOutputWidth())
	assert.Equal(t, 240, cfg.GetOutputHeight(), "unset output_height falls back to the default")
}

func TestLoadPipelineConfig_FileChecks(t *testing.T) {
	tmpDir := t.TempDir()

	_, err := LoadPipelineConfig(filepath.Join(tmpDir, "pipeline.yaml"))
	assert.ErrorContains(t, err, ".json extension")

	_, err = LoadPipelineConfig(filepath.Join(tmpDir, "missing.json"))
	assert.ErrorContains(t, err, "failed to stat")

	big := filepath.Join(tmpDir, "big.json")
	require.NoError(t, os.WriteFile(big, []byte(strings.Repeat(" ", maxFileSize+1)), 0644))
	_, err = LoadPipelineConfig(big)
	assert.ErrorContains(t, err, "too large")

	bad := filepath.Join(tmpDir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0644))
	_, err = LoadPipelineConfig(bad)
	assert.ErrorContains(t, err, "failed to parse")
}

func TestValidate_MissingFields(t *testing.T) {
	fields := map[string]func(c *PipelineConfig){
		"h_min":        func(c *PipelineConfig) { c.HMin = nil },
		"s_max":        func(c *PipelineConfig) { c.SMax = nil },
		"area_min":     func(c *PipelineConfig) { c.AreaMin = nil },
		"t_neg_low":    func(c *PipelineConfig) { c.TNegLow = nil },
		"ratio_max":    func(c *PipelineConfig) { c.RatioMax = nil },
		"fov":          func(c *PipelineConfig) { c.FOV = nil },
		"frame_height": func(c *PipelineConfig) { c.FrameHeight = nil },
	}

	for name, unset := range fields {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			unset(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMissingField))
			assert.Contains(t, err.Error(), name)
		})
	}
}

func TestValidate_Ranges(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *PipelineConfig)
		want   string
	}{
		{"hue above 180", func(c *PipelineConfig) { c.HMax = ptrInt(181) }, "h bounds"},
		{"negative saturation", func(c *PipelineConfig) { c.SMin = ptrInt(-1) }, "s bounds"},
		{"value min above max", func(c *PipelineConfig) { c.VMin = ptrInt(200); c.VMax = ptrInt(100) }, "v_min"},
		{"negative area", func(c *PipelineConfig) { c.AreaMin = ptrFloat64(-1) }, "area_min"},
		{"positive window inverted", func(c *PipelineConfig) { c.TPosLow = ptrFloat64(70) }, "t_pos_low"},
		{"negative window inverted", func(c *PipelineConfig) { c.TNegUp = ptrFloat64(-90) }, "t_neg_low"},
		{"ratio inverted", func(c *PipelineConfig) { c.RatioMin = ptrFloat64(5) }, "ratio_min"},
		{"zero ratio", func(c *PipelineConfig) { c.RatioMin = ptrFloat64(0) }, "ratio_min"},
		{"fov too wide", func(c *PipelineConfig) { c.FOV = ptrFloat64(180) }, "fov"},
		{"zero frame width", func(c *PipelineConfig) { c.FrameWidth = ptrInt(0) }, "frame size"},
		{"negative output", func(c *PipelineConfig) { c.OutputHeight = ptrInt(-2) }, "output_height"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	assert.NoError(t, validConfig().Validate())
}

func TestParsePipelineConfig_FailsClosed(t *testing.T) {
	_, err := ParsePipelineConfig([]byte(`{"h_min": 10}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestPipelineConfig_JSONRoundTrip(t *testing.T) {
	cfg := validConfig()
	cfg.MorphClose = ptrBool(false)

	again, err := ParsePipelineConfig([]byte(cfg.JSON()))
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}
