package pipeline

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/target-vision/internal/config"
	"github.com/ironsheep/target-vision/internal/telemetry"
)

var green = color.NRGBA{G: 255, A: 255}

// createTargetFrame draws a pair of green strips on a black 432x240 frame.
// The left strip leans to -70 degrees, the right one to -20, 70 px apart.
func createTargetFrame() *image.NRGBA {
	img := createBlankFrame(432, 240)
	drawStrip(img, 166, 120, 14, 44, -70, green)
	drawStrip(img, 236, 120, 14, 44, -20, green)
	return img
}

func createBlankFrame(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{A: 255})
		}
	}
	return img
}

// drawStrip fills a w x h rectangle centred on (cx,cy) whose w side points
// along angle degrees.
func drawStrip(img *image.NRGBA, cx, cy, w, h, angle float64, c color.Color) {
	rad := angle * math.Pi / 180
	ux, uy := math.Cos(rad), math.Sin(rad)
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dx, dy := float64(x)-cx, float64(y)-cy
			if math.Abs(dx*ux+dy*uy) <= w/2 && math.Abs(-dx*uy+dy*ux) <= h/2 {
				img.Set(x, y, c)
			}
		}
	}
}

func testConfig(debug bool) Config {
	return ConfigFrom(config.MustLoadDefaultConfig(), debug)
}

func hasRed(img image.Image) bool {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			if r>>8 > 200 && g>>8 < 50 && bl>>8 < 50 {
				return true
			}
		}
	}
	return false
}

func TestNew_RequiresTableOutsideDebug(t *testing.T) {
	_, err := New(testConfig(false), nil)
	assert.ErrorContains(t, err, "telemetry table is required")

	p, err := New(testConfig(true), nil)
	require.NoError(t, err)
	assert.True(t, p.Config().Debug)
}

func TestNew_RejectsBadGeometry(t *testing.T) {
	cfg := testConfig(true)
	cfg.Optics.FrameWidth = 0
	_, err := New(cfg, nil)
	assert.ErrorContains(t, err, "frame width")

	cfg = testConfig(true)
	cfg.Optics.FOV = 0
	_, err = New(cfg, nil)
	assert.ErrorContains(t, err, "fov")

	cfg = testConfig(true)
	cfg.Thresholds.HMin = 120
	_, err = New(cfg, nil)
	assert.ErrorContains(t, err, "h_min")
}

func TestNew_RejectsNonsensicalFilters(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
		want   string
	}{
		{"ratio window inverted", func(c *Config) { c.Thresholds.RatioMin, c.Thresholds.RatioMax = 4, 2.2 }, "ratio_min"},
		{"negative area", func(c *Config) { c.Thresholds.AreaMin = -5 }, "area_min"},
		{"negative tilt window inverted", func(c *Config) { c.Thresholds.TNegLow, c.Thresholds.TNegUp = -8, -81 }, "t_neg_low"},
		{"positive tilt window inverted", func(c *Config) { c.Thresholds.TPosLow, c.Thresholds.TPosUp = 64, 43 }, "t_pos_low"},
		{"zero ratio", func(c *Config) { c.Thresholds.RatioMin = 0 }, "ratio_min"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(false)
			tt.modify(&cfg)
			p, err := New(cfg, telemetry.NewMemoryTable())
			require.Error(t, err)
			assert.Nil(t, p)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestProcess_FindsTarget(t *testing.T) {
	table := telemetry.NewMemoryTable()
	table.PutNumber(telemetry.KeyHeading, 10)

	p, err := New(testConfig(false), table)
	require.NoError(t, err)

	res := p.Process(createTargetFrame())
	require.True(t, res.Found)
	require.Len(t, res.Pairs, 1)
	assert.Len(t, res.Candidates, 2)
	assert.Equal(t, 2, res.Stats.Candidates)

	// centre x 201 is 15 px left of 216: (-15/432)*30
	wantOffset := (-15.0 / 432) * 30
	assert.InDelta(t, wantOffset, res.Offset, 0.2)
	assert.InDelta(t, 10+wantOffset, res.Heading, 0.2)

	assert.True(t, table.GetBoolean(telemetry.KeyTargetFound, false))
	assert.Equal(t, res.Heading, table.GetNumber(telemetry.KeyTargetAngle, 0))

	require.NotNil(t, res.Mask)
	assert.Equal(t, image.Rect(0, 0, 432, 240), res.Mask.Bounds())
	require.NotNil(t, res.Annotated)
	assert.True(t, hasRed(res.Annotated), "pair should be outlined")
	assert.Greater(t, int64(res.Elapsed), int64(0))
}

func TestProcess_NoTargetKeepsHeading(t *testing.T) {
	table := telemetry.NewMemoryTable()
	table.PutNumber(telemetry.KeyHeading, 10)
	table.PutBoolean(telemetry.KeyTargetFound, true)

	p, err := New(testConfig(false), table)
	require.NoError(t, err)

	res := p.Process(createBlankFrame(432, 240))
	assert.False(t, res.Found)
	assert.Equal(t, 10.0, res.Heading)
	assert.Empty(t, res.Pairs)
	assert.False(t, hasRed(res.Annotated))

	assert.False(t, table.GetBoolean(telemetry.KeyTargetFound, true))
	assert.Equal(t, 10.0, table.GetNumber(telemetry.KeyTargetAngle, 0))
}

func TestProcess_EmptyFrame(t *testing.T) {
	table := telemetry.NewMemoryTable()
	table.PutNumber(telemetry.KeyHeading, 4)
	table.PutBoolean(telemetry.KeyTargetFound, true)

	p, err := New(testConfig(false), table)
	require.NoError(t, err)

	for _, frame := range []image.Image{nil, image.NewNRGBA(image.Rectangle{})} {
		res := p.Process(frame)
		assert.False(t, res.Found)
		assert.Equal(t, 4.0, res.Heading)
		assert.False(t, table.GetBoolean(telemetry.KeyTargetFound, true))

		// outputs are still well-formed rasters of the output size
		require.NotNil(t, res.Mask)
		require.NotNil(t, res.Annotated)
		assert.Equal(t, image.Rect(0, 0, 432, 240), res.Mask.Bounds())
		assert.Equal(t, image.Rect(0, 0, 432, 240), res.Annotated.Bounds())
		assert.Equal(t, uint8(0), res.Mask.GrayAt(10, 10).Y)
		assert.Equal(t, uint8(255), res.Annotated.NRGBAAt(10, 10).A)
	}
}

func TestProcess_DebugSkipsTelemetry(t *testing.T) {
	table := telemetry.NewMemoryTable()
	table.PutNumber(telemetry.KeyHeading, 10)

	p, err := New(testConfig(true), table)
	require.NoError(t, err)

	res := p.Process(createTargetFrame())
	require.True(t, res.Found)
	assert.InDelta(t, res.Offset, res.Heading, 1e-9, "previous heading is 0 in debug mode")

	snap := table.Snapshot()
	require.Len(t, snap, 1, "nothing written back")
	assert.Equal(t, telemetry.KeyHeading, snap[0].Key)
}

func TestProcess_ReusesMask(t *testing.T) {
	p, err := New(testConfig(true), nil)
	require.NoError(t, err)

	first := p.Process(createTargetFrame()).Mask
	second := p.Process(createBlankFrame(432, 240)).Mask
	assert.Same(t, first, second)
}

func TestProcess_DoesNotModifyFrame(t *testing.T) {
	p, err := New(testConfig(true), nil)
	require.NoError(t, err)

	frame := createTargetFrame()
	p.Process(frame)
	assert.False(t, hasRed(frame))
}
