package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
)

// DefaultFRCPath is where the vision image keeps its camera configuration.
const DefaultFRCPath = "/boot/frc.json"

// FRCConfig is the camera and network configuration of a vision coprocessor.
//
// JSON format:
//
//	{
//	  "team": <team number>,
//	  "ntmode": <"client" or "server", "client" if unspecified>,
//	  "cameras": [
//	    {
//	      "name": <camera name>,
//	      "path": <path, e.g. "/dev/video0">,
//	      "pixel format": <"MJPEG", "YUYV", etc>,   // optional
//	      "width": <video mode width>,              // optional
//	      "height": <video mode height>,            // optional
//	      "fps": <video mode fps>,                  // optional
//	      "brightness": <percentage brightness>,    // optional
//	      "white balance": <"auto", "hold", value>, // optional
//	      "exposure": <"auto", "hold", value>,      // optional
//	      "properties": [{"name": ..., "value": ...}], // optional
//	      "stream": { "properties": [...] }         // optional
//	    }
//	  ]
//	}
type FRCConfig struct {
	Team    int            `json:"team"`
	Server  bool           `json:"-"`
	Cameras []CameraConfig `json:"cameras"`
}

// CameraConfig describes one USB camera.
type CameraConfig struct {
	Name         string           `json:"name"`
	Path         string           `json:"path"`
	PixelFormat  string           `json:"pixel format,omitempty"`
	Width        int              `json:"width,omitempty"`
	Height       int              `json:"height,omitempty"`
	FPS          int              `json:"fps,omitempty"`
	Brightness   *int             `json:"brightness,omitempty"`
	WhiteBalance Setting          `json:"white balance,omitempty"`
	Exposure     Setting          `json:"exposure,omitempty"`
	Properties   []CameraProperty `json:"properties,omitempty"`

	// Stream is kept raw and handed to the stream server untouched.
	Stream json.RawMessage `json:"stream,omitempty"`
}

// CameraProperty is a named driver property.
type CameraProperty struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

// Setting is a camera control that is either "auto", "hold" or a number.
type Setting struct {
	Mode  string // "", "auto", "hold" or "manual"
	Value int
}

// UnmarshalJSON accepts "auto", "hold", a number or a numeric string.
func (s *Setting) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = Setting{}
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*s = Setting{Mode: "manual", Value: n}
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("setting must be a string or number: %w", err)
	}
	switch lower := strings.ToLower(str); lower {
	case "auto", "hold":
		*s = Setting{Mode: lower}
		return nil
	default:
		v, err := strconv.Atoi(str)
		if err != nil {
			return fmt.Errorf("unknown setting value %q", str)
		}
		*s = Setting{Mode: "manual", Value: v}
		return nil
	}
}

// MarshalJSON writes the setting back in the form it was read.
func (s Setting) MarshalJSON() ([]byte, error) {
	switch s.Mode {
	case "":
		return []byte("null"), nil
	case "manual":
		return json.Marshal(s.Value)
	default:
		return json.Marshal(s.Mode)
	}
}

// IsSet reports whether the setting was present in the file.
func (s Setting) IsSet() bool {
	return s.Mode != ""
}

// ReadFRCConfig reads the camera configuration file at path.
//
// Errors are reported as "config error in '<path>': ...". An unrecognised
// ntmode is logged and ignored, leaving client mode in effect.
func ReadFRCConfig(path string) (*FRCConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not open '%s': %w", path, err)
	}
	cfg, err := ParseFRCConfig(data)
	if err != nil {
		return nil, fmt.Errorf("config error in '%s': %w", path, err)
	}
	return cfg, nil
}

// ParseFRCConfig parses the contents of a camera configuration file.
func ParseFRCConfig(data []byte) (*FRCConfig, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("must be JSON object: %w", err)
	}

	cfg := &FRCConfig{}

	rawTeam, ok := top["team"]
	if !ok {
		return nil, fmt.Errorf("could not read team number")
	}
	if err := json.Unmarshal(rawTeam, &cfg.Team); err != nil {
		return nil, fmt.Errorf("could not read team number: %w", err)
	}

	if rawMode, ok := top["ntmode"]; ok {
		var mode string
		if err := json.Unmarshal(rawMode, &mode); err != nil {
			return nil, fmt.Errorf("could not read ntmode: %w", err)
		}
		switch strings.ToLower(mode) {
		case "client":
			cfg.Server = false
		case "server":
			cfg.Server = true
		default:
			log.Printf("[config] could not understand ntmode value '%s'", mode)
		}
	}

	rawCams, ok := top["cameras"]
	if !ok {
		return nil, fmt.Errorf("could not read cameras")
	}
	var cams []json.RawMessage
	if err := json.Unmarshal(rawCams, &cams); err != nil {
		return nil, fmt.Errorf("could not read cameras: %w", err)
	}
	for _, raw := range cams {
		cam, err := parseCamera(raw)
		if err != nil {
			return nil, err
		}
		cfg.Cameras = append(cfg.Cameras, cam)
	}
	return cfg, nil
}

func parseCamera(raw json.RawMessage) (CameraConfig, error) {
	var cam CameraConfig
	if err := json.Unmarshal(raw, &cam); err != nil {
		return cam, fmt.Errorf("could not read camera: %w", err)
	}
	if cam.Name == "" {
		return cam, fmt.Errorf("could not read camera name")
	}
	if cam.Path == "" {
		return cam, fmt.Errorf("camera '%s': could not read path", cam.Name)
	}
	return cam, nil
}
