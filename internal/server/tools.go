package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

var pathProperty = map[string]interface{}{
	"type":        "string",
	"description": "Absolute path to the frame (jpg, png or gif)",
}

var configProperty = map[string]interface{}{
	"type": "object",
	"description": "Optional overrides using the pipeline config keys " +
		"(h_min, h_max, s_min, s_max, v_min, v_max, area_min, t_pos_low, t_pos_up, " +
		"t_neg_low, t_neg_up, ratio_min, ratio_max, fov, frame_width, frame_height, morph_close)",
}

var scaleProperty = map[string]interface{}{
	"type":        "number",
	"description": "Optional scale factor for the returned image. Default 1.0",
	"default":     1.0,
}

var headingProperty = map[string]interface{}{
	"type":        "number",
	"description": "Robot heading in degrees before this frame. Default 0",
	"default":     0.0,
}

var reloadProperty = map[string]interface{}{
	"type":        "boolean",
	"description": "Decode the file again even if a cached copy looks current. Default false",
	"default":     false,
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name: "target_analyze",
			Description: "Run the full target pipeline on a frame. Returns every candidate strip, " +
				"the pairs formed from them, the angular offset of the chosen pair and the new heading.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":    pathProperty,
					"heading": headingProperty,
					"reload":  reloadProperty,
					"config":  configProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "target_mask",
			Description: "Binarize a frame with the HSV bounds and return the mask as base64-encoded PNG. White pixels passed the bounds.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":   pathProperty,
					"scale":  scaleProperty,
					"reload": reloadProperty,
					"config": configProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "target_annotate",
			Description: "Return the frame as base64-encoded PNG with paired strips outlined, pair centres marked and offsets labelled.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":    pathProperty,
					"scale":   scaleProperty,
					"heading": headingProperty,
					"reload":  reloadProperty,
					"config":  configProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "target_sample_hsv",
			Description: "Sample pixels and report their colour as hex, RGB and OpenCV-scale HSV (H 0-180, S and V 0-255), and whether each passes the HSV bounds.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
					"points": map[string]interface{}{
						"type":        "array",
						"description": "Pixels to sample",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"x":     map[string]interface{}{"type": "integer"},
								"y":     map[string]interface{}{"type": "integer"},
								"label": map[string]interface{}{"type": "string"},
							},
							"required": []string{"x", "y"},
						},
					},
					"reload": reloadProperty,
					"config": configProperty,
				},
				"required": []string{"path", "points"},
			},
		},
		{
			Name:        "target_config",
			Description: "Return the effective pipeline configuration after applying overrides, or the validation error.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"config": configProperty,
				},
			},
		},
	}
}

func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
