package server

import (
	"testing"
)

func TestGetToolDefinitions(t *testing.T) {
	tools := GetToolDefinitions()

	want := map[string][]string{
		"target_analyze":    {"path"},
		"target_mask":       {"path"},
		"target_annotate":   {"path"},
		"target_sample_hsv": {"path", "points"},
		"target_config":     nil,
	}
	if len(tools) != len(want) {
		t.Fatalf("got %d tools, want %d", len(tools), len(want))
	}

	for _, tool := range tools {
		required, ok := want[tool.Name]
		if !ok {
			t.Errorf("unexpected tool %s", tool.Name)
			continue
		}
		if tool.Description == "" {
			t.Errorf("%s: empty description", tool.Name)
		}
		if tool.InputSchema["type"] != "object" {
			t.Errorf("%s: schema type should be object", tool.Name)
		}

		props, ok := tool.InputSchema["properties"].(map[string]interface{})
		if !ok {
			t.Errorf("%s: missing properties", tool.Name)
			continue
		}
		if _, ok := props["config"]; !ok {
			t.Errorf("%s: every tool accepts config overrides", tool.Name)
		}

		got, _ := tool.InputSchema["required"].([]string)
		if len(got) != len(required) {
			t.Errorf("%s: required %v, want %v", tool.Name, got, required)
			continue
		}
		for i := range got {
			if got[i] != required[i] {
				t.Errorf("%s: required %v, want %v", tool.Name, got, required)
			}
			if _, ok := props[got[i]]; !ok {
				t.Errorf("%s: required field %s has no property", tool.Name, got[i])
			}
		}
	}
}

func TestHandleToolsList(t *testing.T) {
	s := newTestServer()
	resp := s.handleRequest(&MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/list"})
	if resp.Error != nil {
		t.Fatalf("tools/list failed: %+v", resp.Error)
	}

	result := resp.Result.(map[string]interface{})
	tools, ok := result["tools"].([]Tool)
	if !ok {
		t.Fatalf("tools has type %T", result["tools"])
	}
	if len(tools) != len(GetToolDefinitions()) {
		t.Errorf("got %d tools", len(tools))
	}
}
