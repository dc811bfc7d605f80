// Package server implements the MCP (Model Context Protocol) server used to
// tune the target pipeline offline.
//
// The server speaks JSON-RPC 2.0 over stdio, one request per line, and
// exposes the vision stages as tools so a frame can be inspected while
// thresholds are adjusted:
//
//   - target_analyze: run the whole pipeline on a frame and report
//     candidates, pairs, the offset and the resulting heading
//   - target_mask: the binarized frame as a PNG
//   - target_annotate: the frame with pairs outlined and offsets labelled
//   - target_sample_hsv: pixel colours on the OpenCV HSV scale, and whether
//     they pass the current bounds
//   - target_config: the effective configuration after overrides
//
// Every tool takes an optional "config" object with the same keys as the
// pipeline config file. Keys present there override the server's base
// configuration for that call only.
//
// Frames are cached by path for the lifetime of the process.
//
// Tool failures are returned as JSON-RPC errors with code -32000 and the Go
// error string as data.
package server
