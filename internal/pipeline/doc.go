// Package pipeline runs the per-frame vision stages and exchanges the result
// with the robot.
//
// For each frame Process reads the robot heading from telemetry, binarizes
// the frame, extracts and pairs candidates, folds the best pair's offset into
// the heading and writes target_angle and target_found back. In debug mode
// the telemetry reads and writes are skipped and the previous heading is 0.
//
// Runner drives Process from a camera.Source and hands each result to a
// Listener, usually one that pushes the annotated frame and the mask to
// output sinks. A Pipeline is not safe for concurrent use; the mask in a
// Result is reused by the next call to Process.
package pipeline
