// Package imaging provides the frame-level image operations used around the
// target pipeline: loading and saving frames, HSV conversion, output resizing,
// and drawing the debug annotations onto a copy of a frame.
//
// All operations work with standard Go image.Image types and use a coordinate
// system where (0,0) is at the top-left corner, X increases rightward, and Y
// increases downward.
//
// # HSV Scale
//
// HSV values follow the 8-bit scale used by OpenCV so that thresholds tuned
// against OpenCV tooling carry over unchanged:
//   - H: 0-180 (degrees on the colour wheel divided by two)
//   - S: 0-255
//   - V: 0-255
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Individual image operations
// are stateless and can be called concurrently on different images. Annotate
// never writes to the frame it is given; it draws on a clone.
//
// # Error Handling
//
// Functions return errors for invalid inputs such as:
//   - Coordinates outside image bounds
//   - File I/O errors during image loading or saving
//   - Encoding errors during image output
package imaging
