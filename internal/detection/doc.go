// Package detection turns camera frames into target candidates.
//
// It covers the first two stages of the vision pipeline:
//
//  1. Binarize: convert a colour frame to HSV (OpenCV 8-bit scale) and keep
//     pixels inside the configured bounds, optionally followed by a 5x5
//     morphological closing.
//  2. Extract: find every contour of the mask, fit a minimum-area rotated
//     rectangle to each and keep the ones whose contour area, tilt and aspect
//     ratio fall inside the configured windows.
//
// # Contours
//
// Contours are retrieved in list mode: the outer border of every 8-connected
// foreground component and the border of every background hole enclosed by
// one. No hierarchy is kept. Border points are pixel centres in image
// coordinates, so a filled 10x10 square has a contour area of 81.
//
// # Rotated Rectangles
//
// Angles follow the OpenCV 3 minAreaRect convention. The angle is that of the
// rectangle edge whose direction lies in [-90, 0) degrees, measured in image
// coordinates (Y down), and Width is the rectangle extent along that edge. An
// upright rectangle therefore reports -90. Candidates are later normalised so
// that Width is the shorter side; the angle is not changed by that swap.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
package detection
