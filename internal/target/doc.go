// Package target pairs detection candidates into vision targets and turns
// the chosen target into a heading correction.
//
// A target is two reflective strips tilted towards each other. Match pairs
// candidates with a greedy scan: the first valid partner found for a
// candidate wins and both are removed from further consideration, so the
// candidate order decides between competing matches. When exactly one
// candidate is visible a phantom partner is synthesised on the side its tilt
// points away from.
//
// Estimate maps each pair's centre to an angle from the image centre with the
// linear small-angle approximation offset = ((x - W/2) / W) * (FOV / 2) and
// applies the smallest signed offset to the previous heading.
package target
