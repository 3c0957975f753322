// Package l5rectify owns Layer 5 (Rectification) of the sonar data model.
//
// Responsibilities: water-column removal, along-track speed correction
// and the piecewise-affine warp of a chunk image from ping/range space
// onto a north-up map grid.
// Key types: Config, Input.
//
// Dependency rule: L5 may depend on L1–L4, but never on L6.
// Output rows increase southward by construction; no post-warp flip is
// applied.
package l5rectify
