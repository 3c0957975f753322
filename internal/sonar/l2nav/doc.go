// Package l2nav owns Layer 2 (Navigation) of the sonar data model.
//
// Responsibilities: projecting fixes into the project's planar CRS,
// repairing missing fixes, smoothing GPS jitter, course over ground, and
// the outer-range points either side of the trackline.
// Key types: Projection, Track.
//
// Dependency rule: L2 may depend on L1, but never on L3+.
package l2nav
