// Package l3bedpick owns Layer 3 (Bed picking) of the sonar data model.
//
// Responsibilities: estimating the water/bed boundary row for every ping
// in a chunk, either from the instrument depth, from the intensity image
// (blur, column threshold, morphological cleanup) or from an injected
// segmentation mask.
// Key types: Picker, Picks, Mask, BedSegmenter.
//
// Dependency rule: L3 may depend on L1, but never on L4+.
// A ping that cannot be resolved is null; a chunk is never aborted for it.
package l3bedpick
