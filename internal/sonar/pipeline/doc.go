// Package pipeline provides orchestration for the sonar processing run.
//
// It wires the layer packages (L1-L6) and the storage repositories into a
// staged flow: bed picking per chunk, a barrier, depth reconciliation per
// survey line, rectification per chunk, a second barrier, and mosaicking.
// The pipeline does not own domain logic; it delegates to layer packages
// and adapters.
package pipeline
