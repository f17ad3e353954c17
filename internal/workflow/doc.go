// Package workflow composes the full time-lag analysis of one experiment:
// preprocessing, stabilisation detection, the steady-state fit and the
// diffusion simulation that validates it.
//
// A Runner holds only a logger and its validation metrics, so independent
// experiments can run concurrently through [Runner.Batch].
package workflow
