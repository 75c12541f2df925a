// Package barcode wraps the external PDF417 symbol-rendering engine behind a
// narrow boundary: parameter clamping and failure classification live here so
// the matching rules against the engine's free-text errors have one place to
// evolve.
package barcode

import "context"

// RenderOptions are the tunable PDF417 parameters: redundancy versus density.
type RenderOptions struct {
	// ErrorCorrectionLevel is the PDF417 security level, valid range [0,8].
	ErrorCorrectionLevel int
	// Columns is the data column count, valid range [1,30].
	Columns int
}

// Engine is the black-box symbol renderer. Given a payload and options it
// returns encoded image bytes or fails with a free-text error message. The
// engine's codeword/error-correction internals are opaque to this package.
//
// Implementations are treated as blocking and not assumed safe for
// unsynchronized concurrent use of a shared drawing surface; each invocation
// must own its rendering surface.
type Engine interface {
	RenderSymbol(ctx context.Context, payload string, opts RenderOptions) ([]byte, error)
}

// Clamp bounds for render parameters.
const (
	minErrorCorrection = 0
	maxErrorCorrection = 8
	minColumns         = 1
	maxColumns         = 30
)

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
