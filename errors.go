package hsi2k

import "errors"

// Error taxonomy (spec §7). Configuration errors are raised eagerly at
// construction time; contract violations indicate a programming bug in the
// driver; framing errors are non-recoverable decode-time failures.
// Numeric-saturation events are not errors at all — see Stats.
var (
	// ErrConfiguration marks an invalid parameter range rejected at
	// construction (quantizer limits, non-power-of-two block dims, depth
	// out of range). Check with errors.Is.
	ErrConfiguration = errors.New("hsi2k: configuration error")

	// ErrContractViolation marks a caller-side programming error: a
	// non-existent bitplane, an out-of-bounds block offset, mismatched
	// band sizes.
	ErrContractViolation = errors.New("hsi2k: contract violation")

	// ErrFraming marks a stream framing error: truncated bytes or an
	// invalid algorithm tag encountered while decoding. Non-recoverable
	// for the current image.
	ErrFraming = errors.New("hsi2k: stream framing error")
)
