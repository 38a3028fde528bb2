// Package quantize implements the scalar quantizer that turns normalized
// wavelet coefficients into sign-magnitude integers and back.
package quantize

import "fmt"

// Config holds the quantizer's construction parameters. All fields are
// validated eagerly by New: a bad Config is a configuration error, raised
// once at construction rather than surfacing later as a runtime failure.
type Config struct {
	// Exponent and Mantissa set the quantization step Delta = 2^-Exponent *
	// (1 + Mantissa/2048).
	Exponent int
	Mantissa int
	// Guard is the number of extra headroom bits absorbing excursions
	// beyond [Lo, Hi].
	Guard int
	// Lo, Hi bound the sample range being quantized (Lo < Hi).
	Lo, Hi float64
	// R is the reconstruction offset added to the magnitude bit pattern
	// during dequantization, typically 0.375 or 0.5.
	R float64
}

// Stats accumulates quantizer runtime counters. It is not an error
// channel: saturation is an expected, counted event, never raised as an
// error (see the numeric-saturation event in the error taxonomy).
type Stats struct {
	Quantized int64
	Saturated int64
}

// Quantizer converts normalized float64 samples to sign-magnitude integers
// (mag | sign<<P) and back, per the derivation in Config's doc comment.
type Quantizer struct {
	cfg Config

	delta float64
	// p is magnitudeBitPlanes, the count of magnitude bit planes;
	// the sign bit lives at bit position p.
	p int
	// maxMag is the largest representable magnitude, 2^p - 1.
	maxMag int32
	// guardLo, guardHi bound the normalized, clamped range.
	guardLo, guardHi float64

	Stats Stats
}

// New validates cfg and constructs a Quantizer. Configuration errors are
// raised here, eagerly, never at Quantize/Dequantize time.
func New(cfg Config) (*Quantizer, error) {
	if cfg.Exponent < 0 || cfg.Exponent >= 32 {
		return nil, fmt.Errorf("quantize: exponent %d out of range [0,32)", cfg.Exponent)
	}
	if cfg.Mantissa < 0 || cfg.Mantissa >= 2048 {
		return nil, fmt.Errorf("quantize: mantissa %d out of range [0,2048)", cfg.Mantissa)
	}
	if cfg.Guard < 0 || cfg.Guard > 7 {
		return nil, fmt.Errorf("quantize: guard %d out of range [0,7]", cfg.Guard)
	}
	if !(cfg.Lo < cfg.Hi) {
		return nil, fmt.Errorf("quantize: empty or inverted range [%v,%v]", cfg.Lo, cfg.Hi)
	}
	if cfg.R < -1 || cfg.R > 1 {
		return nil, fmt.Errorf("quantize: reconstruction offset %v out of range [-1,1]", cfg.R)
	}

	p := cfg.Exponent + cfg.Guard - 1
	if p < 0 {
		p = 0
	}
	if cfg.Guard == 0 && cfg.Exponent == 0 {
		return nil, fmt.Errorf("quantize: guard=0 with exponent=0 is a forbidden parameter combination")
	}

	delta := exp2(-cfg.Exponent) * (1 + float64(cfg.Mantissa)/2048)

	var guardLo, guardHi float64
	if cfg.Guard == 0 {
		guardLo, guardHi = -0.5, 0.5
	} else {
		half := exp2(cfg.Guard - 1)
		guardLo, guardHi = -half, half
	}

	return &Quantizer{
		cfg:     cfg,
		delta:   delta,
		p:       p,
		maxMag:  (int32(1) << uint(p)) - 1,
		guardLo: guardLo,
		guardHi: guardHi,
	}, nil
}

// MagnitudeBitPlanes returns P, the number of magnitude bit planes; the
// sign bit of a quantized word lives at bit position P.
func (q *Quantizer) MagnitudeBitPlanes() int { return q.p }

// Delta returns the quantization step size.
func (q *Quantizer) Delta() float64 { return q.delta }

// Quantize normalizes x into [-0.5, 0.5) relative to [Lo, Hi], clamps it to
// the guard band, and emits a sign-magnitude word mag | sign<<P. Runtime
// quantization never fails: out-of-range samples saturate instead.
func (q *Quantizer) Quantize(x float64) int32 {
	q.Stats.Quantized++

	y := (x-q.cfg.Lo)/(q.cfg.Hi-q.cfg.Lo) - 0.5

	if y < q.guardLo {
		y = q.guardLo
		q.Stats.Saturated++
	} else if y > q.guardHi {
		y = q.guardHi
		q.Stats.Saturated++
	}

	mag := int32(absFloat(y) / q.delta)
	if mag > q.maxMag {
		mag = q.maxMag
		q.Stats.Saturated++
	}

	if mag == 0 {
		return 0
	}

	word := mag
	if y < 0 {
		word |= int32(1) << uint(q.p)
	}
	return word
}

// Dequantize reconstructs a normalized float64 from a sign-magnitude word
// previously produced by Quantize (or decoded by the entropy coder).
func (q *Quantizer) Dequantize(word int32) float64 {
	signMask := int32(1) << uint(q.p)
	mag := word &^ signMask

	if mag == 0 {
		return (0.5)*(q.cfg.Hi-q.cfg.Lo) + q.cfg.Lo
	}

	y := (float64(mag) + q.cfg.R) * q.delta
	if word&signMask != 0 {
		y = -y
	}

	return (y+0.5)*(q.cfg.Hi-q.cfg.Lo) + q.cfg.Lo
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// exp2 computes 2^n for integer n without pulling in math.Pow for a
// single, always-integer exponent.
func exp2(n int) float64 {
	if n >= 0 {
		return float64(int64(1) << uint(n))
	}
	return 1 / float64(int64(1)<<uint(-n))
}
