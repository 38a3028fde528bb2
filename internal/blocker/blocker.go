// Package blocker partitions a wavelet-decomposed band into an ordered,
// deterministic list of subband-aligned code blocks. Encoder and decoder
// must produce byte-identical block sequences from identical
// (height, width, levels, expected, maxDim) inputs; that sequence, not any
// particular in-memory layout, is the contract between the two sides.
package blocker

import (
	"fmt"

	"github.com/mrjoshuak/go-hsi2k/internal/dwt"
)

// Subband identifies which quadrant of a wavelet decomposition a block
// belongs to.
type Subband int

const (
	SubbandLL Subband = iota
	SubbandHL
	SubbandLH
	SubbandHH
)

func (s Subband) String() string {
	switch s {
	case SubbandLL:
		return "LL"
	case SubbandHL:
		return "HL"
	case SubbandLH:
		return "LH"
	case SubbandHH:
		return "HH"
	default:
		return fmt.Sprintf("Subband(%d)", int(s))
	}
}

// Block is one rectangular, subband-aligned region of a band. It carries no
// sample storage of its own: Glue code indexes into the band's backing
// array using RowOffset/ColOffset.
type Block struct {
	RowOffset, ColOffset int
	H, W                 int
	// Depth is the decomposition level this block's subband belongs to:
	// levels for LL, descending to 0 for the finest HL/LH/HH triple.
	Depth   int
	Subband Subband
}

// Plan holds the validated parameters of one blocker run, mirroring the
// eager-validation-at-construction pattern used throughout this module
// (compare quantize.New).
type Plan struct {
	Height, Width int
	Levels        int
	Expected      int
	MaxDim        int
}

// NewPlan validates its parameters and returns a Plan. expected must be a
// power of two and maxDim must be at least expected; these are
// configuration errors, rejected eagerly.
func NewPlan(height, width, levels, expected, maxDim int) (*Plan, error) {
	if height <= 0 || width <= 0 {
		return nil, fmt.Errorf("blocker: non-positive dimensions %dx%d", height, width)
	}
	if levels < 0 {
		return nil, fmt.Errorf("blocker: negative levels %d", levels)
	}
	if expected <= 0 || expected&(expected-1) != 0 {
		return nil, fmt.Errorf("blocker: expected block dim %d is not a power of two", expected)
	}
	if maxDim < expected {
		return nil, fmt.Errorf("blocker: maxDim %d is smaller than expected %d", maxDim, expected)
	}
	return &Plan{Height: height, Width: width, Levels: levels, Expected: expected, MaxDim: maxDim}, nil
}

// Blocks computes the deterministic, ordered block list for p. The
// sequence depends only on p's fields: equal plans yield equal lists
// across runs and platforms.
func (p *Plan) Blocks() []Block {
	rows := dwt.Stepper(p.Height, p.Levels)
	cols := dwt.Stepper(p.Width, p.Levels)

	var blocks []Block
	row, col := 0, 0

	for i := p.Levels; i >= 0; i-- {
		if i == p.Levels {
			blocks = append(blocks, tileRegion(0, 0, rows[i], cols[i], i, SubbandLL, p.Expected, p.MaxDim)...)
		} else {
			// HL: top rows, right columns.
			blocks = append(blocks, tileRegion(0, col, row, cols[i]-col, i, SubbandHL, p.Expected, p.MaxDim)...)
			// LH: bottom rows, left columns.
			blocks = append(blocks, tileRegion(row, 0, rows[i]-row, col, i, SubbandLH, p.Expected, p.MaxDim)...)
			// HH: bottom rows, right columns.
			blocks = append(blocks, tileRegion(row, col, rows[i]-row, cols[i]-col, i, SubbandHH, p.Expected, p.MaxDim)...)
		}
		row, col = rows[i], cols[i]
	}

	return blocks
}

// tileRegion applies blockSameSubBandRegion to one subband-aligned
// rectangle, translating the recursion's region-local offsets by
// (rowOff, colOff) and stamping every emitted block with (depth, subband).
func tileRegion(rowOff, colOff, h, w, depth int, sb Subband, expected, maxDim int) []Block {
	raw := blockSameSubBandRegion(rowOff, colOff, h, w, expected, maxDim)
	for i := range raw {
		raw[i].Depth = depth
		raw[i].Subband = sb
	}
	return raw
}

// blockSameSubBandRegion recursively tiles one (h x w) region anchored at
// (rowOff, colOff) into blocks of at most expected*expected samples each,
// per spec: a region smaller than expected on both axes becomes one
// block; a region short on exactly one axis becomes a long-thin block
// bounded by floor(expected^2/short), maxDim, and the long axis itself,
// with the remainder recursed on; a region at least expected on both axes
// peels off one expected x expected block and recurses on the three
// remaining L-shaped sub-regions.
func blockSameSubBandRegion(rowOff, colOff, h, w, expected, maxDim int) []Block {
	if h <= 0 || w <= 0 {
		return nil
	}

	if h < expected && w < expected {
		return []Block{{RowOffset: rowOff, ColOffset: colOff, H: h, W: w}}
	}

	if h < expected {
		// Rows are the short axis; columns are long.
		length := (expected * expected) / h
		if length > maxDim {
			length = maxDim
		}
		if length > w {
			length = w
		}
		block := Block{RowOffset: rowOff, ColOffset: colOff, H: h, W: length}
		rest := blockSameSubBandRegion(rowOff, colOff+length, h, w-length, expected, maxDim)
		return append([]Block{block}, rest...)
	}

	if w < expected {
		// Columns are the short axis; rows are long.
		length := (expected * expected) / w
		if length > maxDim {
			length = maxDim
		}
		if length > h {
			length = h
		}
		block := Block{RowOffset: rowOff, ColOffset: colOff, H: length, W: w}
		rest := blockSameSubBandRegion(rowOff+length, colOff, h-length, w, expected, maxDim)
		return append([]Block{block}, rest...)
	}

	// Both axes are at least expected: peel off one expected x expected
	// block and recurse on the right, below, and diagonal L-shaped pieces.
	var out []Block
	out = append(out, Block{RowOffset: rowOff, ColOffset: colOff, H: expected, W: expected})
	out = append(out, blockSameSubBandRegion(rowOff, colOff+expected, expected, w-expected, expected, maxDim)...)
	out = append(out, blockSameSubBandRegion(rowOff+expected, colOff, h-expected, expected, expected, maxDim)...)
	out = append(out, blockSameSubBandRegion(rowOff+expected, colOff+expected, h-expected, w-expected, expected, maxDim)...)
	return out
}
