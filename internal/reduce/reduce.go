// Package reduce implements the pluggable spectral dimensionality-reduction
// front end described by the reducer contract: train a projection from a
// sample image, reduce a band stack to fewer components, and boost a reduced
// stack back toward the original band count.
//
// The contract is a tagged-variant capability set rather than a class
// hierarchy: a one-byte Tag selects the variant in the saved stream, and
// every variant implements the same Reducer interface.
package reduce

import (
	"fmt"
	"io"
	"math"
)

// Tag is the one-byte wire selector identifying a reducer variant.
type Tag byte

const (
	// TagIdentity selects the no-op reducer (numComponents == band count).
	TagIdentity Tag = iota
	// TagPCA selects the linear (principal-component) reducer.
	TagPCA
	// TagMNF selects the variance-weighted linear reducer.
	TagMNF
)

func (t Tag) String() string {
	switch t {
	case TagIdentity:
		return "identity"
	case TagPCA:
		return "pca"
	case TagMNF:
		return "mnf"
	default:
		return fmt.Sprintf("reduce.Tag(%d)", byte(t))
	}
}

// Reducer is the dimensionality-reduction contract external collaborators
// implement. bands is always a slice of equal-length float64 slices, one per
// spectral band, in (band, sample) row-major order.
type Reducer interface {
	// Train fits the reducer's internal parameters against a sample image.
	Train(bands [][]float64) error
	// Reduce projects a full band stack onto NumComponents() bands.
	Reduce(bands [][]float64) ([][]float64, error)
	// Boost expands a reduced stack back toward the original band count.
	// original is consulted only to validate shape; boosting never reads
	// back values the reducer did not itself store or compute.
	Boost(reduced [][]float64, original [][]float64) ([][]float64, error)
	// SaveTo serializes the trained parameters. The tag is not written
	// here; Save writes it ahead of SaveTo's output.
	SaveTo(w io.Writer) error
	// LoadFrom deserializes parameters previously written by SaveTo.
	// The tag itself has already been consumed by the caller.
	LoadFrom(r io.Reader) error
	// NumComponents is the number of bands Reduce emits.
	NumComponents() int
	// MaxValue and MinValue bound the samples of the band stack passed to
	// Train (not the reduced samples); they are derived during Train.
	MaxValue() float64
	MinValue() float64
	Tag() Tag
}

// Load reads a one-byte tag from r and constructs the matching Reducer,
// then calls LoadFrom to populate it.
func Load(r io.Reader) (Reducer, error) {
	var tagByte [1]byte
	if _, err := io.ReadFull(r, tagByte[:]); err != nil {
		return nil, fmt.Errorf("reduce: read tag: %w", err)
	}

	var red Reducer
	switch Tag(tagByte[0]) {
	case TagIdentity:
		red = &IdentityReducer{}
	case TagPCA:
		red = &LinearReducer{tag: TagPCA}
	case TagMNF:
		red = &LinearReducer{tag: TagMNF}
	default:
		return nil, fmt.Errorf("reduce: unknown tag %d", tagByte[0])
	}

	if err := red.LoadFrom(r); err != nil {
		return nil, err
	}
	return red, nil
}

// Save writes red's tag followed by its serialized parameters.
func Save(w io.Writer, red Reducer) error {
	if _, err := w.Write([]byte{byte(red.Tag())}); err != nil {
		return fmt.Errorf("reduce: write tag: %w", err)
	}
	return red.SaveTo(w)
}

func validateBands(bands [][]float64) error {
	if len(bands) == 0 {
		return fmt.Errorf("reduce: empty band stack")
	}
	n := len(bands[0])
	for i, b := range bands {
		if len(b) != n {
			return fmt.Errorf("reduce: band %d has %d samples, want %d", i, len(b), n)
		}
	}
	return nil
}

func minMax(bands [][]float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, b := range bands {
		for _, v := range b {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}
	return lo, hi
}
