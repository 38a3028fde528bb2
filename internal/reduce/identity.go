package reduce

import (
	"encoding/binary"
	"fmt"
	"io"
)

// IdentityReducer passes bands through unchanged. It is the "identity-delete"
// variant named in the reducer contract: numComponents equals the trained
// band count and reduce/boost are pure copies.
type IdentityReducer struct {
	bands  int
	lo, hi float64
}

// NewIdentityReducer returns an untrained identity reducer.
func NewIdentityReducer() *IdentityReducer {
	return &IdentityReducer{}
}

func (r *IdentityReducer) Train(bands [][]float64) error {
	if err := validateBands(bands); err != nil {
		return err
	}
	r.bands = len(bands)
	r.lo, r.hi = minMax(bands)
	return nil
}

func (r *IdentityReducer) Reduce(bands [][]float64) ([][]float64, error) {
	if len(bands) != r.bands {
		return nil, fmt.Errorf("reduce: identity reducer trained on %d bands, got %d", r.bands, len(bands))
	}
	out := make([][]float64, len(bands))
	for i, b := range bands {
		cp := make([]float64, len(b))
		copy(cp, b)
		out[i] = cp
	}
	return out, nil
}

func (r *IdentityReducer) Boost(reduced [][]float64, original [][]float64) ([][]float64, error) {
	if len(reduced) != r.bands {
		return nil, fmt.Errorf("reduce: identity reducer trained on %d bands, got %d reduced bands", r.bands, len(reduced))
	}
	if original != nil && len(original) != r.bands {
		return nil, fmt.Errorf("reduce: boost reference has %d bands, want %d", len(original), r.bands)
	}
	return r.Reduce(reduced)
}

func (r *IdentityReducer) SaveTo(w io.Writer) error {
	return binary.Write(w, binary.BigEndian, uint32(r.bands))
}

func (r *IdentityReducer) LoadFrom(rd io.Reader) error {
	var n uint32
	if err := binary.Read(rd, binary.BigEndian, &n); err != nil {
		return fmt.Errorf("reduce: identity LoadFrom: %w", err)
	}
	r.bands = int(n)
	return nil
}

func (r *IdentityReducer) NumComponents() int { return r.bands }
func (r *IdentityReducer) MaxValue() float64  { return r.hi }
func (r *IdentityReducer) MinValue() float64  { return r.lo }
func (r *IdentityReducer) Tag() Tag           { return TagIdentity }
