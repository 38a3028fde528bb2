// Package hsi2k implements the core compression engine of a
// hyperspectral-image codec inspired by JPEG2000: spectral dimensionality
// reduction, a dyadic wavelet transform, scalar quantization into
// sign-magnitude integers, subband-aware code-block partitioning, and
// bitplane entropy coding with an MQ-style binary arithmetic coder.
//
// The package is a pure computation library in the teacher's tradition: no
// logging, no CLI, no file-format framing. Errors are returned and wrapped
// with fmt.Errorf("%w", ...); numeric saturation is counted on Stats, never
// logged or raised as an error.
package hsi2k

import "fmt"

// Matrix is the abstract 2-D integer capability shared by bands and code
// blocks (spec's "integer matrix as an abstract capability" redesign note).
// Concrete implementations are an owning array (OwningMatrix) and a
// windowed view onto a parent array (WindowView, as returned by Image.Band).
type Matrix interface {
	Get(row, col int) int32
	Set(row, col int, v int32)
	Rows() int
	Columns() int
}

// OwningMatrix is a Matrix backed by its own row-major array.
type OwningMatrix struct {
	data          []int32
	rows, columns int
}

// NewOwningMatrix allocates a zeroed rows x columns matrix.
func NewOwningMatrix(rows, columns int) *OwningMatrix {
	return &OwningMatrix{data: make([]int32, rows*columns), rows: rows, columns: columns}
}

func (m *OwningMatrix) Get(row, col int) int32  { return m.data[row*m.columns+col] }
func (m *OwningMatrix) Set(row, col int, v int32) { m.data[row*m.columns+col] = v }
func (m *OwningMatrix) Rows() int               { return m.rows }
func (m *OwningMatrix) Columns() int            { return m.columns }

// Raw exposes the owning matrix's backing row-major array for callers that
// fill or read the whole grid contiguously (the codec's quantized words).
func (m *OwningMatrix) Raw() []int32 { return m.data }

// WindowView is a Matrix that aliases a rectangular sub-region of a parent
// array, carrying its own (rowOffset, colOffset); writes through the view
// mutate the parent's storage (spec's "back-references" redesign note: the
// view is a borrowed reference, never a copy).
type WindowView struct {
	parent               []int32
	parentStride         int
	rowOffset, colOffset int
	rows, columns        int
}

// NewWindowView aliases a (rows x columns) window of parent (row-major,
// parentStride columns wide) starting at (rowOffset, colOffset).
func NewWindowView(parent []int32, parentStride, rowOffset, colOffset, rows, columns int) *WindowView {
	return &WindowView{
		parent:       parent,
		parentStride: parentStride,
		rowOffset:    rowOffset,
		colOffset:    colOffset,
		rows:         rows,
		columns:      columns,
	}
}

func (v *WindowView) index(row, col int) int {
	return (v.rowOffset+row)*v.parentStride + (v.colOffset + col)
}

func (v *WindowView) Get(row, col int) int32   { return v.parent[v.index(row, col)] }
func (v *WindowView) Set(row, col int, val int32) { v.parent[v.index(row, col)] = val }
func (v *WindowView) Rows() int                { return v.rows }
func (v *WindowView) Columns() int             { return v.columns }

// Image is a 3-D integer grid I[b,l,s] of fixed bit depth and dimensions
// (Bands, Lines, Samples). Band data is stored contiguously per band so
// Band can return a WindowView that aliases one band's slice.
type Image struct {
	Bands, Lines, Samples int
	Depth                 int
	Signed                bool
	data                  []int32
}

// NewImage allocates a zeroed image. depth must be in [2,32].
func NewImage(bands, lines, samples, depth int, signed bool) (*Image, error) {
	if bands <= 0 || lines <= 0 || samples <= 0 {
		return nil, fmt.Errorf("hsi2k: non-positive image dimensions (%d,%d,%d): %w", bands, lines, samples, ErrConfiguration)
	}
	if depth < 2 || depth > 32 {
		return nil, fmt.Errorf("hsi2k: depth %d out of range [2,32]: %w", depth, ErrConfiguration)
	}
	return &Image{
		Bands:   bands,
		Lines:   lines,
		Samples: samples,
		Depth:   depth,
		Signed:  signed,
		data:    make([]int32, bands*lines*samples),
	}, nil
}

// Band returns a mutable, aliasing (Lines x Samples) view onto band index b.
func (img *Image) Band(b int) (*WindowView, error) {
	if b < 0 || b >= img.Bands {
		return nil, fmt.Errorf("hsi2k: band index %d out of range [0,%d): %w", b, img.Bands, ErrContractViolation)
	}
	offset := b * img.Lines * img.Samples
	return NewWindowView(img.data[offset:offset+img.Lines*img.Samples], img.Samples, 0, 0, img.Lines, img.Samples), nil
}

// Stats accumulates non-error runtime counters surfaced to the caller
// instead of being logged: numeric-saturation events from quantization and
// per-block encoded byte counts (spec §7.4, §2 row "Glue").
type Stats struct {
	SamplesQuantized  int64
	SamplesSaturated  int64
	BlocksEncoded     int64
	EncodedBytesTotal int64
}

// Add folds another Stats into s, used to accumulate per-band totals.
func (s *Stats) Add(other Stats) {
	s.SamplesQuantized += other.SamplesQuantized
	s.SamplesSaturated += other.SamplesSaturated
	s.BlocksEncoded += other.BlocksEncoded
	s.EncodedBytesTotal += other.EncodedBytesTotal
}
