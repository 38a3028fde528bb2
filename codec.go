package hsi2k

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/mrjoshuak/go-hsi2k/internal/bio"
	"github.com/mrjoshuak/go-hsi2k/internal/blocker"
	"github.com/mrjoshuak/go-hsi2k/internal/dwt"
	"github.com/mrjoshuak/go-hsi2k/internal/entropy"
	"github.com/mrjoshuak/go-hsi2k/internal/quantize"
	"github.com/mrjoshuak/go-hsi2k/internal/reduce"
)

// Params bundles the compression parameters written to the coded stream's
// header: wavelet levels, blocker dimensions, and quantizer configuration
// (spec §6, "compression-params").
type Params struct {
	Levels   int
	Expected int
	MaxDim   int
	Quant    quantize.Config
}

// Encoder drives the full pipeline: reduce -> wavelet -> quantize ->
// blocker -> {bitplane coder -> MQ -> bit output}. Its mutable state is
// Stats and the reducer, which Encode retrains on every image; the core is
// single-threaded and strictly sequential (spec §5).
type Encoder struct {
	params  Params
	reducer reduce.Reducer
	Stats   Stats
}

// NewEncoder validates params and constructs an Encoder. reducer may be
// nil, in which case an IdentityReducer is used (no spectral reduction).
func NewEncoder(params Params, reducer reduce.Reducer) (*Encoder, error) {
	if params.Levels < 0 {
		return nil, fmt.Errorf("hsi2k: negative wavelet levels %d: %w", params.Levels, ErrConfiguration)
	}
	if params.Expected <= 0 || params.Expected&(params.Expected-1) != 0 {
		return nil, fmt.Errorf("hsi2k: expected block dim %d is not a power of two: %w", params.Expected, ErrConfiguration)
	}
	if params.MaxDim < params.Expected {
		return nil, fmt.Errorf("hsi2k: maxDim %d is smaller than expected %d: %w", params.MaxDim, params.Expected, ErrConfiguration)
	}
	if _, err := quantize.New(params.Quant); err != nil {
		return nil, fmt.Errorf("hsi2k: %w: %w", err, ErrConfiguration)
	}
	if reducer == nil {
		reducer = reduce.NewIdentityReducer()
	}
	return &Encoder{params: params, reducer: reducer}, nil
}

// Encode writes the coded stream for img to w.
func (e *Encoder) Encode(w io.Writer, img *Image) error {
	bands, err := imageToBands(img)
	if err != nil {
		return err
	}

	if err := e.reducer.Train(bands); err != nil {
		return fmt.Errorf("hsi2k: reducer training: %w", err)
	}
	reduced, err := e.reducer.Reduce(bands)
	if err != nil {
		return fmt.Errorf("hsi2k: reducer reduce: %w", err)
	}

	if err := e.writeHeader(w, img, len(reduced)); err != nil {
		return err
	}

	q, err := quantize.New(e.params.Quant)
	if err != nil {
		return fmt.Errorf("hsi2k: %w", err)
	}

	var total Stats
	for _, band := range reduced {
		bandStats, err := e.encodeBand(w, band, img.Lines, img.Samples, q)
		if err != nil {
			return err
		}
		total.Add(bandStats)
	}

	total.SamplesQuantized += q.Stats.Quantized
	total.SamplesSaturated += q.Stats.Saturated
	e.Stats.Add(total)
	return nil
}

func (e *Encoder) writeHeader(w io.Writer, img *Image, numReducedBands int) error {
	vw := bio.NewVariableLengthWriter(w)

	header := []uint32{
		uint32(img.Bands), uint32(img.Lines), uint32(img.Samples), uint32(img.Depth),
		uint32(e.params.Levels), uint32(e.params.Expected), uint32(e.params.MaxDim),
		uint32(numReducedBands),
		uint32(e.params.Quant.Exponent), uint32(e.params.Quant.Mantissa), uint32(e.params.Quant.Guard),
	}
	for _, v := range header {
		if err := vw.Write(v); err != nil {
			return fmt.Errorf("hsi2k: write header: %w", err)
		}
	}
	if img.Signed {
		if err := vw.Write(1); err != nil {
			return fmt.Errorf("hsi2k: write header: %w", err)
		}
	} else {
		if err := vw.Write(0); err != nil {
			return fmt.Errorf("hsi2k: write header: %w", err)
		}
	}

	for _, f := range []float64{e.params.Quant.Lo, e.params.Quant.Hi, e.params.Quant.R} {
		if err := binary.Write(w, binary.BigEndian, f); err != nil {
			return fmt.Errorf("hsi2k: write header: %w", err)
		}
	}

	if err := reduce.Save(w, e.reducer); err != nil {
		return fmt.Errorf("hsi2k: write reducer state: %w", err)
	}
	return nil
}

// encodeBand runs one reduced band through wavelet -> quantize -> blocker ->
// entropy coding, writing one length-prefixed chunk per code block. The
// quantized word grid is held in an OwningMatrix so extraction of each code
// block's sub-rectangle goes through the Matrix capability rather than raw
// slice arithmetic.
func (e *Encoder) encodeBand(w io.Writer, band []float64, lines, samples int, q *quantize.Quantizer) (Stats, error) {
	var stats Stats

	coeffs := make([]float64, len(band))
	copy(coeffs, band)
	dwt.DecomposeMultiLevel97(coeffs, samples, lines, e.params.Levels)

	wordsMat := NewOwningMatrix(lines, samples)
	raw := wordsMat.Raw()
	for i, c := range coeffs {
		raw[i] = q.Quantize(c)
	}

	plan, err := blocker.NewPlan(lines, samples, e.params.Levels, e.params.Expected, e.params.MaxDim)
	if err != nil {
		return stats, fmt.Errorf("hsi2k: %w", err)
	}

	depth := q.MagnitudeBitPlanes()
	vw := bio.NewVariableLengthWriter(w)

	for _, b := range plan.Blocks() {
		blockWords := extractBlock(wordsMat, b)

		t1 := entropy.GetT1(b.W, b.H)
		if err := t1.SetData(blockWords, depth); err != nil {
			entropy.PutT1(t1)
			return stats, fmt.Errorf("hsi2k: encode block: %w", err)
		}
		encoded := t1.Encode(int(b.Subband), depth)
		entropy.PutT1(t1)

		if err := vw.Write(uint32(len(encoded))); err != nil {
			return stats, fmt.Errorf("hsi2k: write block length: %w", err)
		}
		if _, err := w.Write(encoded); err != nil {
			return stats, fmt.Errorf("hsi2k: write block bytes: %w", err)
		}

		stats.BlocksEncoded++
		stats.EncodedBytesTotal += int64(len(encoded))
	}

	return stats, nil
}

// Decoder mirrors Encoder: it reads the header, then decodes each band's
// blocks in the exact sequence the encoder produced them.
type Decoder struct {
	Stats Stats
}

// NewDecoder returns a Decoder. Decoders carry no configuration of their
// own: every parameter needed to decode is read from the stream's header.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode reads a coded stream from r and reconstructs an Image.
func (d *Decoder) Decode(r io.Reader) (*Image, error) {
	hdr, reducer, q, err := d.readHeader(r)
	if err != nil {
		return nil, err
	}

	plan, err := blocker.NewPlan(hdr.lines, hdr.samples, hdr.levels, hdr.expected, hdr.maxDim)
	if err != nil {
		return nil, fmt.Errorf("hsi2k: %w", err)
	}
	blocks := plan.Blocks()
	depth := q.MagnitudeBitPlanes()

	var total Stats
	reducedBands := make([][]float64, hdr.numReducedBands)
	for i := range reducedBands {
		band, bandStats, err := d.decodeBand(r, blocks, hdr.lines, hdr.samples, hdr.levels, depth, q)
		if err != nil {
			return nil, err
		}
		reducedBands[i] = band
		total.Add(bandStats)
	}
	d.Stats.Add(total)

	boosted, err := reducer.Boost(reducedBands, nil)
	if err != nil {
		return nil, fmt.Errorf("hsi2k: reducer boost: %w", err)
	}

	img, err := NewImage(hdr.bands, hdr.lines, hdr.samples, hdr.depth, hdr.signed)
	if err != nil {
		return nil, err
	}
	if err := bandsToImage(boosted, img); err != nil {
		return nil, err
	}
	return img, nil
}

type streamHeader struct {
	bands, lines, samples, depth int
	levels, expected, maxDim     int
	numReducedBands              int
	signed                       bool
}

func (d *Decoder) readHeader(r io.Reader) (streamHeader, reduce.Reducer, *quantize.Quantizer, error) {
	vr := bio.NewVariableLengthReader(r)

	readField := func(name string) (uint32, error) {
		v, err := vr.Read()
		if err != nil {
			return 0, fmt.Errorf("hsi2k: read header field %s: %w", name, ErrFraming)
		}
		return v, nil
	}

	var hdr streamHeader
	var exponent, mantissa, guard, signedFlag uint32
	var err error

	fields := []struct {
		name string
		dst  *int
	}{
		{"bands", &hdr.bands}, {"lines", &hdr.lines}, {"samples", &hdr.samples}, {"depth", &hdr.depth},
		{"levels", &hdr.levels}, {"expected", &hdr.expected}, {"maxDim", &hdr.maxDim},
		{"numReducedBands", &hdr.numReducedBands},
	}
	for _, f := range fields {
		v, rerr := readField(f.name)
		if rerr != nil {
			return hdr, nil, nil, rerr
		}
		*f.dst = int(v)
	}
	if exponent, err = readField("exponent"); err != nil {
		return hdr, nil, nil, err
	}
	if mantissa, err = readField("mantissa"); err != nil {
		return hdr, nil, nil, err
	}
	if guard, err = readField("guard"); err != nil {
		return hdr, nil, nil, err
	}
	if signedFlag, err = readField("signed"); err != nil {
		return hdr, nil, nil, err
	}
	hdr.signed = signedFlag != 0

	var lo, hi, rOffset float64
	for _, dst := range []*float64{&lo, &hi, &rOffset} {
		if err := binary.Read(r, binary.BigEndian, dst); err != nil {
			return hdr, nil, nil, fmt.Errorf("hsi2k: read quantizer bounds: %w", ErrFraming)
		}
	}

	q, err := quantize.New(quantize.Config{
		Exponent: int(exponent), Mantissa: int(mantissa), Guard: int(guard),
		Lo: lo, Hi: hi, R: rOffset,
	})
	if err != nil {
		return hdr, nil, nil, fmt.Errorf("hsi2k: %w", err)
	}

	reducer, err := reduce.Load(r)
	if err != nil {
		return hdr, nil, nil, fmt.Errorf("hsi2k: read reducer state: %w", ErrFraming)
	}

	return hdr, reducer, q, nil
}

// decodeBand mirrors encodeBand: the decoded word grid lives in an
// OwningMatrix, each block is written into it through the Matrix
// capability, and the flattened word data is read back via Raw() for
// dequantization.
func (d *Decoder) decodeBand(r io.Reader, blocks []blocker.Block, lines, samples, levels, depth int, q *quantize.Quantizer) ([]float64, Stats, error) {
	var stats Stats
	wordsMat := NewOwningMatrix(lines, samples)
	vr := bio.NewVariableLengthReader(r)

	for _, b := range blocks {
		length, err := vr.Read()
		if err != nil {
			return nil, stats, fmt.Errorf("hsi2k: read block length: %w", ErrFraming)
		}
		encoded := make([]byte, length)
		if _, err := io.ReadFull(r, encoded); err != nil {
			return nil, stats, fmt.Errorf("hsi2k: read block bytes: %w", ErrFraming)
		}

		t1 := entropy.GetT1(b.W, b.H)
		blockWords := t1.Decode(encoded, depth, int(b.Subband))
		entropy.PutT1(t1)

		insertBlock(wordsMat, b, blockWords)
		stats.BlocksEncoded++
		stats.EncodedBytesTotal += int64(length)
	}

	raw := wordsMat.Raw()
	coeffs := make([]float64, len(raw))
	for i, w := range raw {
		coeffs[i] = q.Dequantize(w)
	}
	dwt.ReconstructMultiLevel97(coeffs, samples, lines, levels)
	return coeffs, stats, nil
}

// extractBlock copies the (b.H x b.W) sub-rectangle of m rooted at
// (b.RowOffset, b.ColOffset), addressed through the Matrix capability.
func extractBlock(m Matrix, b blocker.Block) []int32 {
	out := make([]int32, b.H*b.W)
	for r := 0; r < b.H; r++ {
		dstOff := r * b.W
		for c := 0; c < b.W; c++ {
			out[dstOff+c] = m.Get(b.RowOffset+r, b.ColOffset+c)
		}
	}
	return out
}

// insertBlock writes blockWords (b.H x b.W, row-major) back into m at
// (b.RowOffset, b.ColOffset), addressed through the Matrix capability.
func insertBlock(m Matrix, b blocker.Block, blockWords []int32) {
	for r := 0; r < b.H; r++ {
		srcOff := r * b.W
		for c := 0; c < b.W; c++ {
			m.Set(b.RowOffset+r, b.ColOffset+c, blockWords[srcOff+c])
		}
	}
}

// matrixToFloats flattens m in row-major order, the shape the reduce
// package's Reducer contract operates on.
func matrixToFloats(m Matrix) []float64 {
	rows, cols := m.Rows(), m.Columns()
	flat := make([]float64, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			flat[r*cols+c] = float64(m.Get(r, c))
		}
	}
	return flat
}

// floatsToMatrix writes flat (row-major, m.Rows() x m.Columns()) back into
// m, rounding each value to the nearest integer.
func floatsToMatrix(flat []float64, m Matrix) {
	rows, cols := m.Rows(), m.Columns()
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			m.Set(r, c, int32(roundHalfAwayFromZero(flat[r*cols+c])))
		}
	}
}

// imageToBands flattens img into one []float64 per spectral band via each
// band's WindowView, addressed through the Matrix capability.
func imageToBands(img *Image) ([][]float64, error) {
	bands := make([][]float64, img.Bands)
	for b := 0; b < img.Bands; b++ {
		view, err := img.Band(b)
		if err != nil {
			return nil, err
		}
		bands[b] = matrixToFloats(view)
	}
	return bands, nil
}

// bandsToImage writes reconstructed float64 bands back into img's integer
// storage via each band's WindowView, addressed through the Matrix
// capability.
func bandsToImage(bands [][]float64, img *Image) error {
	if len(bands) != img.Bands {
		return fmt.Errorf("hsi2k: boosted band count %d != image band count %d: %w", len(bands), img.Bands, ErrContractViolation)
	}
	for b, flat := range bands {
		view, err := img.Band(b)
		if err != nil {
			return err
		}
		floatsToMatrix(flat, view)
	}
	return nil
}

func roundHalfAwayFromZero(v float64) float64 {
	if v >= 0 {
		return float64(int64(v + 0.5))
	}
	return float64(int64(v - 0.5))
}
