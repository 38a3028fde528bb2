package reduce

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// projectionMatrix is a square (n x n) linear transform with its inverse:
// an explicit formula for n==3, Gauss-Jordan elimination with partial
// pivoting otherwise. n is the trained band count, and the forward matrix
// is learned from data rather than given as a fixed constant.
type projectionMatrix struct {
	forward []float64 // n x n, row-major; row i is the i-th projection axis
	inverse []float64 // n x n, row-major
	n       int
}

func newProjectionMatrix(forward []float64, n int) *projectionMatrix {
	m := &projectionMatrix{forward: forward, n: n}
	m.inverse = m.computeInverse()
	return m
}

// computeInverse: a closed form for the 3x3 case, Gauss-Jordan elimination
// with partial pivoting for the general case.
func (m *projectionMatrix) computeInverse() []float64 {
	n := m.n
	inv := make([]float64, n*n)

	if n == 3 {
		a := m.forward
		det := a[0]*(a[4]*a[8]-a[5]*a[7]) -
			a[1]*(a[3]*a[8]-a[5]*a[6]) +
			a[2]*(a[3]*a[7]-a[4]*a[6])

		if math.Abs(det) < 1e-10 {
			for i := 0; i < n; i++ {
				inv[i*n+i] = 1
			}
			return inv
		}

		invDet := 1.0 / det
		inv[0] = (a[4]*a[8] - a[5]*a[7]) * invDet
		inv[1] = (a[2]*a[7] - a[1]*a[8]) * invDet
		inv[2] = (a[1]*a[5] - a[2]*a[4]) * invDet
		inv[3] = (a[5]*a[6] - a[3]*a[8]) * invDet
		inv[4] = (a[0]*a[8] - a[2]*a[6]) * invDet
		inv[5] = (a[2]*a[3] - a[0]*a[5]) * invDet
		inv[6] = (a[3]*a[7] - a[4]*a[6]) * invDet
		inv[7] = (a[1]*a[6] - a[0]*a[7]) * invDet
		inv[8] = (a[0]*a[4] - a[1]*a[3]) * invDet
		return inv
	}

	aug := make([]float64, n*2*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			aug[i*2*n+j] = m.forward[i*n+j]
			if i == j {
				aug[i*2*n+n+j] = 1
			}
		}
	}

	for i := 0; i < n; i++ {
		maxRow := i
		for k := i + 1; k < n; k++ {
			if math.Abs(aug[k*2*n+i]) > math.Abs(aug[maxRow*2*n+i]) {
				maxRow = k
			}
		}
		for k := 0; k < 2*n; k++ {
			aug[i*2*n+k], aug[maxRow*2*n+k] = aug[maxRow*2*n+k], aug[i*2*n+k]
		}

		pivot := aug[i*2*n+i]
		if math.Abs(pivot) < 1e-10 {
			continue
		}
		for k := 0; k < 2*n; k++ {
			aug[i*2*n+k] /= pivot
		}

		for k := 0; k < n; k++ {
			if k != i {
				factor := aug[k*2*n+i]
				for j := 0; j < 2*n; j++ {
					aug[k*2*n+j] -= factor * aug[i*2*n+j]
				}
			}
		}
	}

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			inv[i*n+j] = aug[i*2*n+n+j]
		}
	}
	return inv
}

// apply runs the forward transform over component-major samples for an
// arbitrary n, not just a fixed 3-component case.
func (m *projectionMatrix) apply(components [][]float64) [][]float64 {
	n := m.n
	numSamples := len(components[0])
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, numSamples)
	}
	temp := make([]float64, n)

	for s := 0; s < numSamples; s++ {
		for i := 0; i < n; i++ {
			temp[i] = components[i][s]
		}
		for i := 0; i < n; i++ {
			sum := 0.0
			for j := 0; j < n; j++ {
				sum += m.forward[i*n+j] * temp[j]
			}
			out[i][s] = sum
		}
	}
	return out
}

func (m *projectionMatrix) applyInverse(components [][]float64) [][]float64 {
	n := m.n
	numSamples := len(components[0])
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, numSamples)
	}
	temp := make([]float64, n)

	for s := 0; s < numSamples; s++ {
		for i := 0; i < n; i++ {
			temp[i] = components[i][s]
		}
		for i := 0; i < n; i++ {
			sum := 0.0
			for j := 0; j < n; j++ {
				sum += m.inverse[i*n+j] * temp[j]
			}
			out[i][s] = sum
		}
	}
	return out
}

// LinearReducer is the PCA/MNF variant of the reducer contract: it trains a
// full n x n orthogonal basis from the sample covariance (PCA) or a
// variance-whitened covariance (MNF), keeps the first k axes as the reduced
// representation, and reconstructs via the square matrix's inverse with the
// dropped axes zero-filled.
type LinearReducer struct {
	tag    Tag
	proj   *projectionMatrix
	mean   []float64
	k      int
	lo, hi float64
}

// NewPCAReducer returns an untrained PCA reducer targeting k output bands.
func NewPCAReducer(k int) *LinearReducer {
	return &LinearReducer{tag: TagPCA, k: k}
}

// NewMNFReducer returns an untrained variance-weighted (MNF) reducer
// targeting k output bands.
func NewMNFReducer(k int) *LinearReducer {
	return &LinearReducer{tag: TagMNF, k: k}
}

func (r *LinearReducer) Train(bands [][]float64) error {
	if err := validateBands(bands); err != nil {
		return err
	}
	n := len(bands)
	if r.k <= 0 || r.k > n {
		return fmt.Errorf("reduce: linear reducer k=%d out of range [1,%d]", r.k, n)
	}

	mean := make([]float64, n)
	numSamples := len(bands[0])
	for i, b := range bands {
		sum := 0.0
		for _, v := range b {
			sum += v
		}
		mean[i] = sum / float64(numSamples)
	}

	centered := make([][]float64, n)
	for i, b := range bands {
		c := make([]float64, len(b))
		for s, v := range b {
			c[s] = v - mean[i]
		}
		centered[i] = c
	}

	if r.tag == TagMNF {
		// Whiten by the per-band sample variance so low-variance (noisy)
		// bands are weighted down before the eigen-decomposition.
		for i := range centered {
			variance := 0.0
			for _, v := range centered[i] {
				variance += v * v
			}
			variance /= float64(numSamples)
			if variance < 1e-12 {
				variance = 1e-12
			}
			inv := 1.0 / math.Sqrt(variance)
			for s := range centered[i] {
				centered[i][s] *= inv
			}
		}
	}

	cov := sampleCovariance(centered, numSamples)
	forward := topEigenbasis(cov, n)

	r.proj = newProjectionMatrix(forward, n)
	r.mean = mean
	r.lo, r.hi = minMax(bands)
	return nil
}

func (r *LinearReducer) Reduce(bands [][]float64) ([][]float64, error) {
	if r.proj == nil {
		return nil, fmt.Errorf("reduce: linear reducer used before Train/LoadFrom")
	}
	n := r.proj.n
	if len(bands) != n {
		return nil, fmt.Errorf("reduce: linear reducer trained on %d bands, got %d", n, len(bands))
	}

	centered := make([][]float64, n)
	for i, b := range bands {
		c := make([]float64, len(b))
		for s, v := range b {
			c[s] = v - r.mean[i]
		}
		centered[i] = c
	}

	full := r.proj.apply(centered)
	return full[:r.k], nil
}

func (r *LinearReducer) Boost(reduced [][]float64, original [][]float64) ([][]float64, error) {
	if r.proj == nil {
		return nil, fmt.Errorf("reduce: linear reducer used before Train/LoadFrom")
	}
	n := r.proj.n
	if len(reduced) != r.k {
		return nil, fmt.Errorf("reduce: linear reducer emits %d components, got %d to boost", r.k, len(reduced))
	}
	if original != nil && len(original) != n {
		return nil, fmt.Errorf("reduce: boost reference has %d bands, want %d", len(original), n)
	}

	numSamples := len(reduced[0])
	full := make([][]float64, n)
	for i := 0; i < r.k; i++ {
		full[i] = reduced[i]
	}
	for i := r.k; i < n; i++ {
		full[i] = make([]float64, numSamples)
	}

	restored := r.proj.applyInverse(full)
	for i := range restored {
		for s := range restored[i] {
			restored[i][s] += r.mean[i]
		}
	}
	return restored, nil
}

func (r *LinearReducer) SaveTo(w io.Writer) error {
	if r.proj == nil {
		return fmt.Errorf("reduce: SaveTo called before Train/LoadFrom")
	}
	n := r.proj.n
	if err := binary.Write(w, binary.BigEndian, uint32(n)); err != nil {
		return fmt.Errorf("reduce: write n: %w", err)
	}
	if err := binary.Write(w, binary.BigEndian, uint32(r.k)); err != nil {
		return fmt.Errorf("reduce: write k: %w", err)
	}
	if err := binary.Write(w, binary.BigEndian, r.mean); err != nil {
		return fmt.Errorf("reduce: write mean: %w", err)
	}
	if err := binary.Write(w, binary.BigEndian, r.proj.forward); err != nil {
		return fmt.Errorf("reduce: write forward matrix: %w", err)
	}
	return nil
}

func (r *LinearReducer) LoadFrom(rd io.Reader) error {
	var n, k uint32
	if err := binary.Read(rd, binary.BigEndian, &n); err != nil {
		return fmt.Errorf("reduce: read n: %w", err)
	}
	if err := binary.Read(rd, binary.BigEndian, &k); err != nil {
		return fmt.Errorf("reduce: read k: %w", err)
	}
	mean := make([]float64, n)
	if err := binary.Read(rd, binary.BigEndian, &mean); err != nil {
		return fmt.Errorf("reduce: read mean: %w", err)
	}
	forward := make([]float64, n*n)
	if err := binary.Read(rd, binary.BigEndian, &forward); err != nil {
		return fmt.Errorf("reduce: read forward matrix: %w", err)
	}

	r.k = int(k)
	r.mean = mean
	r.proj = newProjectionMatrix(forward, int(n))
	return nil
}

func (r *LinearReducer) NumComponents() int { return r.k }
func (r *LinearReducer) MaxValue() float64  { return r.hi }
func (r *LinearReducer) MinValue() float64  { return r.lo }
func (r *LinearReducer) Tag() Tag           { return r.tag }

// sampleCovariance computes the n x n sample covariance matrix of
// already-centered component data, row-major.
func sampleCovariance(centered [][]float64, numSamples int) []float64 {
	n := len(centered)
	cov := make([]float64, n*n)
	denom := float64(numSamples - 1)
	if denom < 1 {
		denom = 1
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sum := 0.0
			for s := 0; s < numSamples; s++ {
				sum += centered[i][s] * centered[j][s]
			}
			v := sum / denom
			cov[i*n+j] = v
			cov[j*n+i] = v
		}
	}
	return cov
}

// topEigenbasis extracts a full n x n orthonormal eigenbasis of the
// symmetric matrix cov (n x n, row-major) via power iteration with
// deflation, ordered by decreasing eigenvalue. Row i of the result is the
// i-th eigenvector, so the caller can keep the leading k rows as the
// reduced representation and the rest as the completion needed for an
// invertible square transform.
func topEigenbasis(cov []float64, n int) []float64 {
	work := make([]float64, len(cov))
	copy(work, cov)

	basis := make([]float64, n*n)
	const iterations = 100

	for axis := 0; axis < n; axis++ {
		v := make([]float64, n)
		for i := range v {
			v[i] = 1
			if i == axis {
				v[i] = 2
			}
		}
		normalize(v)

		var eigenvalue float64
		for iter := 0; iter < iterations; iter++ {
			next := matVec(work, v, n)
			norm := normalize(next)
			eigenvalue = norm
			v = next
		}

		copy(basis[axis*n:axis*n+n], v)

		// Deflate: work -= eigenvalue * v * v^T
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				work[i*n+j] -= eigenvalue * v[i] * v[j]
			}
		}
	}

	return basis
}

func matVec(m []float64, v []float64, n int) []float64 {
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		sum := 0.0
		for j := 0; j < n; j++ {
			sum += m[i*n+j] * v[j]
		}
		out[i] = sum
	}
	return out
}

// normalize scales v to unit length in place and returns its original norm.
func normalize(v []float64) float64 {
	sum := 0.0
	for _, x := range v {
		sum += x * x
	}
	norm := math.Sqrt(sum)
	if norm < 1e-15 {
		return 0
	}
	for i := range v {
		v[i] /= norm
	}
	return norm
}
