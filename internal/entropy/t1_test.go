package entropy

import "testing"

// magnitudeDepth returns the smallest P such that abs(values) < 2^P.
func magnitudeDepth(values []int32) int {
	maxVal := int32(0)
	for _, v := range values {
		if v < 0 {
			v = -v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	depth := 1
	for (int32(1) << depth) <= maxVal {
		depth++
	}
	return depth
}

// toWords packs signed magnitudes into sign-magnitude words at depth p.
func toWords(values []int32, p int) []int32 {
	words := make([]int32, len(values))
	for i, v := range values {
		if v < 0 {
			words[i] = (-v) | (int32(1) << p)
		} else {
			words[i] = v
		}
	}
	return words
}

func TestT1_Encode_Decode_Roundtrip(t *testing.T) {
	tests := []struct {
		name     string
		width    int
		height   int
		bandType int
		data     []int32
	}{
		{"4x4_LL_simple", 4, 4, BandLL, []int32{
			1, 2, 3, 4,
			5, 6, 7, 8,
			9, 10, 11, 12,
			13, 14, 15, 16,
		}},
		{"4x4_LL_zeros", 4, 4, BandLL, make([]int32, 16)},
		{"4x4_HL", 4, 4, BandHL, []int32{
			-1, 2, -3, 4,
			5, -6, 7, -8,
			-9, 10, -11, 12,
			13, -14, 15, -16,
		}},
		{"4x4_HH", 4, 4, BandHH, []int32{
			1, -1, 1, -1,
			-1, 1, -1, 1,
			1, -1, 1, -1,
			-1, 1, -1, 1,
		}},
		{"8x8_LL", 8, 8, BandLL, func() []int32 {
			data := make([]int32, 64)
			for i := range data {
				data[i] = int32(i * 2)
			}
			return data
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			depth := magnitudeDepth(tt.data)
			words := toWords(tt.data, depth)

			t1Enc := NewT1(tt.width, tt.height)
			if err := t1Enc.SetData(words, depth); err != nil {
				t.Fatalf("SetData: %v", err)
			}
			encoded := t1Enc.Encode(tt.bandType, depth)

			t1Dec := NewT1(tt.width, tt.height)
			decoded := t1Dec.Decode(encoded, depth, tt.bandType)

			for i := range words {
				if decoded[i] != words[i] {
					t.Errorf("position %d: got %#x, want %#x", i, decoded[i], words[i])
				}
			}
		})
	}
}

func TestT1_FlagsIndex(t *testing.T) {
	t1 := NewT1(4, 4)

	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			idx := t1.flagIndex(x, y)
			if idx < 0 || idx >= len(t1.flags) {
				t.Errorf("flagIndex(%d, %d) = %d, out of range", x, y, idx)
			}
		}
	}
}

func TestT1_SetFlag_HasFlag(t *testing.T) {
	t1 := NewT1(4, 4)

	t1.setFlag(1, 1, T1Sig)

	if !t1.hasFlag(1, 1, T1Sig) {
		t.Error("expected T1Sig to be set")
	}
	if t1.hasFlag(1, 1, T1Visit) {
		t.Error("expected T1Visit to not be set")
	}
	if t1.hasFlag(0, 0, T1Sig) {
		t.Error("expected (0,0) T1Sig to not be set")
	}
}

func TestT1_ClearFlag(t *testing.T) {
	t1 := NewT1(4, 4)

	t1.setFlag(1, 1, T1Sig)
	t1.setFlag(1, 1, T1Visit)

	t1.clearFlag(1, 1, T1Sig)

	if t1.hasFlag(1, 1, T1Sig) {
		t.Error("expected T1Sig to be cleared")
	}
	if !t1.hasFlag(1, 1, T1Visit) {
		t.Error("expected T1Visit to still be set")
	}
}

func TestT1_GetZCContext(t *testing.T) {
	t1 := NewT1(4, 4)

	ctx := t1.getZCContext(1, 1, BandLL)
	if ctx != CtxZC0 {
		t.Errorf("expected CtxZC0 with no neighbors, got %d", ctx)
	}

	t1.setFlag(0, 1, T1Sig)
	t1.updateNeighborFlags(0, 1)

	ctx = t1.getZCContext(1, 1, BandLL)
	if ctx == CtxZC0 {
		t.Error("expected non-zero context with significant neighbor")
	}
}

func TestT1_GetSCContext(t *testing.T) {
	t1 := NewT1(4, 4)

	ctx, pred := t1.getSCContext(1, 1)
	if ctx < CtxSC0 || ctx > CtxSC4 {
		t.Errorf("context out of range: %d", ctx)
	}
	if pred != 0 && pred != 1 {
		t.Errorf("prediction out of range: %d", pred)
	}
}

func TestT1_GetMRContext(t *testing.T) {
	t1 := NewT1(4, 4)

	ctx := t1.getMRContext(1, 1)
	if ctx != CtxMag0 {
		t.Errorf("expected CtxMag0, got %d", ctx)
	}

	t1.setFlag(1, 1, T1Refine)
	ctx = t1.getMRContext(1, 1)
	if ctx != CtxMag2 {
		t.Errorf("expected CtxMag2, got %d", ctx)
	}
}

func TestT1_Reset(t *testing.T) {
	t1 := NewT1(4, 4)

	for i := range t1.data {
		t1.data[i] = int32(i)
	}
	t1.setFlag(1, 1, T1Sig)

	t1.Reset()

	for i, v := range t1.data {
		if v != 0 {
			t.Errorf("data[%d] not cleared: %d", i, v)
		}
	}
	if t1.hasFlag(1, 1, T1Sig) {
		t.Error("expected flags to be cleared")
	}
}

func TestT1_SetData_LengthMismatch(t *testing.T) {
	t1 := NewT1(4, 4)
	if err := t1.SetData(make([]int32, 8), 4); err == nil {
		t.Error("expected error for mismatched data length")
	}
}

func BenchmarkT1_Encode(b *testing.B) {
	data := make([]int32, 64)
	for i := range data {
		data[i] = int32(i * 4)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		t1 := NewT1(8, 8)
		t1.SetData(data, 10)
		t1.Encode(BandLL, 10)
	}
}

func BenchmarkT1_Decode(b *testing.B) {
	data := make([]int32, 64)
	for i := range data {
		data[i] = int32(i * 4)
	}
	t1 := NewT1(8, 8)
	t1.SetData(data, 10)
	encoded := t1.Encode(BandLL, 10)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		t1 := NewT1(8, 8)
		t1.Decode(encoded, 10, BandLL)
	}
}
