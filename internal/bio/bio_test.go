package bio

import (
	"bytes"
	"errors"
	"testing"
)

// errWriter is an io.Writer that always returns an error after n writes.
type errWriter struct {
	n   int
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.n <= 0 {
		return 0, e.err
	}
	e.n--
	return len(p), nil
}

// =============================================================================
// VariableLengthReader tests
// =============================================================================

func TestNewVariableLengthReader(t *testing.T) {
	buf := bytes.NewReader([]byte{0x00})
	r := NewVariableLengthReader(buf)
	if r == nil {
		t.Fatal("NewVariableLengthReader returned nil")
	}
}

func TestVariableLengthReader_Read(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected uint32
	}{
		{
			name:     "single byte value 0",
			data:     []byte{0x00},
			expected: 0,
		},
		{
			name:     "single byte value 1",
			data:     []byte{0x01},
			expected: 1,
		},
		{
			name:     "single byte max (127)",
			data:     []byte{0x7F},
			expected: 127,
		},
		{
			name:     "two bytes value 128",
			data:     []byte{0x81, 0x00}, // 10000001 00000000 -> (1 << 7) | 0 = 128
			expected: 128,
		},
		{
			name:     "two bytes value 255",
			data:     []byte{0x81, 0x7F}, // (1 << 7) | 127 = 255
			expected: 255,
		},
		{
			name:     "two bytes value 16383",
			data:     []byte{0xFF, 0x7F}, // (127 << 7) | 127 = 16383
			expected: 16383,
		},
		{
			name:     "three bytes value 16384",
			data:     []byte{0x81, 0x80, 0x00}, // (1 << 14) = 16384
			expected: 16384,
		},
		{
			name:     "four bytes",
			data:     []byte{0x81, 0x80, 0x80, 0x00}, // (1 << 21) = 2097152
			expected: 2097152,
		},
		{
			name:     "five bytes max uint32",
			data:     []byte{0x8F, 0xFF, 0xFF, 0xFF, 0x7F}, // Maximum representable
			expected: 0xFFFFFFFF,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewVariableLengthReader(bytes.NewReader(tt.data))
			got, err := r.Read()
			if err != nil {
				t.Fatalf("Read() returned error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Read() = %d (0x%X), want %d (0x%X)", got, got, tt.expected, tt.expected)
			}
		})
	}
}

func TestVariableLengthReader_Read_EOF(t *testing.T) {
	r := NewVariableLengthReader(bytes.NewReader([]byte{}))
	_, err := r.Read()
	if err == nil {
		t.Error("Read() on empty reader should return error")
	}
}

func TestVariableLengthReader_Read_UnexpectedEOF(t *testing.T) {
	// Continuation bit set but no more data
	r := NewVariableLengthReader(bytes.NewReader([]byte{0x80}))
	_, err := r.Read()
	if err == nil {
		t.Error("Read() with incomplete sequence should return error")
	}
}

func TestVariableLengthReader_Read_Multiple(t *testing.T) {
	// Multiple values encoded in sequence
	data := []byte{
		0x00,       // 0
		0x7F,       // 127
		0x81, 0x00, // 128
	}
	r := NewVariableLengthReader(bytes.NewReader(data))

	expected := []uint32{0, 127, 128}
	for i, want := range expected {
		got, err := r.Read()
		if err != nil {
			t.Fatalf("Read() at index %d returned error: %v", i, err)
		}
		if got != want {
			t.Errorf("Read() at index %d = %d, want %d", i, got, want)
		}
	}
}

// =============================================================================
// VariableLengthWriter tests
// =============================================================================

func TestNewVariableLengthWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewVariableLengthWriter(buf)
	if w == nil {
		t.Fatal("NewVariableLengthWriter returned nil")
	}
}

func TestVariableLengthWriter_Write(t *testing.T) {
	tests := []struct {
		name     string
		val      uint32
		expected []byte
	}{
		{
			name:     "value 0",
			val:      0,
			expected: []byte{0x00},
		},
		{
			name:     "value 1",
			val:      1,
			expected: []byte{0x01},
		},
		{
			name:     "value 127",
			val:      127,
			expected: []byte{0x7F},
		},
		{
			name:     "value 128",
			val:      128,
			expected: []byte{0x81, 0x00},
		},
		{
			name:     "value 255",
			val:      255,
			expected: []byte{0x81, 0x7F},
		},
		{
			name:     "value 16383",
			val:      16383,
			expected: []byte{0xFF, 0x7F},
		},
		{
			name:     "value 16384",
			val:      16384,
			expected: []byte{0x81, 0x80, 0x00},
		},
		{
			name:     "value 2097152",
			val:      2097152,
			expected: []byte{0x81, 0x80, 0x80, 0x00},
		},
		{
			name:     "max uint32",
			val:      0xFFFFFFFF,
			expected: []byte{0x8F, 0xFF, 0xFF, 0xFF, 0x7F},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			w := NewVariableLengthWriter(buf)
			if err := w.Write(tt.val); err != nil {
				t.Fatalf("Write(%d) returned error: %v", tt.val, err)
			}
			if !bytes.Equal(buf.Bytes(), tt.expected) {
				t.Errorf("Write(%d) output = %v, want %v", tt.val, buf.Bytes(), tt.expected)
			}
		})
	}
}

func TestVariableLengthWriter_Write_Error(t *testing.T) {
	testErr := errors.New("write error")
	w := NewVariableLengthWriter(&errWriter{n: 0, err: testErr})

	err := w.Write(128) // Requires 2 bytes
	if !errors.Is(err, testErr) {
		t.Errorf("Write() error = %v, want %v", err, testErr)
	}
}

func TestVariableLengthWriter_Write_Multiple(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewVariableLengthWriter(buf)

	values := []uint32{0, 127, 128}
	for _, val := range values {
		if err := w.Write(val); err != nil {
			t.Fatalf("Write(%d) returned error: %v", val, err)
		}
	}

	expected := []byte{
		0x00,       // 0
		0x7F,       // 127
		0x81, 0x00, // 128
	}
	if !bytes.Equal(buf.Bytes(), expected) {
		t.Errorf("Output = %v, want %v", buf.Bytes(), expected)
	}
}

// =============================================================================
// VariableLength round-trip tests
// =============================================================================

func TestVariableLength_RoundTrip(t *testing.T) {
	values := []uint32{
		0, 1, 127, 128, 255, 256,
		16383, 16384,
		2097151, 2097152,
		268435455, 268435456,
		0x7FFFFFFF, 0x80000000, 0xFFFFFFFF,
	}

	for _, original := range values {
		// Write
		buf := &bytes.Buffer{}
		w := NewVariableLengthWriter(buf)
		if err := w.Write(original); err != nil {
			t.Fatalf("Write(%d) returned error: %v", original, err)
		}

		// Read back
		r := NewVariableLengthReader(bytes.NewReader(buf.Bytes()))
		got, err := r.Read()
		if err != nil {
			t.Fatalf("Read() for original %d returned error: %v", original, err)
		}
		if got != original {
			t.Errorf("Round-trip: wrote %d (0x%X), got %d (0x%X)", original, original, got, got)
		}
	}
}

func TestVariableLength_RoundTrip_Sequence(t *testing.T) {
	original := []uint32{0, 1, 127, 128, 255, 16383, 16384, 0xFFFFFFFF}

	// Write all values
	buf := &bytes.Buffer{}
	w := NewVariableLengthWriter(buf)
	for _, val := range original {
		if err := w.Write(val); err != nil {
			t.Fatalf("Write(%d) returned error: %v", val, err)
		}
	}

	// Read all values back
	r := NewVariableLengthReader(bytes.NewReader(buf.Bytes()))
	for i, want := range original {
		got, err := r.Read()
		if err != nil {
			t.Fatalf("Read() at index %d returned error: %v", i, err)
		}
		if got != want {
			t.Errorf("Read() at index %d = %d, want %d", i, got, want)
		}
	}
}

func BenchmarkVariableLengthReader_Read(b *testing.B) {
	// Pre-encode a variety of values
	buf := &bytes.Buffer{}
	w := NewVariableLengthWriter(buf)
	for i := 0; i < 1000; i++ {
		w.Write(uint32(i * 137)) // Various sizes
	}
	data := buf.Bytes()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r := NewVariableLengthReader(bytes.NewReader(data))
		for j := 0; j < 1000; j++ {
			r.Read()
		}
	}
}

func BenchmarkVariableLengthWriter_Write(b *testing.B) {
	buf := &bytes.Buffer{}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf.Reset()
		w := NewVariableLengthWriter(buf)
		for j := 0; j < 1000; j++ {
			w.Write(uint32(j * 137))
		}
	}
}
