package grib

import (
	"fmt"
	"io"
	"math"

	"github.com/earthkit/fieldkit/errs"
)

// decodeValues reads the section-7 payload for m from r and unpacks it with
// the simple-packing parameters of section 5:
//
//	value = (R + X * 2^E) / 10^D
//
// where X is the Bits-wide unsigned integer packed MSB-first.
func decodeValues(r io.ReaderAt, m *Message) ([]float64, error) {
	n := m.pack.NumberOfValues

	// The count is wire-supplied; allocations are sized by it, so it must
	// agree with the grid before anything else.
	if n < 0 || n != m.grid.NumberOfDataPoints {
		return nil, fmt.Errorf("%w: %d packed values for %d grid points",
			errs.ErrInvalidMessage, n, m.grid.NumberOfDataPoints)
	}

	// Constant fields pack zero bits per value; every point is R scaled.
	if m.pack.Bits == 0 {
		out := make([]float64, n)
		v := m.pack.Reference * math.Pow(10, -float64(m.pack.DecimalScale))
		for i := range out {
			out[i] = v
		}

		return out, nil
	}

	need := (n*m.pack.Bits + 7) / 8
	if int64(need) > m.dataLength {
		return nil, fmt.Errorf("%w: data section holds %d bytes, need %d",
			errs.ErrInvalidMessage, m.dataLength, need)
	}

	packed := make([]byte, need)
	if _, err := r.ReadAt(packed, m.dataOffset); err != nil {
		return nil, fmt.Errorf("%w: reading data section: %w", errs.ErrInvalidMessage, err)
	}

	binScale := math.Pow(2, float64(m.pack.BinaryScale))
	decScale := math.Pow(10, -float64(m.pack.DecimalScale))

	out := make([]float64, n)
	for i := range out {
		x := unpackBits(packed, i*m.pack.Bits, m.pack.Bits)
		out[i] = (m.pack.Reference + float64(x)*binScale) * decScale
	}

	return out, nil
}

// unpackBits extracts width bits starting at bit offset off, MSB-first.
func unpackBits(b []byte, off, width int) uint64 {
	var v uint64
	for i := 0; i < width; i++ {
		bit := off + i
		v <<= 1
		v |= uint64(b[bit>>3]>>(7-uint(bit&7))) & 1
	}

	return v
}

// packBits writes the low width bits of v at bit offset off, MSB-first.
// The destination must be zeroed.
func packBits(b []byte, off, width int, v uint64) {
	for i := 0; i < width; i++ {
		bit := off + i
		if v>>(uint(width-1-i))&1 != 0 {
			b[bit>>3] |= 1 << (7 - uint(bit&7))
		}
	}
}
