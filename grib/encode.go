package grib

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"slices"

	"github.com/earthkit/fieldkit/errs"
	"github.com/earthkit/fieldkit/field"
	"github.com/earthkit/fieldkit/geo"
	"github.com/earthkit/fieldkit/internal/options"
	"github.com/earthkit/fieldkit/internal/pool"
)

// encodableKeys are the metadata keys the encoder can represent on the wire.
// Grid keys are taken from the field's geometry, not from metadata.
var encodableKeys = []string{
	"centre", "subCentre", "dataDate", "dataTime", "step",
	"shortName", "discipline", "parameterCategory", "parameterNumber",
	"typeOfLevel", "level", "bitsPerValue",
}

// Encoder writes edition-2 messages with simple packing (template 5.0).
type Encoder struct {
	bits int
}

// EncoderOption configures an Encoder.
type EncoderOption = options.Option[*Encoder]

// WithBitsPerValue sets the packing width (1-32 bits, default 16).
func WithBitsPerValue(bits int) EncoderOption {
	return options.New(func(e *Encoder) error {
		if bits < 1 || bits > 32 {
			return fmt.Errorf("%w: bitsPerValue %d out of range [1,32]", errs.ErrEncoding, bits)
		}
		e.bits = bits

		return nil
	})
}

// NewEncoder creates a GRIB encoder.
func NewEncoder(opts ...EncoderOption) (*Encoder, error) {
	e := &Encoder{bits: 16}
	if err := options.Apply(e, opts...); err != nil {
		return nil, err
	}

	return e, nil
}

// Encode writes one message for f to w. Overrides are applied on top of the
// field's metadata and are validated strictly: a key the format cannot carry
// fails with errs.ErrEncoding. Keys already present on the field that the
// format cannot carry are dropped silently, so round-tripping fields with
// computed keys (average, ...) stays possible.
func (e *Encoder) Encode(w io.Writer, f field.Field, overrides map[string]any) error {
	for key := range overrides {
		if !slices.Contains(encodableKeys, key) {
			return fmt.Errorf("%w: key %q cannot be encoded to GRIB", errs.ErrEncoding, key)
		}
	}

	values, err := f.Values()
	if err != nil {
		return err
	}

	geom, err := f.Geometry()
	if err != nil {
		return err
	}
	grid, ok := geom.(geo.RegularLatLon)
	if !ok {
		return fmt.Errorf("%w: GRIB needs a regular lat/lon geometry, got %T", errs.ErrEncoding, geom)
	}
	if grid.PointCount() != len(values) {
		return fmt.Errorf("%w: %d values for %d grid points", errs.ErrLengthMismatch, len(values), grid.PointCount())
	}

	md := mergedKeys(f.Metadata(), overrides)

	bits := e.bits
	if v, ok := md["bitsPerValue"]; ok {
		if n, isInt := field.AsInt(v); isInt && n >= 1 && n <= 32 {
			bits = int(n)
		}
	}

	buf := pool.GetMessageBuffer()
	defer pool.PutMessageBuffer(buf)

	if err := buildMessage(buf, md, grid, values, bits); err != nil {
		return err
	}

	_, err = w.Write(buf.Bytes())

	return err
}

// mergedKeys snapshots the encodable keys of md and applies overrides.
func mergedKeys(md field.Metadata, overrides map[string]any) map[string]any {
	out := make(map[string]any, len(encodableKeys))
	for _, key := range encodableKeys {
		if v, err := md.Get(key); err == nil {
			out[key] = v
		}
	}
	for key, v := range overrides {
		out[key] = v
	}

	return out
}

func buildMessage(buf *pool.ByteBuffer, md map[string]any, grid geo.RegularLatLon, values []float64, bits int) error {
	prod, err := productKeys(md)
	if err != nil {
		return err
	}

	ref, binScale, packed := packValues(values, bits)

	// Sections are appended to the buffer in file order; the total length
	// in the indicator is patched at the end.
	writeIndicator(buf, prod.Discipline)
	writeIdentification(buf, md)
	writeGrid(buf, grid)
	writeProduct(buf, md, prod)
	writeRepresentation(buf, len(values), ref, binScale, bitsUsed(packed, bits, len(values)))
	writeBitmap(buf)
	writeData(buf, packed)
	buf.MustWrite(end)

	binary.BigEndian.PutUint64(buf.Slice(8, 16), uint64(buf.Len()))

	return nil
}

// bitsUsed returns the declared packing width: zero for constant fields.
func bitsUsed(packed []byte, bits, n int) int {
	if packed == nil && n > 0 {
		return 0
	}

	return bits
}

// productKeys resolves the parameter triplet: an explicit triplet wins,
// otherwise the shortName table is consulted.
func productKeys(md map[string]any) (paramKey, error) {
	if _, ok := md["parameterCategory"]; ok {
		return paramKey{
			Discipline: intKey(md, "discipline", 0),
			Category:   intKey(md, "parameterCategory", 0),
			Number:     intKey(md, "parameterNumber", 0),
		}, nil
	}

	name, _ := md["shortName"].(string)
	if name == "" {
		return paramKey{}, fmt.Errorf("%w: neither shortName nor parameter triplet given", errs.ErrEncoding)
	}
	k, ok := paramsByShortName[name]
	if !ok {
		return paramKey{}, fmt.Errorf("%w: unknown shortName %q", errs.ErrEncoding, name)
	}

	return k, nil
}

func intKey(md map[string]any, key string, def int) int {
	if v, ok := md[key]; ok {
		if n, isInt := field.AsInt(v); isInt {
			return int(n)
		}
	}

	return def
}

func writeIndicator(buf *pool.ByteBuffer, discipline int) {
	start := buf.Len()
	buf.ExtendOrGrow(indicatorLen)
	b := buf.Slice(start, start+indicatorLen)
	copy(b[0:4], magic)
	b[6] = byte(discipline)
	b[7] = 2
	// Total length at b[8:16] is patched once the message is complete.
}

func writeIdentification(buf *pool.ByteBuffer, md map[string]any) {
	date := intKey(md, "dataDate", 19700101)
	hhmm := intKey(md, "dataTime", 0)

	b := appendSection(buf, secIdentification, 21)
	binary.BigEndian.PutUint16(b[5:7], uint16(intKey(md, "centre", 0)))
	binary.BigEndian.PutUint16(b[7:9], uint16(intKey(md, "subCentre", 0)))
	b[9] = 2  // master tables version
	b[11] = 1 // significance of reference time: start of forecast
	binary.BigEndian.PutUint16(b[12:14], uint16(date/10000))
	b[14] = byte(date / 100 % 100)
	b[15] = byte(date % 100)
	b[16] = byte(hhmm / 100)
	b[17] = byte(hhmm % 100)
	b[20] = 1 // forecast products
}

func writeGrid(buf *pool.ByteBuffer, grid geo.RegularLatLon) {
	b := appendSection(buf, secGrid, 72)
	binary.BigEndian.PutUint32(b[6:10], uint32(grid.PointCount()))
	// b[12:14] grid template 3.0
	b[14] = 6 // spherical earth, radius 6,371,229 m
	binary.BigEndian.PutUint32(b[30:34], uint32(grid.Ni))
	binary.BigEndian.PutUint32(b[34:38], uint32(grid.Nj))
	putSigned32(b[46:50], toMicrodegrees(grid.FirstLat))
	putSigned32(b[50:54], toMicrodegrees(grid.FirstLon))
	b[54] = 0x30 // i and j increments given
	putSigned32(b[55:59], toMicrodegrees(grid.LastLat))
	putSigned32(b[59:63], toMicrodegrees(grid.LastLon))
	putSigned32(b[63:67], toMicrodegrees(math.Abs(grid.LonIncrement())))
	putSigned32(b[67:71], toMicrodegrees(math.Abs(grid.LatIncrement())))
	if grid.LatIncrement() > 0 {
		b[71] = 0x40 // scan south to north
	}
}

func writeProduct(buf *pool.ByteBuffer, md map[string]any, prod paramKey) {
	levelTypeName, _ := md["typeOfLevel"].(string)
	levelType, ok := levelTypeCodes[levelTypeName]
	if !ok {
		levelType = levelSurface
	}
	level := intKey(md, "level", 0)

	b := appendSection(buf, secProduct, 34)
	// b[7:9] product template 4.0
	b[9] = byte(prod.Category)
	b[10] = byte(prod.Number)
	b[11] = 2 // generating process: forecast
	b[17] = 1 // unit of time: hour
	putSigned32(b[18:22], int32(intKey(md, "step", 0)))
	b[22] = byte(levelType)
	binary.BigEndian.PutUint32(b[24:28], uint32(wireLevel(levelType, level)))
	b[28] = 255 // no second surface
}

func writeRepresentation(buf *pool.ByteBuffer, n int, ref float32, binScale, bits int) {
	b := appendSection(buf, secRepresentation, 21)
	binary.BigEndian.PutUint32(b[5:9], uint32(n))
	// b[9:11] representation template 5.0
	binary.BigEndian.PutUint32(b[11:15], math.Float32bits(ref))
	putSigned16(b[15:17], int16(binScale))
	// decimal scale stays 0
	b[19] = byte(bits)
}

func writeBitmap(buf *pool.ByteBuffer) {
	b := appendSection(buf, secBitmap, 6)
	b[5] = 255 // no bitmap
}

func writeData(buf *pool.ByteBuffer, packed []byte) {
	b := appendSection(buf, secData, 5+len(packed))
	copy(b[5:], packed)
}

// appendSection grows the buffer by size bytes, zeroed, with the section
// length and number already filled in, and returns the section slice.
func appendSection(buf *pool.ByteBuffer, num, size int) []byte {
	start := buf.Len()
	buf.ExtendOrGrow(size)
	b := buf.Slice(start, start+size)
	for i := range b {
		b[i] = 0
	}
	binary.BigEndian.PutUint32(b[0:4], uint32(size))
	b[4] = byte(num)

	return b
}

// packValues performs simple packing with decimal scale 0: the reference is
// the (float32-rounded-down) minimum and the binary scale is the smallest
// power of two that fits the range into the requested width. A constant
// field returns a nil payload and callers declare zero bits per value.
func packValues(values []float64, bits int) (ref float32, binScale int, packed []byte) {
	if len(values) == 0 {
		return 0, 0, nil
	}

	lo := slices.Min(values)
	hi := slices.Max(values)

	ref = float32(lo)
	// Keep the reference at or below the true minimum so offsets never
	// go negative after float32 rounding.
	if float64(ref) > lo {
		ref = math.Nextafter32(ref, float32(math.Inf(-1)))
	}

	if hi == lo {
		return ref, 0, nil
	}

	maxX := float64(uint64(1)<<uint(bits) - 1)
	binScale = int(math.Ceil(math.Log2((hi - float64(ref)) / maxX)))

	scale := math.Pow(2, -float64(binScale))
	packed = make([]byte, (len(values)*bits+7)/8)
	for i, v := range values {
		x := uint64(math.Round((v - float64(ref)) * scale))
		if x > uint64(maxX) {
			x = uint64(maxX)
		}
		packBits(packed, i*bits, bits, x)
	}

	return ref, binScale, packed
}

func toMicrodegrees(deg float64) int32 {
	return int32(math.Round(deg * 1e6))
}

func putSigned32(b []byte, v int32) {
	u := uint32(v)
	if v < 0 {
		u = uint32(-v) | 0x80000000
	}
	binary.BigEndian.PutUint32(b, u)
}

func putSigned16(b []byte, v int16) {
	u := uint16(v)
	if v < 0 {
		u = uint16(-v) | 0x8000
	}
	binary.BigEndian.PutUint16(b, u)
}
