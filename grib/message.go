package grib

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/earthkit/fieldkit/errs"
	"github.com/earthkit/fieldkit/geo"
)

// Section numbers of an edition-2 message, in file order.
const (
	secIdentification = 1
	secGrid           = 3
	secProduct        = 4
	secRepresentation = 5
	secBitmap         = 6
	secData           = 7
)

// identification carries the section-1 keys the library exposes.
type identification struct {
	Centre    int
	SubCentre int
	Year      int
	Month     int
	Day       int
	Hour      int
	Minute    int
}

// gridDefinition carries the template-3.0 regular lat/lon keys.
type gridDefinition struct {
	NumberOfDataPoints int
	Ni                 int
	Nj                 int
	FirstLat           float64
	FirstLon           float64
	LastLat            float64
	LastLon            float64
}

// productDefinition carries the template-4.0 keys.
type productDefinition struct {
	Discipline        int // from the indicator section, kept with the product keys
	ParameterCategory int
	ParameterNumber   int
	StepHours         int
	LevelType         int
	Level             int
}

// packing carries the template-5.0 simple-packing parameters.
type packing struct {
	NumberOfValues int
	Reference      float64
	BinaryScale    int
	DecimalScale   int
	Bits           int
}

// Message is the parsed header of one edition-2 GRIB message. The data
// section is not read at parse time; dataOffset/dataLength locate it so
// values can be extracted lazily.
type Message struct {
	Edition int
	Length  int64

	ident identification
	grid  gridDefinition
	prod  productDefinition
	pack  packing

	// Absolute position of the section-7 packed payload within the
	// underlying reader, excluding the 5-byte section header.
	dataOffset int64
	dataLength int64
}

// ParseHeader walks the sections of the message at offset in r, stopping
// before the data section payload. Only header bytes are read.
func ParseHeader(r io.ReaderAt, offset int64) (*Message, error) {
	var ind [indicatorLen]byte
	if _, err := r.ReadAt(ind[:], offset); err != nil {
		return nil, fmt.Errorf("%w: reading indicator: %w", errs.ErrInvalidMessage, err)
	}
	if string(ind[0:4]) != string(magic) {
		return nil, fmt.Errorf("%w: bad magic at offset %d", errs.ErrInvalidMessage, offset)
	}

	edition := int(ind[7])
	if edition != 2 {
		return nil, fmt.Errorf("%w: edition %d (only edition 2 is decoded)", errs.ErrUnsupportedEdition, edition)
	}

	msg := &Message{
		Edition: 2,
		Length:  int64(binary.BigEndian.Uint64(ind[8:16])), //nolint:gosec
	}
	msg.prod.Discipline = int(ind[6])

	pos := offset + indicatorLen
	endPos := offset + msg.Length

	for pos < endPos-int64(len(end)) {
		var head [5]byte
		if _, err := r.ReadAt(head[:], pos); err != nil {
			return nil, fmt.Errorf("%w: reading section header at %d: %w", errs.ErrInvalidMessage, pos, err)
		}

		secLen := int64(binary.BigEndian.Uint32(head[0:4]))
		secNum := int(head[4])
		if secLen < 5 || pos+secLen > endPos {
			return nil, fmt.Errorf("%w: section %d length %d at %d", errs.ErrInvalidMessage, secNum, secLen, pos)
		}

		if secNum == secData {
			// Leave the payload on disk; record where it lives.
			msg.dataOffset = pos + 5
			msg.dataLength = secLen - 5
			pos += secLen

			continue
		}

		body := make([]byte, secLen-5)
		if _, err := r.ReadAt(body, pos+5); err != nil {
			return nil, fmt.Errorf("%w: reading section %d: %w", errs.ErrInvalidMessage, secNum, err)
		}

		if err := msg.parseSection(secNum, body); err != nil {
			return nil, err
		}
		pos += secLen
	}

	if msg.dataOffset == 0 {
		return nil, fmt.Errorf("%w: no data section", errs.ErrInvalidMessage)
	}

	return msg, nil
}

func (m *Message) parseSection(num int, body []byte) error {
	switch num {
	case secIdentification:
		return m.parseIdentification(body)
	case secGrid:
		return m.parseGrid(body)
	case secProduct:
		return m.parseProduct(body)
	case secRepresentation:
		return m.parseRepresentation(body)
	case secBitmap:
		if len(body) < 1 || body[0] != 255 {
			return fmt.Errorf("%w: bitmaps are not supported", errs.ErrInvalidMessage)
		}
		return nil
	default:
		// Local-use and unknown sections are skipped, matching the
		// "surface only what we map" contract.
		return nil
	}
}

// Section bodies below are indexed per the WMO octet layouts, shifted by the
// 5 header octets already consumed.

func (m *Message) parseIdentification(b []byte) error {
	if len(b) < 16 {
		return fmt.Errorf("%w: identification section too short", errs.ErrInvalidMessage)
	}
	m.ident.Centre = int(binary.BigEndian.Uint16(b[0:2]))
	m.ident.SubCentre = int(binary.BigEndian.Uint16(b[2:4]))
	m.ident.Year = int(binary.BigEndian.Uint16(b[7:9]))
	m.ident.Month = int(b[9])
	m.ident.Day = int(b[10])
	m.ident.Hour = int(b[11])
	m.ident.Minute = int(b[12])

	return nil
}

func (m *Message) parseGrid(b []byte) error {
	if len(b) < 67 {
		return fmt.Errorf("%w: grid section too short", errs.ErrInvalidMessage)
	}

	template := int(binary.BigEndian.Uint16(b[7:9]))
	if template != 0 {
		return fmt.Errorf("%w: grid template %d (only 3.0 regular lat/lon)", errs.ErrInvalidMessage, template)
	}

	m.grid.NumberOfDataPoints = int(binary.BigEndian.Uint32(b[1:5]))
	m.grid.Ni = int(binary.BigEndian.Uint32(b[25:29]))
	m.grid.Nj = int(binary.BigEndian.Uint32(b[29:33]))
	if m.grid.Ni < 1 || m.grid.Nj < 1 || m.grid.Ni*m.grid.Nj != m.grid.NumberOfDataPoints {
		return fmt.Errorf("%w: grid %dx%d disagrees with %d data points",
			errs.ErrInvalidMessage, m.grid.Ni, m.grid.Nj, m.grid.NumberOfDataPoints)
	}
	m.grid.FirstLat = microdegrees(readSigned32(b[41:45]))
	m.grid.FirstLon = microdegrees(readSigned32(b[45:49]))
	m.grid.LastLat = microdegrees(readSigned32(b[50:54]))
	m.grid.LastLon = microdegrees(readSigned32(b[54:58]))

	return nil
}

func (m *Message) parseProduct(b []byte) error {
	if len(b) < 29 {
		return fmt.Errorf("%w: product section too short", errs.ErrInvalidMessage)
	}

	template := int(binary.BigEndian.Uint16(b[2:4]))
	if template != 0 {
		return fmt.Errorf("%w: product template %d (only 4.0)", errs.ErrInvalidMessage, template)
	}

	m.prod.ParameterCategory = int(b[4])
	m.prod.ParameterNumber = int(b[5])
	m.prod.StepHours = int(readSigned32(b[13:17]))
	m.prod.LevelType = int(b[17])

	scale := int(b[18])
	value := int(binary.BigEndian.Uint32(b[19:23]))
	m.prod.Level = scaledLevel(m.prod.LevelType, scale, value)

	return nil
}

func (m *Message) parseRepresentation(b []byte) error {
	if len(b) < 16 {
		return fmt.Errorf("%w: representation section too short", errs.ErrInvalidMessage)
	}

	template := int(binary.BigEndian.Uint16(b[4:6]))
	if template != 0 {
		return fmt.Errorf("%w: packing template %d (only 5.0 simple packing)", errs.ErrInvalidMessage, template)
	}

	m.pack.NumberOfValues = int(binary.BigEndian.Uint32(b[0:4]))
	m.pack.Reference = float64(math.Float32frombits(binary.BigEndian.Uint32(b[6:10])))
	m.pack.BinaryScale = int(readSigned16(b[10:12]))
	m.pack.DecimalScale = int(readSigned16(b[12:14]))
	m.pack.Bits = int(b[14])

	return nil
}

// Geometry returns the grid described by section 3.
func (m *Message) Geometry() geo.Geometry {
	return geo.RegularLatLon{
		Ni:       m.grid.Ni,
		Nj:       m.grid.Nj,
		FirstLat: m.grid.FirstLat,
		FirstLon: m.grid.FirstLon,
		LastLat:  m.grid.LastLat,
		LastLon:  m.grid.LastLon,
	}
}

// DataDate returns the reference date as YYYYMMDD.
func (m *Message) DataDate() int {
	return m.ident.Year*10000 + m.ident.Month*100 + m.ident.Day
}

// DataTime returns the reference time as HHMM.
func (m *Message) DataTime() int {
	return m.ident.Hour*100 + m.ident.Minute
}

// GRIB encodes negative 16/32-bit integers as sign-and-magnitude: the top
// bit flags the sign, the remaining bits hold the absolute value.

func readSigned32(b []byte) int32 {
	u := binary.BigEndian.Uint32(b)
	if u&0x80000000 != 0 {
		return -int32(u & 0x7fffffff)
	}

	return int32(u)
}

func readSigned16(b []byte) int16 {
	u := binary.BigEndian.Uint16(b)
	if u&0x8000 != 0 {
		return -int16(u & 0x7fff)
	}

	return int16(u)
}

func microdegrees(v int32) float64 {
	return float64(v) / 1e6
}
