// Package grib supplies the byte-offset framing, header key mapping and
// minimal codec for GRIB files.
//
// The package deliberately implements only what the fieldlist layer needs:
//
//   - Scanner: walks a byte stream, locating GRIB messages by their
//     indicator/end sections and yielding (offset, length, edition) without
//     decoding payloads. This is what makes lazy fieldlists over large files
//     possible.
//   - Message: a section walk over a single edition-2 message exposing a
//     compact, ecCodes-style key set (shortName, level, dataDate, ...).
//   - Field: a lazy field over (ReaderAt, offset); values are bit-unpacked
//     from the data section on first access and memoized.
//   - Encoder: writes edition-2 messages with simple packing (template 5.0).
//
// Edition 1 messages are framed (so mixed files scan correctly) but not
// decoded: sources skip them, and parsing one directly fails with
// errs.ErrUnsupportedEdition.
package grib

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/earthkit/fieldkit/errs"
)

// magic is the GRIB indicator, end is the trailing section.
var (
	magic = []byte("GRIB")
	end   = []byte("7777")
)

// indicatorLen is the size of the edition-2 indicator section.
const indicatorLen = 16

// MessageRef locates one message inside a larger byte stream.
type MessageRef struct {
	Offset  int64
	Length  int64
	Edition int
}

// ScanOffsets walks r sequentially and returns a reference for every GRIB
// message found. Bytes between messages (index lines, padding) are skipped.
// Payloads are not read beyond what framing requires, so scanning a
// multi-gigabyte file touches only message headers.
func ScanOffsets(r io.Reader) ([]MessageRef, error) {
	br := bufio.NewReaderSize(r, 64*1024)

	var refs []MessageRef
	var pos int64

	for {
		// Hunt for the indicator, byte by byte. Messages are usually
		// back-to-back so the common case peeks once and matches.
		head, err := br.Peek(len(magic))
		if err == io.EOF {
			return refs, nil
		}
		if err != nil {
			return refs, err
		}

		if !bytes.Equal(head, magic) {
			if _, err := br.Discard(1); err != nil {
				return refs, err
			}
			pos++

			continue
		}

		ind, err := br.Peek(8)
		if err != nil {
			return refs, fmt.Errorf("%w: truncated indicator at offset %d", errs.ErrInvalidMessage, pos)
		}

		edition := int(ind[7])
		var total int64
		switch edition {
		case 1:
			// Edition 1 keeps a 24-bit total length in octets 5-7.
			more, err := br.Peek(8)
			if err != nil {
				return refs, fmt.Errorf("%w: truncated edition-1 indicator at offset %d", errs.ErrInvalidMessage, pos)
			}
			total = int64(more[4])<<16 | int64(more[5])<<8 | int64(more[6])
		case 2:
			more, err := br.Peek(indicatorLen)
			if err != nil {
				return refs, fmt.Errorf("%w: truncated edition-2 indicator at offset %d", errs.ErrInvalidMessage, pos)
			}
			total = int64(binary.BigEndian.Uint64(more[8:16])) //nolint:gosec // lengths fit in int64
		default:
			return refs, fmt.Errorf("%w: edition %d at offset %d", errs.ErrUnsupportedEdition, edition, pos)
		}

		if total < indicatorLen {
			return refs, fmt.Errorf("%w: message length %d at offset %d", errs.ErrInvalidMessage, total, pos)
		}

		refs = append(refs, MessageRef{Offset: pos, Length: total, Edition: edition})

		if _, err := br.Discard(int(total)); err != nil {
			return refs, fmt.Errorf("%w: truncated message at offset %d", errs.ErrInvalidMessage, pos)
		}
		pos += total
	}
}

// ReadMessage reads the next complete GRIB message from br into memory,
// skipping any inter-message bytes. It returns io.EOF once the stream is
// consumed. This is the one-shot counterpart of ScanOffsets for sources that
// cannot seek.
func ReadMessage(br *bufio.Reader) ([]byte, int, error) {
	for {
		head, err := br.Peek(len(magic))
		if err == io.EOF {
			return nil, 0, io.EOF
		}
		if err != nil {
			return nil, 0, err
		}

		if !bytes.Equal(head, magic) {
			if _, err := br.Discard(1); err != nil {
				return nil, 0, err
			}

			continue
		}

		ind, err := br.Peek(8)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: truncated indicator", errs.ErrInvalidMessage)
		}

		edition := int(ind[7])
		var total int64
		switch edition {
		case 1:
			total = int64(ind[4])<<16 | int64(ind[5])<<8 | int64(ind[6])
		case 2:
			more, err := br.Peek(indicatorLen)
			if err != nil {
				return nil, 0, fmt.Errorf("%w: truncated edition-2 indicator", errs.ErrInvalidMessage)
			}
			total = int64(binary.BigEndian.Uint64(more[8:16])) //nolint:gosec // lengths fit in int64
		default:
			return nil, 0, fmt.Errorf("%w: edition %d", errs.ErrUnsupportedEdition, edition)
		}

		if total < indicatorLen {
			return nil, 0, fmt.Errorf("%w: message length %d", errs.ErrInvalidMessage, total)
		}

		msg := make([]byte, total)
		if _, err := io.ReadFull(br, msg); err != nil {
			return nil, 0, fmt.Errorf("%w: truncated message: %w", errs.ErrInvalidMessage, err)
		}

		return msg, edition, nil
	}
}
