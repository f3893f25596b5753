package source

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/earthkit/fieldkit/config"
	"github.com/earthkit/fieldkit/field"
	"github.com/earthkit/fieldkit/fieldlist"
	"github.com/earthkit/fieldkit/grib"
)

// StreamSource reads GRIB messages from a non-seekable reader, one at a
// time. It is one-shot: fields can be consumed exactly once, through the
// Stream's Next, Batched or ReadAll.
type StreamSource struct {
	stream *fieldlist.Stream
}

// NewStreamSource wraps r. Each message is buffered in memory only while the
// corresponding field is alive; the stream itself is never fully loaded.
func NewStreamSource(r io.Reader) *StreamSource {
	br := bufio.NewReaderSize(r, 64*1024)
	next := func() (field.Field, error) {
		for {
			msg, edition, err := grib.ReadMessage(br)
			if err != nil {
				return nil, err
			}
			if edition != 2 {
				// Same contract as the file source: undecodable editions
				// are framed and skipped, not fatal.
				log.WithField("edition", edition).Warn("skipping GRIB message of undecodable edition")

				continue
			}

			mr := bytes.NewReader(msg)
			f, err := grib.NewField(mr, grib.MessageRef{
				Offset:  0,
				Length:  int64(len(msg)),
				Edition: edition,
			})
			if err != nil {
				return nil, err
			}

			return f, nil
		}
	}

	return &StreamSource{stream: fieldlist.NewStream(next)}
}

func streamFactory(_ *config.Config, args Args) (Source, error) {
	r, ok := args["reader"].(io.Reader)
	if !ok {
		return nil, fmt.Errorf("source argument \"reader\": want io.Reader, got %T", args["reader"])
	}

	return NewStreamSource(r), nil
}

// Stream returns the one-shot stream view.
func (s *StreamSource) Stream() *fieldlist.Stream {
	return s.stream
}

// FieldList materializes the rest of the stream, the escape hatch from
// one-shot to in-memory semantics.
func (s *StreamSource) FieldList(_ context.Context) (*fieldlist.FieldList, error) {
	return s.stream.ReadAll()
}
