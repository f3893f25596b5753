package fieldlist

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"sync"

	"github.com/earthkit/fieldkit/errs"
	"github.com/earthkit/fieldkit/field"
)

// StreamState tracks the lifecycle of a one-shot stream.
type StreamState int

const (
	// Unopened: no field has been requested yet.
	Unopened StreamState = iota
	// Streaming: at least one field was delivered, more may follow.
	Streaming
	// Exhausted: the underlying source is consumed. Terminal.
	Exhausted
)

// String returns the state name.
func (s StreamState) String() string {
	switch s {
	case Unopened:
		return "unopened"
	case Streaming:
		return "streaming"
	default:
		return "exhausted"
	}
}

// NextFunc produces the next field of a one-shot source, or io.EOF when the
// source is consumed.
type NextFunc func() (field.Field, error)

// Stream is a FieldList-like view over a one-shot source. Fields can be
// consumed exactly once, via Next, Batched or ReadAll; after exhaustion any
// further read fails with errs.ErrStreamExhausted.
type Stream struct {
	mu    sync.Mutex
	next  NextFunc
	state StreamState
}

// NewStream wraps a producer function into a stream in the Unopened state.
func NewStream(next NextFunc) *Stream {
	return &Stream{next: next}
}

// State returns the current lifecycle state.
func (s *Stream) State() StreamState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Next returns the next field. At the end of the source it transitions to
// Exhausted and returns io.EOF; every call after that fails with
// errs.ErrStreamExhausted.
func (s *Stream) Next() (field.Field, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Exhausted {
		return nil, fmt.Errorf("%w: stream already consumed", errs.ErrStreamExhausted)
	}
	s.state = Streaming

	f, err := s.next()
	if err != nil {
		s.state = Exhausted
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}

		return nil, err
	}

	return f, nil
}

// ReadAll materializes every remaining field into an in-memory FieldList and
// transitions the stream to Exhausted. After ReadAll, normal FieldList
// semantics (repeated iteration, Sel, OrderBy) apply to the result.
func (s *Stream) ReadAll() (*FieldList, error) {
	fl := New()
	for {
		f, err := s.Next()
		if errors.Is(err, io.EOF) {
			return fl, nil
		}
		if err != nil {
			return nil, err
		}
		fl.Append(f)
	}
}

// Batched yields consecutive batches of up to n fields as the stream is
// consumed. Iteration is single-pass: once the sequence ends the stream is
// Exhausted and iterating again yields nothing but an ErrStreamExhausted
// pair. Errors from the source are yielded with a nil batch.
func (s *Stream) Batched(n int) iter.Seq2[*FieldList, error] {
	return func(yield func(*FieldList, error) bool) {
		if n < 1 {
			return
		}

		for {
			batch := make([]field.Field, 0, n)
			for len(batch) < n {
				f, err := s.Next()
				if errors.Is(err, io.EOF) {
					break
				}
				// Iterating an exhausted stream yields empty, not an error,
				// mirroring a drained in-memory iterator.
				if errors.Is(err, errs.ErrStreamExhausted) {
					return
				}
				if err != nil {
					yield(nil, err)
					return
				}
				batch = append(batch, f)
			}

			if len(batch) == 0 {
				return
			}
			if !yield(New(batch...), nil) {
				return
			}
			if len(batch) < n {
				return
			}
		}
	}
}
