// Package pool provides pooled byte buffers for the two hot producers of
// throwaway bytes in this module: GRIB message assembly and HTTP downloads.
package pool

import (
	"io"
	"sync"
)

// Pool sizing follows the producers. An encoded message for the grids this
// library targets is tens of KiB; buffers that grew past a few MiB are not
// worth retaining. Downloads accumulate whole remote files, so they start at
// 1MiB and are recycled up to 16MiB.
const (
	MessageBufferDefaultSize   = 64 * 1024
	MessageBufferMaxThreshold  = 4 * 1024 * 1024
	DownloadBufferDefaultSize  = 1024 * 1024
	DownloadBufferMaxThreshold = 16 * 1024 * 1024
)

// ByteBuffer is an appendable byte slice with explicit length control, so
// section writers can reserve a zeroed window and fill it in place.
type ByteBuffer struct {
	// B is the underlying byte slice.
	B []byte
}

// NewByteBuffer creates an empty buffer with the given capacity.
func NewByteBuffer(capacity int) *ByteBuffer {
	return &ByteBuffer{
		B: make([]byte, 0, capacity),
	}
}

// Bytes returns the underlying byte slice.
func (bb *ByteBuffer) Bytes() []byte {
	return bb.B
}

// Reset empties the buffer, keeping the allocation for reuse.
func (bb *ByteBuffer) Reset() {
	bb.B = bb.B[:0]
}

// Len returns the current length.
func (bb *ByteBuffer) Len() int {
	return len(bb.B)
}

// Cap returns the current capacity.
func (bb *ByteBuffer) Cap() int {
	return cap(bb.B)
}

// MustWrite appends data, growing the buffer if necessary.
func (bb *ByteBuffer) MustWrite(data []byte) {
	bb.B = append(bb.B, data...)
}

// Slice returns the buffer window [start, end).
// Panics on out-of-bounds indices.
func (bb *ByteBuffer) Slice(start, end int) []byte {
	if start < 0 || end < start || end > cap(bb.B) {
		panic("Slice: invalid indices")
	}

	return bb.B[start:end]
}

// SetLength sets the length to n within the current capacity.
// Panics if n is negative or exceeds the capacity.
func (bb *ByteBuffer) SetLength(n int) {
	if n < 0 || n > cap(bb.B) {
		panic("SetLength: invalid length")
	}
	bb.B = bb.B[:n]
}

// Extend lengthens the buffer by n bytes if the capacity allows it,
// reporting whether it did.
func (bb *ByteBuffer) Extend(n int) bool {
	curLen := len(bb.B)
	if cap(bb.B)-curLen < n {
		return false
	}

	bb.B = bb.B[:curLen+n]

	return true
}

// ExtendOrGrow lengthens the buffer by n bytes, reallocating if the capacity
// is insufficient. The extended window keeps whatever bytes were there; a
// section writer zeroes it before use.
func (bb *ByteBuffer) ExtendOrGrow(n int) {
	if bb.Extend(n) {
		return
	}

	start := len(bb.B)
	bb.Grow(n)
	bb.B = bb.B[:start+n]
}

// Grow ensures requiredBytes more bytes fit without another reallocation.
// Small buffers step up by the message default so a typical message settles
// after one growth; buffers past four defaults grow by a quarter of their
// capacity instead.
func (bb *ByteBuffer) Grow(requiredBytes int) {
	available := cap(bb.B) - len(bb.B)
	if available >= requiredBytes {
		return
	}

	growBy := MessageBufferDefaultSize
	if cap(bb.B) > 4*MessageBufferDefaultSize {
		growBy = cap(bb.B) / 4
	}
	if growBy < requiredBytes {
		growBy = requiredBytes
	}

	newBuf := make([]byte, len(bb.B), len(bb.B)+growBy)
	copy(newBuf, bb.B)
	bb.B = newBuf
}

// Write appends data, implementing io.Writer. It never fails.
func (bb *ByteBuffer) Write(data []byte) (int, error) {
	bb.B = append(bb.B, data...)
	return len(data), nil
}

// WriteTo writes the buffered bytes to w.
func (bb *ByteBuffer) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(bb.B)
	return int64(n), err
}

// ByteBufferPool recycles ByteBuffers through a sync.Pool. Buffers that grew
// past maxThreshold are dropped on Put instead of being retained, so one
// oversized message or download cannot pin memory for the process lifetime.
type ByteBufferPool struct {
	pool         sync.Pool
	maxThreshold int
}

// NewByteBufferPool creates a pool handing out buffers of defaultSize.
// A maxThreshold of zero disables the retention limit.
func NewByteBufferPool(defaultSize int, maxThreshold int) *ByteBufferPool {
	return &ByteBufferPool{
		pool: sync.Pool{
			New: func() any {
				return NewByteBuffer(defaultSize)
			},
		},
		maxThreshold: maxThreshold,
	}
}

// Get retrieves an empty ByteBuffer from the pool.
func (bbp *ByteBufferPool) Get() *ByteBuffer {
	bb, _ := bbp.pool.Get().(*ByteBuffer)
	return bb
}

// Put resets bb and returns it to the pool for reuse.
func (bbp *ByteBufferPool) Put(bb *ByteBuffer) {
	if bb == nil {
		return
	}

	if bbp.maxThreshold > 0 && cap(bb.B) > bbp.maxThreshold {
		return
	}

	bb.Reset()
	bbp.pool.Put(bb)
}

var (
	messageDefaultPool  = NewByteBufferPool(MessageBufferDefaultSize, MessageBufferMaxThreshold)
	downloadDefaultPool = NewByteBufferPool(DownloadBufferDefaultSize, DownloadBufferMaxThreshold)
)

// GetMessageBuffer retrieves a buffer sized for GRIB message assembly.
func GetMessageBuffer() *ByteBuffer {
	return messageDefaultPool.Get()
}

// PutMessageBuffer returns a message buffer to its pool.
func PutMessageBuffer(bb *ByteBuffer) {
	messageDefaultPool.Put(bb)
}

// GetDownloadBuffer retrieves a buffer sized for accumulating a download.
func GetDownloadBuffer() *ByteBuffer {
	return downloadDefaultPool.Get()
}

// PutDownloadBuffer returns a download buffer to its pool.
func PutDownloadBuffer(bb *ByteBuffer) {
	downloadDefaultPool.Put(bb)
}
