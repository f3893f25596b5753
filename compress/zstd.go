package compress

// ZstdCodec handles the .zst container.
//
// Two implementations exist behind build tags: the cgo build uses
// valyala/gozstd (libzstd bindings, fastest), the pure-Go build falls back
// to klauspost/compress/zstd so cross-compiled binaries keep working.
type ZstdCodec struct{}

var _ Codec = ZstdCodec{}

// NewZstdCodec creates a zstd codec.
func NewZstdCodec() ZstdCodec {
	return ZstdCodec{}
}
