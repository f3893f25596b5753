// Package compress provides the codecs used for transparently reading
// compressed data files (.gz, .zst, .lz4) from the file, url and s3 sources.
//
// A Codec works on whole payloads: sources read the raw bytes (usually out
// of the download cache) and decompress in one shot before message framing.
package compress

import (
	"strings"
)

// Compressor compresses a complete payload.
type Compressor interface {
	// Compress compresses data. The returned slice is newly allocated and
	// owned by the caller; the input is not modified.
	Compress(data []byte) ([]byte, error)
}

// Decompressor decompresses a complete payload.
type Decompressor interface {
	// Decompress decompresses data previously compressed with the same
	// algorithm, validating the container format.
	Decompress(data []byte) ([]byte, error)
}

// Codec combines both directions.
type Codec interface {
	Compressor
	Decompressor
}

// ForPath returns the codec for a file path based on its extension, along
// with the path stripped of the compression suffix. Paths without a known
// suffix return the NoOp codec and the path unchanged.
func ForPath(path string) (Codec, string) {
	switch {
	case strings.HasSuffix(path, ".gz"):
		return NewGzipCodec(), strings.TrimSuffix(path, ".gz")
	case strings.HasSuffix(path, ".zst"):
		return NewZstdCodec(), strings.TrimSuffix(path, ".zst")
	case strings.HasSuffix(path, ".lz4"):
		return NewLZ4Codec(), strings.TrimSuffix(path, ".lz4")
	default:
		return NewNoOpCodec(), path
	}
}
