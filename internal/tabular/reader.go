package tabular

import (
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// NewDecompressedReader wraps r with the decoder matching compression.
//
// The returned closer releases decoder resources and must be called even
// when reading fails part way.
func NewDecompressedReader(r io.Reader, compression Compression) (io.Reader, func() error, error) {
	noop := func() error { return nil }

	switch compression {
	case CompressionNone:
		return r, noop, nil
	case CompressionGzip:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, noop, fmt.Errorf("open gzip reader: %w", err)
		}
		return gz, gz.Close, nil
	case CompressionBzip2:
		return bzip2.NewReader(r), noop, nil
	case CompressionZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, noop, fmt.Errorf("open zstd reader: %w", err)
		}
		return zr.IOReadCloser(), func() error { zr.Close(); return nil }, nil
	case CompressionXz:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, noop, fmt.Errorf("open xz reader: %w", err)
		}
		return xr, noop, nil
	default:
		return nil, noop, fmt.Errorf("unsupported compression: %q", compression)
	}
}

// CountingReader counts bytes consumed from the underlying reader. It is
// placed between the raw source and the decompressor so row estimates can
// be scaled against the stored (possibly compressed) size.
type CountingReader struct {
	r io.Reader
	n int64
}

func NewCountingReader(r io.Reader) *CountingReader {
	return &CountingReader{r: r}
}

func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// BytesRead returns the number of bytes consumed so far.
func (c *CountingReader) BytesRead() int64 {
	return c.n
}
