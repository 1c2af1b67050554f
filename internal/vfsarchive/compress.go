package vfsarchive

import (
	"archive/zip"
	"io"

	"github.com/klauspost/compress/flate"
)

// init registers klauspost/compress's flate implementation as the deflate
// decompressor for every archive/zip.Reader this package opens, in place of
// the standard library's compress/flate. Entry inflation is this engine's
// dominant hot path (every FileSource/StreamSource open, every nested
// mount's extraction), and klauspost/compress is a measurably faster
// drop-in for it.
func init() {
	zip.RegisterDecompressor(zip.Deflate, func(r io.Reader) io.ReadCloser {
		return flate.NewReader(r)
	})
}
