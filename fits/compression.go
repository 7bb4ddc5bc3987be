package fits

import (
	"compress/gzip"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/ulikunitz/xz"
)

// CompressionFormat identifies the outer compression of a FITS file on disk.
type CompressionFormat string

const (
	// CompressionNone is an uncompressed file.
	CompressionNone CompressionFormat = ""
	// CompressionGzip is gzip compression.
	CompressionGzip CompressionFormat = "gz"
	// CompressionBzip2 is bzip2 compression.
	CompressionBzip2 CompressionFormat = "bz2"
	// CompressionXz is xz compression.
	CompressionXz CompressionFormat = "xz"
)

// DetectCompressionFormat derives the compression format from the file name
// extension. Unknown extensions are treated as uncompressed.
func DetectCompressionFormat(filename string) CompressionFormat {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".gz":
		return CompressionGzip
	case ".bz2":
		return CompressionBzip2
	case ".xz":
		return CompressionXz
	default:
		return CompressionNone
	}
}

// Extension returns the file name extension for the format, including the
// leading dot, or the empty string for CompressionNone.
func (f CompressionFormat) Extension() string {
	if f == CompressionNone {
		return ""
	}
	return "." + string(f)
}

// newDecompressor wraps r in a decompressing reader for the given format.
func newDecompressor(format CompressionFormat, r io.Reader) (io.Reader, error) {
	switch format {
	case CompressionNone:
		return r, nil
	case CompressionGzip:
		return gzip.NewReader(r)
	case CompressionBzip2:
		return bzip2.NewReader(r, nil)
	case CompressionXz:
		return xz.NewReader(r)
	default:
		return nil, fmt.Errorf("unsupported compression format %q", format)
	}
}
