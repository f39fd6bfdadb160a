package tabular

import (
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Format identifies the logical layout of a tabular file.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatTSV  Format = "tsv"
	FormatXLSX Format = "xlsx"
)

// Compression identifies the outer compression wrapper, if any.
type Compression string

const (
	CompressionNone  Compression = ""
	CompressionGzip  Compression = "gz"
	CompressionBzip2 Compression = "bz2"
	CompressionZstd  Compression = "zst"
	CompressionXz    Compression = "xz"
)

var compressionExts = map[string]Compression{
	".gz":  CompressionGzip,
	".bz2": CompressionBzip2,
	".zst": CompressionZstd,
	".xz":  CompressionXz,
}

// Detect resolves the format and compression of a file from its name.
//
// Compression extensions stack on the format extension, so "data.csv.gz"
// is gzip-compressed CSV. Unknown extensions report ok=false.
func Detect(filename string) (Format, Compression, bool) {
	name := strings.ToLower(path.Base(filename))

	compression := CompressionNone
	if c, found := compressionExts[path.Ext(name)]; found {
		compression = c
		name = strings.TrimSuffix(name, path.Ext(name))
	}

	switch path.Ext(name) {
	case ".csv":
		return FormatCSV, compression, true
	case ".tsv", ".tab":
		return FormatTSV, compression, true
	case ".xlsx":
		// Compressed xlsx is not supported; the container is already a zip.
		if compression != CompressionNone {
			return "", "", false
		}
		return FormatXLSX, CompressionNone, true
	default:
		return "", "", false
	}
}

// BaseName strips format and compression extensions from a filename.
func BaseName(filename string) string {
	name := path.Base(filename)
	if _, found := compressionExts[strings.ToLower(path.Ext(name))]; found {
		name = strings.TrimSuffix(name, path.Ext(name))
	}
	return strings.TrimSuffix(name, path.Ext(name))
}

// SniffMIME detects the content type of a byte prefix, falling back to
// the given default when detection yields nothing more specific.
func SniffMIME(prefix []byte, fallback string) string {
	if len(prefix) == 0 {
		return fallback
	}
	detected := mimetype.Detect(prefix)
	if detected == nil {
		return fallback
	}
	return detected.String()
}
