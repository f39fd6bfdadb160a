package tabular

import (
	"bytes"
	"compress/gzip"
	"io"
	"strings"
	"testing"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		filename        string
		wantFormat      Format
		wantCompression Compression
		wantOK          bool
	}{
		{filename: "data.csv", wantFormat: FormatCSV, wantCompression: CompressionNone, wantOK: true},
		{filename: "data.CSV", wantFormat: FormatCSV, wantCompression: CompressionNone, wantOK: true},
		{filename: "data.tsv", wantFormat: FormatTSV, wantCompression: CompressionNone, wantOK: true},
		{filename: "data.tab", wantFormat: FormatTSV, wantCompression: CompressionNone, wantOK: true},
		{filename: "data.xlsx", wantFormat: FormatXLSX, wantCompression: CompressionNone, wantOK: true},
		{filename: "data.csv.gz", wantFormat: FormatCSV, wantCompression: CompressionGzip, wantOK: true},
		{filename: "data.csv.bz2", wantFormat: FormatCSV, wantCompression: CompressionBzip2, wantOK: true},
		{filename: "data.tsv.zst", wantFormat: FormatTSV, wantCompression: CompressionZstd, wantOK: true},
		{filename: "data.csv.xz", wantFormat: FormatCSV, wantCompression: CompressionXz, wantOK: true},
		{filename: "dir/sub/data.csv", wantFormat: FormatCSV, wantCompression: CompressionNone, wantOK: true},
		{filename: "data.xlsx.gz", wantOK: false},
		{filename: "data.json", wantOK: false},
		{filename: "data", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			format, compression, ok := Detect(tt.filename)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if format != tt.wantFormat || compression != tt.wantCompression {
				t.Errorf("Detect = (%s, %s), want (%s, %s)", format, compression, tt.wantFormat, tt.wantCompression)
			}
		})
	}
}

func TestBaseName(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{filename: "sales.csv", want: "sales"},
		{filename: "sales.csv.gz", want: "sales"},
		{filename: "a/b/report.xlsx", want: "report"},
		{filename: "plain", want: "plain"},
	}

	for _, tt := range tests {
		if got := BaseName(tt.filename); got != tt.want {
			t.Errorf("BaseName(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}

func TestDecompressedReaderGzip(t *testing.T) {
	const body = "id,name\n1,alice\n2,bob\n"

	var compressed bytes.Buffer
	gz := gzip.NewWriter(&compressed)
	if _, err := gz.Write([]byte(body)); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}

	r, closer, err := NewDecompressedReader(&compressed, CompressionGzip)
	if err != nil {
		t.Fatalf("NewDecompressedReader: %v", err)
	}
	defer closer()

	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != body {
		t.Errorf("decompressed = %q, want %q", got, body)
	}
}

func TestDecompressedReaderPassthrough(t *testing.T) {
	r, closer, err := NewDecompressedReader(strings.NewReader("raw"), CompressionNone)
	if err != nil {
		t.Fatalf("NewDecompressedReader: %v", err)
	}
	defer closer()

	got, _ := io.ReadAll(r)
	if string(got) != "raw" {
		t.Errorf("passthrough = %q, want %q", got, "raw")
	}
}

func TestCountingReader(t *testing.T) {
	cr := NewCountingReader(strings.NewReader("0123456789"))

	buf := make([]byte, 4)
	if _, err := cr.Read(buf); err != nil {
		t.Fatalf("read: %v", err)
	}
	if cr.BytesRead() != 4 {
		t.Errorf("BytesRead = %d, want 4", cr.BytesRead())
	}

	if _, err := io.ReadAll(cr); err != nil {
		t.Fatalf("drain: %v", err)
	}
	if cr.BytesRead() != 10 {
		t.Errorf("BytesRead = %d, want 10", cr.BytesRead())
	}
}
