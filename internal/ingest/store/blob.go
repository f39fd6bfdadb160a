package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/Origin-Inc/tableflow/internal/tabular"
)

// ErrInvalidPath reports a storage path that escapes the store root.
var ErrInvalidPath = errors.New("store: invalid storage path")

// BlobInfo describes one stored object.
type BlobInfo struct {
	Path     string `json:"path"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimeType"`
}

// BlobStore is the object storage the raw file bytes live in. Put is an
// upsert keyed by path: re-uploading the same logical path overwrites,
// and readers never observe a partially written object.
type BlobStore interface {
	Put(ctx context.Context, storagePath string, r io.Reader, contentType string) (BlobInfo, error)
	Open(ctx context.Context, storagePath string) (io.ReadCloser, int64, error)
}

// FSBlobStore stores objects as files under one root directory.
type FSBlobStore struct {
	root    string
	urlBase string
}

// NewFSBlobStore creates the root directory if needed. urlBase prefixes
// the URL reported for stored objects (e.g. "/v1/storage").
func NewFSBlobStore(root, urlBase string) (*FSBlobStore, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &FSBlobStore{root: root, urlBase: strings.TrimSuffix(urlBase, "/")}, nil
}

// Put writes the object to a temporary file and renames it into place,
// so concurrent readers see either the old object or the new one.
func (s *FSBlobStore) Put(ctx context.Context, storagePath string, r io.Reader, contentType string) (BlobInfo, error) {
	full, err := s.resolve(storagePath)
	if err != nil {
		return BlobInfo{}, err
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return BlobInfo{}, fmt.Errorf("create blob directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return BlobInfo{}, fmt.Errorf("create temp object: %w", err)
	}
	tmpName := tmp.Name()

	var head bytes.Buffer
	size, err := io.Copy(tmp, io.TeeReader(r, capWriter{&head}))
	if err == nil {
		err = tmp.Close()
	} else {
		_ = tmp.Close()
	}
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		_ = os.Remove(tmpName)
		return BlobInfo{}, fmt.Errorf("write object: %w", err)
	}

	if err := os.Rename(tmpName, full); err != nil {
		_ = os.Remove(tmpName)
		return BlobInfo{}, fmt.Errorf("publish object: %w", err)
	}

	if contentType == "" {
		contentType = tabular.SniffMIME(head.Bytes(), "application/octet-stream")
	}

	return BlobInfo{
		Path:     storagePath,
		URL:      s.urlBase + "/" + storagePath,
		Size:     size,
		MimeType: contentType,
	}, nil
}

// Open returns the object's bytes and stored size.
func (s *FSBlobStore) Open(ctx context.Context, storagePath string) (io.ReadCloser, int64, error) {
	full, err := s.resolve(storagePath)
	if err != nil {
		return nil, 0, err
	}

	f, err := os.Open(full)
	if err != nil {
		return nil, 0, err
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, err
	}

	return f, info.Size(), nil
}

func (s *FSBlobStore) resolve(storagePath string) (string, error) {
	clean := path.Clean("/" + storagePath)
	if clean == "/" || strings.Contains(clean, "..") {
		return "", ErrInvalidPath
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

// capWriter keeps the first few hundred bytes for MIME sniffing.
type capWriter struct {
	buf *bytes.Buffer
}

func (c capWriter) Write(p []byte) (int, error) {
	const sniffLen = 512
	if remaining := sniffLen - c.buf.Len(); remaining > 0 {
		if len(p) > remaining {
			c.buf.Write(p[:remaining])
		} else {
			c.buf.Write(p)
		}
	}
	return len(p), nil
}
