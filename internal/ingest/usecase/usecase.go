package usecase

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/Origin-Inc/tableflow/internal/ingest/entity"
	"github.com/Origin-Inc/tableflow/internal/pkg/pkgerror"
	"github.com/Origin-Inc/tableflow/internal/pkg/pkguid"
)

// BlobStore is the read side of object storage the pipeline parses from.
type BlobStore interface {
	Open(ctx context.Context, storagePath string) (io.ReadCloser, int64, error)
}

// Catalog persists and looks up DataFile records.
type Catalog interface {
	SaveFile(ctx context.Context, file entity.DataFile) error
	GetFile(ctx context.Context, fileID string) (entity.DataFile, error)
	GetFileByPath(ctx context.Context, storagePath string) (entity.DataFile, error)
	ListFiles(ctx context.Context) ([]entity.DataFile, error)
}

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

const (
	defaultChunkRows  = 1000
	defaultSampleRows = 100
)

type Dependency struct {
	Blobs   BlobStore
	Catalog Catalog
	FileID  pkguid.StringID
	SeqID   pkguid.NumberID
	Clock   Clock

	// ChunkRows is the fixed row batch size of the chunk streamer.
	ChunkRows int
	// SampleRows bounds the metadata extractor's read window.
	SampleRows int
}

// Usecase implements the server side of the ingestion pipeline:
// bounded-memory metadata extraction and ordered chunk streaming.
type Usecase struct {
	blobs      BlobStore
	catalog    Catalog
	fileID     pkguid.StringID
	seqID      pkguid.NumberID
	clock      Clock
	chunkRows  int
	sampleRows int
}

func New(dep Dependency) *Usecase {
	chunkRows := dep.ChunkRows
	if chunkRows < 1 {
		chunkRows = defaultChunkRows
	}

	sampleRows := dep.SampleRows
	if sampleRows < 1 {
		sampleRows = defaultSampleRows
	}

	clock := dep.Clock
	if clock == nil {
		clock = realClock{}
	}

	return &Usecase{
		blobs:      dep.Blobs,
		catalog:    dep.Catalog,
		fileID:     dep.FileID,
		seqID:      dep.SeqID,
		clock:      clock,
		chunkRows:  chunkRows,
		sampleRows: sampleRows,
	}
}

// FileRequest references an already-uploaded blob.
type FileRequest struct {
	WorkspaceID string
	PageID      string
	StoragePath string
	StorageURL  string
	Filename    string
	FileSize    int64
	MimeType    string
}

// GetFile returns one catalog record.
func (u *Usecase) GetFile(ctx context.Context, fileID string) (entity.DataFile, error) {
	if fileID == "" {
		return entity.DataFile{}, pkgerror.NewInvalidInput(errors.New("file id is required"))
	}

	file, err := u.catalog.GetFile(ctx, fileID)
	if errors.Is(err, pkgerror.ErrNotFound) {
		return entity.DataFile{}, pkgerror.NewBusiness("file not found", pkgerror.CodeNotFound)
	}
	return file, err
}

// ListFiles returns every catalog record.
func (u *Usecase) ListFiles(ctx context.Context) ([]entity.DataFile, error) {
	return u.catalog.ListFiles(ctx)
}
