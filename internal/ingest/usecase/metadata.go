package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/Origin-Inc/tableflow/internal/ingest/entity"
	"github.com/Origin-Inc/tableflow/internal/pkg/pkgerror"
	"github.com/Origin-Inc/tableflow/internal/tabular"
)

// ExtractMetadata infers the schema and size estimates of an uploaded
// blob from a bounded sample read, then persists the catalog record.
//
// Memory use is O(sample), never O(file). Re-requesting metadata for a
// storage path that already has a record returns the existing record;
// the record is created exactly once. No record is written when the
// header cannot be parsed.
func (u *Usecase) ExtractMetadata(ctx context.Context, req FileRequest) (entity.DataFile, error) {
	if req.StoragePath == "" || req.Filename == "" {
		return entity.DataFile{}, pkgerror.NewInvalidInput(errors.New("storagePath and filename are required"))
	}

	if existing, err := u.catalog.GetFileByPath(ctx, req.StoragePath); err == nil {
		return existing, nil
	} else if !errors.Is(err, pkgerror.ErrNotFound) {
		return entity.DataFile{}, pkgerror.NewServer(err)
	}

	sample, consumed, size, err := u.sampleBlob(ctx, req)
	if err != nil {
		return entity.DataFile{}, err
	}

	totalRows := tabular.EstimateRows(sample, consumed, size)

	file := entity.DataFile{
		ID:               u.seqID.Generate(),
		FileID:           u.fileID.Generate(),
		WorkspaceID:      req.WorkspaceID,
		PageID:           req.PageID,
		Filename:         req.Filename,
		TableName:        deriveTableName(req.Filename),
		Schema:           sample.Columns,
		SizeBytes:        size,
		MimeType:         req.MimeType,
		TotalRowEstimate: totalRows,
		EstimatedChunks:  tabular.EstimateChunks(totalRows, u.chunkRows),
		StoragePath:      req.StoragePath,
		StorageURL:       req.StorageURL,
		CreatedAt:        u.clock.Now().UTC(),
	}

	if err := u.catalog.SaveFile(ctx, file); err != nil {
		return entity.DataFile{}, pkgerror.NewServer(err)
	}

	return file, nil
}

// sampleBlob opens the stored object and reads header plus sample rows.
// It returns the sample, the raw bytes consumed while sampling, and the
// stored object size.
func (u *Usecase) sampleBlob(ctx context.Context, req FileRequest) (*tabular.Sample, int64, int64, error) {
	format, compression, ok := tabular.Detect(req.Filename)
	if !ok {
		return nil, 0, 0, pkgerror.NewMetadata(fmt.Errorf("unsupported file type: %s", req.Filename))
	}

	blob, size, err := u.blobs.Open(ctx, req.StoragePath)
	if err != nil {
		return nil, 0, 0, pkgerror.NewServer(fmt.Errorf("open blob %s: %w", req.StoragePath, err))
	}
	defer blob.Close()

	counting := tabular.NewCountingReader(blob)
	decompressed, closeDecoder, err := tabular.NewDecompressedReader(counting, compression)
	if err != nil {
		return nil, 0, 0, pkgerror.NewMetadata(err)
	}
	defer closeDecoder()

	rows, err := tabular.NewRowReader(decompressed, format)
	if err != nil {
		return nil, 0, 0, pkgerror.NewMetadata(err)
	}
	defer rows.Close()

	sample, err := tabular.TakeSample(rows, u.sampleRows)
	if err != nil {
		return nil, 0, 0, pkgerror.NewMetadata(err)
	}

	return sample, counting.BytesRead(), size, nil
}

var tableNameScrub = regexp.MustCompile(`[^a-z0-9_]+`)

// deriveTableName turns a filename into the SQL identifier the
// materializer will create, e.g. "Sales Q3.csv.gz" -> "sales_q3".
func deriveTableName(filename string) string {
	name := strings.ToLower(tabular.BaseName(filename))
	name = tableNameScrub.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_")

	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		name = "t_" + name
	}
	return name
}
