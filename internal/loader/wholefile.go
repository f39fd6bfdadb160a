package loader

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Origin-Inc/tableflow/internal/ingest/entity"
	"github.com/Origin-Inc/tableflow/internal/pkg/pkgerror"
	"github.com/Origin-Inc/tableflow/internal/tabular"
)

// runWholeFile is the small-file path: one metadata round trip, then a
// single parse-and-load pass over the downloaded blob. The table is
// created once with every row, so it reuses the materializer as a
// one-chunk stream.
func (p *Pipeline) runWholeFile(ctx context.Context, materializer *Materializer, ref FileReference) (Result, error) {
	file, err := p.client.RequestMetadata(ctx, ref)
	if err != nil {
		return Result{}, pkgerror.NewMetadata(err)
	}
	materializer.OnMetadata(file)

	rows, err := p.readAllRows(ctx, ref)
	if err != nil {
		return Result{}, err
	}

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	chunk := entity.ChunkPayload{
		ChunkIndex:        0,
		RowCount:          len(rows),
		Data:              rows,
		TotalRowsStreamed: int64(len(rows)),
	}
	if err := materializer.OnChunk(ctx, chunk); err != nil {
		return Result{}, err
	}

	return materializer.OnComplete(ctx, entity.CompletePayload{FinalRowCount: int64(len(rows))})
}

func (p *Pipeline) readAllRows(ctx context.Context, ref FileReference) ([][]string, error) {
	format, compression, ok := tabular.Detect(ref.Filename)
	if !ok {
		return nil, pkgerror.NewMetadata(fmt.Errorf("unsupported file type: %s", ref.Filename))
	}

	body, err := p.client.DownloadBlob(ctx, ref.StoragePath)
	if err != nil {
		return nil, pkgerror.NewUpload(err)
	}
	defer body.Close()

	decompressed, closeDecoder, err := tabular.NewDecompressedReader(body, compression)
	if err != nil {
		return nil, pkgerror.NewMetadata(err)
	}
	defer closeDecoder()

	rr, err := tabular.NewRowReader(decompressed, format)
	if err != nil {
		return nil, pkgerror.NewMetadata(err)
	}
	defer rr.Close()

	var rows [][]string
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		row, err := rr.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, pkgerror.NewStream(fmt.Errorf("parse %s: %w", ref.Filename, err))
		}
		rows = append(rows, row)
	}
}
