package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Origin-Inc/tableflow/internal/ingest/entity"
	"github.com/Origin-Inc/tableflow/internal/pkg/pkgerror"
	"github.com/Origin-Inc/tableflow/internal/tabular"
)

// StreamChunks re-reads an uploaded blob and emits the file's rows as
// ordered chunk events: one metadata event, then chunks with strictly
// increasing gap-free indices, then a terminal complete event carrying
// the actual row count. Memory use is O(chunk).
//
// A malformed row aborts the stream with a terminal error event; there
// is no mid-stream resume. Errors returned by emit (a closed client
// connection) stop the stream immediately.
func (u *Usecase) StreamChunks(ctx context.Context, req FileRequest, emit func(entity.StreamEvent) error) error {
	file, err := u.ExtractMetadata(ctx, req)
	if err != nil {
		return u.emitError(ctx, emit, err)
	}

	if err := emit(entity.StreamEvent{Type: entity.EventMetadata, Metadata: &file}); err != nil {
		return err
	}

	total, err := u.streamRows(ctx, file, emit)
	if err != nil {
		return u.emitError(ctx, emit, pkgerror.NewStream(err))
	}

	return emit(entity.StreamEvent{
		Type:     entity.EventComplete,
		Complete: &entity.CompletePayload{FinalRowCount: total},
	})
}

func (u *Usecase) streamRows(ctx context.Context, file entity.DataFile, emit func(entity.StreamEvent) error) (int64, error) {
	format, compression, ok := tabular.Detect(file.Filename)
	if !ok {
		return 0, fmt.Errorf("unsupported file type: %s", file.Filename)
	}

	blob, _, err := u.blobs.Open(ctx, file.StoragePath)
	if err != nil {
		return 0, fmt.Errorf("open blob %s: %w", file.StoragePath, err)
	}
	defer blob.Close()

	decompressed, closeDecoder, err := tabular.NewDecompressedReader(blob, compression)
	if err != nil {
		return 0, err
	}
	defer closeDecoder()

	rows, err := tabular.NewRowReader(decompressed, format)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var streamed int64
	return tabular.ReadChunks(ctx, rows, u.chunkRows, func(chunk tabular.Chunk) error {
		streamed += int64(len(chunk.Rows))
		return emit(entity.StreamEvent{
			Type: entity.EventChunk,
			Chunk: &entity.ChunkPayload{
				ChunkIndex:        chunk.Index,
				RowCount:          len(chunk.Rows),
				Data:              chunk.Rows,
				TotalRowsStreamed: streamed,
			},
		})
	})
}

// emitError sends the terminal error event, preferring to surface the
// original failure over a broken emit.
func (u *Usecase) emitError(ctx context.Context, emit func(entity.StreamEvent) error, cause error) error {
	event := entity.StreamEvent{
		Type:  entity.EventError,
		Error: &entity.ErrorPayload{Message: cause.Error()},
	}
	if err := emit(event); err != nil {
		slog.WarnContext(ctx, "failed to emit terminal error event", "error", err)
	}
	return cause
}
