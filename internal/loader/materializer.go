package loader

import (
	"context"
	"errors"
	"fmt"

	"github.com/Origin-Inc/tableflow/internal/ingest/entity"
	"github.com/Origin-Inc/tableflow/internal/pkg/pkgerror"
	"github.com/Origin-Inc/tableflow/internal/tabular"
)

// Engine is the slice of the embedded analytical engine the pipeline
// consumes: create once, append in order, drop on error.
type Engine interface {
	CreateTableFromRows(ctx context.Context, table string, schema []tabular.Column, rows [][]string) error
	AppendRows(ctx context.Context, table string, schema []tabular.Column, rows [][]string) error
	DropTable(ctx context.Context, table string) error
}

// Materializer builds the destination table incrementally. The table is
// created exactly once, on the first chunk, and only ever appended to
// afterward; chunk indices must arrive strictly increasing with no
// gaps, so append order equals source row order.
type Materializer struct {
	engine Engine

	file         *entity.DataFile
	created      bool
	nextChunk    int
	loadedRows   int64
	loadedChunks int
}

func NewMaterializer(engine Engine) *Materializer {
	return &Materializer{engine: engine}
}

// OnMetadata stores the schema and destination table name. No engine
// mutation happens until the first data-bearing event.
func (m *Materializer) OnMetadata(file entity.DataFile) {
	m.file = &file
}

// OnChunk creates the table with the first chunk's rows and appends
// every later chunk. The engine call completes before OnChunk returns,
// which is the serialization point that preserves row order.
func (m *Materializer) OnChunk(ctx context.Context, chunk entity.ChunkPayload) error {
	if m.file == nil {
		return pkgerror.NewMaterialize(errors.New("chunk received before metadata"))
	}
	if chunk.ChunkIndex != m.nextChunk {
		return pkgerror.NewStream(fmt.Errorf("chunk index %d out of order, expected %d", chunk.ChunkIndex, m.nextChunk))
	}

	if !m.created {
		if err := m.engine.CreateTableFromRows(ctx, m.file.TableName, m.file.Schema, chunk.Data); err != nil {
			return pkgerror.NewMaterialize(err)
		}
		m.created = true
	} else {
		if err := m.engine.AppendRows(ctx, m.file.TableName, m.file.Schema, chunk.Data); err != nil {
			return pkgerror.NewMaterialize(err)
		}
	}

	m.nextChunk++
	m.loadedChunks++
	m.loadedRows += int64(len(chunk.Data))
	return nil
}

// OnComplete cross-checks the final count against the rows actually
// loaded and returns the session result. A header-only source streams
// no chunks at all; its table is created empty here so the session
// still ends with a materialized table.
func (m *Materializer) OnComplete(ctx context.Context, final entity.CompletePayload) (Result, error) {
	if m.file == nil {
		return Result{}, pkgerror.NewMaterialize(errors.New("complete received before metadata"))
	}
	if !m.created && final.FinalRowCount == 0 {
		if err := m.engine.CreateTableFromRows(ctx, m.file.TableName, m.file.Schema, nil); err != nil {
			return Result{}, pkgerror.NewMaterialize(err)
		}
		m.created = true
	}
	if final.FinalRowCount != m.loadedRows {
		return Result{}, pkgerror.NewStream(fmt.Errorf("final row count %d does not match %d loaded rows", final.FinalRowCount, m.loadedRows))
	}

	return Result{
		TableID:   m.file.FileID,
		TableName: m.file.TableName,
		RowCount:  m.loadedRows,
	}, nil
}

// Discard drops the partially loaded table after a failed session, so
// the engine never exposes a half-loaded table under a catalog name.
func (m *Materializer) Discard(ctx context.Context) error {
	if m.file == nil || !m.created {
		return nil
	}
	return m.engine.DropTable(ctx, m.file.TableName)
}

// LoadedRows reports the rows materialized so far.
func (m *Materializer) LoadedRows() int64 {
	return m.loadedRows
}

// LoadedChunks reports the chunks materialized so far.
func (m *Materializer) LoadedChunks() int {
	return m.loadedChunks
}
