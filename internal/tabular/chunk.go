package tabular

import (
	"context"
	"io"
)

// Chunk is one fixed-size batch of data rows, indexed from zero in
// source order.
type Chunk struct {
	Index int
	Rows  [][]string
}

// ReadChunks drains rr in chunkRows-sized batches, invoking fn once per
// chunk in strict index order. Memory use is bounded by one chunk.
//
// A malformed row aborts the iteration with the parse error; rows read
// before it in the same chunk are not delivered. Returns the number of
// rows delivered to fn.
func ReadChunks(ctx context.Context, rr RowReader, chunkRows int, fn func(Chunk) error) (int64, error) {
	if chunkRows < 1 {
		chunkRows = 1
	}

	var delivered int64
	index := 0
	batch := make([][]string, 0, chunkRows)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		chunk := Chunk{Index: index, Rows: batch}
		if err := fn(chunk); err != nil {
			return err
		}
		delivered += int64(len(batch))
		index++
		batch = make([][]string, 0, chunkRows)
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return delivered, err
		}

		row, err := rr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return delivered, err
		}

		batch = append(batch, row)
		if len(batch) == chunkRows {
			if err := flush(); err != nil {
				return delivered, err
			}
		}
	}

	if err := flush(); err != nil {
		return delivered, err
	}
	return delivered, nil
}
