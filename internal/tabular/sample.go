package tabular

import (
	"io"
)

// maxSampleValues bounds the per-column example values carried in a schema.
const maxSampleValues = 3

// Sample is the result of a bounded read over a source's leading rows.
type Sample struct {
	Header      []string
	Columns     []Column
	Rows        [][]string
	RowsSampled int64

	// Exhausted is true when the source ended inside the sample window,
	// which makes RowsSampled an exact total rather than a basis for
	// estimation.
	Exhausted bool
}

// TakeSample reads at most maxRows data rows and infers the schema from
// them. Memory use is proportional to the sample, never the source.
func TakeSample(rr RowReader, maxRows int) (*Sample, error) {
	header := rr.Header()

	sample := &Sample{Header: header}
	values := make([][]string, len(header))

	for int(sample.RowsSampled) < maxRows {
		row, err := rr.Read()
		if err == io.EOF {
			sample.Exhausted = true
			break
		}
		if err != nil {
			return nil, err
		}

		sample.Rows = append(sample.Rows, row)
		sample.RowsSampled++
		for i := range header {
			values[i] = append(values[i], row[i])
		}
	}

	sample.Columns = make([]Column, len(header))
	for i, name := range header {
		column := Column{Name: name, Type: InferType(values[i])}
		for _, v := range values[i] {
			if v == "" || len(column.Samples) >= maxSampleValues {
				continue
			}
			column.Samples = append(column.Samples, v)
		}
		sample.Columns[i] = column
	}

	return sample, nil
}

// EstimateRows projects a total row count from a sample.
//
// bytesConsumed is the raw (possibly compressed) bytes read while
// sampling and totalBytes the stored size of the source, so the ratio
// holds for compressed inputs too. When the sample exhausted the source
// the count is exact. The estimate never undercuts the sampled count.
func EstimateRows(sample *Sample, bytesConsumed, totalBytes int64) int64 {
	if sample.Exhausted || bytesConsumed <= 0 || totalBytes <= bytesConsumed {
		return sample.RowsSampled
	}

	estimate := sample.RowsSampled * totalBytes / bytesConsumed
	if estimate < sample.RowsSampled {
		estimate = sample.RowsSampled
	}
	return estimate
}

// EstimateChunks is ceil(totalRows / chunkRows), with at least one chunk
// for any non-empty source.
func EstimateChunks(totalRows int64, chunkRows int) int64 {
	if chunkRows < 1 || totalRows < 1 {
		return 0
	}
	return (totalRows + int64(chunkRows) - 1) / int64(chunkRows)
}
