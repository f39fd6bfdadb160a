package entity

// StreamEvent is the tagged union carried by the stream channel.
// Exactly one payload field matching Type is set.
type StreamEvent struct {
	Type     EventType
	Metadata *DataFile
	Chunk    *ChunkPayload
	Complete *CompletePayload
	Error    *ErrorPayload
}

// ChunkPayload is one fixed-size batch of rows. Indices are strictly
// increasing from zero with no gaps, in source row order.
type ChunkPayload struct {
	ChunkIndex        int        `json:"chunkIndex"`
	RowCount          int        `json:"rowCount"`
	Data              [][]string `json:"data"`
	TotalRowsStreamed int64      `json:"totalRowsStreamed"`
}

// CompletePayload terminates a successful stream with the actual
// observed row count.
type CompletePayload struct {
	FinalRowCount int64 `json:"finalRowCount"`
}

// ErrorPayload terminates a failed stream.
type ErrorPayload struct {
	Message string `json:"message"`
}
