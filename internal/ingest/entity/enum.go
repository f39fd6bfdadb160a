package entity

// Strategy selects how a file is turned into a table after upload.
type Strategy string

const (
	// StrategyWholeFile parses the file in a single round trip; used at
	// or below the size threshold.
	StrategyWholeFile Strategy = "WHOLE_FILE"
	// StrategyProgressive streams the file as ordered chunk events;
	// used above the size threshold.
	StrategyProgressive Strategy = "PROGRESSIVE"
)

// EventType tags one frame on the stream channel.
type EventType string

const (
	EventMetadata EventType = "metadata"
	EventChunk    EventType = "chunk"
	EventComplete EventType = "complete"
	EventError    EventType = "error"
)
