package loader

import (
	"github.com/Origin-Inc/tableflow/internal/ingest/entity"
)

// DefaultWholeFileMaxBytes is the single authoritative size threshold
// gating the processing strategy: 4 MiB.
const DefaultWholeFileMaxBytes int64 = 4 << 20

// Route picks the processing strategy for a file of the given size.
//
// Sizes at or below the threshold take the whole-file path, sizes
// strictly above it stream progressively. The choice affects only
// processing; every file is uploaded to object storage first either
// way. Pure function: no side effects, total over non-negative sizes.
func Route(sizeBytes, thresholdBytes int64) entity.Strategy {
	if thresholdBytes < 1 {
		thresholdBytes = DefaultWholeFileMaxBytes
	}
	if sizeBytes <= thresholdBytes {
		return entity.StrategyWholeFile
	}
	return entity.StrategyProgressive
}
