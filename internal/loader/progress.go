package loader

// Progress is one monotonic 0-100 scalar blended from two weighted
// phases: blob transfer fills 0-40, processing fills 40-99, and only
// reaching the Complete state pins 100. The processing phase is driven
// by a heuristic row estimate, so it is capped below 100 to stay
// monotonic when the estimate runs low.
const (
	uploadPhaseCeiling     = 40
	processingPhaseCeiling = 99
	progressComplete       = 100
)

// uploadProgress maps a 0-100 transfer percentage into the upload band.
func uploadProgress(transferPct int) int {
	if transferPct < 0 {
		transferPct = 0
	}
	if transferPct > 100 {
		transferPct = 100
	}
	return transferPct * uploadPhaseCeiling / 100
}

// processingProgress maps streamed rows against the estimate into the
// processing band.
func processingProgress(rowsStreamed, rowEstimate int64) int {
	if rowEstimate < 1 || rowsStreamed < 0 {
		return uploadPhaseCeiling
	}
	if rowsStreamed > rowEstimate {
		rowsStreamed = rowEstimate
	}

	span := int64(processingPhaseCeiling - uploadPhaseCeiling)
	return uploadPhaseCeiling + int(rowsStreamed*span/rowEstimate)
}
