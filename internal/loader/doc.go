// Package loader is the client side of the ingestion pipeline: it moves
// a local file into object storage, asks the server for metadata or an
// ordered chunk stream, decodes the framed response incrementally, and
// materializes the rows into the embedded engine.
//
// One Session tracks each ingestion end to end: Idle, Uploading,
// Processing, then Complete or Error, with a single monotonic 0-100
// progress value blended from the upload and processing phases.
// Frame and chunk handling for a session is strictly sequential; the
// engine call for a chunk completes before the next frame is decoded.
package loader
