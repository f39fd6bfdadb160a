// Package tabular reads tabular files (CSV, TSV, XLSX, optionally
// compressed) as ordered row streams with bounded memory.
//
// It owns format and compression detection, header/sample based schema
// inference, row count estimation, and fixed-size chunked iteration.
// Both the server-side ingestion endpoints and the client-side
// whole-file loader are built on top of it.
package tabular
