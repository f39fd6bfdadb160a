package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ErrEmptyInput reports an input with no header row at all.
var ErrEmptyInput = errors.New("tabular: empty input")

// RowReader yields the rows of one tabular source in file order.
//
// The header row is consumed at construction time; Read returns data
// rows only and io.EOF when the source is exhausted. A row whose field
// count does not match the header is a parse error, not a row.
type RowReader interface {
	Header() []string
	Read() ([]string, error)
	Close() error
}

// NewRowReader builds a RowReader for an already-decompressed stream.
func NewRowReader(r io.Reader, format Format) (RowReader, error) {
	switch format {
	case FormatCSV:
		return newDelimitedReader(r, ',')
	case FormatTSV:
		return newDelimitedReader(r, '\t')
	case FormatXLSX:
		return newWorkbookReader(r)
	default:
		return nil, fmt.Errorf("unsupported format: %q", format)
	}
}

type delimitedReader struct {
	cr     *csv.Reader
	header []string
}

func newDelimitedReader(r io.Reader, comma rune) (*delimitedReader, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmptyInput
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) == 0 {
		return nil, ErrEmptyInput
	}

	// Subsequent rows must match the header width; encoding/csv enforces
	// this once FieldsPerRecord is pinned.
	cr.FieldsPerRecord = len(header)

	return &delimitedReader{cr: cr, header: header}, nil
}

func (d *delimitedReader) Header() []string {
	return d.header
}

func (d *delimitedReader) Read() ([]string, error) {
	record, err := d.cr.Read()
	if err != nil {
		return nil, err
	}

	row := make([]string, len(record))
	copy(row, record)
	return row, nil
}

func (d *delimitedReader) Close() error {
	return nil
}

// workbookReader reads the first sheet of an XLSX workbook. The container
// is a zip archive and needs random access, so the workbook is held in
// memory; spreadsheet inputs are expected to stay on the whole-file side
// of the size threshold.
type workbookReader struct {
	wb     *excelize.File
	rows   *excelize.Rows
	header []string
}

func newWorkbookReader(r io.Reader) (*workbookReader, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		_ = wb.Close()
		return nil, ErrEmptyInput
	}

	rows, err := wb.Rows(sheets[0])
	if err != nil {
		_ = wb.Close()
		return nil, fmt.Errorf("open sheet rows: %w", err)
	}

	if !rows.Next() {
		_ = rows.Close()
		_ = wb.Close()
		return nil, ErrEmptyInput
	}

	header, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		_ = wb.Close()
		return nil, fmt.Errorf("read header row: %w", err)
	}
	if len(header) == 0 {
		_ = rows.Close()
		_ = wb.Close()
		return nil, ErrEmptyInput
	}

	return &workbookReader{wb: wb, rows: rows, header: header}, nil
}

func (w *workbookReader) Header() []string {
	return w.header
}

func (w *workbookReader) Read() ([]string, error) {
	if !w.rows.Next() {
		if err := w.rows.Error(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}

	cells, err := w.rows.Columns()
	if err != nil {
		return nil, err
	}
	if len(cells) > len(w.header) {
		return nil, fmt.Errorf("row has %d cells, header has %d", len(cells), len(w.header))
	}

	// Trailing empty cells are omitted by the xlsx encoding; pad them back.
	row := make([]string, len(w.header))
	copy(row, cells)
	return row, nil
}

func (w *workbookReader) Close() error {
	_ = w.rows.Close()
	return w.wb.Close()
}
