package catalog

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var (
	// ErrEmptyDataset indicates a feed with no data rows.
	ErrEmptyDataset = errors.New("dataset is empty")

	// ErrBadEncoding indicates feed bytes that could not be decoded as text.
	ErrBadEncoding = errors.New("unrecognized file encoding")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DecodeCSV reads a product feed, tolerating UTF-8 (with or without BOM) and
// the Latin-1 family of encodings, and returns the header row plus data rows
// keyed by normalized header name. Rows with a different field count than the
// header are skipped rather than failing the feed.
func DecodeCSV(r io.Reader) ([]string, []Row, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("reading feed: %w", err)
	}
	raw = bytes.TrimPrefix(raw, utf8BOM)

	if bytes.IndexByte(raw, 0) >= 0 {
		return nil, nil, ErrBadEncoding
	}
	if !utf8.Valid(raw) {
		// Windows-1252 is a superset of Latin-1 and decodes any byte
		// sequence, so this covers the legacy feed encodings.
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrBadEncoding, err)
		}
		raw = decoded
	}

	cr := csv.NewReader(bytes.NewReader(raw))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil, ErrEmptyDataset
	}
	if err != nil {
		return nil, nil, fmt.Errorf("reading header: %w", err)
	}
	for i, h := range header {
		header[i] = NormalizeHeader(h)
	}

	var rows []Row
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Bad line; skip it, matching lenient feed parsers.
			continue
		}
		if len(record) != len(header) {
			continue
		}
		row := make(Row, len(header))
		for i, h := range header {
			row[h] = record[i]
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return header, nil, ErrEmptyDataset
	}
	return header, rows, nil
}

// RenameColumns applies a MapColumns rename map to a row, returning a new row
// with canonical keys. Unmapped keys are carried through unchanged.
func RenameColumns(row Row, mapping map[string]string) Row {
	out := make(Row, len(row))
	for k, v := range row {
		if canonical, ok := mapping[k]; ok {
			out[canonical] = v
		} else {
			out[k] = v
		}
	}
	return out
}
