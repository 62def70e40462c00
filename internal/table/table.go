// Package table reads article CSV files, extracts the rows to summarize and
// assembles the result table written back out.
package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	DescriptionColumn = "Description"
	URLColumn         = "URL"
	TagColumn         = "AI Summary Tag"
	FormattedColumn   = "Formatted"
)

const utf8BOM = "\ufeff"

// Table is a parsed CSV file: one header line and the records below it.
// Records are padded to the header width.
type Table struct {
	Header  []string
	Records [][]string
}

// Row is the part of a record the summarizer cares about.
type Row struct {
	Index       int
	Description string
	URL         string
	// Tag is empty when the table has no tag column.
	Tag string
}

func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input file: %w", err)
	}
	defer f.Close()

	return Read(f)
}

func Read(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, &ParseError{Err: errors.New("input is empty")}
	}
	if err != nil {
		return nil, &ParseError{Err: err}
	}

	header[0] = strings.TrimPrefix(header[0], utf8BOM)

	t := &Table{Header: header}
	for {
		record, readErr := reader.Read()
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return nil, &ParseError{Err: readErr}
		}

		if len(record) > len(header) {
			line, _ := reader.FieldPos(0)
			return nil, &ParseError{Err: fmt.Errorf(
				"record on line %d has %d fields, header has %d",
				line, len(record), len(header),
			)}
		}
		for len(record) < len(header) {
			record = append(record, "")
		}

		t.Records = append(t.Records, record)
	}

	return t, nil
}

func (t *Table) Len() int {
	return len(t.Records)
}

// ColumnIndex returns the position of the first header cell equal to name.
func (t *Table) ColumnIndex(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Rows yields Description, URL and tag of every record in input order. It
// fails with *SchemaError when a required column is absent.
func (t *Table) Rows() ([]Row, error) {
	descriptionIdx := t.ColumnIndex(DescriptionColumn)
	urlIdx := t.ColumnIndex(URLColumn)

	var missing []string
	if descriptionIdx < 0 {
		missing = append(missing, DescriptionColumn)
	}
	if urlIdx < 0 {
		missing = append(missing, URLColumn)
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Missing: missing, Header: t.Header}
	}

	tagIdx := t.ColumnIndex(TagColumn)

	rows := make([]Row, 0, len(t.Records))
	for i, record := range t.Records {
		row := Row{
			Index:       i,
			Description: record[descriptionIdx],
			URL:         record[urlIdx],
		}
		if tagIdx >= 0 {
			row.Tag = strings.TrimSpace(record[tagIdx])
		}
		rows = append(rows, row)
	}

	return rows, nil
}
