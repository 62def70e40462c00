package table

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"slices"
)

// ResultTable is the input table plus the Formatted column, in input order.
type ResultTable struct {
	Header  []string
	Records [][]string

	formattedIdx int
}

// NewResultTable copies t and sets the Formatted column from formatted. An
// existing Formatted column is overwritten instead of duplicated.
func NewResultTable(t *Table, formatted []string) (*ResultTable, error) {
	if len(formatted) != len(t.Records) {
		return nil, fmt.Errorf(
			"summary count mismatch (rows = %d, summaries = %d)",
			len(t.Records),
			len(formatted),
		)
	}

	header := slices.Clone(t.Header)
	idx := t.ColumnIndex(FormattedColumn)
	if idx < 0 {
		idx = len(header)
		header = append(header, FormattedColumn)
	}

	records := make([][]string, len(t.Records))
	for i, record := range t.Records {
		out := make([]string, len(header))
		copy(out, record)
		out[idx] = formatted[i]
		records[i] = out
	}

	return &ResultTable{
		Header:       header,
		Records:      records,
		formattedIdx: idx,
	}, nil
}

func (r *ResultTable) Len() int {
	return len(r.Records)
}

// Formatted returns the Formatted value of every row in order.
func (r *ResultTable) Formatted() []string {
	out := make([]string, len(r.Records))
	for i, record := range r.Records {
		out[i] = record[r.formattedIdx]
	}
	return out
}

func (r *ResultTable) Write(w io.Writer) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(r.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := writer.WriteAll(r.Records); err != nil {
		return fmt.Errorf("write records: %w", err)
	}

	return nil
}

func (r *ResultTable) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := r.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
