package table

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

const previewCellMaxRunes = 40

// Preview writes the header and the first n records as aligned columns.
func (t *Table) Preview(w io.Writer, n int) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if _, err := fmt.Fprintln(tw, strings.Join(t.Header, "\t")); err != nil {
		return err
	}

	for i, record := range t.Records {
		if i >= n {
			break
		}

		cells := make([]string, len(record))
		for j, cell := range record {
			cells[j] = truncateCell(cell)
		}

		if _, err := fmt.Fprintln(tw, strings.Join(cells, "\t")); err != nil {
			return err
		}
	}

	return tw.Flush()
}

func truncateCell(cell string) string {
	cell = strings.Join(strings.Fields(cell), " ")

	runes := []rune(cell)
	if len(runes) <= previewCellMaxRunes {
		return cell
	}
	return string(runes[:previewCellMaxRunes-1]) + "…"
}
