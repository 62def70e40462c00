package table

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `Article,URL,Description,Article Date,AI Summary Tag
"Crypto Summit","https://www.coindesk.com/policy/2025/03/07/summit","President Trump hosted a crypto summit, at the White House.","March 9, 2025",News
"Jobs report","https://www.cnbc.com/2025/03/07/jobs-report.html","Job growth in February 2025 was weaker than expected.","March 9, 2025",
`

func TestRead_RowsInInputOrder(t *testing.T) {
	tbl, err := Read(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Equal(t, 2, tbl.Len())

	rows, err := tbl.Rows()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, Row{
		Index:       0,
		Description: "President Trump hosted a crypto summit, at the White House.",
		URL:         "https://www.coindesk.com/policy/2025/03/07/summit",
		Tag:         "News",
	}, rows[0])
	assert.Equal(t, 1, rows[1].Index)
	assert.Equal(t, "https://www.cnbc.com/2025/03/07/jobs-report.html", rows[1].URL)
	assert.Empty(t, rows[1].Tag)
}

func TestRead_StripsBOMAndPadsShortRecords(t *testing.T) {
	input := "\ufeffDescription,URL,Extra\nsomething,https://example.com\n"

	tbl, err := Read(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"Description", "URL", "Extra"}, tbl.Header)
	assert.Equal(t, [][]string{{"something", "https://example.com", ""}}, tbl.Records)
}

func TestRead_ParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty input", ""},
		{"unterminated quote", "Description,URL\n\"broken,https://example.com\n"},
		{"too many fields", "Description,URL\na,b,c\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.input))

			var parseErr *ParseError
			require.ErrorAs(t, err, &parseErr)
		})
	}
}

func TestRows_SchemaError(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		missing []string
	}{
		{"no URL", "Description,Link\na,b\n", []string{URLColumn}},
		{"no Description", "Summary,URL\na,b\n", []string{DescriptionColumn}},
		{"neither", "A,B\na,b\n", []string{DescriptionColumn, URLColumn}},
		{"case-sensitive header", "description,url\na,b\n", []string{DescriptionColumn, URLColumn}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := Read(strings.NewReader(tt.input))
			require.NoError(t, err)

			_, err = tbl.Rows()

			var schemaErr *SchemaError
			require.ErrorAs(t, err, &schemaErr)
			assert.Equal(t, tt.missing, schemaErr.Missing)
		})
	}
}

func TestResultTable_AppendsFormattedColumn(t *testing.T) {
	tbl, err := Read(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	formatted := []string{"[A, B](https://a) — The **x** did **y** that has **z**.", "Error: boom"}

	result, err := NewResultTable(tbl, formatted)
	require.NoError(t, err)

	assert.Equal(t, append(tbl.Header, FormattedColumn), result.Header)
	assert.Equal(t, tbl.Len(), result.Len())
	assert.Equal(t, formatted, result.Formatted())

	for i, record := range result.Records {
		assert.Equal(t, tbl.Records[i], record[:len(tbl.Header)])
	}
}

func TestResultTable_OverwritesExistingFormattedColumn(t *testing.T) {
	tbl, err := Read(strings.NewReader("Description,Formatted,URL\nd,old,https://a\n"))
	require.NoError(t, err)

	result, err := NewResultTable(tbl, []string{"new"})
	require.NoError(t, err)

	assert.Equal(t, []string{"Description", "Formatted", "URL"}, result.Header)
	assert.Equal(t, []string{"d", "new", "https://a"}, result.Records[0])
	assert.Equal(t, "old", tbl.Records[0][1])
}

func TestResultTable_CountMismatch(t *testing.T) {
	tbl, err := Read(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	_, err = NewResultTable(tbl, []string{"only one"})
	assert.Error(t, err)
}

func TestResultTable_RoundTrip(t *testing.T) {
	tbl, err := Read(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	formatted := []string{
		`[Apple Pay, PayPal and "Cash App"](https://techcrunch.com/a?b=1,2) — The **U.S. regulators** did **propose rules** that has **impact**.`,
		"Error: rate limited\nretry later",
	}

	result, err := NewResultTable(tbl, formatted)
	require.NoError(t, err)

	data, err := result.Bytes()
	require.NoError(t, err)

	reparsed, err := Read(bytes.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, result.Header, reparsed.Header)
	assert.Equal(t, result.Records, reparsed.Records)
}

func TestPreview_TruncatesLongCells(t *testing.T) {
	tbl, err := Read(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, tbl.Preview(&buf, 1))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Description")
	assert.Contains(t, lines[1], "…")
	assert.NotContains(t, buf.String(), "Jobs report")
}
