package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"summarygen/internal/summarizer"
	"summarygen/internal/table"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var formattedRe = regexp.MustCompile(`^\[([^\]]+)\]\((.+)\) — The \*\*[^*]+\*\* did \*\*[^*]+\*\* that has \*\*[^*]+\*\*\.$`)

type stubSummarizer struct {
	mu       sync.Mutex
	calls    int
	inFlight int
	maxSeen  int
	failURL  string
	delay    func(input summarizer.Input) time.Duration
	inputs   []summarizer.Input
}

func (s *stubSummarizer) Summarize(_ context.Context, input summarizer.Input) (string, error) {
	s.mu.Lock()
	s.calls++
	s.inFlight++
	s.maxSeen = max(s.maxSeen, s.inFlight)
	s.inputs = append(s.inputs, input)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight--
		s.mu.Unlock()
	}()

	if s.delay != nil {
		time.Sleep(s.delay(input))
	}

	if input.URL == s.failURL {
		return "", &summarizer.CompletionError{Kind: summarizer.KindRateLimit, Attempts: 3, Err: errors.New("429 Too Many Requests")}
	}

	return fmt.Sprintf("[Title %s](%s) — The **Org** did **thing** that has **impact**.", input.Description, input.URL), nil
}

func (s *stubSummarizer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.calls
}

func buildTable(t *testing.T, n int) *table.Table {
	t.Helper()

	var b strings.Builder
	b.WriteString("Article,URL,Description,Article Date\n")
	for i := range n {
		fmt.Fprintf(&b, "\"Article %d, part\",https://example.com/news/%d?a=1&b=2,desc-%d,\"March %d, 2025\"\n", i, i, i, i+1)
	}

	tbl, err := table.Read(strings.NewReader(b.String()))
	require.NoError(t, err)

	return tbl
}

func TestRun_PreservesRowsAndOrder(t *testing.T) {
	tbl := buildTable(t, 5)
	stub := &stubSummarizer{}

	result, err := New(stub, 1, slog.Default()).Run(context.Background(), tbl, nil)
	require.NoError(t, err)

	require.Equal(t, tbl.Len(), result.Len())
	assert.Equal(t, append(tbl.Header, table.FormattedColumn), result.Header)

	for i, formatted := range result.Formatted() {
		assert.Equal(t, tbl.Records[i], result.Records[i][:len(tbl.Header)])

		m := formattedRe.FindStringSubmatch(formatted)
		require.NotNil(t, m, "row %d: %q", i, formatted)
		assert.Equal(t, tbl.Records[i][1], m[2])
		assert.Contains(t, formatted, fmt.Sprintf("desc-%d", i))
	}

	assert.Equal(t, 5, stub.callCount())
	assert.Equal(t, 1, stub.maxSeen)
}

func TestRun_SchemaErrorMakesNoCalls(t *testing.T) {
	tbl, err := table.Read(strings.NewReader("Article,Link\na,https://example.com\n"))
	require.NoError(t, err)

	stub := &stubSummarizer{}
	_, err = New(stub, 1, slog.Default()).Run(context.Background(), tbl, nil)

	var schemaErr *table.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, 0, stub.callCount())
}

func TestRun_IsolatesRowFailure(t *testing.T) {
	tbl := buildTable(t, 3)
	stub := &stubSummarizer{failURL: tbl.Records[1][1]}

	result, err := New(stub, 1, slog.Default()).Run(context.Background(), tbl, nil)
	require.NoError(t, err)

	formatted := result.Formatted()
	require.Len(t, formatted, 3)

	assert.Regexp(t, formattedRe, formatted[0])
	assert.Regexp(t, formattedRe, formatted[2])

	assert.True(t, summarizer.IsErrorMarker(formatted[1]))
	assert.Contains(t, formatted[1], "429 Too Many Requests")
	assert.Equal(t, 3, stub.callCount())
}

func TestRun_BoundedConcurrencyKeepsOrder(t *testing.T) {
	tbl := buildTable(t, 12)
	stub := &stubSummarizer{
		delay: func(input summarizer.Input) time.Duration {
			// Earlier rows take longer so they finish out of order.
			n := len(input.Description)
			return time.Duration(20-n) * time.Millisecond
		},
	}

	result, err := New(stub, 4, slog.Default()).Run(context.Background(), tbl, nil)
	require.NoError(t, err)

	for i, formatted := range result.Formatted() {
		assert.Contains(t, formatted, fmt.Sprintf("[Title desc-%d]", i))
	}

	assert.LessOrEqual(t, stub.maxSeen, 4)
	assert.Greater(t, stub.maxSeen, 1)
}

func TestRun_ReportsProgress(t *testing.T) {
	tbl := buildTable(t, 4)

	var seen []int
	_, err := New(&stubSummarizer{}, 2, slog.Default()).Run(context.Background(), tbl, func(done, total int) {
		assert.Equal(t, 4, total)
		seen = append(seen, done)
	})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3, 4}, seen)
}

func TestRun_CanceledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stub := &stubSummarizer{}
	_, err := New(stub, 1, slog.Default()).Run(ctx, buildTable(t, 2), nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, stub.callCount())
}

func TestRun_EmptyTable(t *testing.T) {
	tbl, err := table.Read(strings.NewReader("Description,URL\n"))
	require.NoError(t, err)

	result, err := New(&stubSummarizer{}, 1, slog.Default()).Run(context.Background(), tbl, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, result.Len())
	assert.Equal(t, []string{"Description", "URL", table.FormattedColumn}, result.Header)
}

type rewritingCompleter struct{}

func (rewritingCompleter) Complete(_ context.Context, prompt string) (string, error) {
	if strings.Contains(prompt, "Description: broken") {
		return "I cannot summarize this.", nil
	}
	return "[Regulators Eye Payment Apps](https://techcrunch.com/...) — The **U.S. regulators** did " +
		"**propose treating fintech apps like banks** that has **significant impact on consumer protection**.", nil
}

func TestRun_WithTemplateSummarizer(t *testing.T) {
	summarizer.RetryBaseDelay = time.Millisecond

	input := "Description,URL\n" +
		"\"Apple Pay, PayPal, Cash App will be treated more like banks\",https://techcrunch.com/2024/11/21/apple-pay-paypal-cash-app-will-be-treated-more-like-banks/\n" +
		"broken,https://example.com/broken\n"

	tbl, err := table.Read(strings.NewReader(input))
	require.NoError(t, err)

	s := summarizer.NewTemplateSummarizer(rewritingCompleter{}, summarizer.Options{MaxRetries: 1}, slog.Default())

	result, err := New(s, 1, slog.Default()).Run(context.Background(), tbl, nil)
	require.NoError(t, err)

	formatted := result.Formatted()
	m := formattedRe.FindStringSubmatch(formatted[0])
	require.NotNil(t, m, formatted[0])
	assert.Equal(t, tbl.Records[0][1], m[2])

	assert.True(t, summarizer.IsErrorMarker(formatted[1]))
	assert.Contains(t, formatted[1], "malformed response")
}
