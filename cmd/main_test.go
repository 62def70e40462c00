package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"summarygen/internal/config"
	"summarygen/internal/summarizer"
	"summarygen/internal/table"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const modelOutput = "[Csv2json](https://elsewhere.example) — The **tool** did **CSV conversion** that has **one command**."

func init() {
	summarizer.RetryBaseDelay = 1
}

func completedResponse() map[string]any {
	return map[string]any{
		"id":         "resp_test",
		"object":     "response",
		"created_at": 1,
		"status":     "completed",
		"model":      "gpt-4o",
		"output": []any{
			map[string]any{
				"type":   "message",
				"id":     "msg_test",
				"status": "completed",
				"role":   "assistant",
				"content": []any{
					map[string]any{"type": "output_text", "text": modelOutput, "annotations": []any{}},
				},
			},
		},
	}
}

func openAIServer(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()

	return openAIServerWithAuth(t, calls, nil)
}

// openAIServerWithAuth also records the Authorization header of every call.
func openAIServerWithAuth(t *testing.T, calls *atomic.Int32, auth *atomic.Value) *httptest.Server {
	t.Helper()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if auth != nil {
			auth.Store(r.Header.Get("Authorization"))
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completedResponse())
	}))
	t.Cleanup(ts.Close)

	return ts
}

func setupEnv(t *testing.T, baseURL string) string {
	t.Helper()

	dir := t.TempDir()

	t.Setenv(config.APIKeyEnvVar, "sk-test")
	t.Setenv("OPENAI_BASE_URL", baseURL+"/")
	t.Setenv("TAG_PROMPTS_PATH", filepath.Join(dir, "missing_tag_prompts.csv"))
	t.Setenv("LOG_LEVEL", "error")

	return dir
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	return executeWithInput(t, "", args...)
}

func executeWithInput(t *testing.T, input string, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetIn(strings.NewReader(input))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetArgs(nil)
		_ = processCmd.Flags().Set("output", "")
		_ = processCmd.Flags().Set("preview", "5")
		_ = processCmd.Flags().Set("ask-key", "false")
	})

	err := rootCmd.Execute()

	return stdout.String(), stderr.String(), err
}

func TestProcessWritesFormattedColumn(t *testing.T) {
	var calls atomic.Int32
	ts := openAIServer(t, &calls)
	dir := setupEnv(t, ts.URL)

	input := filepath.Join(dir, "links.csv")
	require.NoError(t, os.WriteFile(input, []byte(
		"Description,URL,Notes\n"+
			"A tool that converts CSV files to JSON,https://example.com/csv2json,keep\n"), 0o600))

	stdout, stderr, err := execute(t, "process", input)
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load())
	assert.Contains(t, stderr, "Processing rows: 1/1")

	want := "[Csv2json](https://example.com/csv2json) — The **tool** did **CSV conversion** that has **one command**."
	assert.Equal(t, want+"\n", stdout)

	out, err := table.ReadFile(filepath.Join(dir, "links_formatted.csv"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Description", "URL", "Notes", "Formatted"}, out.Header)
	require.Len(t, out.Records, 1)
	assert.Equal(t, "keep", out.Records[0][2])
	assert.Equal(t, want, out.Records[0][3])
}

func TestProcessMissingColumnMakesNoCalls(t *testing.T) {
	var calls atomic.Int32
	ts := openAIServer(t, &calls)
	dir := setupEnv(t, ts.URL)

	input := filepath.Join(dir, "links.csv")
	require.NoError(t, os.WriteFile(input, []byte("Description,Link\nA tool,https://example.com\n"), 0o600))

	_, _, err := execute(t, "process", input, "--preview", "0")

	var schemaErr *table.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, []string{table.URLColumn}, schemaErr.Missing)
	assert.Zero(t, calls.Load())

	_, statErr := os.Stat(filepath.Join(dir, "links_formatted.csv"))
	assert.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestProcessWithoutKeyFailsBeforeCalls(t *testing.T) {
	var calls atomic.Int32
	ts := openAIServer(t, &calls)
	dir := setupEnv(t, ts.URL)
	t.Setenv(config.APIKeyEnvVar, "")

	input := filepath.Join(dir, "links.csv")
	require.NoError(t, os.WriteFile(input, []byte("Description,URL\nA tool,https://example.com\n"), 0o600))

	_, _, err := execute(t, "process", input, "-o", filepath.Join(dir, "out.csv"))

	var credErr *config.CredentialError
	require.ErrorAs(t, err, &credErr)
	assert.Zero(t, calls.Load())
}

func TestProcessAskKeyOverridesEnvKey(t *testing.T) {
	var (
		calls atomic.Int32
		auth  atomic.Value
	)
	ts := openAIServerWithAuth(t, &calls, &auth)
	dir := setupEnv(t, ts.URL)

	input := filepath.Join(dir, "links.csv")
	require.NoError(t, os.WriteFile(input, []byte("Description,URL\nA tool,https://example.com/a\n"), 0o600))

	_, _, err := executeWithInput(t, "sk-typed\n", "process", input, "--ask-key", "--preview", "0")
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "Bearer sk-typed", auth.Load())
}

func TestProcessAskKeyFallsBackToEnvKey(t *testing.T) {
	var (
		calls atomic.Int32
		auth  atomic.Value
	)
	ts := openAIServerWithAuth(t, &calls, &auth)
	dir := setupEnv(t, ts.URL)

	input := filepath.Join(dir, "links.csv")
	require.NoError(t, os.WriteFile(input, []byte("Description,URL\nA tool,https://example.com/a\n"), 0o600))

	_, _, err := executeWithInput(t, "\n", "process", input, "--ask-key", "--preview", "0")
	require.NoError(t, err)

	assert.Equal(t, "Bearer sk-test", auth.Load())
}

func TestDefaultOutputPath(t *testing.T) {
	assert.Equal(t, filepath.Join("data", "links_formatted.csv"), defaultOutputPath(filepath.Join("data", "links.csv")))
	assert.Equal(t, "export_formatted.csv", defaultOutputPath("export"))
	assert.Equal(t, "links_formatted.tsv", defaultOutputPath("links.tsv"))
}

func TestProgressPrinter(t *testing.T) {
	var buf bytes.Buffer

	p := newProgressPrinter(&buf)
	p.finish()
	assert.Empty(t, buf.String())

	p.print(1, 2)
	p.print(2, 2)
	p.finish()
	assert.Equal(t, "\rProcessing rows: 1/2\rProcessing rows: 2/2\n", buf.String())
}
