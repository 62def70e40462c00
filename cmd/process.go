package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"summarygen/internal/config"
	"summarygen/internal/summarizer"
	"summarygen/internal/table"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const defaultPreviewRows = 5

var processCmd = &cobra.Command{
	Use:   "process <input.csv>",
	Short: "Summarize every row of a CSV file",
	Long: `Process reads the input table, shows a preview of its first rows, asks
the model for a summary of every row and writes the table with a Formatted
column next to the input (or to --output). Summaries are also printed to
stdout, separated by blank lines, ready to be copied.

When OPENAI_API_KEY is not set and stdin is a terminal, the key is asked for
without echo. --ask-key asks even when OPENAI_API_KEY is set; the typed key
wins. With --ask-key and a non-terminal stdin, the first line of stdin is
read as the key.`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func init() {
	processCmd.Flags().StringP("output", "o", "", "output CSV path (default: <input>_formatted.csv)")
	processCmd.Flags().Int("preview", defaultPreviewRows, "number of rows to preview, 0 disables the preview")
	processCmd.Flags().Bool("ask-key", false, "ask for the OpenAI API key even when OPENAI_API_KEY is set")

	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	inputPath := args[0]

	outputPath, _ := cmd.Flags().GetString("output")
	if outputPath == "" {
		outputPath = defaultOutputPath(inputPath)
	}
	previewRows, _ := cmd.Flags().GetInt("preview")
	askKey, _ := cmd.Flags().GetBool("ask-key")

	tbl, err := table.ReadFile(inputPath)
	if err != nil {
		return err
	}

	if previewRows > 0 {
		if err = tbl.Preview(cmd.ErrOrStderr(), previewRows); err != nil {
			return fmt.Errorf("preview table: %w", err)
		}
		fmt.Fprintln(cmd.ErrOrStderr())
	}

	// Schema problems must surface before the key prompt and any request.
	if _, err = tbl.Rows(); err != nil {
		return err
	}

	apiKey, err := resolveAPIKey(cmd.InOrStdin(), cmd.ErrOrStderr(), askKey)
	if err != nil {
		return err
	}

	prompts, err := loadTagPrompts(ctx, cfg, log)
	if err != nil {
		return err
	}

	processor, err := processorFactory(cfg, prompts, log)(apiKey)
	if err != nil {
		return err
	}

	start := time.Now()
	progress := newProgressPrinter(cmd.ErrOrStderr())

	result, err := processor.Run(ctx, tbl, progress.print)
	progress.finish()
	if err != nil {
		return err
	}

	if err = writeResult(outputPath, result); err != nil {
		return err
	}

	failed := 0
	for _, cell := range result.Formatted() {
		if summarizer.IsErrorMarker(cell) {
			failed++
		}
	}

	log.InfoContext(ctx, "Output is written",
		"input", inputPath,
		"output", outputPath,
		"rows", result.Len(),
		"failedRows", failed,
		"durationSeconds", time.Since(start).Seconds())

	_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.Join(result.Formatted(), "\n\n"))
	return err
}

// resolveAPIKey prefers a key typed by the operator over OPENAI_API_KEY.
// Without ask, the prompt only appears when the environment has no key and
// stdin is a terminal. With ask, a piped stdin is read as the key.
func resolveAPIKey(in io.Reader, prompt io.Writer, ask bool) (string, error) {
	if !ask && cfg.OpenAIAPIKey != "" {
		return cfg.OpenAIAPIKey, nil
	}

	typed, err := readAPIKey(in, prompt, ask)
	if err != nil {
		return "", err
	}

	return config.ResolveAPIKey(typed, cfg.OpenAIAPIKey)
}

func readAPIKey(in io.Reader, prompt io.Writer, ask bool) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "OpenAI API key: ")

		key, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("read API key: %w", err)
		}

		return string(key), nil
	}

	if !ask {
		return "", nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read API key: %w", err)
	}

	return line, nil
}

func writeResult(path string, result *table.ResultTable) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close output file: %w", closeErr))
		}
	}()

	w := bufio.NewWriter(f)
	if err = result.Write(w); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	if err = w.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	return nil
}

// defaultOutputPath turns "data/links.csv" into "data/links_formatted.csv".
func defaultOutputPath(inputPath string) string {
	ext := filepath.Ext(inputPath)
	if ext == "" {
		return inputPath + "_formatted.csv"
	}

	return strings.TrimSuffix(inputPath, ext) + "_formatted" + ext
}

type progressPrinter struct {
	w       io.Writer
	printed bool
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	return &progressPrinter{w: w}
}

func (p *progressPrinter) print(done, total int) {
	p.printed = true
	fmt.Fprintf(p.w, "\rProcessing rows: %d/%d", done, total)
}

func (p *progressPrinter) finish() {
	if p.printed {
		fmt.Fprintln(p.w)
	}
}
