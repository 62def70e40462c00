// Package pipeline drives a summarizer across every row of an input table
// and assembles the result table.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"summarygen/internal/summarizer"
	"summarygen/internal/table"

	"golang.org/x/sync/errgroup"
	"mvdan.cc/xurls/v2"
)

// ProgressFunc is called after every finished row. Calls are serialized and
// done grows by one each time.
type ProgressFunc func(done, total int)

type Processor struct {
	summarizer  summarizer.Summarizer
	concurrency int
	urlRe       *regexp.Regexp
	log         *slog.Logger
}

// New builds a processor running up to concurrency rows at a time. A
// concurrency of one processes rows strictly one after another.
func New(s summarizer.Summarizer, concurrency int, log *slog.Logger) *Processor {
	return &Processor{
		summarizer:  s,
		concurrency: max(concurrency, 1),
		urlRe:       xurls.Strict(),
		log:         log,
	}
}

// Run summarizes every row of tbl. A missing required column fails with
// *table.SchemaError before any summary is requested. A failed row gets an
// error marker in its Formatted cell and never stops the others.
func (p *Processor) Run(
	ctx context.Context,
	tbl *table.Table,
	onProgress ProgressFunc,
) (*table.ResultTable, error) {
	rows, err := tbl.Rows()
	if err != nil {
		return nil, err
	}

	if err = ctx.Err(); err != nil {
		return nil, fmt.Errorf("batch is not started: %w", err)
	}

	p.warnSuspiciousURLs(ctx, rows)

	start := time.Now()
	formatted := make([]string, len(rows))

	var (
		progressMu sync.Mutex
		done       int
		failed     int
	)

	var g errgroup.Group
	g.SetLimit(p.concurrency)

	for _, row := range rows {
		g.Go(func() error {
			summary, ok := p.summarizeRow(ctx, row)
			formatted[row.Index] = summary

			progressMu.Lock()
			defer progressMu.Unlock()

			done++
			if !ok {
				failed++
			}
			if onProgress != nil {
				onProgress(done, len(rows))
			}

			return nil
		})
	}

	if err = g.Wait(); err != nil {
		return nil, fmt.Errorf("wait for rows: %w", err)
	}

	if err = ctx.Err(); err != nil {
		return nil, fmt.Errorf("batch is interrupted: %w", err)
	}

	p.log.InfoContext(ctx, "Batch is processed",
		"rows", len(rows),
		"failedRows", failed,
		"concurrency", p.concurrency,
		"durationSeconds", time.Since(start).Seconds())

	return table.NewResultTable(tbl, formatted)
}

func (p *Processor) summarizeRow(ctx context.Context, row table.Row) (string, bool) {
	if err := ctx.Err(); err != nil {
		return summarizer.ErrorMarker(err), false
	}

	summary, err := p.summarizer.Summarize(ctx, summarizer.Input{
		Description: row.Description,
		URL:         row.URL,
		Tag:         row.Tag,
	})
	if err != nil {
		p.log.ErrorContext(ctx, "Failed to summarize row",
			"error", err,
			"row", row.Index+1,
			"url", row.URL,
			"tag", row.Tag)

		return summarizer.ErrorMarker(err), false
	}

	return summary, true
}

func (p *Processor) warnSuspiciousURLs(ctx context.Context, rows []table.Row) {
	for _, row := range rows {
		loc := p.urlRe.FindStringIndex(row.URL)
		if loc != nil && loc[0] == 0 && loc[1] == len(row.URL) {
			continue
		}

		p.log.WarnContext(ctx, "URL cell does not look like a single link",
			"row", row.Index+1,
			"url", row.URL)
	}
}
