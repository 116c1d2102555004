package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gi8lino/lptriage/internal/bugs"
	"github.com/gi8lino/lptriage/internal/config"
	"github.com/gi8lino/lptriage/internal/launchpad"
)

// TaskSource runs the bug task query.
type TaskSource interface {
	SearchTasks(ctx context.Context, project string, opts launchpad.SearchOptions) ([]launchpad.BugTask, error)
}

// Summary describes what Build wrote.
type Summary struct {
	Tasks  int            // tasks returned by the query
	Sheets []SheetSummary // in configured tag order
	Rows   int            // data rows across all sheets
}

// SheetSummary counts data rows of one sheet.
type SheetSummary struct {
	Tag  string
	Rows int
}

// Builder writes one sheet per configured tag.
type Builder struct {
	cfg    config.ReportConfig
	src    TaskSource
	logger *slog.Logger
}

// NewBuilder returns a Builder for cfg reading tasks from src.
func NewBuilder(cfg config.ReportConfig, src TaskSource, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Builder{cfg: cfg, src: src, logger: logger}
}

// Build queries tasks once, then for every tag adds a sheet with the header
// row followed by each task carrying the tag, in query order. A task with
// several configured tags is written to each of their sheets.
//
// Build does not close wb; use Generate for that.
func (b *Builder) Build(ctx context.Context, wb Workbook) (Summary, error) {
	var sum Summary

	tasks, err := b.src.SearchTasks(ctx, b.cfg.Project, launchpad.SearchOptions{
		Statuses:          b.cfg.Statuses,
		IncludeDuplicates: b.cfg.IncludeDuplicates,
	})
	if err != nil {
		return sum, fmt.Errorf("query bug tasks: %w", err)
	}
	sum.Tasks = len(tasks)
	b.logger.Info("fetched bug tasks", "project", b.cfg.Project, "count", len(tasks))

	header := toCells(bugs.Header())
	for _, tag := range b.cfg.Tags {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		sheet, err := wb.AddSheet(tag)
		if err != nil {
			return sum, err
		}
		if err := sheet.AppendRow(header); err != nil {
			return sum, err
		}

		written := 0
		for _, task := range tasks {
			// a task without its bug cannot be matched; Map reports it
			if task.Bug != nil && !task.Bug.HasTag(tag) {
				continue
			}
			rec, err := bugs.Map(task)
			if err != nil {
				return sum, fmt.Errorf("sheet %q: %w", tag, err)
			}
			if err := sheet.AppendRow(rec.Values()); err != nil {
				return sum, err
			}
			written++
			sum.Rows++
			b.logger.Debug("writing bug", "bug", rec.ID, "row", sheet.Rows(), "sheet", tag)
		}

		sum.Sheets = append(sum.Sheets, SheetSummary{Tag: tag, Rows: written})
	}

	return sum, nil
}

// Generate runs b.Build and closes wb exactly once, whatever Build returns.
// Rows written before a failure stay in the closed document.
func Generate(ctx context.Context, b *Builder, wb Workbook) (sum Summary, err error) {
	defer func() {
		if cerr := wb.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close workbook: %w", cerr))
		}
	}()
	return b.Build(ctx, wb)
}

func toCells(labels []string) []any {
	out := make([]any, len(labels))
	for i, l := range labels {
		out[i] = l
	}
	return out
}
