package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tnicklin/leetcode_tracker/clock"
	"github.com/tnicklin/leetcode_tracker/config"
	"github.com/tnicklin/leetcode_tracker/export"
	"github.com/tnicklin/leetcode_tracker/input"
	"github.com/tnicklin/leetcode_tracker/leetcode"
	"github.com/tnicklin/leetcode_tracker/logger"
	"github.com/tnicklin/leetcode_tracker/metrics"
	"github.com/tnicklin/leetcode_tracker/models"
	"github.com/tnicklin/leetcode_tracker/ranking"
	"github.com/tnicklin/leetcode_tracker/report"
	"github.com/tnicklin/leetcode_tracker/store"
)

var errNoUsernames = errors.New("no usernames given: use -users, -users-file or the usernames config list")

// collectNames gathers names from the flags, falling back to the config
// list when no flag names any user. Every source is deduplicated, keeping
// the first occurrence.
func collectNames(f flags, cfg *config.AppConfig) ([]string, []models.Failure, error) {
	lists := [][]string{input.ParseList(f.users)}
	if f.usersFile != "" {
		fromFile, err := input.ReadFile(f.usersFile)
		if err != nil {
			return nil, nil, err
		}
		lists = append(lists, fromFile)
	}
	if fromFlags := input.Merge(lists...); len(fromFlags) > 0 {
		return fromFlags, nil, nil
	}

	names, invalid := cfg.Names()
	if len(names) == 0 && len(invalid) == 0 {
		return nil, nil, errNoUsernames
	}
	return names, invalid, nil
}

type publisher interface {
	Publish(result models.BatchResult) error
}

// batch is one command line run: fetch, report, export, record.
type batch struct {
	Runner    leetcode.Runner
	Store     store.Store
	Publisher publisher
	Metrics   *metrics.Manager
	Clock     clock.Clock
	Logger    logger.Logger
	Config    *config.AppConfig
	Publish   bool
	Out       io.Writer
}

func (b batch) execute(ctx context.Context, names []string, invalid []models.Failure) error {
	started := b.Clock.Now()
	result := b.Runner.RunNames(ctx, names)
	if len(invalid) > 0 {
		result.Failures = append(invalid, result.Failures...)
	}
	completed := b.Clock.Now()

	if err := b.writeReport(result); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	if format := b.Config.Export.Format; format != "" {
		f, err := export.ParseFormat(format)
		if err != nil {
			return err
		}
		path, err := export.SaveFile(b.Config.Export.Name, f, result.Records)
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}
		fmt.Fprintf(b.Out, "\nData saved to %s\n", path)
	}

	if b.Store != nil {
		runID, err := b.Store.SaveRun(ctx, store.Run{StartedAt: started, CompletedAt: completed, Result: result})
		if err != nil {
			b.Logger.ErrorW("failed to save run", "error", err)
		} else {
			b.Logger.InfoW("run saved", "run_id", runID)
		}
	}

	if b.Publish && b.Publisher != nil {
		if err := b.Publisher.Publish(result); err != nil {
			b.Logger.ErrorW("failed to publish summary", "error", err)
		}
	}

	if path := b.Config.Metrics.TextfilePath; path != "" {
		if err := b.Metrics.WriteTextfile(path); err != nil {
			b.Logger.WarnW("failed to write metrics textfile", "path", path, "error", err)
		}
	}
	return nil
}

func (b batch) writeReport(result models.BatchResult) error {
	if err := report.WriteRecords(b.Out, result.Records); err != nil {
		return err
	}
	if len(result.Failures) > 0 {
		fmt.Fprintln(b.Out)
		if err := report.WriteFailures(b.Out, result.Failures); err != nil {
			return err
		}
	}

	views := ranking.Rank(result.Records)
	topN := b.Config.Report.TopN
	fmt.Fprintln(b.Out)
	if err := report.WriteTop(b.Out, fmt.Sprintf("Top %d by Rating", topN), views.ByReputation, ranking.FieldReputation, topN); err != nil {
		return err
	}
	fmt.Fprintln(b.Out)
	if err := report.WriteTop(b.Out, fmt.Sprintf("Top %d by Problems Solved", topN), views.BySolved, ranking.FieldSolved, topN); err != nil {
		return err
	}

	if b.Config.Report.Chart {
		fmt.Fprintln(b.Out)
		return report.WriteChart(b.Out, result.Records, b.Config.Report.ChartWidth)
	}
	return nil
}

func printHistory(ctx context.Context, w io.Writer, st store.Store, limit int) error {
	runs, err := st.ListRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded.")
		return err
	}
	for _, run := range runs {
		if _, err := fmt.Fprintf(w, "%s  %s  users=%d ok=%d failed=%d took=%s\n",
			run.ID,
			run.CompletedAt.Local().Format(time.DateTime),
			run.Identities,
			run.RecordCount,
			run.FailureCount,
			run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond),
		); err != nil {
			return err
		}
	}
	return nil
}
