// Package report renders batch results as plain text tables, top lists and
// a bar chart.
package report

import (
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"

	"github.com/tnicklin/leetcode_tracker/models"
	"github.com/tnicklin/leetcode_tracker/ranking"
)

// DefaultTop is how many entries a top list shows by default.
const DefaultTop = 5

// DefaultChartWidth is the widest bar WriteChart draws.
const DefaultChartWidth = 40

// WriteRecords prints one row per record in the export column layout.
func WriteRecords(w io.Writer, records []models.ProfileRecord) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(models.FlatFields, "\t"))
	for _, r := range records {
		fmt.Fprintln(tw, strings.Join(r.Flat().Row(), "\t"))
	}
	return tw.Flush()
}

// WriteFailures prints each failed identity with its reason.
func WriteFailures(w io.Writer, failures []models.Failure) error {
	if len(failures) == 0 {
		return nil
	}
	if _, err := fmt.Fprintf(w, "Failed (%d):\n", len(failures)); err != nil {
		return err
	}
	for _, f := range failures {
		if _, err := fmt.Fprintf(w, "  %s: %s\n", displayName(f.Identity), f.Reason); err != nil {
			return err
		}
	}
	return nil
}

// WriteTop prints the first n entries of a ranked view with their value of
// field. A non-positive n uses DefaultTop.
func WriteTop(w io.Writer, title string, view []models.ProfileRecord, field ranking.Field, n int) error {
	if n <= 0 {
		n = DefaultTop
	}
	if _, err := fmt.Fprintf(w, "%s:\n", title); err != nil {
		return err
	}
	for i, r := range ranking.Top(view, n) {
		if _, err := fmt.Fprintf(w, "%d. %s - %s: %s\n", i+1, r.Identity, field, field.Value(r)); err != nil {
			return err
		}
	}
	return nil
}

// WriteChart draws a horizontal bar chart of rating and solved count. Bars
// are scaled per metric so the largest value spans width columns. Records
// missing either value are left out.
func WriteChart(w io.Writer, records []models.ProfileRecord, width int) error {
	if width <= 0 {
		width = DefaultChartWidth
	}

	plotted := make([]models.ProfileRecord, 0, len(records))
	nameWidth := 0
	var maxRating, maxSolved float64
	for _, r := range records {
		if !r.Reputation.Valid || !r.Solved.Valid {
			continue
		}
		plotted = append(plotted, r)
		nameWidth = max(nameWidth, len(r.Identity))
		maxRating = math.Max(maxRating, r.Reputation.Value)
		maxSolved = math.Max(maxSolved, r.Solved.Value)
	}
	if len(plotted) == 0 {
		_, err := fmt.Fprintln(w, "No chartable profiles.")
		return err
	}

	if _, err := fmt.Fprintln(w, "LeetCode User Comparison"); err != nil {
		return err
	}
	for _, r := range plotted {
		rows := []struct {
			label string
			stat  models.Stat
			max   float64
			mark  string
		}{
			{label: ranking.FieldReputation.String(), stat: r.Reputation, max: maxRating, mark: "#"},
			{label: ranking.FieldSolved.String(), stat: r.Solved, max: maxSolved, mark: "="},
		}
		for i, row := range rows {
			name := ""
			if i == 0 {
				name = r.Identity.String()
			}
			bar := strings.Repeat(row.mark, barLength(row.stat.Value, row.max, width))
			if _, err := fmt.Fprintf(w, "%-*s  %-15s |%s %s\n", nameWidth, name, row.label, bar, row.stat); err != nil {
				return err
			}
		}
	}
	return nil
}

func barLength(v, maxValue float64, width int) int {
	if maxValue <= 0 || v <= 0 {
		return 0
	}
	return int(math.Round(v / maxValue * float64(width)))
}

// Summary renders a short markdown digest of a batch: counts plus the top n
// by rating and by solved count.
func Summary(result models.BatchResult, n int) string {
	if n <= 0 {
		n = DefaultTop
	}
	views := ranking.Rank(result.Records)

	var b strings.Builder
	fmt.Fprintf(&b, "**LeetCode stats** (%d profiles, %d failed)\n", len(result.Records), len(result.Failures))
	writeSummarySection(&b, "Top by Rating", views.ByReputation, ranking.FieldReputation, n)
	writeSummarySection(&b, "Top by Problems Solved", views.BySolved, ranking.FieldSolved, n)
	if len(result.Failures) > 0 {
		names := make([]string, len(result.Failures))
		for i, f := range result.Failures {
			names[i] = displayName(f.Identity)
		}
		fmt.Fprintf(&b, "\nFailed: %s\n", strings.Join(names, ", "))
	}
	return b.String()
}

func writeSummarySection(b *strings.Builder, title string, view []models.ProfileRecord, field ranking.Field, n int) {
	top := ranking.Top(view, n)
	if len(top) == 0 {
		return
	}
	fmt.Fprintf(b, "\n__%s__\n", title)
	for i, r := range top {
		fmt.Fprintf(b, "%d. `%s` %s\n", i+1, r.Identity, field.Value(r))
	}
}

func displayName(identity string) string {
	if strings.TrimSpace(identity) == "" {
		return fmt.Sprintf("%q", identity)
	}
	return identity
}
