package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tnicklin/leetcode_tracker/clock"
	"github.com/tnicklin/leetcode_tracker/config"
	"github.com/tnicklin/leetcode_tracker/logger"
	"github.com/tnicklin/leetcode_tracker/metrics"
	"github.com/tnicklin/leetcode_tracker/models"
	"github.com/tnicklin/leetcode_tracker/store"
)

type fakeRunner struct{}

func (fakeRunner) Run(_ context.Context, _ []models.Identity) models.BatchResult {
	return models.BatchResult{}
}

func (fakeRunner) RunNames(_ context.Context, names []string) models.BatchResult {
	res := models.BatchResult{Records: []models.ProfileRecord{}, Failures: []models.Failure{}}
	for i, name := range names {
		if name == "ghost" {
			res.Failures = append(res.Failures, models.Failure{Identity: name, Reason: "profile: not found"})
			continue
		}
		res.Records = append(res.Records, models.ProfileRecord{
			Identity:   models.Identity(name),
			Reputation: models.Available(float64(10 * (i + 1))),
			Solved:     models.Available(float64(100 - i)),
			Badges:     []string{},
		})
	}
	return res
}

type fakePublisher struct {
	published []models.BatchResult
}

func (f *fakePublisher) Publish(result models.BatchResult) error {
	f.published = append(f.published, result)
	return nil
}

func testConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	cfg := &config.AppConfig{}
	cfg.Defaults()
	return cfg
}

func TestBatchExecute(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	cfg := testConfig(t)
	cfg.Export.Format = "csv"
	cfg.Export.Name = filepath.Join(dir, "profiles")
	cfg.Report.Chart = true
	cfg.Metrics.TextfilePath = filepath.Join(dir, "tracker.prom")

	st := store.NewSQLiteStore(store.Params{})
	if err := st.Open(ctx); err != nil {
		t.Fatalf("open: %v", err)
	}
	defer st.Close()

	pub := &fakePublisher{}
	var out bytes.Buffer
	b := batch{
		Runner:    fakeRunner{},
		Store:     st,
		Publisher: pub,
		Metrics:   metrics.NewManager(),
		Clock:     clock.NewManual(time.Date(2026, 2, 4, 0, 0, 0, 0, time.UTC)),
		Logger:    logger.NewNop(),
		Config:    cfg,
		Publish:   true,
		Out:       &out,
	}

	invalid := []models.Failure{{Identity: "42", Reason: "username must be a string"}}
	if err := b.execute(ctx, []string{"alice", "ghost", "bob"}, invalid); err != nil {
		t.Fatalf("execute: %v", err)
	}

	text := out.String()
	for _, want := range []string{
		"Failed (2):",
		"Top 5 by Rating:\n1. bob - Rating: 30\n2. alice - Rating: 10",
		"Top 5 by Problems Solved:\n1. alice - Problems Solved: 100",
		"LeetCode User Comparison",
		"Data saved to " + cfg.Export.Name + ".csv",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in output:\n%s", want, text)
		}
	}

	if _, err := os.Stat(cfg.Export.Name + ".csv"); err != nil {
		t.Fatalf("expected export file: %v", err)
	}
	if _, err := os.Stat(cfg.Metrics.TextfilePath); err != nil {
		t.Fatalf("expected metrics textfile: %v", err)
	}

	runs, err := st.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 || runs[0].Identities != 4 || runs[0].FailureCount != 2 {
		t.Fatalf("unexpected stored runs: %#v", runs)
	}

	if len(pub.published) != 1 || pub.published[0].Failures[0].Identity != "42" {
		t.Fatalf("expected published result with config failure first, got %#v", pub.published)
	}

	var history bytes.Buffer
	if err := printHistory(ctx, &history, st, 5); err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(history.String(), "users=4 ok=2 failed=2") {
		t.Fatalf("unexpected history: %s", history.String())
	}
}

func TestBatchExecuteRejectsUnknownFormat(t *testing.T) {
	cfg := testConfig(t)
	cfg.Export.Format = "xlsx"

	b := batch{
		Runner: fakeRunner{},
		Clock:  clock.System(),
		Logger: logger.NewNop(),
		Config: cfg,
		Out:    &bytes.Buffer{},
	}
	if err := b.execute(context.Background(), []string{"alice"}, nil); err == nil {
		t.Fatal("expected unknown format error")
	}
}

func TestCollectNames(t *testing.T) {
	dir := t.TempDir()
	usersFile := filepath.Join(dir, "users.txt")
	if err := os.WriteFile(usersFile, []byte("bob\ncarol\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg := testConfig(t)
	cfg.Usernames = []any{"dave", 7}

	names, invalid, err := collectNames(flags{users: "alice,bob", usersFile: usersFile}, cfg)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if strings.Join(names, ",") != "alice,bob,carol" || len(invalid) != 0 {
		t.Fatalf("unexpected flag names %v %v", names, invalid)
	}

	names, _, err = collectNames(flags{users: "alice, bob,,alice"}, cfg)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if strings.Join(names, ",") != "alice,bob" {
		t.Fatalf("expected deduplicated users flag, got %v", names)
	}

	names, invalid, err = collectNames(flags{}, cfg)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if strings.Join(names, ",") != "dave" || len(invalid) != 1 {
		t.Fatalf("unexpected config names %v %v", names, invalid)
	}

	if _, _, err := collectNames(flags{}, testConfig(t)); !errors.Is(err, errNoUsernames) {
		t.Fatalf("expected errNoUsernames, got %v", err)
	}
}

func TestParseFlags(t *testing.T) {
	f, err := parseFlags([]string{"-users", "a,b", "-format", "json", "-top", "3", "-chart"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if f.users != "a,b" || f.format != "json" || f.top != 3 || !f.chart {
		t.Fatalf("unexpected flags %+v", f)
	}

	cfg := testConfig(t)
	applyFlags(cfg, f)
	if cfg.Export.Format != "json" || cfg.Report.TopN != 3 || !cfg.Report.Chart {
		t.Fatalf("flags not applied: %+v %+v", cfg.Export, cfg.Report)
	}
}
