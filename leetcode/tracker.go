package leetcode

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tnicklin/leetcode_tracker/clock"
	"github.com/tnicklin/leetcode_tracker/leetcode/client"
	"github.com/tnicklin/leetcode_tracker/logger"
	"github.com/tnicklin/leetcode_tracker/metrics"
	"github.com/tnicklin/leetcode_tracker/models"
)

// Runner aggregates a batch of users.
type Runner interface {
	Run(ctx context.Context, identities []models.Identity) models.BatchResult
	RunNames(ctx context.Context, names []string) models.BatchResult
}

var _ Runner = (*Tracker)(nil)

// Tracker fans a batch of users out to a Profiler, one goroutine per user,
// and collects every outcome. One user's failure never affects another's.
type Tracker struct {
	profiler      Profiler
	logger        logger.Logger
	metrics       *metrics.Manager
	clock         clock.Clock
	maxConcurrent int
}

// Params holds configuration for creating a new Tracker.
type Params struct {
	Config   Config
	Client   client.Client
	Profiler Profiler
	Logger   logger.Logger
	Metrics  *metrics.Manager
	Clock    clock.Clock
}

// New creates a Tracker. Without a Profiler it aggregates through Client,
// building a DefaultClient from Config when Client is nil as well.
func New(p Params) *Tracker {
	p.Config.Defaults()
	log := logger.OrNop(p.Logger)

	profiler := p.Profiler
	if profiler == nil {
		c := p.Client
		if c == nil {
			c = client.New(client.Params{
				BaseURL:    p.Config.BaseURL,
				UserAgent:  p.Config.UserAgent,
				Timeout:    p.Config.Timeout,
				HTTPClient: p.Config.HTTPClient,
				Metrics:    p.Metrics,
			})
		}
		profiler = NewAggregator(AggregatorParams{Client: c, Logger: log, Metrics: p.Metrics})
	}

	clk := p.Clock
	if clk == nil {
		clk = clock.System()
	}

	return &Tracker{
		profiler:      profiler,
		logger:        log,
		metrics:       p.Metrics,
		clock:         clk,
		maxConcurrent: p.Config.MaxConcurrent,
	}
}

type outcome struct {
	identity models.Identity
	record   models.ProfileRecord
	err      error
}

// Run aggregates every identity concurrently and returns once all of them
// have finished. Records and failures are in completion order.
func (t *Tracker) Run(ctx context.Context, identities []models.Identity) models.BatchResult {
	result := models.BatchResult{
		Records:  []models.ProfileRecord{},
		Failures: []models.Failure{},
	}
	if len(identities) == 0 {
		return result
	}

	start := t.clock.Now()
	t.logger.InfoW("batch started", "users", len(identities), "max_concurrent", t.maxConcurrent)

	var sem chan struct{}
	if t.maxConcurrent > 0 {
		sem = make(chan struct{}, t.maxConcurrent)
	}

	outcomes := make(chan outcome, len(identities))
	var wg sync.WaitGroup
	for _, identity := range identities {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes <- t.runOne(ctx, identity, sem)
		}()
	}
	go func() {
		wg.Wait()
		close(outcomes)
	}()

	for o := range outcomes {
		if o.err != nil {
			result.Failures = append(result.Failures, models.Failure{
				Identity: o.identity.String(),
				Reason:   o.err.Error(),
				Err:      o.err,
			})
			t.logFailure(o)
			continue
		}
		result.Records = append(result.Records, o.record)
	}

	end := t.clock.Now()
	t.metrics.RecordBatch(len(identities), len(result.Records), len(result.Failures), end.Sub(start), end)
	t.logger.InfoW("batch finished",
		"users", len(identities),
		"records", len(result.Records),
		"failures", len(result.Failures),
		"duration", end.Sub(start),
	)
	return result
}

// RunNames validates raw names before running the batch. Invalid names are
// reported as failures and never fetched.
func (t *Tracker) RunNames(ctx context.Context, names []string) models.BatchResult {
	valid := make([]models.Identity, 0, len(names))
	invalid := make([]models.Failure, 0)
	for _, name := range names {
		identity, err := models.NewIdentity(name)
		if err != nil {
			t.logger.WarnW("skipping invalid username", "username", name, "error", err)
			invalid = append(invalid, models.Failure{Identity: name, Reason: err.Error(), Err: err})
			continue
		}
		valid = append(valid, identity)
	}

	result := t.Run(ctx, valid)
	result.Failures = append(invalid, result.Failures...)
	return result
}

func (t *Tracker) runOne(ctx context.Context, identity models.Identity, sem chan struct{}) (out outcome) {
	out.identity = identity

	if sem != nil {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			out.err = fmt.Errorf("aggregate %q: %w", identity.String(), ctx.Err())
			return out
		}
		defer func() { <-sem }()
	}

	defer func() {
		if r := recover(); r != nil {
			out.record = models.ProfileRecord{}
			out.err = fmt.Errorf("aggregate %q: panic: %v", identity.String(), r)
		}
	}()

	out.record, out.err = t.profiler.Aggregate(ctx, identity)
	return out
}

func (t *Tracker) logFailure(o outcome) {
	fields := []any{"username", o.identity.String(), "error", o.err}
	var fetchErr *client.FetchError
	if errors.As(o.err, &fetchErr) {
		fields = append(fields, "resource", fetchErr.Kind.String(), "class", fetchErr.Class.String())
		if fetchErr.StatusCode != 0 {
			fields = append(fields, "status", fetchErr.StatusCode)
		}
	}
	t.logger.WarnW("user aggregation failed", fields...)
}
