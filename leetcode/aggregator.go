package leetcode

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tnicklin/leetcode_tracker/leetcode/client"
	"github.com/tnicklin/leetcode_tracker/logger"
	"github.com/tnicklin/leetcode_tracker/metrics"
	"github.com/tnicklin/leetcode_tracker/models"
)

// AggregationError means a mandatory lookup failed and no record could be
// built for the user.
type AggregationError struct {
	Identity models.Identity
	Resource client.Kind
	Err      error
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("aggregate %q: %s lookup failed: %v", e.Identity.String(), e.Resource, e.Err)
}

func (e *AggregationError) Unwrap() error { return e.Err }

// Profiler builds a ProfileRecord for one user.
type Profiler interface {
	Aggregate(ctx context.Context, identity models.Identity) (models.ProfileRecord, error)
}

var _ Profiler = (*Aggregator)(nil)

// Aggregator merges the profile, badges and solved lookups of one user.
type Aggregator struct {
	client  client.Client
	logger  logger.Logger
	metrics *metrics.Manager
}

type AggregatorParams struct {
	Client  client.Client
	Logger  logger.Logger
	Metrics *metrics.Manager
}

func NewAggregator(p AggregatorParams) *Aggregator {
	return &Aggregator{
		client:  p.Client,
		logger:  logger.OrNop(p.Logger),
		metrics: p.Metrics,
	}
}

type lookup struct {
	payload client.Payload
	err     error
}

// Aggregate issues the three lookups concurrently and merges them. Profile
// and solved are mandatory; a failed badges lookup leaves the badge list
// empty.
func (a *Aggregator) Aggregate(ctx context.Context, identity models.Identity) (models.ProfileRecord, error) {
	start := time.Now()

	var profile, badges, solved lookup
	var wg sync.WaitGroup
	wg.Add(3)
	go a.fetch(ctx, &wg, identity, client.KindProfile, &profile)
	go a.fetch(ctx, &wg, identity, client.KindBadges, &badges)
	go a.fetch(ctx, &wg, identity, client.KindSolved, &solved)
	wg.Wait()

	fail := func(kind client.Kind, err error) (models.ProfileRecord, error) {
		a.metrics.RecordAggregation(metrics.OutcomeFailed, time.Since(start))
		return models.ProfileRecord{}, &AggregationError{Identity: identity, Resource: kind, Err: err}
	}
	if profile.err != nil {
		if solved.err != nil {
			a.logger.DebugW("solved lookup also failed",
				"username", identity.String(),
				"error", solved.err,
			)
		}
		return fail(client.KindProfile, profile.err)
	}
	if solved.err != nil {
		return fail(client.KindSolved, solved.err)
	}
	if badges.err != nil {
		a.logger.WarnW("badges unavailable, continuing without them",
			"username", identity.String(),
			"error", badges.err,
		)
	}

	record := models.ProfileRecord{
		Identity:   identity,
		Reputation: statField(profile.payload, fieldReputation),
		Ranking:    statField(profile.payload, fieldRanking),
		Solved:     statField(solved.payload, fieldSolved),
		Badges:     badgeNames(badges.payload),
	}

	a.metrics.RecordAggregation(metrics.OutcomeOK, time.Since(start))
	a.logger.DebugW("aggregated profile",
		"username", identity.String(),
		"reputation", record.Reputation.String(),
		"solved", record.Solved.String(),
		"ranking", record.Ranking.String(),
		"badges", len(record.Badges),
	)
	return record, nil
}

func (a *Aggregator) fetch(ctx context.Context, wg *sync.WaitGroup, identity models.Identity, kind client.Kind, out *lookup) {
	defer wg.Done()
	defer func() {
		if r := recover(); r != nil {
			out.payload, out.err = nil, fmt.Errorf("%s lookup panicked: %v", kind, r)
		}
	}()
	out.payload, out.err = a.client.Fetch(ctx, identity, kind)
}
