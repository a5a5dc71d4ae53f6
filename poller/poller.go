// Package poller runs a batch for a fixed list of users on an interval and
// hands every result to a sink.
package poller

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/tnicklin/leetcode_tracker/clock"
	"github.com/tnicklin/leetcode_tracker/leetcode"
	"github.com/tnicklin/leetcode_tracker/logger"
	"github.com/tnicklin/leetcode_tracker/models"
	"github.com/tnicklin/leetcode_tracker/store"
)

var _ Poller = (*DefaultPoller)(nil)

// Poller runs scheduled batches until stopped.
type Poller interface {
	Start(ctx context.Context) error
	Stop()
}

// Sink receives each finished batch.
type Sink interface {
	Publish(result models.BatchResult) error
}

// DefaultPoller runs the configured batch on an interval with jitter.
type DefaultPoller struct {
	runner     leetcode.Runner
	store      store.Store
	sink       Sink
	names      []string
	interval   time.Duration
	jitter     float64
	runOnStart bool
	clock      clock.Clock
	logger     logger.Logger

	mu     sync.Mutex
	rng    *rand.Rand
	cancel context.CancelFunc
	done   chan struct{}
}

// Params holds configuration for creating a new Poller.
type Params struct {
	Config Config
	Runner leetcode.Runner
	Store  store.Store
	Sink   Sink
	Names  []string
	Clock  clock.Clock
	Logger logger.Logger
}

// New creates a new DefaultPoller with the given parameters.
func New(p Params) *DefaultPoller {
	p.Config.Defaults()

	c := p.Clock
	if c == nil {
		c = clock.System()
	}

	return &DefaultPoller{
		runner:     p.Runner,
		store:      p.Store,
		sink:       p.Sink,
		names:      p.Names,
		interval:   p.Config.Interval,
		jitter:     p.Config.Jitter,
		runOnStart: p.Config.RunOnStart,
		clock:      c,
		logger:     logger.OrNop(p.Logger),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Start begins the polling loop. It returns immediately; the loop runs until
// ctx is done or Stop is called.
func (p *DefaultPoller) Start(ctx context.Context) error {
	if p.runner == nil {
		return errors.New("poller: runner is required")
	}
	if p.interval <= 0 {
		return errors.New("poller: interval must be positive")
	}
	if len(p.names) == 0 {
		return nil
	}

	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	go p.loop(ctx)

	p.logger.InfoW("poller started", "interval", p.interval, "users", len(p.names))
	return nil
}

// Stop ends the loop and waits for an in-flight batch to finish.
func (p *DefaultPoller) Stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
}

func (p *DefaultPoller) loop(ctx context.Context) {
	defer close(p.done)

	if p.runOnStart {
		p.pollOnce(ctx)
	}

	for {
		select {
		case <-time.After(p.nextWait()):
		case <-ctx.Done():
			return
		}
		p.pollOnce(ctx)
	}
}

func (p *DefaultPoller) nextWait() time.Duration {
	jitterWindow := time.Duration(float64(p.interval) * p.jitter)
	if jitterWindow <= 0 {
		return p.interval
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.interval + time.Duration(p.rng.Int63n(int64(jitterWindow)))
}

// pollOnce runs one batch, stores it and hands it to the sink.
func (p *DefaultPoller) pollOnce(ctx context.Context) models.BatchResult {
	started := p.clock.Now()
	result := p.runner.RunNames(ctx, p.names)
	completed := p.clock.Now()

	if ctx.Err() != nil {
		p.logger.InfoW("scheduled batch interrupted", "error", ctx.Err())
		return result
	}

	if p.store != nil {
		if _, err := p.store.SaveRun(ctx, store.Run{StartedAt: started, CompletedAt: completed, Result: result}); err != nil {
			p.logger.ErrorW("failed to save scheduled run", "error", err)
		}
	}
	if p.sink != nil {
		if err := p.sink.Publish(result); err != nil {
			p.logger.ErrorW("failed to publish scheduled run", "error", err)
		}
	}
	return result
}
