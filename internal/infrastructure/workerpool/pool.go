package workerpool

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/agentrag/reasoning-engine/internal/core/domain"
)

// ErrPoolSaturated is returned when no slot frees up within the queue
// timeout. Callers treat it like any other scoring failure and degrade.
var ErrPoolSaturated = errors.New("workerpool: saturated")

type Config struct {
	MaxConcurrent int
	QueueTimeout  time.Duration
}

func (c Config) normalize() Config {
	out := c
	if out.MaxConcurrent <= 0 {
		out.MaxConcurrent = 4
	}
	if out.QueueTimeout <= 0 {
		out.QueueTimeout = 5 * time.Second
	}
	return out
}

// Pool bounds concurrent model inference across all in-flight queries.
// It implements ports.ScoringPool.
type Pool struct {
	sem     *semaphore.Weighted
	cfg     Config
	onQueue func(inFlight int64)

	inFlight chan struct{}
}

func New(cfg Config) *Pool {
	cfg = cfg.normalize()
	return &Pool{
		sem:      semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		cfg:      cfg,
		inFlight: make(chan struct{}, cfg.MaxConcurrent),
	}
}

// SetGauge registers a callback invoked with the in-flight count on
// every acquire and release.
func (p *Pool) SetGauge(fn func(inFlight int64)) {
	p.onQueue = fn
}

// Do runs fn once a slot is free. Waiting is bounded by the queue
// timeout; the caller's context still cancels both the wait and fn.
func (p *Pool) Do(ctx context.Context, fn func(context.Context) error) error {
	acquireCtx, cancel := context.WithTimeout(ctx, p.cfg.QueueTimeout)
	defer cancel()

	if err := p.sem.Acquire(acquireCtx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return domain.WrapError(ErrPoolSaturated, "acquire scoring slot", err)
	}
	defer p.sem.Release(1)

	p.inFlight <- struct{}{}
	p.report()
	defer func() {
		<-p.inFlight
		p.report()
	}()

	return fn(ctx)
}

func (p *Pool) report() {
	if p.onQueue != nil {
		p.onQueue(int64(len(p.inFlight)))
	}
}
