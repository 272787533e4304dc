package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/flare-attribution-engine/internal/collocate"
	"github.com/couchcryptid/flare-attribution-engine/internal/domain"
	"github.com/couchcryptid/flare-attribution-engine/internal/observability"
)

// CollocatedResult holds the flares seen by both sensors of an orbit pair.
type CollocatedResult struct {
	Primary     *OrbitResult
	Companion   *OrbitResult
	Flares      []domain.Collocated[domain.HotspotCell]
	RunID       string
	ProcessedAt time.Time
}

// CollocatedWriter persists one orbit pair's collocated flares.
type CollocatedWriter interface {
	WriteCollocated(ctx context.Context, res *CollocatedResult) error
}

// Collocator pairs AATSR orbits with their ATSR-2 companions and keeps the
// flares matched in both.
type Collocator struct {
	batch   *Batch
	writers []CollocatedWriter
	locate  func(string) (string, error)
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewCollocator reuses batch for reading and processing each orbit.
func NewCollocator(batch *Batch, writers []CollocatedWriter, logger *slog.Logger, metrics *observability.Metrics) *Collocator {
	return &Collocator{
		batch:   batch,
		writers: writers,
		locate:  collocate.CompanionPath,
		logger:  logger,
		metrics: metrics,
	}
}

// Run collocates every primary path. Pairs whose companion cannot be found
// or processed are logged and skipped.
func (c *Collocator) Run(ctx context.Context, primaryPaths []string) Summary {
	c.logger.Info("collocation started", "run_id", c.batch.runID, "orbits", len(primaryPaths))
	c.metrics.BatchRunning.Set(1)
	defer c.metrics.BatchRunning.Set(0)

	c.batch.track(func(p *Progress) { *p = Progress{Total: len(primaryPaths)} })

	sum := Summary{RunID: c.batch.runID}
	for _, primary := range primaryPaths {
		if ctx.Err() != nil {
			c.logger.Info("collocation stopping", "reason", ctx.Err())
			break
		}
		start := c.batch.clock.Now()
		res, err := c.pair(ctx, primary)
		if err != nil {
			sum.record(c.batch.fail(primary, err))
			continue
		}

		c.metrics.Collocated.Add(float64(len(res.Flares)))
		c.batch.succeed(res.Primary.ID, start)
		sum.Processed++
		c.logger.Info("orbit pair collocated",
			"orbit", res.Primary.ID,
			"companion", res.Companion.ID,
			"flares", len(res.Flares),
		)
	}
	c.logger.Info("collocation finished", "run_id", c.batch.runID, "processed", sum.Processed, "failed", sum.Failed)
	return sum
}

func (c *Collocator) pair(ctx context.Context, primary string) (*CollocatedResult, error) {
	companion, err := c.locate(primary)
	if err != nil {
		return nil, err
	}
	a, err := c.batch.Process(ctx, primary)
	if err != nil {
		return nil, err
	}
	b, err := c.batch.Process(ctx, companion)
	if err != nil {
		return nil, fmt.Errorf("companion %s: %w", companion, err)
	}

	res := &CollocatedResult{
		Primary:     a,
		Companion:   b,
		Flares:      collocate.Join(a.Matches, b.Matches),
		RunID:       c.batch.runID,
		ProcessedAt: a.ProcessedAt,
	}
	for _, w := range c.writers {
		if err := c.batch.retry(ctx, func() error { return w.WriteCollocated(ctx, res) }); err != nil {
			return nil, fmt.Errorf("write collocated %s: %w", a.ID, err)
		}
	}
	return res, nil
}
