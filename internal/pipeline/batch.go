package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/flare-attribution-engine/internal/domain"
	"github.com/couchcryptid/flare-attribution-engine/internal/observability"
)

// SwathReader decodes the orbit stored at path.
type SwathReader interface {
	ReadSwath(ctx context.Context, path string) (*domain.Swath, error)
}

// ResultWriter persists or publishes one orbit's results.
type ResultWriter interface {
	WriteOrbit(ctx context.Context, res *OrbitResult) error
}

// Failure describes one skipped orbit.
type Failure struct {
	Path   string
	Reason string
	Err    error
}

// Summary reports the outcome of a run.
type Summary struct {
	RunID     string
	Processed int
	Failed    int
	Failures  []Failure
}

// Progress is a snapshot of a run in flight.
type Progress struct {
	RunID     string `json:"run_id"`
	Total     int    `json:"total"`
	Processed int    `json:"processed"`
	Failed    int    `json:"failed"`
	LastOrbit string `json:"last_orbit,omitempty"`
}

const writeAttempts = 3

// Batch drives the engine over a list of orbit files. A failed orbit is
// logged and skipped; it never stops the run.
type Batch struct {
	engine   *Engine
	reader   SwathReader
	writers  []ResultWriter
	geocoder domain.Geocoder
	logger   *slog.Logger
	metrics  *observability.Metrics
	clock    clockwork.Clock
	runID    string
	ready    atomic.Bool
	backoff  time.Duration

	mu       sync.Mutex
	progress Progress
}

// NewBatch creates a Batch with a fresh run id.
func NewBatch(engine *Engine, reader SwathReader, writers []ResultWriter, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock) *Batch {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Batch{
		engine:  engine,
		reader:  reader,
		writers: writers,
		logger:  logger,
		metrics: metrics,
		clock:   clock,
		runID:   uuid.NewString(),
		backoff: 200 * time.Millisecond,
	}
}

// Progress reports the counts of the current or last run.
func (b *Batch) Progress() Progress {
	b.mu.Lock()
	defer b.mu.Unlock()
	p := b.progress
	p.RunID = b.runID
	return p
}

func (b *Batch) track(update func(p *Progress)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	update(&b.progress)
}

// WithGeocoder enables reverse geocoding of matched flare sites.
func (b *Batch) WithGeocoder(g domain.Geocoder) *Batch {
	b.geocoder = g
	return b
}

// RunID identifies this run on every written record.
func (b *Batch) RunID() string { return b.runID }

// CheckReadiness returns nil once at least one orbit has been processed and
// written.
func (b *Batch) CheckReadiness(_ context.Context) error {
	if !b.ready.Load() {
		return errors.New("no orbit has been processed yet")
	}
	return nil
}

// Run processes every path in order and stops early only when ctx is done.
func (b *Batch) Run(ctx context.Context, paths []string) Summary {
	b.logger.Info("batch started", "run_id", b.runID, "orbits", len(paths))
	b.metrics.BatchRunning.Set(1)
	defer b.metrics.BatchRunning.Set(0)

	b.track(func(p *Progress) { *p = Progress{Total: len(paths)} })

	sum := Summary{RunID: b.runID}
	for _, path := range paths {
		if ctx.Err() != nil {
			b.logger.Info("batch stopping", "reason", ctx.Err())
			break
		}

		start := b.clock.Now()
		res, err := b.Process(ctx, path)
		if err == nil {
			err = b.write(ctx, res)
		}
		if err != nil {
			sum.record(b.fail(path, err))
			continue
		}

		b.succeed(res.ID, start)
		sum.Processed++
		b.logger.Info("orbit written",
			"orbit", res.ID,
			"sensor", res.Meta.Sensor,
			"hotspot_cells", len(res.Hotspots),
			"sample_cells", len(res.Samples),
			"matches", len(res.Matches),
		)
	}

	b.logger.Info("batch finished", "run_id", b.runID, "processed", sum.Processed, "failed", sum.Failed)
	return sum
}

// Process reads and processes one orbit without writing it. Matched sites
// are geocoded when a geocoder is configured.
func (b *Batch) Process(ctx context.Context, path string) (*OrbitResult, error) {
	s, err := b.reader.ReadSwath(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("read swath %s: %w", path, err)
	}
	res, err := b.engine.ProcessOrbit(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("process orbit %s: %w", s.ID, err)
	}
	res.RunID = b.runID
	res.ProcessedAt = b.clock.Now().UTC()
	if b.geocoder != nil {
		domain.EnrichMatches(ctx, res.Matches, b.geocoder, b.logger)
	}
	return res, nil
}

// write hands res to every writer, retrying each with exponential backoff.
func (b *Batch) write(ctx context.Context, res *OrbitResult) error {
	for _, w := range b.writers {
		if err := b.retry(ctx, func() error { return w.WriteOrbit(ctx, res) }); err != nil {
			return fmt.Errorf("write orbit %s: %w", res.ID, err)
		}
	}
	return nil
}

func (b *Batch) retry(ctx context.Context, fn func() error) error {
	backoff := b.backoff
	maxBackoff := 5 * time.Second
	var err error
	for attempt := 1; attempt <= writeAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == writeAttempts || ctx.Err() != nil {
			break
		}
		b.logger.Warn("write failed, retrying", "error", err, "attempt", attempt, "backoff", backoff)
		if !sleepWithContext(ctx, backoff) {
			break
		}
		backoff = nextBackoff(backoff, maxBackoff)
	}
	return err
}

func (b *Batch) succeed(orbit string, start time.Time) {
	b.metrics.OrbitsProcessed.Inc()
	b.metrics.OrbitDuration.Observe(b.clock.Since(start).Seconds())
	b.ready.Store(true)
	b.track(func(p *Progress) {
		p.Processed++
		p.LastOrbit = orbit
	})
}

func (b *Batch) fail(path string, err error) Failure {
	reason := FailureReason(err)
	b.track(func(p *Progress) {
		p.Failed++
		p.LastOrbit = domain.ProductStem(path)
	})
	b.metrics.OrbitsFailed.WithLabelValues(reason).Inc()
	sensor, _ := domain.SensorFromPath(path)
	b.logger.Warn("orbit skipped",
		"orbit", domain.ProductStem(path),
		"sensor", sensor,
		"reason", reason,
		"error", err,
	)
	return Failure{Path: path, Reason: reason, Err: err}
}

func (s *Summary) record(f Failure) {
	s.Failed++
	s.Failures = append(s.Failures, f)
}

// FailureReason classifies an orbit failure for metrics and logs.
func FailureReason(err error) string {
	switch {
	case domain.IsFileAssociationError(err):
		return observability.ReasonFileAssociation
	case domain.IsDataError(err):
		return observability.ReasonData
	}
	return observability.ReasonIO
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
