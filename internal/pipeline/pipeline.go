package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/couchcryptid/weather-etl-service/internal/domain"
	"github.com/couchcryptid/weather-etl-service/internal/observability"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Fetcher retrieves the raw forecast payload for one run.
type Fetcher interface {
	Fetch(ctx context.Context) (domain.RawForecastResponse, error)
}

// Transformer projects a raw payload into a reading.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawForecastResponse) (domain.WeatherReading, error)
}

// Loader persists one reading.
type Loader interface {
	Load(ctx context.Context, reading domain.WeatherReading) error
}

// Publisher forwards a committed reading downstream.
type Publisher interface {
	Publish(ctx context.Context, reading domain.ObservedReading) error
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock sets the clock used for run timestamps and durations.
func WithClock(c clockwork.Clock) Option {
	return func(p *Pipeline) { p.clock = c }
}

// WithPublisher enables publishing of committed readings.
func WithPublisher(pub Publisher) Option {
	return func(p *Pipeline) { p.publisher = pub }
}

// WithRunIDGenerator overrides how run IDs are produced.
func WithRunIDGenerator(gen func() string) Option {
	return func(p *Pipeline) { p.newRunID = gen }
}

// Pipeline runs one fetch-transform-load cycle per call.
type Pipeline struct {
	fetcher     Fetcher
	transformer Transformer
	loader      Loader
	publisher   Publisher // nil when disabled
	logger      *slog.Logger
	metrics     *observability.Metrics
	clock       clockwork.Clock
	newRunID    func() string
	ready       atomic.Bool
}

// New creates a Pipeline with the given stages and observability.
func New(f Fetcher, t Transformer, l Loader, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Pipeline {
	p := &Pipeline{
		fetcher:     f,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		clock:       clockwork.NewRealClock(),
		newRunID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CheckReadiness returns nil once a run has completed successfully.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not completed a run yet")
	}
	return nil
}

// RunOnce fetches, projects and stores a single reading. The first failing
// stage aborts the run; later stages are not invoked.
func (p *Pipeline) RunOnce(ctx context.Context) (domain.WeatherReading, error) {
	runID := p.newRunID()
	logger := p.logger.With("run_id", runID)
	start := p.clock.Now()
	logger.Info("run started")

	reading, outcome, err := p.run(ctx, logger)

	elapsed := p.clock.Since(start)
	p.metrics.RunsTotal.WithLabelValues(outcome).Inc()
	p.metrics.RunDuration.Observe(elapsed.Seconds())

	if err != nil {
		logger.Error("run failed", "outcome", outcome, "error", err, "duration", elapsed)
		return domain.WeatherReading{}, err
	}

	p.metrics.RowsInserted.Inc()
	p.metrics.LastSuccessUnix.Set(float64(p.clock.Now().Unix()))
	p.metrics.ReadingTemperature.Set(reading.Temperature)
	p.metrics.ReadingWindspeed.Set(reading.Windspeed)
	p.ready.Store(true)

	logger.Info("run completed",
		"temperature", reading.Temperature,
		"windspeed", reading.Windspeed,
		"duration", elapsed,
	)

	p.publish(ctx, logger, domain.ObservedReading{
		WeatherReading: reading,
		RunID:          runID,
		ObservedAt:     start.UTC(),
	})

	return reading, nil
}

func (p *Pipeline) run(ctx context.Context, logger *slog.Logger) (domain.WeatherReading, string, error) {
	raw, err := p.fetcher.Fetch(ctx)
	if err != nil {
		return domain.WeatherReading{}, observability.OutcomeFetchError, fmt.Errorf("fetch: %w", err)
	}
	logger.Debug("forecast fetched", "bytes", len(raw.Body))

	reading, err := p.transformer.Transform(ctx, raw)
	if err != nil {
		return domain.WeatherReading{}, observability.OutcomeTransformError, fmt.Errorf("transform: %w", err)
	}

	if err := p.loader.Load(ctx, reading); err != nil {
		return domain.WeatherReading{}, observability.OutcomeLoadError, fmt.Errorf("load: %w", err)
	}
	return reading, observability.OutcomeSuccess, nil
}

// publish is best effort: the row is already committed.
func (p *Pipeline) publish(ctx context.Context, logger *slog.Logger, reading domain.ObservedReading) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.Publish(ctx, reading); err != nil {
		p.metrics.PublishErrors.Inc()
		logger.Warn("publish reading failed", "error", err)
	}
}
