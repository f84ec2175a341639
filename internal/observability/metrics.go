package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Run outcomes used as the "outcome" label on RunsTotal.
const (
	OutcomeSuccess        = "success"
	OutcomeFetchError     = "fetch_error"
	OutcomeTransformError = "transform_error"
	OutcomeLoadError      = "load_error"
)

// Metrics holds the Prometheus collectors for the weather pipeline.
type Metrics struct {
	RunsTotal          *prometheus.CounterVec // labels: outcome
	RunDuration        prometheus.Histogram
	RowsInserted       prometheus.Counter
	LastSuccessUnix    prometheus.Gauge
	SchedulerRunning   prometheus.Gauge
	SkippedRuns        prometheus.Counter
	PublishErrors      prometheus.Counter
	ReadingTemperature prometheus.Gauge
	ReadingWindspeed   prometheus.Gauge

	// Forecast API metrics.
	FetchRequests    *prometheus.CounterVec // labels: status={200,500,...,error,breaker_open}
	FetchAPIDuration prometheus.Histogram
}

// NewMetrics creates all pipeline metrics and registers them with reg.
// It panics if any collector is already registered there.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := newMetrics()
	if err := m.register(reg); err != nil {
		panic(err)
	}
	return m
}

// NewMetricsForTesting creates Metrics without registering them, so tests can
// build as many as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_etl",
			Name:      "runs_total",
			Help:      "Pipeline runs by outcome.",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "weather_etl",
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete fetch-transform-load run.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		RowsInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_etl",
			Name:      "rows_inserted_total",
			Help:      "Rows appended to the destination table.",
		}),
		LastSuccessUnix: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "weather_etl",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
		SchedulerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "weather_etl",
			Name:      "scheduler_running",
			Help:      "1 when the in-process scheduler is active, 0 when stopped.",
		}),
		SkippedRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_etl",
			Name:      "skipped_runs_total",
			Help:      "Scheduled ticks skipped because the previous run was still in progress.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_etl",
			Name:      "publish_errors_total",
			Help:      "Failures publishing committed readings to Kafka.",
		}),
		ReadingTemperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "weather_etl",
			Name:      "reading_temperature_celsius",
			Help:      "Temperature from the last stored reading.",
		}),
		ReadingWindspeed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "weather_etl",
			Name:      "reading_windspeed_kmh",
			Help:      "Windspeed from the last stored reading.",
		}),
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_etl",
			Name:      "fetch_requests_total",
			Help:      "Forecast API requests by response status.",
		}, []string{"status"}),
		FetchAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "weather_etl",
			Name:      "fetch_api_duration_seconds",
			Help:      "Forecast API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}
}

// register adds every collector to reg, stopping at the first conflict.
func (m *Metrics) register(reg prometheus.Registerer) error {
	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.RunsTotal,
		m.RunDuration,
		m.RowsInserted,
		m.LastSuccessUnix,
		m.SchedulerRunning,
		m.SkippedRuns,
		m.PublishErrors,
		m.ReadingTemperature,
		m.ReadingWindspeed,
		m.FetchRequests,
		m.FetchAPIDuration,
	}
}
