package openmeteo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/weather-etl-service/internal/config"
	"github.com/couchcryptid/weather-etl-service/internal/domain"
	"github.com/couchcryptid/weather-etl-service/internal/observability"
	"github.com/sony/gobreaker"
)

const (
	forecastPath = "/v1/forecast"

	// maxBodyBytes bounds how much of a response is read into memory.
	maxBodyBytes = 1 << 20
	// maxErrorBodyBytes bounds the body snippet kept on FetchError.
	maxErrorBodyBytes = 512

	breakerFailureThreshold = 3
)

// Client fetches current conditions for one coordinate from the Open-Meteo
// forecast API. It implements pipeline.Fetcher.
type Client struct {
	httpClient *http.Client
	baseURL    string
	latitude   string
	longitude  string
	apiKey     string
	breaker    *gobreaker.CircuitBreaker // nil when disabled
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a forecast client for the configured coordinate.
func NewClient(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.WeatherTimeout,
		},
		baseURL:   strings.TrimRight(cfg.WeatherBaseURL, "/"),
		latitude:  cfg.Latitude,
		longitude: cfg.Longitude,
		apiKey:    cfg.WeatherAPIKey,
		metrics:   metrics,
		logger:    logger,
	}
	if cfg.WeatherBreakerEnabled {
		c.breaker = newBreaker(logger)
	}
	return c
}

// newBreaker opens after consecutive failed fetches and half-opens after a minute.
func newBreaker(logger *slog.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openmeteo",
		MaxRequests: 1,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
}

// Fetch issues one GET for the current weather. Any non-200 response fails
// with *domain.FetchError carrying the status code. Nothing is retried.
func (c *Client) Fetch(ctx context.Context) (domain.RawForecastResponse, error) {
	if c.breaker == nil {
		return c.fetch(ctx)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetch(ctx)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.metrics.FetchRequests.WithLabelValues("breaker_open").Inc()
			return domain.RawForecastResponse{}, &domain.FetchError{Err: err}
		}
		return domain.RawForecastResponse{}, err
	}
	return result.(domain.RawForecastResponse), nil
}

// Endpoint returns the full request URL for the configured coordinate.
func (c *Client) Endpoint() string {
	params := url.Values{
		"latitude":        {c.latitude},
		"longitude":       {c.longitude},
		"current_weather": {"true"},
	}
	if c.apiKey != "" {
		params.Set("apikey", c.apiKey)
	}
	return c.baseURL + forecastPath + "?" + params.Encode()
}

func (c *Client) fetch(ctx context.Context) (domain.RawForecastResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Endpoint(), nil)
	if err != nil {
		return domain.RawForecastResponse{}, &domain.FetchError{Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("requesting current weather", "latitude", c.latitude, "longitude", c.longitude)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.FetchAPIDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.FetchRequests.WithLabelValues("error").Inc()
		return domain.RawForecastResponse{}, &domain.FetchError{Err: fmt.Errorf("forecast request: %w", err)}
	}
	defer resp.Body.Close()

	c.metrics.FetchRequests.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return domain.RawForecastResponse{}, &domain.FetchError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return domain.RawForecastResponse{}, &domain.FetchError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("read response: %w", err),
		}
	}

	raw, err := domain.DecodeForecastResponse(body)
	if err != nil {
		return domain.RawForecastResponse{}, &domain.FetchError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("decode response: %w", err),
		}
	}
	return raw, nil
}
