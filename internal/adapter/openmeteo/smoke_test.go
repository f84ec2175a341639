//go:build openmeteo

package openmeteo

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/couchcryptid/weather-etl-service/internal/domain"
	"github.com/couchcryptid/weather-etl-service/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests hit the real Open-Meteo API.
// Run with: go test -tags=openmeteo ./internal/adapter/openmeteo/ -v -count=1

func TestSmoke_FetchLondon(t *testing.T) {
	c := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    "https://api.open-meteo.com",
		latitude:   testLatitude,
		longitude:  testLongitude,
		metrics:    observability.NewMetricsForTesting(),
		logger:     discardLogger(),
	}

	raw, err := c.Fetch(context.Background())
	require.NoError(t, err)

	reading, err := domain.ProjectReading(raw)
	require.NoError(t, err)
	assert.InDelta(t, 10, reading.Temperature, 50, "temperature should be plausible for London")
	assert.GreaterOrEqual(t, reading.Windspeed, 0.0)
}
