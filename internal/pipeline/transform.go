package pipeline

import (
	"context"

	"github.com/couchcryptid/weather-etl-service/internal/domain"
)

// ReadingTransformer implements Transformer using domain.ProjectReading.
type ReadingTransformer struct{}

// NewTransformer creates a ReadingTransformer.
func NewTransformer() *ReadingTransformer {
	return &ReadingTransformer{}
}

func (t *ReadingTransformer) Transform(_ context.Context, raw domain.RawForecastResponse) (domain.WeatherReading, error) {
	return domain.ProjectReading(raw)
}
