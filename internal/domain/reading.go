package domain

import (
	"encoding/json"
	"time"
)

// Payload keys read from the forecast response.
const (
	KeyCurrentWeather = "current_weather"
	KeyTemperature    = "temperature"
	KeyWindspeed      = "windspeed"
)

// RawForecastResponse is the decoded forecast API body. Fields holds the
// generic JSON view used for projection; Body keeps the bytes as received.
type RawForecastResponse struct {
	Fields map[string]any
	Body   []byte
}

// DecodeForecastResponse parses a forecast API body. The top level must be a
// JSON object.
func DecodeForecastResponse(body []byte) (RawForecastResponse, error) {
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return RawForecastResponse{}, err
	}
	return RawForecastResponse{Fields: fields, Body: body}, nil
}

// WeatherReading is the two-field record persisted once per run.
type WeatherReading struct {
	Temperature float64 `json:"temperature"`
	Windspeed   float64 `json:"windspeed"`
}

// ObservedReading is a stored reading together with the run that produced it.
// It is what downstream publishers receive.
type ObservedReading struct {
	WeatherReading
	RunID      string    `json:"run_id"`
	ObservedAt time.Time `json:"observed_at"`
}
