package domain

// ProjectReading extracts temperature and windspeed from the current_weather
// section of a forecast response.
func ProjectReading(raw RawForecastResponse) (WeatherReading, error) {
	current, err := objectField(raw.Fields, KeyCurrentWeather, KeyCurrentWeather)
	if err != nil {
		return WeatherReading{}, err
	}

	temperature, err := numberField(current, KeyTemperature, KeyCurrentWeather+"."+KeyTemperature)
	if err != nil {
		return WeatherReading{}, err
	}

	windspeed, err := numberField(current, KeyWindspeed, KeyCurrentWeather+"."+KeyWindspeed)
	if err != nil {
		return WeatherReading{}, err
	}

	return WeatherReading{Temperature: temperature, Windspeed: windspeed}, nil
}

func objectField(m map[string]any, key, path string) (map[string]any, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, &FieldMissingError{Field: path}
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, &FieldTypeError{Field: path, Want: "object", Value: v}
	}
	return obj, nil
}

func numberField(m map[string]any, key, path string) (float64, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return 0, &FieldMissingError{Field: path}
	}
	// encoding/json decodes every JSON number into float64 for interface values.
	f, ok := v.(float64)
	if !ok {
		return 0, &FieldTypeError{Field: path, Want: "number", Value: v}
	}
	return f, nil
}
