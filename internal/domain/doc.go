// Package domain models the current-conditions payload returned by the
// Open-Meteo forecast API and the reading this service persists from it.
//
// # Data Source
//
// Readings come from the forecast endpoint queried with current_weather=true:
//
//	GET https://api.open-meteo.com/v1/forecast?latitude=51.5074&longitude=-0.1278&current_weather=true
//
// The response is a JSON object. Only the current_weather section is used:
//
//	{
//	  "latitude": 51.5,
//	  "longitude": -0.12,
//	  "current_weather": {
//	    "time": "2024-01-01T00:00",
//	    "temperature": 18.5,
//	    "windspeed": 12.0,
//	    "winddirection": 240,
//	    "weathercode": 3
//	  }
//	}
//
// # Units
//
// Open-Meteo defaults apply: temperature in degrees Celsius and windspeed in
// km/h. Values are stored exactly as received; no unit conversion happens.
//
// # Projection
//
// [ProjectReading] keeps temperature and windspeed and drops everything else.
// Absent or null fields fail with [FieldMissingError]; values that are not
// JSON numbers fail with [FieldTypeError]. Neither case is skipped silently,
// so a malformed payload never produces a row.
package domain
