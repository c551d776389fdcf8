package weather

import (
	"encoding/json"
	"errors"
)

// ErrIncompleteData means the upstream answered but without temperature or wind.
var ErrIncompleteData = errors.New("weather: incomplete current weather data")

// forecastResponse is the subset of the Open-Meteo forecast payload we read.
type forecastResponse struct {
	CurrentWeather *struct {
		Temperature json.Number `json:"temperature"`
		WindSpeed   json.Number `json:"windspeed"`
	} `json:"current_weather"`
}

// Conditions is the current weather at the configured location. Numbers
// keep the upstream spelling, so 28.0 stays "28.0".
type Conditions struct {
	City        string
	Temperature json.Number // °C
	WindSpeed   json.Number // km/h
}
