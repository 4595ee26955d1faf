package weather

import (
	"context"
	"time"
)

// Provider abstracts a current-conditions source (e.g. OpenWeatherMap, WeatherAPI, Open-Meteo).
// Implementations return *FetchError on failure and never log the API key.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, loc Location, apiKey string) (Reading, error)
}

// Recorder receives fetch outcomes. observability.Metrics satisfies it.
type Recorder interface {
	ObserveFetch(provider, outcome string, took time.Duration)
	ObserveReading(r Reading)
}

type nopRecorder struct{}

func (nopRecorder) ObserveFetch(string, string, time.Duration) {}
func (nopRecorder) ObserveReading(Reading)                     {}
