package providers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/i474232898/mumbai-flood-alert/internal/weather"
)

// Provider names accepted by New.
const (
	NameOpenWeather = "openweather"
	NameOpenMeteo   = "openmeteo"
	NameWeatherAPI  = "weatherapi"
)

// New builds the provider registered under name.
func New(name string, client *http.Client, opts Options) (weather.Provider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case NameOpenWeather:
		return NewOpenWeatherProvider(client, opts), nil
	case NameOpenMeteo:
		return NewOpenMeteoProvider(client, opts), nil
	case NameWeatherAPI:
		return NewWeatherAPIProvider(client, opts), nil
	default:
		return nil, fmt.Errorf("%w: %q", weather.ErrUnknownProvider, name)
	}
}

// RequiresKey reports whether the named provider needs an API key.
func RequiresKey(name string) bool {
	return strings.ToLower(strings.TrimSpace(name)) != NameOpenMeteo
}
