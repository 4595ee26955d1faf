package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sony/gobreaker"

	"github.com/i474232898/mumbai-flood-alert/internal/weather"
)

const openWeatherDefaultBaseURL = "https://api.openweathermap.org"

// OpenWeatherProvider implements the weather.Provider interface for OpenWeatherMap.
type OpenWeatherProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenWeatherProvider(client *http.Client, opts Options) *OpenWeatherProvider {
	return &OpenWeatherProvider{
		name:    NameOpenWeather,
		baseURL: strings.TrimRight(opts.baseURL(openWeatherDefaultBaseURL), "/"),
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: opts.backoff(),
		},
		circuit: newBreaker(NameOpenWeather),
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

// Fetch reads rain.1h and main.humidity from the current-weather endpoint.
func (p *OpenWeatherProvider) Fetch(ctx context.Context, loc weather.Location, apiKey string) (weather.Reading, error) {
	if strings.TrimSpace(apiKey) == "" {
		return weather.Reading{}, weather.NewFetchError(weather.KindConfig, p.name, 0, weather.ErrMissingAPIKey)
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("lat", strconv.FormatFloat(loc.Lat, 'f', 4, 64))
		values.Set("lon", strconv.FormatFloat(loc.Lon, 'f', 4, 64))
		values.Set("appid", apiKey)
		values.Set("units", "metric")

		u := fmt.Sprintf("%s/data/2.5/weather?%s", p.baseURL, values.Encode())
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.name, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return weather.Reading{}, err
	}
	defer resp.Body.Close()

	payload, err := decodeObject(p.name, resp.Body)
	if err != nil {
		return weather.Reading{}, err
	}

	return weather.Reading{
		Provider:   p.name,
		ObservedAt: unixAt(payload, "dt"),
		RainfallMM: rainfallAt(payload, "rain", "1h"),
		Humidity:   humidityAt(payload, "main", "humidity"),
	}, nil
}
