package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sony/gobreaker"

	"github.com/i474232898/mumbai-flood-alert/internal/weather"
)

const weatherAPIDefaultBaseURL = "https://api.weatherapi.com"

// WeatherAPIProvider implements the weather.Provider interface for WeatherAPI.com.
type WeatherAPIProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewWeatherAPIProvider(client *http.Client, opts Options) *WeatherAPIProvider {
	return &WeatherAPIProvider{
		name:    NameWeatherAPI,
		baseURL: strings.TrimRight(opts.baseURL(weatherAPIDefaultBaseURL), "/"),
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: opts.backoff(),
		},
		circuit: newBreaker(NameWeatherAPI),
	}
}

func (p *WeatherAPIProvider) Name() string {
	return p.name
}

func (p *WeatherAPIProvider) Fetch(ctx context.Context, loc weather.Location, apiKey string) (weather.Reading, error) {
	if strings.TrimSpace(apiKey) == "" {
		return weather.Reading{}, weather.NewFetchError(weather.KindConfig, p.name, 0, weather.ErrMissingAPIKey)
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("key", apiKey)
		// WeatherAPI uses "q" for location; "lat,lon" avoids name ambiguity.
		values.Set("q", fmt.Sprintf("%.4f,%.4f", loc.Lat, loc.Lon))

		u := fmt.Sprintf("%s/v1/current.json?%s", p.baseURL, values.Encode())
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
		ObservedAt: unixAt(payload, "current", "last_updated_epoch"),
		RainfallMM: rainfallAt(payload, "current", "precip_mm"),
		Humidity:   humidityAt(payload, "current", "humidity"),
	}, nil
}
