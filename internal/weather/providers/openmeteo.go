package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/mumbai-flood-alert/internal/weather"
)

const (
	openMeteoDefaultBaseURL = "https://api.open-meteo.com"
	openMeteoTimeLayout     = "2006-01-02T15:04"
)

// OpenMeteoProvider implements the weather.Provider interface for Open-Meteo.
// It needs no API key.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenMeteoProvider(client *http.Client, opts Options) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		name:    NameOpenMeteo,
		baseURL: strings.TrimRight(opts.baseURL(openMeteoDefaultBaseURL), "/"),
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: opts.backoff(),
		},
		circuit: newBreaker(NameOpenMeteo),
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

// Fetch ignores apiKey.
func (p *OpenMeteoProvider) Fetch(ctx context.Context, loc weather.Location, _ string) (weather.Reading, error) {
	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", strconv.FormatFloat(loc.Lat, 'f', 4, 64))
		values.Set("longitude", strconv.FormatFloat(loc.Lon, 'f', 4, 64))
		values.Set("current", "precipitation,relative_humidity_2m")
		values.Set("timezone", "UTC")

		u := fmt.Sprintf("%s/v1/forecast?%s", p.baseURL, values.Encode())
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

	var observed time.Time
	if s, ok := stringAt(payload, "current", "time"); ok {
		if ts, err := time.Parse(openMeteoTimeLayout, s); err == nil {
			observed = ts.UTC()
		}
	}

	return weather.Reading{
		Provider:   p.name,
		ObservedAt: observed,
		RainfallMM: rainfallAt(payload, "current", "precipitation"),
		Humidity:   humidityAt(payload, "current", "relative_humidity_2m"),
	}, nil
}
