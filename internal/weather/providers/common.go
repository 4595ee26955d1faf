package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/mumbai-flood-alert/internal/weather"
)

// maxBodyBytes caps how much of an upstream body is read.
const maxBodyBytes = 1 << 20

// BackoffConfig controls exponential backoff behaviour.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultBackoff is used when Options.Backoff is left zero.
var DefaultBackoff = BackoffConfig{
	MaxRetries:      2,
	InitialInterval: 500 * time.Millisecond,
	MaxInterval:     5 * time.Second,
}

// HTTPClientConfig bundles HTTP client and resilience settings.
type HTTPClientConfig struct {
	Client  *http.Client
	Backoff BackoffConfig
}

// Options are shared by all provider constructors.
type Options struct {
	// BaseURL overrides the provider endpoint, mainly for tests.
	BaseURL string
	Backoff BackoffConfig
}

func (o Options) backoff() BackoffConfig {
	if o.Backoff.InitialInterval <= 0 {
		b := DefaultBackoff
		if o.Backoff.MaxRetries > 0 {
			b.MaxRetries = o.Backoff.MaxRetries
		}
		return b
	}
	return o.Backoff
}

func (o Options) baseURL(def string) string {
	if o.BaseURL != "" {
		return o.BaseURL
	}
	return def
}

var (
	errNoHTTPClient  = errors.New("http client not configured")
	errInvalidConfig = errors.New("invalid backoff configuration")
	errNotObject     = errors.New("response body is not a JSON object")
)

// newBreaker trips after five consecutive failures. Client errors other than 429
// count as successes so a bad key cannot open the circuit for everyone.
func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    1 * time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var fe *weather.FetchError
			return errors.As(err, &fe) && fe.Kind == weather.KindStatus && !fe.Retryable
		},
	})
}

// doRequestWithResilience executes the HTTP request with retries, exponential backoff,
// and a circuit breaker. Every error it returns is a *weather.FetchError.
func doRequestWithResilience(
	ctx context.Context,
	provider string,
	cfg HTTPClientConfig,
	cb *gobreaker.CircuitBreaker,
	buildRequest func(ctx context.Context) (*http.Request, error),
) (*http.Response, error) {
	if cfg.Client == nil {
		return nil, weather.NewFetchError(weather.KindConfig, provider, 0, errNoHTTPClient)
	}
	if cfg.Backoff.MaxRetries < 0 || cfg.Backoff.InitialInterval <= 0 {
		return nil, weather.NewFetchError(weather.KindConfig, provider, 0, errInvalidConfig)
	}

	var attempt int
	for {
		if err := ctx.Err(); err != nil {
			return nil, contextError(provider, err)
		}

		req, err := buildRequest(ctx)
		if err != nil {
			return nil, weather.NewFetchError(weather.KindConfig, provider, 0, err)
		}

		result, err := cb.Execute(func() (interface{}, error) {
			resp, execErr := cfg.Client.Do(req)
			if execErr != nil {
				return nil, transportError(ctx, provider, execErr)
			}
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				drainAndClose(resp.Body)
				return nil, weather.NewFetchError(weather.KindStatus, provider, resp.StatusCode,
					fmt.Errorf("unexpected status code %d", resp.StatusCode))
			}
			return resp, nil
		})
		if err == nil {
			resp, ok := result.(*http.Response)
			if !ok {
				return nil, weather.NewFetchError(weather.KindNetwork, provider, 0,
					fmt.Errorf("unexpected result type from circuit breaker"))
			}
			return resp, nil
		}

		// If circuit is open, propagate immediately.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, weather.NewFetchError(weather.KindUnavailable, provider, 0, err)
		}

		fe, ok := weather.AsFetchError(err)
		if !ok {
			fe = weather.NewFetchError(weather.KindNetwork, provider, 0, err)
		}
		if !fe.Retryable || attempt >= cfg.Backoff.MaxRetries {
			return nil, fe
		}

		delay := cfg.Backoff.InitialInterval * time.Duration(math.Pow(2, float64(attempt)))
		if delay > cfg.Backoff.MaxInterval && cfg.Backoff.MaxInterval > 0 {
			delay = cfg.Backoff.MaxInterval
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, contextError(provider, ctx.Err())
		case <-timer.C:
		}

		attempt++
	}
}

func contextError(provider string, err error) *weather.FetchError {
	if errors.Is(err, context.DeadlineExceeded) {
		return weather.NewFetchError(weather.KindTimeout, provider, 0, err)
	}
	return weather.NewFetchError(weather.KindNetwork, provider, 0, err)
}

func transportError(ctx context.Context, provider string, err error) *weather.FetchError {
	var ne net.Error
	timeout := errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout())

	// url.Error embeds the full request URL, query key included.
	var ue *url.Error
	if errors.As(err, &ue) {
		err = fmt.Errorf("%s request failed: %w", ue.Op, ue.Err)
	}

	if timeout {
		return weather.NewFetchError(weather.KindTimeout, provider, 0, err)
	}
	if ctx.Err() != nil {
		return contextError(provider, ctx.Err())
	}
	return weather.NewFetchError(weather.KindNetwork, provider, 0, err)
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, maxBodyBytes))
	_ = body.Close()
}

// decodeObject reads the body as a JSON object. Numbers stay as json.Number so
// numberAt can accept both integers and floats.
func decodeObject(provider string, body io.Reader) (map[string]any, error) {
	dec := json.NewDecoder(io.LimitReader(body, maxBodyBytes))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, weather.NewFetchError(weather.KindDecode, provider, 0, err)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, weather.NewFetchError(weather.KindDecode, provider, 0, errNotObject)
	}
	return obj, nil
}

// numberAt walks nested objects along path. A missing key, null or non-numeric
// value reports false.
func numberAt(obj map[string]any, path ...string) (float64, bool) {
	var cur any = obj
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return 0, false
		}
		if cur, ok = m[key]; !ok {
			return 0, false
		}
	}
	n, ok := cur.(json.Number)
	if !ok {
		return 0, false
	}
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func stringAt(obj map[string]any, path ...string) (string, bool) {
	if len(path) == 0 {
		return "", false
	}
	parent := obj
	for _, key := range path[:len(path)-1] {
		m, ok := parent[key].(map[string]any)
		if !ok {
			return "", false
		}
		parent = m
	}
	s, ok := parent[path[len(path)-1]].(string)
	return s, ok
}

// rainfallAt returns the rainfall at path, 0 when missing or negative.
func rainfallAt(obj map[string]any, path ...string) float64 {
	mm, ok := numberAt(obj, path...)
	if !ok || mm < 0 {
		return 0
	}
	return mm
}

// humidityAt returns the humidity at path, unknown when missing or outside 0..100.
func humidityAt(obj map[string]any, path ...string) weather.Humidity {
	pct, ok := numberAt(obj, path...)
	if !ok || pct < 0 || pct > 100 {
		return weather.Humidity{}
	}
	return weather.HumidityOf(pct)
}

func unixAt(obj map[string]any, path ...string) time.Time {
	sec, ok := numberAt(obj, path...)
	if !ok || sec <= 0 {
		return time.Time{}
	}
	return time.Unix(int64(sec), 0).UTC()
}
