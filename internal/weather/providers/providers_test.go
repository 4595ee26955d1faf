package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/mumbai-flood-alert/internal/weather"
)

var mumbai = weather.Location{Name: "Mumbai", Lat: 19.0760, Lon: 72.8777}

func fastOptions(baseURL string, retries int) Options {
	return Options{
		BaseURL: baseURL,
		Backoff: BackoffConfig{
			MaxRetries:      retries,
			InitialInterval: time.Millisecond,
			MaxInterval:     5 * time.Millisecond,
		},
	}
}

func jsonServer(t *testing.T, status int, body string) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func requireFetchError(t *testing.T, err error, kind weather.ErrorKind) *weather.FetchError {
	t.Helper()
	require.Error(t, err)
	fe, ok := weather.AsFetchError(err)
	require.True(t, ok, "expected *FetchError, got %T", err)
	assert.Equal(t, kind, fe.Kind)
	return fe
}

func TestOpenWeatherParsesReading(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		assert.Equal(t, "/data/2.5/weather", r.URL.Path)
		_, _ = w.Write([]byte(`{"dt":1719900000,"main":{"humidity":91},"rain":{"1h":62.5}}`))
	}))
	defer srv.Close()

	p := NewOpenWeatherProvider(srv.Client(), fastOptions(srv.URL, 0))
	r, err := p.Fetch(context.Background(), mumbai, "secret")

	require.NoError(t, err)
	assert.Equal(t, 62.5, r.RainfallMM)
	assert.Equal(t, weather.HumidityOf(91), r.Humidity)
	assert.Equal(t, time.Unix(1719900000, 0).UTC(), r.ObservedAt)
	assert.Equal(t, NameOpenWeather, r.Provider)
	assert.Contains(t, gotQuery, "appid=secret")
	assert.Contains(t, gotQuery, "lat=19.0760")
	assert.Contains(t, gotQuery, "units=metric")
}

func TestOpenWeatherDefaultsMissingFields(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no rain key", `{"main":{"humidity":80}}`},
		{"rain without 1h", `{"rain":{"3h":12},"main":{"humidity":80}}`},
		{"null rain", `{"rain":null,"main":{"humidity":80}}`},
		{"string rain", `{"rain":{"1h":"heavy"},"main":{"humidity":80}}`},
		{"negative rain", `{"rain":{"1h":-4},"main":{"humidity":80}}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv, _ := jsonServer(t, http.StatusOK, tc.body)
			p := NewOpenWeatherProvider(srv.Client(), fastOptions(srv.URL, 0))

			r, err := p.Fetch(context.Background(), mumbai, "k")
			require.NoError(t, err)
			assert.Equal(t, 0.0, r.RainfallMM)
			assert.Equal(t, weather.HumidityOf(80), r.Humidity)
		})
	}
}

func TestOpenWeatherUnknownHumidity(t *testing.T) {
	for _, body := range []string{`{"rain":{"1h":3}}`, `{"main":{"humidity":140}}`, `{"main":[]}`} {
		srv, _ := jsonServer(t, http.StatusOK, body)
		p := NewOpenWeatherProvider(srv.Client(), fastOptions(srv.URL, 0))

		r, err := p.Fetch(context.Background(), mumbai, "k")
		require.NoError(t, err, body)
		assert.False(t, r.Humidity.Known, body)
		assert.Equal(t, "unknown", r.Humidity.String())
	}
}

func TestOpenWeatherRequiresKey(t *testing.T) {
	srv, hits := jsonServer(t, http.StatusOK, `{}`)
	p := NewOpenWeatherProvider(srv.Client(), fastOptions(srv.URL, 0))

	_, err := p.Fetch(context.Background(), mumbai, "  ")

	fe := requireFetchError(t, err, weather.KindConfig)
	assert.ErrorIs(t, fe, weather.ErrMissingAPIKey)
	assert.Equal(t, "Please enter OpenWeatherMap API key", fe.Message())
	assert.Zero(t, atomic.LoadInt32(hits))
}

func TestDecodeErrors(t *testing.T) {
	for _, body := range []string{`not json`, `[1,2,3]`, `"text"`} {
		srv, _ := jsonServer(t, http.StatusOK, body)
		p := NewOpenWeatherProvider(srv.Client(), fastOptions(srv.URL, 0))

		_, err := p.Fetch(context.Background(), mumbai, "k")
		fe := requireFetchError(t, err, weather.KindDecode)
		assert.False(t, fe.Retryable)
		assert.Equal(t, "Unexpected API response format", fe.Message())
	}
}

func TestServerErrorsAreRetried(t *testing.T) {
	srv, hits := jsonServer(t, http.StatusBadGateway, `{}`)
	p := NewOpenWeatherProvider(srv.Client(), fastOptions(srv.URL, 2))

	_, err := p.Fetch(context.Background(), mumbai, "k")

	fe := requireFetchError(t, err, weather.KindStatus)
	assert.Equal(t, http.StatusBadGateway, fe.StatusCode)
	assert.True(t, fe.Retryable)
	assert.Equal(t, int32(3), atomic.LoadInt32(hits))
}

func TestRetryRecoversAfterTransientFailure(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"rain":{"1h":30}}`))
	}))
	defer srv.Close()

	p := NewOpenWeatherProvider(srv.Client(), fastOptions(srv.URL, 2))
	r, err := p.Fetch(context.Background(), mumbai, "k")

	require.NoError(t, err)
	assert.Equal(t, 30.0, r.RainfallMM)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	srv, hits := jsonServer(t, http.StatusUnauthorized, `{"cod":401}`)
	p := NewOpenWeatherProvider(srv.Client(), fastOptions(srv.URL, 3))

	_, err := p.Fetch(context.Background(), mumbai, "bad")

	fe := requireFetchError(t, err, weather.KindStatus)
	assert.False(t, fe.Retryable)
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))
	assert.Equal(t, "Request error: the API key was rejected", fe.Message())
}

func TestBadKeyDoesNotOpenCircuit(t *testing.T) {
	srv, hits := jsonServer(t, http.StatusUnauthorized, `{}`)
	p := NewOpenWeatherProvider(srv.Client(), fastOptions(srv.URL, 0))

	for i := 0; i < 8; i++ {
		_, err := p.Fetch(context.Background(), mumbai, "bad")
		requireFetchError(t, err, weather.KindStatus)
	}
	assert.Equal(t, int32(8), atomic.LoadInt32(hits))
}

func TestCircuitOpensAfterRepeatedFailures(t *testing.T) {
	srv, hits := jsonServer(t, http.StatusServiceUnavailable, `{}`)
	p := NewOpenWeatherProvider(srv.Client(), fastOptions(srv.URL, 0))

	for i := 0; i < 5; i++ {
		_, err := p.Fetch(context.Background(), mumbai, "k")
		requireFetchError(t, err, weather.KindStatus)
	}

	_, err := p.Fetch(context.Background(), mumbai, "k")
	fe := requireFetchError(t, err, weather.KindUnavailable)
	assert.True(t, fe.Retryable)
	assert.Equal(t, int32(5), atomic.LoadInt32(hits))
}

func TestNetworkFailureIsTagged(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p := NewOpenWeatherProvider(&http.Client{Timeout: time.Second}, fastOptions(url, 1))
	_, err := p.Fetch(context.Background(), mumbai, "k")

	fe := requireFetchError(t, err, weather.KindNetwork)
	assert.True(t, fe.Retryable)
	assert.Contains(t, fe.Message(), "Request error: ")
	assert.NotContains(t, fe.Error(), "appid=k&")
}

func TestTimeoutIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	client := &http.Client{Timeout: 20 * time.Millisecond}
	p := NewOpenWeatherProvider(client, fastOptions(srv.URL, 0))

	_, err := p.Fetch(context.Background(), mumbai, "k")

	fe := requireFetchError(t, err, weather.KindTimeout)
	assert.True(t, fe.Retryable)
}

func TestContextDeadlineIsTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	p := NewOpenWeatherProvider(srv.Client(), fastOptions(srv.URL, 3))
	_, err := p.Fetch(ctx, mumbai, "k")

	requireFetchError(t, err, weather.KindTimeout)
}

func TestOpenMeteoParsesReading(t *testing.T) {
	var gotPath, gotCurrent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotCurrent = r.URL.Query().Get("current")
		_, _ = w.Write([]byte(`{"current":{"time":"2024-07-02T06:00","precipitation":27.4,"relative_humidity_2m":88}}`))
	}))
	defer srv.Close()

	p := NewOpenMeteoProvider(srv.Client(), fastOptions(srv.URL, 0))
	r, err := p.Fetch(context.Background(), mumbai, "")

	require.NoError(t, err)
	assert.Equal(t, "/v1/forecast", gotPath)
	assert.Equal(t, "precipitation,relative_humidity_2m", gotCurrent)
	assert.Equal(t, 27.4, r.RainfallMM)
	assert.Equal(t, weather.HumidityOf(88), r.Humidity)
	assert.Equal(t, time.Date(2024, 7, 2, 6, 0, 0, 0, time.UTC), r.ObservedAt)
}

func TestWeatherAPIParsesReading(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("key")
		assert.Equal(t, "/v1/current.json", r.URL.Path)
		_, _ = w.Write([]byte(`{"current":{"precip_mm":55,"humidity":97,"last_updated_epoch":1719900000}}`))
	}))
	defer srv.Close()

	p := NewWeatherAPIProvider(srv.Client(), fastOptions(srv.URL, 0))
	r, err := p.Fetch(context.Background(), mumbai, "wk")

	require.NoError(t, err)
	assert.Equal(t, "wk", gotKey)
	assert.Equal(t, 55.0, r.RainfallMM)
	assert.Equal(t, weather.HumidityOf(97), r.Humidity)
}

func TestNew(t *testing.T) {
	for _, name := range []string{NameOpenWeather, "OpenMeteo", NameWeatherAPI} {
		p, err := New(name, http.DefaultClient, Options{})
		require.NoError(t, err)
		assert.NotEmpty(t, p.Name())
	}

	_, err := New("darksky", http.DefaultClient, Options{})
	assert.ErrorIs(t, err, weather.ErrUnknownProvider)

	assert.False(t, RequiresKey(NameOpenMeteo))
	assert.True(t, RequiresKey(NameOpenWeather))
}

func TestOptionsBackoffDefaults(t *testing.T) {
	b := Options{}.backoff()
	assert.Equal(t, DefaultBackoff, b)

	b = Options{Backoff: BackoffConfig{MaxRetries: 4}}.backoff()
	assert.Equal(t, 4, b.MaxRetries)
	assert.Equal(t, DefaultBackoff.InitialInterval, b.InitialInterval)
}
