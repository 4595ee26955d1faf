package weather

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrMissingAPIKey   = errors.New("api key is not configured")
	ErrUnknownProvider = errors.New("unknown weather provider")
)

var providerTitles = map[string]string{
	"openweather": "OpenWeatherMap",
	"weatherapi":  "WeatherAPI",
	"openmeteo":   "Open-Meteo",
}

func providerTitle(name string) string {
	if t, ok := providerTitles[name]; ok {
		return t
	}
	return name
}

// ErrorKind classifies why a fetch failed.
type ErrorKind string

const (
	KindConfig      ErrorKind = "config"      // missing key or unknown provider
	KindNetwork     ErrorKind = "network"     // transport failure
	KindTimeout     ErrorKind = "timeout"     // per-attempt or request deadline
	KindStatus      ErrorKind = "status"      // non-2xx response
	KindDecode      ErrorKind = "decode"      // body is not a JSON object
	KindUnavailable ErrorKind = "unavailable" // circuit breaker open
)

// FetchError is the only error type returned by Service.Current.
type FetchError struct {
	Kind       ErrorKind
	Provider   string
	StatusCode int
	Retryable  bool
	Err        error
}

// NewFetchError builds a FetchError and derives Retryable from kind and status.
func NewFetchError(kind ErrorKind, provider string, status int, err error) *FetchError {
	return &FetchError{
		Kind:       kind,
		Provider:   provider,
		StatusCode: status,
		Retryable:  retryable(kind, status),
		Err:        err,
	}
}

func retryable(kind ErrorKind, status int) bool {
	switch kind {
	case KindTimeout, KindNetwork, KindUnavailable:
		return true
	case KindStatus:
		return status == http.StatusTooManyRequests || status >= 500
	default:
		return false
	}
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("%s: %s fetch failed", e.Provider, e.Kind)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Message is the text shown to dashboard users.
func (e *FetchError) Message() string {
	switch e.Kind {
	case KindConfig:
		if errors.Is(e.Err, ErrMissingAPIKey) {
			return fmt.Sprintf("Please enter %s API key", providerTitle(e.Provider))
		}
		if e.Err == nil {
			return "Configuration error"
		}
		return "Configuration error: " + e.Err.Error()
	case KindDecode:
		return "Unexpected API response format"
	case KindTimeout:
		return "Request error: the weather service did not respond in time"
	case KindUnavailable:
		return "Request error: the weather service is temporarily unavailable, try again shortly"
	case KindStatus:
		if e.StatusCode == http.StatusUnauthorized {
			return "Request error: the API key was rejected"
		}
		return fmt.Sprintf("Request error: weather service returned status %d", e.StatusCode)
	default:
		if e.Err != nil {
			return "Request error: " + e.Err.Error()
		}
		return "Request error: weather service unreachable"
	}
}

// AsFetchError unwraps err into a *FetchError.
func AsFetchError(err error) (*FetchError, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
