package weather

import (
	"context"
	"errors"
	"log/slog"
	"math"

	"github.com/jonboulle/clockwork"
)

// Service fetches the current reading for the configured location on demand.
// Nothing is cached: each call is one upstream fetch.
type Service struct {
	provider Provider
	location Location
	logger   *slog.Logger
	clock    clockwork.Clock
	recorder Recorder
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces the time source used for reading timestamps and durations.
func WithClock(c clockwork.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithRecorder attaches a metrics sink.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// NewService creates a new Service.
func NewService(provider Provider, loc Location, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		provider: provider,
		location: loc,
		logger:   logger.With("module", "weather"),
		clock:    clockwork.NewRealClock(),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location returns the monitored location.
func (s *Service) Location() Location {
	return s.location
}

// ProviderName returns the configured provider's name.
func (s *Service) ProviderName() string {
	if s.provider == nil {
		return ""
	}
	return s.provider.Name()
}

// Current fetches the latest reading. Any failure is returned as *FetchError.
func (s *Service) Current(ctx context.Context, apiKey string) (Reading, error) {
	if s.provider == nil {
		return Reading{}, NewFetchError(KindConfig, "", 0, ErrUnknownProvider)
	}
	name := s.provider.Name()
	start := s.clock.Now()

	r, err := s.provider.Fetch(ctx, s.location, apiKey)
	took := s.clock.Since(start)
	if err != nil {
		fe := toFetchError(ctx, name, err)
		s.recorder.ObserveFetch(name, string(fe.Kind), took)
		s.logger.Warn("weather fetch failed",
			"provider", name,
			"location", s.location.Key(),
			"kind", fe.Kind,
			"status", fe.StatusCode,
			"retryable", fe.Retryable,
			"error", fe.Err,
		)
		return Reading{}, fe
	}

	if r.Provider == "" {
		r.Provider = name
	}
	if r.ObservedAt.IsZero() {
		r.ObservedAt = s.clock.Now().UTC()
	}
	if r.RainfallMM < 0 || math.IsNaN(r.RainfallMM) {
		r.RainfallMM = 0
	}

	s.recorder.ObserveFetch(name, "success", took)
	s.recorder.ObserveReading(r)
	s.logger.Debug("weather fetched",
		"provider", name,
		"rainfall_mm", r.RainfallMM,
		"humidity", r.Humidity.String(),
		"took", took,
	)
	return r, nil
}

func toFetchError(ctx context.Context, provider string, err error) *FetchError {
	if fe, ok := AsFetchError(err); ok {
		return fe
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return NewFetchError(KindTimeout, provider, 0, err)
	default:
		return NewFetchError(KindNetwork, provider, 0, err)
	}
}
