package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/i474232898/mumbai-flood-alert/internal/weather"
	"github.com/i474232898/mumbai-flood-alert/internal/weather/providers"
)

type AppConfig struct {
	Port     string `validate:"required,numeric"`
	LogLevel string `validate:"oneof=debug info warn warning error"`

	// Provider selects the upstream weather source. ProviderBaseURL overrides
	// the selected provider's endpoint.
	Provider          string `validate:"oneof=openweather openmeteo weatherapi"`
	OpenWeatherAPIKey string
	WeatherAPIKey     string
	ProviderBaseURL   string `validate:"omitempty,url"`

	Location weather.Location

	HTTPTimeout     time.Duration `validate:"gt=0"`
	FetchMaxRetries int           `validate:"gte=0,lte=10"`

	DefaultLanguage string `validate:"oneof=en mr hi"`

	SessionTTL           time.Duration `validate:"gt=0"`
	SessionMax           int           `validate:"gte=0"`
	SessionPurgeInterval time.Duration `validate:"gt=0"`
	CookieSecure         bool

	// TemplatesDir, when set, serves templates from disk and reloads them on change.
	TemplatesDir string
}

// Load reads configuration from environment with sensible defaults.
// A .env file in the working directory is loaded first when present.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Info("could not load .env file", "error", err)
	}
	return FromEnv()
}

// FromEnv builds the configuration from the process environment only.
func FromEnv() (*AppConfig, error) {
	cfg := &AppConfig{
		Port:              getenvDefault("PORT", "8080"),
		LogLevel:          strings.ToLower(getenvDefault("LOG_LEVEL", "info")),
		Provider:          strings.ToLower(getenvDefault("WEATHER_PROVIDER", "openweather")),
		OpenWeatherAPIKey: os.Getenv("OPENWEATHER_API_KEY"),
		WeatherAPIKey:     os.Getenv("WEATHERAPI_API_KEY"),
		ProviderBaseURL:   os.Getenv("WEATHER_BASE_URL"),
		FetchMaxRetries:   getenvInt("FETCH_MAX_RETRIES", 2),
		DefaultLanguage:   strings.ToLower(getenvDefault("DEFAULT_LANGUAGE", "en")),
		SessionMax:        getenvInt("SESSION_MAX", 1000),
		CookieSecure:      getenvBool("COOKIE_SECURE", false),
		TemplatesDir:      os.Getenv("TEMPLATES_DIR"),
	}

	var err error
	if cfg.Location, err = loadLocation(); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = getenvDuration("SESSION_TTL", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.SessionPurgeInterval, err = getenvDuration("SESSION_PURGE_INTERVAL", 5*time.Minute); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks struct tags, including the nested location.
func (c *AppConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// DefaultAPIKey returns the configured key for the selected provider.
func (c *AppConfig) DefaultAPIKey() string {
	switch c.Provider {
	case providers.NameWeatherAPI:
		return c.WeatherAPIKey
	case providers.NameOpenWeather:
		return c.OpenWeatherAPIKey
	default:
		return ""
	}
}

// KeyRequired reports whether the selected provider needs an API key.
func (c *AppConfig) KeyRequired() bool {
	return providers.RequiresKey(c.Provider)
}

// Addr returns the listen address for fiber.
func (c *AppConfig) Addr() string {
	return ":" + c.Port
}

func loadLocation() (weather.Location, error) {
	lat, err := getenvFloat("LOCATION_LAT", 19.0760)
	if err != nil {
		return weather.Location{}, err
	}
	lon, err := getenvFloat("LOCATION_LON", 72.8777)
	if err != nil {
		return weather.Location{}, err
	}
	return weather.Location{
		Name: getenvDefault("LOCATION_NAME", "Mumbai"),
		Lat:  lat,
		Lon:  lon,
	}, nil
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getenvFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
