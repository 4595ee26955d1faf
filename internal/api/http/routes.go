package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/mumbai-flood-alert/internal/common"
	"github.com/i474232898/mumbai-flood-alert/internal/flood"
	"github.com/i474232898/mumbai-flood-alert/internal/store"
	"github.com/i474232898/mumbai-flood-alert/internal/weather"
)

var validate = validator.New()

const (
	sessionCookie = "flood_session"
	apiKeyHeader  = "X-API-Key"
)

// WeatherService is the part of weather.Service the handlers use.
type WeatherService interface {
	Current(ctx context.Context, apiKey string) (weather.Reading, error)
	Location() weather.Location
	ProviderName() string
}

// SessionStore is the part of store.SessionStore the handlers use.
type SessionStore interface {
	Create() (store.Session, error)
	Get(id string) (store.Session, error)
	SetAPIKey(id, key string) (store.Session, error)
	Delete(id string)
}

// Recorder receives risk and alert events. observability.Metrics satisfies it.
type Recorder interface {
	ObserveRisk(risk flood.RiskLevel)
	ObserveAlert(lang flood.Language, risk flood.RiskLevel)
}

// Options configures the routes.
type Options struct {
	DefaultAPIKey   string
	DefaultLanguage flood.Language
	KeyRequired     bool
	CookieSecure    bool
	SessionTTL      time.Duration
	// FetchTimeout bounds one dashboard fetch including retries. Zero means no extra bound.
	FetchTimeout time.Duration
	TemplatesDir string
	Recorder     Recorder
	Logger       *slog.Logger
}

type handlers struct {
	svc       WeatherService
	sessions  SessionStore
	templates *TemplateManager
	opts      Options
	logger    *slog.Logger
}

// RegisterRoutes wires the dashboard and JSON handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, svc WeatherService, sessions SessionStore, opts Options) (*TemplateManager, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	logger := opts.Logger.With("module", "http")

	tm, err := NewTemplateManager(logger, opts.TemplatesDir)
	if err != nil {
		return nil, err
	}

	h := &handlers{
		svc:       svc,
		sessions:  sessions,
		templates: tm,
		opts:      opts,
		logger:    logger,
	}

	app.Get("/", h.dashboard)
	app.Post("/session/key", h.saveKey)
	app.Post("/session/clear", h.clearKey)
	app.Post("/alerts", h.generateAlert)

	v1 := app.Group("/api/v1")
	v1.Get("/weather/current", h.currentWeather)
	v1.Get("/alerts", h.alert)
	v1.Get("/alerts/catalog", h.catalog)
	v1.Get("/areas", h.areas)

	return tm, nil
}

// ErrorHandler renders every unhandled error as JSON.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// languageForm holds the alert language submitted by the dashboard or API.
type languageForm struct {
	Language string `form:"language" validate:"required,oneof=en mr hi"`
}

// keyForm holds the API key submitted by the dashboard.
type keyForm struct {
	APIKey string `form:"api_key" validate:"required,max=256"`
}

func (h *handlers) fetchContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	ctx := c.UserContext()
	if h.opts.FetchTimeout > 0 {
		return context.WithTimeout(ctx, h.opts.FetchTimeout)
	}
	return context.WithCancel(ctx)
}

// session returns the visitor's session, if the cookie names a live one.
// The cookie is reissued so its lifetime slides with the session.
func (h *handlers) session(c *fiber.Ctx) (store.Session, bool) {
	id := c.Cookies(sessionCookie)
	if id == "" || h.sessions == nil {
		return store.Session{}, false
	}
	sess, err := h.sessions.Get(id)
	if err != nil {
		return store.Session{}, false
	}
	h.setSessionCookie(c, sess.ID)
	return sess, true
}

// resolveKey picks the API key: header (API only), then session, then configured default.
func (h *handlers) resolveKey(c *fiber.Ctx, allowHeader bool) string {
	var header string
	if allowHeader {
		header = c.Get(apiKeyHeader)
	}
	sess, _ := h.session(c)
	return common.FirstNonEmpty(header, sess.APIKey, h.opts.DefaultAPIKey)
}

func (h *handlers) setSessionCookie(c *fiber.Ctx, id string) {
	cookie := &fiber.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HTTPOnly: true,
		Secure:   h.opts.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
	if h.opts.SessionTTL > 0 {
		cookie.MaxAge = int(h.opts.SessionTTL.Seconds())
	}
	c.Cookie(cookie)
}

// assessment is the result of one fetch-classify pass.
type assessment struct {
	Reading weather.Reading
	Risk    flood.RiskLevel
}

func (h *handlers) assess(c *fiber.Ctx, apiKey string) (assessment, error) {
	ctx, cancel := h.fetchContext(c)
	defer cancel()

	r, err := h.svc.Current(ctx, apiKey)
	if err != nil {
		return assessment{}, err
	}
	risk := flood.Classify(r.RainfallMM)
	if h.opts.Recorder != nil {
		h.opts.Recorder.ObserveRisk(risk)
	}
	return assessment{Reading: r, Risk: risk}, nil
}

func (h *handlers) localize(risk flood.RiskLevel, lang flood.Language) (string, error) {
	msg, err := flood.Localize(risk, lang)
	if err != nil {
		return "", err
	}
	if h.opts.Recorder != nil {
		h.opts.Recorder.ObserveAlert(lang, risk)
	}
	h.logger.Info("alert generated", "risk", risk, "language", lang.Code())
	return msg, nil
}

func parseLanguage(raw string) (flood.Language, error) {
	form := languageForm{Language: strings.ToLower(strings.TrimSpace(raw))}
	if err := validate.Struct(form); err != nil {
		return flood.LangEnglish, flood.ErrUnsupportedLanguage
	}
	return flood.ParseLanguage(form.Language)
}
