package httpapi

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/i474232898/mumbai-flood-alert/internal/common"
	"github.com/i474232898/mumbai-flood-alert/internal/flood"
	"github.com/i474232898/mumbai-flood-alert/internal/store"
	"github.com/i474232898/mumbai-flood-alert/internal/weather"
)

const (
	pageTitle       = "🌧️ Mumbai Monsoon Flood Alert System"
	alertSentNotice = "Alert sent via SMS/WhatsApp to BMC ward offices!"
)

type languageOption struct {
	Code     string
	Name     string
	Selected bool
}

// pageData is everything index.html renders.
type pageData struct {
	Title    string
	Location weather.Location
	Provider string

	KeyRequired bool
	HasKey      bool
	SessionKey  string // masked
	KeyPrompt   string

	Reading *weather.Reading
	Risk    flood.RiskLevel

	FetchError string
	Retryable  bool
	FormError  string

	Languages []languageOption
	Alert     string
	AlertSent string

	Areas []flood.VulnerableArea
}

func (h *handlers) newPage(c *fiber.Ctx, lang flood.Language) *pageData {
	p := &pageData{
		Title:       pageTitle,
		Location:    h.svc.Location(),
		Provider:    h.svc.ProviderName(),
		KeyRequired: h.opts.KeyRequired,
		Areas:       flood.VulnerableAreas(),
	}
	for _, l := range flood.Languages() {
		p.Languages = append(p.Languages, languageOption{
			Code:     l.Code(),
			Name:     l.DisplayName(),
			Selected: l == lang,
		})
	}
	if sess, ok := h.session(c); ok && sess.HasKey() {
		p.SessionKey = common.Mask(sess.APIKey)
	}
	return p
}

// load fills the page with a fresh reading. It reports whether a reading is available.
func (h *handlers) load(c *fiber.Ctx, p *pageData) (assessment, bool) {
	key := h.resolveKey(c, false)
	p.HasKey = key != ""
	if h.opts.KeyRequired && !p.HasKey {
		fe := weather.NewFetchError(weather.KindConfig, p.Provider, 0, weather.ErrMissingAPIKey)
		p.KeyPrompt = fe.Message()
		return assessment{}, false
	}

	a, err := h.assess(c, key)
	if err != nil {
		p.FetchError, p.Retryable = describeFetchError(err)
		return assessment{}, false
	}
	p.Reading = &a.Reading
	p.Risk = a.Risk
	return a, true
}

func (h *handlers) render(c *fiber.Ctx, status int, p *pageData) error {
	buf, err := h.templates.Execute("index.html", p)
	if err != nil {
		h.logger.Error("template execution failed", "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, "failed to render page")
	}
	c.Type("html", "utf-8")
	return c.Status(status).Send(buf.Bytes())
}

// dashboard renders the page. A failed fetch is shown inline and still returns 200.
func (h *handlers) dashboard(c *fiber.Ctx) error {
	_, lang := flood.LocalizeOrDefault(flood.RiskLow, c.Query("lang"), h.opts.DefaultLanguage)
	p := h.newPage(c, lang)
	h.load(c, p)
	return h.render(c, fiber.StatusOK, p)
}

func (h *handlers) generateAlert(c *fiber.Ctx) error {
	var form languageForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid form body: "+err.Error())
	}

	lang, err := parseLanguage(form.Language)
	if err != nil {
		p := h.newPage(c, h.opts.DefaultLanguage)
		p.FormError = "Unsupported language: choose English, Marathi or Hindi"
		p.HasKey = h.resolveKey(c, false) != ""
		return h.render(c, fiber.StatusBadRequest, p)
	}

	p := h.newPage(c, lang)
	a, ok := h.load(c, p)
	if !ok {
		return h.render(c, fiber.StatusOK, p)
	}

	msg, err := h.localize(a.Risk, lang)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	p.Alert = msg
	p.AlertSent = alertSentNotice
	return h.render(c, fiber.StatusOK, p)
}

func (h *handlers) saveKey(c *fiber.Ctx) error {
	var form keyForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid form body: "+err.Error())
	}
	// Form values alias the request buffer, which fasthttp reuses.
	form.APIKey = utils.CopyString(strings.TrimSpace(form.APIKey))

	if err := validate.Struct(form); err != nil {
		p := h.newPage(c, h.opts.DefaultLanguage)
		p.FormError = "API key must not be empty"
		return h.render(c, fiber.StatusBadRequest, p)
	}
	if h.sessions == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "sessions are disabled")
	}

	sess, ok := h.session(c)
	if !ok {
		var err error
		sess, err = h.sessions.Create()
		if errors.Is(err, store.ErrCapacity) {
			return fiber.NewError(fiber.StatusServiceUnavailable, "too many active sessions, try again later")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to create session")
		}
	}
	if _, err := h.sessions.SetAPIKey(sess.ID, form.APIKey); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to store API key")
	}

	h.setSessionCookie(c, sess.ID)
	h.logger.Debug("api key stored in session")
	return c.Redirect("/", fiber.StatusSeeOther)
}

func (h *handlers) clearKey(c *fiber.Ctx) error {
	if id := c.Cookies(sessionCookie); id != "" && h.sessions != nil {
		h.sessions.Delete(id)
	}
	c.ClearCookie(sessionCookie)
	return c.Redirect("/", fiber.StatusSeeOther)
}

// describeFetchError returns the user-facing message for a fetch failure.
func describeFetchError(err error) (string, bool) {
	if fe, ok := weather.AsFetchError(err); ok {
		return fe.Message(), fe.Retryable
	}
	return "Request error: " + err.Error(), false
}
