package httpapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/mumbai-flood-alert/internal/flood"
	"github.com/i474232898/mumbai-flood-alert/internal/weather"
)

// fetchErrorStatus maps a fetch failure to the JSON API status code.
func fetchErrorStatus(fe *weather.FetchError) int {
	switch fe.Kind {
	case weather.KindConfig:
		return fiber.StatusBadRequest
	case weather.KindTimeout:
		return fiber.StatusGatewayTimeout
	default:
		return fiber.StatusBadGateway
	}
}

func writeFetchError(c *fiber.Ctx, err error) error {
	fe, ok := weather.AsFetchError(err)
	if !ok {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	return c.Status(fetchErrorStatus(fe)).JSON(fiber.Map{
		"error":     true,
		"kind":      fe.Kind,
		"retryable": fe.Retryable,
		"message":   fe.Message(),
	})
}

func (h *handlers) currentWeather(c *fiber.Ctx) error {
	a, err := h.assess(c, h.resolveKey(c, true))
	if err != nil {
		return writeFetchError(c, err)
	}
	return c.JSON(fiber.Map{
		"location": h.svc.Location(),
		"reading":  a.Reading,
		"risk":     a.Risk,
	})
}

func (h *handlers) alert(c *fiber.Ctx) error {
	lang := h.opts.DefaultLanguage
	if raw := c.Query("lang"); raw != "" {
		l, err := parseLanguage(raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "unsupported language: use one of en, mr, hi")
		}
		lang = l
	}

	a, err := h.assess(c, h.resolveKey(c, true))
	if err != nil {
		return writeFetchError(c, err)
	}

	msg, err := h.localize(a.Risk, lang)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{
		"risk":     a.Risk,
		"language": lang,
		"message":  msg,
		"reading":  a.Reading,
	})
}

func (h *handlers) catalog(c *fiber.Ctx) error {
	all := flood.Catalog()
	out := make(map[string]map[string]string, len(flood.Languages()))
	for _, lang := range flood.Languages() {
		byRisk := make(map[string]string, len(flood.RiskLevels()))
		for _, risk := range flood.RiskLevels() {
			byRisk[risk.String()] = all[lang][risk]
		}
		out[lang.Code()] = byRisk
	}
	return c.JSON(out)
}

type geoJSONGeometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

type geoJSONFeature struct {
	Type       string          `json:"type"`
	Geometry   geoJSONGeometry `json:"geometry"`
	Properties map[string]any  `json:"properties"`
}

type geoJSONCollection struct {
	Type     string           `json:"type"`
	Features []geoJSONFeature `json:"features"`
}

// areas serves the vulnerable areas as a GeoJSON FeatureCollection ([lon, lat] order).
func (h *handlers) areas(c *fiber.Ctx) error {
	fc := geoJSONCollection{Type: "FeatureCollection", Features: []geoJSONFeature{}}
	for _, a := range flood.VulnerableAreas() {
		fc.Features = append(fc.Features, geoJSONFeature{
			Type: "Feature",
			Geometry: geoJSONGeometry{
				Type:        "Point",
				Coordinates: [2]float64{a.Lon, a.Lat},
			},
			Properties: map[string]any{
				"name": a.Name,
				"risk": a.Risk,
			},
		})
	}
	return c.JSON(fc, "application/geo+json")
}
