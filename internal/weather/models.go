package weather

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Location is the fixed point the dashboard monitors.
type Location struct {
	Name string  `json:"name" validate:"required"`
	Lat  float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon  float64 `json:"lon" validate:"gte=-180,lte=180"`
}

// Key returns a canonical string key for logs and metric labels.
func (l Location) Key() string {
	return fmt.Sprintf("%s:%.4f,%.4f", l.Name, l.Lat, l.Lon)
}

// Humidity is a relative humidity percentage that may be missing from the
// upstream payload. The zero value is unknown.
type Humidity struct {
	Percent float64
	Known   bool
}

// HumidityOf returns a known humidity value.
func HumidityOf(pct float64) Humidity {
	return Humidity{Percent: pct, Known: true}
}

// String renders the value without a unit, "unknown" when missing.
func (h Humidity) String() string {
	if !h.Known {
		return "unknown"
	}
	return strconv.FormatFloat(h.Percent, 'f', -1, 64)
}

// MarshalJSON encodes an unknown humidity as null.
func (h Humidity) MarshalJSON() ([]byte, error) {
	if !h.Known {
		return []byte("null"), nil
	}
	return json.Marshal(h.Percent)
}

func (h *Humidity) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*h = Humidity{}
		return nil
	}
	var pct float64
	if err := json.Unmarshal(data, &pct); err != nil {
		return err
	}
	*h = HumidityOf(pct)
	return nil
}

// Reading is the normalized current-conditions payload used for risk assessment.
type Reading struct {
	Provider   string    `json:"provider"`
	ObservedAt time.Time `json:"observedAt"` // always UTC
	RainfallMM float64   `json:"rainfallMm"` // last hour; 0 when not reported
	Humidity   Humidity  `json:"humidityPercent"`
}
