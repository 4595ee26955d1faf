package flood

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownRiskLevel is returned when a risk level is outside LOW..HIGH.
var ErrUnknownRiskLevel = errors.New("unknown risk level")

// Rainfall thresholds in millimetres over the last hour.
const (
	HighRainfallMM   = 50.0
	MediumRainfallMM = 25.0
)

// RiskLevel is the three-tier flood severity. The zero value is RiskLow.
type RiskLevel int

const (
	RiskLow RiskLevel = iota
	RiskMedium
	RiskHigh

	riskLevelCount
)

var riskLevelNames = [riskLevelCount]string{
	RiskLow:    "LOW",
	RiskMedium: "MEDIUM",
	RiskHigh:   "HIGH",
}

// Classify maps last-hour rainfall to a risk level.
func Classify(rainfallMM float64) RiskLevel {
	switch {
	case rainfallMM > HighRainfallMM:
		return RiskHigh
	case rainfallMM > MediumRainfallMM:
		return RiskMedium
	default:
		return RiskLow
	}
}

// RiskLevels returns all levels in ascending order.
func RiskLevels() []RiskLevel {
	return []RiskLevel{RiskLow, RiskMedium, RiskHigh}
}

// Valid reports whether r is one of the defined levels.
func (r RiskLevel) Valid() bool {
	return r >= RiskLow && r < riskLevelCount
}

func (r RiskLevel) String() string {
	if !r.Valid() {
		return fmt.Sprintf("RiskLevel(%d)", int(r))
	}
	return riskLevelNames[r]
}

// MarshalText encodes the level as its upper-case name.
func (r RiskLevel) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRiskLevel, int(r))
	}
	return []byte(riskLevelNames[r]), nil
}

func (r *RiskLevel) UnmarshalText(text []byte) error {
	lvl, err := ParseRiskLevel(string(text))
	if err != nil {
		return err
	}
	*r = lvl
	return nil
}

// ParseRiskLevel accepts a level name in any case, e.g. "high".
func ParseRiskLevel(s string) (RiskLevel, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for i, n := range riskLevelNames {
		if n == name {
			return RiskLevel(i), nil
		}
	}
	return RiskLow, fmt.Errorf("%w: %q", ErrUnknownRiskLevel, s)
}
