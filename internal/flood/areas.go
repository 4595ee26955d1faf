package flood

// VulnerableArea is a flood-prone neighbourhood shown on the dashboard map.
type VulnerableArea struct {
	Name string    `json:"name"`
	Lat  float64   `json:"lat"`
	Lon  float64   `json:"lon"`
	Risk RiskLevel `json:"risk"`
}

var vulnerableAreas = []VulnerableArea{
	{Name: "Dharavi", Lat: 19.0380, Lon: 72.8538, Risk: RiskHigh},
	{Name: "Bandra", Lat: 19.0556, Lon: 72.8402, Risk: RiskMedium},
	{Name: "Chembur", Lat: 19.0519, Lon: 72.8954, Risk: RiskHigh},
}

// VulnerableAreas returns a copy of the static area list.
func VulnerableAreas() []VulnerableArea {
	out := make([]VulnerableArea, len(vulnerableAreas))
	copy(out, vulnerableAreas)
	return out
}
