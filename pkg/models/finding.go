package models

// Severity is the display label attached to a finding.
type Severity string

const (
	SeverityLow           Severity = "Low"
	SeverityLowToModerate Severity = "Low to moderate"
	SeverityModerate      Severity = "Moderate"
	SeverityHigh          Severity = "High"
	SeverityVeryHigh      Severity = "Very high"
	SeverityUndetermined  Severity = "Undetermined"
)

// Valid reports whether s is one of the known severity labels.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityLowToModerate, SeverityModerate, SeverityHigh, SeverityVeryHigh, SeverityUndetermined:
		return true
	}
	return false
}

// FindingRecord is the canned diagnostic narrative for one anatomical region.
type FindingRecord struct {
	RegionID        string   `json:"regionId" yaml:"regionId"`
	ConditionName   string   `json:"conditionName" yaml:"conditionName"`
	Classification  string   `json:"classification" yaml:"classification"`
	Severity        Severity `json:"severity" yaml:"severity"`
	Symptoms        []string `json:"symptoms" yaml:"symptoms"`
	Recommendations []string `json:"recommendations" yaml:"recommendations"`
}

// Clone returns a deep copy so callers cannot mutate shared registry data.
func (f FindingRecord) Clone() FindingRecord {
	out := f
	out.Symptoms = append([]string(nil), f.Symptoms...)
	out.Recommendations = append([]string(nil), f.Recommendations...)
	return out
}
