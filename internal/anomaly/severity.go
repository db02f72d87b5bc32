package anomaly

import (
	"encoding/json"
	"strings"
)

// Severity grades a narrative analysis. The zero value is unknown; values
// order from unknown up to critical so callers can compare with <.
type Severity int

const (
	SeverityUnknown Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// String returns the lowercase label used in narratives and JSON.
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	}
	return "unknown"
}

// MarshalJSON serializes the severity as its label.
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts a label and maps unrecognized values to unknown.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var label string
	if err := json.Unmarshal(data, &label); err != nil {
		return err
	}
	*s = ParseSeverity(label)
	return nil
}

// ParseSeverity scans a raw severity line for the highest-ranked keyword
// present, case-insensitively and by substring. A line like
// "High risk of failure" resolves to high; no keyword at all resolves
// to unknown.
func ParseSeverity(line string) Severity {
	lower := strings.ToLower(line)
	switch {
	case strings.Contains(lower, "critical"):
		return SeverityCritical
	case strings.Contains(lower, "high"):
		return SeverityHigh
	case strings.Contains(lower, "medium"):
		return SeverityMedium
	case strings.Contains(lower, "low"):
		return SeverityLow
	}
	return SeverityUnknown
}
