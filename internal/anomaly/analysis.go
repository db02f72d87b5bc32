// Package anomaly implements the narrative anomaly-reasoning tier: prompt
// construction from channel digests, reply parsing into a structured
// analysis, and a deterministic fallback for when no reasoning provider is
// reachable. The deterministic heuristic tier lives in the flight package;
// this one only interprets and narrates.
package anomaly

import (
	"regexp"
	"strings"
)

// parseErrorAnomaly is the degraded-analysis marker for unparseable replies.
const parseErrorAnomaly = "Analysis parsing error"

// Analysis is the structured result of the narrative tier.
type Analysis struct {
	Anomalies       []string `json:"anomalies"`
	Severity        Severity `json:"severity_assessment"`
	Reasoning       string   `json:"reasoning"`
	Recommendations []string `json:"recommendations"`
	// Raw preserves the unparsed reply for debugging.
	Raw string `json:"-"`
}

// Section headers of the fixed four-section reply format.
const (
	sectionAnomalies       = "ANOMALIES:"
	sectionSeverity        = "SEVERITY:"
	sectionReasoning       = "REASONING:"
	sectionRecommendations = "RECOMMENDATIONS:"
)

// listItemPrefix strips bullet and number markers off list lines.
var listItemPrefix = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s*`)

// ParseReply parses a four-section narrative reply line by line. List
// sections split on commas and numbered or bulleted items; REASONING
// concatenates free text. A reply with no recognizable section degrades to
// a parse-error analysis carrying the raw text. It never fails.
func ParseReply(raw string) *Analysis {
	sections := map[string][]string{}
	current := ""

	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if header, rest, ok := matchHeader(trimmed); ok {
			current = header
			if rest != "" {
				sections[current] = append(sections[current], rest)
			}
			continue
		}
		if current != "" {
			sections[current] = append(sections[current], trimmed)
		}
	}

	if len(sections) == 0 {
		return &Analysis{
			Anomalies: []string{parseErrorAnomaly},
			Severity:  SeverityUnknown,
			Reasoning: raw,
			Raw:       raw,
		}
	}

	return &Analysis{
		Anomalies:       splitList(sections[sectionAnomalies]),
		Severity:        ParseSeverity(strings.Join(sections[sectionSeverity], " ")),
		Reasoning:       strings.Join(sections[sectionReasoning], " "),
		Recommendations: splitList(sections[sectionRecommendations]),
		Raw:             raw,
	}
}

// matchHeader reports whether the line opens one of the four sections and
// returns any content trailing the header on the same line.
func matchHeader(line string) (header, rest string, ok bool) {
	upper := strings.ToUpper(line)
	for _, h := range []string{sectionAnomalies, sectionSeverity, sectionReasoning, sectionRecommendations} {
		if strings.HasPrefix(upper, h) {
			return h, strings.TrimSpace(line[len(h):]), true
		}
	}
	return "", "", false
}

// splitList turns section lines into list entries: bullet and number
// markers are stripped, comma-separated lines are split apart, empty
// entries are dropped.
func splitList(lines []string) []string {
	var items []string
	for _, line := range lines {
		line = listItemPrefix.ReplaceAllString(line, "")
		for _, part := range strings.Split(line, ",") {
			if part = strings.TrimSpace(part); part != "" {
				items = append(items, part)
			}
		}
	}
	return items
}
