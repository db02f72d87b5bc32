package anomaly

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/flightd/internal/flight"
)

// fallbackSeverity grades a flight by its deterministic finding count.
// The fallback never reports unknown: absence of findings is low, not
// absence of knowledge.
func fallbackSeverity(findings int) Severity {
	switch {
	case findings >= 3:
		return SeverityCritical
	case findings == 2:
		return SeverityHigh
	case findings == 1:
		return SeverityMedium
	}
	return SeverityLow
}

// recommendationFor maps a heuristic finding to an operator action.
func recommendationFor(finding string) string {
	lower := strings.ToLower(finding)
	switch {
	case strings.Contains(lower, "gps"):
		return "Inspect GPS antenna placement and check for interference sources"
	case strings.Contains(lower, "vibration"):
		return "Check propeller balance and motor mounts"
	case strings.Contains(lower, "voltage"), strings.Contains(lower, "battery"):
		return "Inspect battery health and verify cell voltages before the next flight"
	case strings.Contains(lower, "altitude"):
		return "Review control inputs and barometer data around the altitude drop"
	}
	return "Investigate the flagged telemetry segment"
}

// FallbackNarrative synthesizes the four-section reply directly from the
// digests and heuristic findings. It is deterministic and feeds the same
// parser as provider replies, so the output shape is uniform whether or not
// a provider was reachable.
func FallbackNarrative(d *flight.Digest, heuristics []string) string {
	var b strings.Builder

	b.WriteString(sectionAnomalies + " ")
	if len(heuristics) == 0 {
		b.WriteString("None")
	} else {
		b.WriteString(strings.Join(heuristics, ", "))
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "%s %s\n", sectionSeverity, fallbackSeverity(len(heuristics)))

	b.WriteString(sectionReasoning + " ")
	b.WriteString(strings.Join(fallbackReasoning(d, heuristics), " "))
	b.WriteString("\n")

	b.WriteString(sectionRecommendations + "\n")
	if len(heuristics) == 0 {
		b.WriteString("1. Continue routine monitoring\n")
	} else {
		for i, finding := range heuristics {
			fmt.Fprintf(&b, "%d. %s\n", i+1, recommendationFor(finding))
		}
	}

	return b.String()
}

// fallbackReasoning narrates the digest statistics behind the screen.
func fallbackReasoning(d *flight.Digest, heuristics []string) []string {
	var sentences []string

	if len(heuristics) == 0 {
		sentences = append(sentences, "Deterministic screening found no threshold violations.")
	} else {
		sentences = append(sentences, fmt.Sprintf("Deterministic screening flagged %d finding(s).", len(heuristics)))
	}

	if g := d.GPS; g != nil {
		sentences = append(sentences, fmt.Sprintf(
			"GPS recorded %d samples with %d lacking a usable fix and HDOP reaching %.2f.",
			g.Points, g.FixHistogram[flight.FixNone], g.HDOPMax))
	}
	if v := d.Vibration; v != nil {
		sentences = append(sentences, fmt.Sprintf(
			"Vibration peaked at %.1f on X and %.1f on Y.", v.XMax, v.YMax))
	}
	if bd := d.Battery; bd != nil {
		sentences = append(sentences, fmt.Sprintf(
			"Battery voltage ranged %.2fV to %.2fV.", bd.VoltageMin, bd.VoltageMax))
	}
	if a := d.Altitude; a != nil {
		sentences = append(sentences, fmt.Sprintf(
			"Altitude spanned %.1fm to %.1fm with a largest single drop of %.1fm.", a.Min, a.Max, a.MaxDrop))
	}

	return sentences
}
