package anomaly

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/flightd/internal/flight"
)

// systemPrompt frames the provider as a flight-data analyst and pins the
// reply format the parser expects.
const systemPrompt = `You are an expert UAV flight-data analyst. You are given statistical digests of one flight's telemetry channels together with the findings of a deterministic anomaly screen.

Analyze the data across five dimensions: GPS signal quality, vibration levels, battery voltage trend, altitude behavior, and correlations between sensors.

Reply in exactly four sections, using these headers on their own lines:
ANOMALIES: comma-separated list of detected anomalies, or None
SEVERITY: one of low, medium, high, critical
REASONING: short explanation of your assessment
RECOMMENDATIONS: comma-separated or numbered list of operator actions`

// BuildPrompt renders the digest and heuristic findings into the system and
// user prompt pair for the reasoning provider.
func BuildPrompt(d *flight.Digest, heuristics []string) (system, user string) {
	var b strings.Builder

	b.WriteString("Flight telemetry digest:\n\n")

	if g := d.GPS; g != nil {
		fmt.Fprintf(&b, "GPS quality (%d points): fixes %s; hdop %.2f-%.2f; satellites %d-%d\n",
			g.Points, fixHistogramLine(g), g.HDOPMin, g.HDOPMax, g.SatMin, g.SatMax)
	} else {
		b.WriteString("GPS quality: no data\n")
	}

	if v := d.Vibration; v != nil {
		fmt.Fprintf(&b, "Vibration (%d points): x %.1f-%.1f, y %.1f-%.1f, z %.1f-%.1f\n",
			v.Points, v.XMin, v.XMax, v.YMin, v.YMax, v.ZMin, v.ZMax)
	} else {
		b.WriteString("Vibration: no data\n")
	}

	if bd := d.Battery; bd != nil {
		fmt.Fprintf(&b, "Battery (%d points): voltage %.2f-%.2fV, current %.2f-%.2fA, voltage trend %s\n",
			bd.Points, bd.VoltageMin, bd.VoltageMax, bd.CurrentMin, bd.CurrentMax, floatSeries(bd.VoltageTrend))
	} else {
		b.WriteString("Battery: no data\n")
	}

	if a := d.Altitude; a != nil {
		fmt.Fprintf(&b, "Altitude (%d points): range %.1f-%.1fm, max climb %.1fm, max drop %.1fm, profile %s\n",
			a.Points, a.Min, a.Max, a.MaxClimb, a.MaxDrop, floatSeries(a.Profile))
	} else {
		b.WriteString("Altitude: no data\n")
	}

	b.WriteString("\nDeterministic screen findings: ")
	if len(heuristics) == 0 {
		b.WriteString("none")
	} else {
		b.WriteString(strings.Join(heuristics, "; "))
	}
	b.WriteString("\n\nAssess the five dimensions, including any cross-sensor correlation, and reply in the four-section format.")

	return systemPrompt, b.String()
}

func fixHistogramLine(g *flight.GPSDigest) string {
	parts := make([]string, 0, len(g.FixHistogram))
	for cat, count := range g.FixHistogram {
		parts = append(parts, fmt.Sprintf("%s=%d", flight.FixCategory(cat), count))
	}
	return strings.Join(parts, " ")
}

func floatSeries(series []float64) string {
	parts := make([]string, len(series))
	for i, v := range series {
		parts[i] = fmt.Sprintf("%.1f", v)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
