package flight

import (
	"math"

	"github.com/fyrsmithlabs/flightd/internal/config"
	"github.com/fyrsmithlabs/flightd/internal/telemetry"
)

// Summary holds the scalar flight metrics, the deterministic anomaly
// findings and the per-channel pattern digest. Every metric fails soft:
// an empty dependency yields the metric's zero value, never an error.
type Summary struct {
	// Duration is last minus first timestamp of the preferred position
	// channel, in seconds.
	Duration float64 `json:"duration"`
	// MaxAltitude is the maximum altitude over the preferred position
	// channel, in meters.
	MaxAltitude float64 `json:"max_altitude"`
	// MaxSpeed is the maximum velocity norm over the position channel, in
	// m/s. GPS carries no velocity vector, so there is no fallback here.
	MaxSpeed float64 `json:"max_speed"`
	// BatteryUsage is first minus last remaining of the preferred
	// battery-like channel. Negative values signal a charge increase.
	BatteryUsage float64 `json:"battery_usage"`
	// Anomalies is the heuristic tier's flat finding list.
	Anomalies []string `json:"anomalies"`
	// Digest is the per-channel statistical digest.
	Digest *Digest `json:"patterns"`
}

// Summarize computes the flight summary from normalized channels.
func Summarize(ch *telemetry.Channels, thresholds config.HeuristicsConfig) *Summary {
	s := &Summary{
		Anomalies: DetectAnomalies(ch, thresholds),
		Digest:    BuildDigest(ch),
	}

	if first, last, ok := ch.PreferredTimeSpan(); ok {
		s.Duration = last - first
	}

	if alts := ch.PreferredAltitudes(); len(alts) > 0 {
		s.MaxAltitude = alts[0]
		for _, alt := range alts[1:] {
			if alt > s.MaxAltitude {
				s.MaxAltitude = alt
			}
		}
	}

	for _, p := range ch.Position {
		speed := math.Sqrt(p.VX*p.VX + p.VY*p.VY + p.VZ*p.VZ)
		if speed > s.MaxSpeed {
			s.MaxSpeed = speed
		}
	}

	if battery := ch.BatteryLike(); len(battery) > 0 {
		s.BatteryUsage = battery[0].Remaining - battery[len(battery)-1].Remaining
	}

	return s
}
