package flight

import (
	"github.com/fyrsmithlabs/flightd/internal/config"
	"github.com/fyrsmithlabs/flightd/internal/telemetry"
)

// Heuristic finding strings. Downstream suggestion logic matches on these
// by substring, so the wording is part of the contract.
const (
	AnomalyGPSInstability = "GPS signal instability detected"
	AnomalyHighVibration  = "High vibration levels detected"
	AnomalyLowVoltage     = "Low battery voltage detected"
	AnomalyAltitudeDrop   = "Sudden altitude drop detected"
)

// DetectAnomalies runs the deterministic heuristic tier over the channels.
// It is pure, requires no external services, and always runs to completion.
// Thresholds come from configuration so tests can pin or vary them.
func DetectAnomalies(ch *telemetry.Channels, cfg config.HeuristicsConfig) []string {
	anomalies := []string{}

	// GPS instability: too large a fraction of poor fixes.
	if len(ch.GPS) > 0 {
		poor := 0
		for _, s := range ch.GPS {
			if s.FixType < cfg.PoorFixCeiling {
				poor++
			}
		}
		if float64(poor) > float64(len(ch.GPS))*cfg.GPSPoorFixRatio {
			anomalies = append(anomalies, AnomalyGPSInstability)
		}
	}

	// High vibration: too large a fraction of samples past the per-axis limit.
	if len(ch.Vibration) > 0 {
		high := 0
		for _, s := range ch.Vibration {
			if s.X > cfg.VibrationLimit || s.Y > cfg.VibrationLimit {
				high++
			}
		}
		if float64(high) > float64(len(ch.Vibration))*cfg.VibrationRatio {
			anomalies = append(anomalies, AnomalyHighVibration)
		}
	}

	// Low voltage: any battery-like sample under the floor.
	for _, b := range ch.BatteryLike() {
		if b.Voltage < cfg.LowVoltage {
			anomalies = append(anomalies, AnomalyLowVoltage)
			break
		}
	}

	// Sudden altitude drop: existence check, stop at first occurrence.
	alts := ch.PreferredAltitudes()
	for i := 1; i < len(alts); i++ {
		if alts[i-1]-alts[i] > cfg.AltitudeDropMeters {
			anomalies = append(anomalies, AnomalyAltitudeDrop)
			break
		}
	}

	return anomalies
}
