package flight

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fyrsmithlabs/flightd/internal/config"
	"github.com/fyrsmithlabs/flightd/internal/telemetry"
)

func defaultThresholds() config.HeuristicsConfig {
	return config.HeuristicsConfig{
		PoorFixCeiling:     3,
		GPSPoorFixRatio:    0.10,
		VibrationLimit:     30,
		VibrationRatio:     0.05,
		LowVoltage:         3.3,
		AltitudeDropMeters: 5,
	}
}

func gpsSeries(total, poor int) []telemetry.GPSSample {
	samples := make([]telemetry.GPSSample, total)
	for i := range samples {
		samples[i].FixType = 3
		samples[i].Alt = 10
		if i < poor {
			samples[i].FixType = 0
		}
	}
	return samples
}

func TestDetectAnomalies_GPSInstabilityBoundary(t *testing.T) {
	tests := []struct {
		name     string
		total    int
		poor     int
		wantFire bool
	}{
		{"well below threshold", 100, 2, false},
		{"exactly 10 percent must not fire", 100, 10, false},
		{"just above 10 percent must fire", 100, 11, true},
		{"all poor", 10, 10, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := &telemetry.Channels{GPS: gpsSeries(tt.total, tt.poor)}
			anomalies := DetectAnomalies(ch, defaultThresholds())
			if tt.wantFire {
				assert.Contains(t, anomalies, AnomalyGPSInstability)
			} else {
				assert.NotContains(t, anomalies, AnomalyGPSInstability)
			}
		})
	}
}

func TestDetectAnomalies_AltitudeDropBoundary(t *testing.T) {
	mk := func(alts ...float64) *telemetry.Channels {
		pos := make([]telemetry.PositionSample, len(alts))
		for i, a := range alts {
			pos[i].Alt = a
		}
		return &telemetry.Channels{Position: pos}
	}

	// Max single drop of exactly 5.0 must not fire.
	anomalies := DetectAnomalies(mk(20, 15, 12), defaultThresholds())
	assert.NotContains(t, anomalies, AnomalyAltitudeDrop)

	// 5.01 must fire.
	anomalies = DetectAnomalies(mk(20, 14.99, 12), defaultThresholds())
	assert.Contains(t, anomalies, AnomalyAltitudeDrop)
}

func TestDetectAnomalies_AltitudeDropFallsBackToGPS(t *testing.T) {
	ch := &telemetry.Channels{
		GPS: []telemetry.GPSSample{{Alt: 30, FixType: 3}, {Alt: 10, FixType: 3}},
	}
	anomalies := DetectAnomalies(ch, defaultThresholds())
	assert.Contains(t, anomalies, AnomalyAltitudeDrop)
}

func TestDetectAnomalies_HighVibration(t *testing.T) {
	samples := make([]telemetry.VibrationSample, 100)
	for i := range samples {
		samples[i] = telemetry.VibrationSample{X: 10, Y: 10}
	}
	// 5 of 100 is exactly 5%: must not fire.
	for i := 0; i < 5; i++ {
		samples[i].X = 45
	}
	ch := &telemetry.Channels{Vibration: samples}
	assert.NotContains(t, DetectAnomalies(ch, defaultThresholds()), AnomalyHighVibration)

	// One more pushes past the ratio.
	samples[5].Y = 45
	assert.Contains(t, DetectAnomalies(ch, defaultThresholds()), AnomalyHighVibration)
}

func TestDetectAnomalies_LowVoltagePrefersSystemStatus(t *testing.T) {
	ch := &telemetry.Channels{
		Battery:      []telemetry.BatterySample{{Voltage: 2.9}},
		SystemStatus: []telemetry.SystemStatusSample{{Voltage: 11.4}},
	}
	// System status is healthy and preferred; the raw battery channel is
	// shadowed.
	assert.NotContains(t, DetectAnomalies(ch, defaultThresholds()), AnomalyLowVoltage)

	ch.SystemStatus[0].Voltage = 3.1
	assert.Contains(t, DetectAnomalies(ch, defaultThresholds()), AnomalyLowVoltage)
}

func TestDetectAnomalies_ThresholdOverride(t *testing.T) {
	cfg := defaultThresholds()
	cfg.AltitudeDropMeters = 1

	ch := &telemetry.Channels{
		Position: []telemetry.PositionSample{{Alt: 10}, {Alt: 8.5}},
	}
	assert.Contains(t, DetectAnomalies(ch, cfg), AnomalyAltitudeDrop)
}

func TestDetectAnomalies_EmptyChannels(t *testing.T) {
	anomalies := DetectAnomalies(&telemetry.Channels{}, defaultThresholds())
	assert.Empty(t, anomalies)
}
