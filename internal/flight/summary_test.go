package flight

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/flightd/internal/telemetry"
)

func TestSummarize_EmptyChannelsFailSoft(t *testing.T) {
	s := Summarize(&telemetry.Channels{}, defaultThresholds())

	assert.Zero(t, s.Duration)
	assert.Zero(t, s.MaxAltitude)
	assert.Zero(t, s.MaxSpeed)
	assert.Zero(t, s.BatteryUsage)
	assert.Empty(t, s.Anomalies)
	require.NotNil(t, s.Digest)
	assert.Nil(t, s.Digest.GPS)
	assert.Nil(t, s.Digest.Altitude)
}

func TestSummarize_MaxAltitudeIsSeriesMax(t *testing.T) {
	ch := &telemetry.Channels{
		Position: []telemetry.PositionSample{
			{Timestamp: 0, Alt: 3}, {Timestamp: 1, Alt: 17.2}, {Timestamp: 2, Alt: 9},
		},
	}
	s := Summarize(ch, defaultThresholds())
	assert.InDelta(t, 17.2, s.MaxAltitude, 1e-9)
	assert.InDelta(t, 2.0, s.Duration, 1e-9)
}

func TestSummarize_PositionPreferredOverGPS(t *testing.T) {
	ch := &telemetry.Channels{
		GPS:      []telemetry.GPSSample{{Timestamp: 0, Alt: 100, FixType: 3}, {Timestamp: 50, Alt: 100, FixType: 3}},
		Position: []telemetry.PositionSample{{Timestamp: 10, Alt: 20}, {Timestamp: 40, Alt: 25}},
	}
	s := Summarize(ch, defaultThresholds())
	assert.InDelta(t, 30.0, s.Duration, 1e-9)
	assert.InDelta(t, 25.0, s.MaxAltitude, 1e-9)
}

func TestSummarize_MaxSpeedFromVelocityNorm(t *testing.T) {
	ch := &telemetry.Channels{
		Position: []telemetry.PositionSample{
			{VX: 3, VY: 4, VZ: 0},
			{VX: 1, VY: 1, VZ: 1},
		},
	}
	s := Summarize(ch, defaultThresholds())
	assert.InDelta(t, 5.0, s.MaxSpeed, 1e-9)

	// GPS alone carries no velocity vector: no fallback.
	gpsOnly := &telemetry.Channels{
		GPS: []telemetry.GPSSample{{Speed: 12, FixType: 3}},
	}
	assert.Zero(t, Summarize(gpsOnly, defaultThresholds()).MaxSpeed)
}

func TestSummarize_BatteryUsage(t *testing.T) {
	t.Run("strictly decreasing equals first minus last", func(t *testing.T) {
		ch := &telemetry.Channels{
			SystemStatus: []telemetry.SystemStatusSample{
				{Remaining: 98}, {Remaining: 90}, {Remaining: 61},
			},
		}
		s := Summarize(ch, defaultThresholds())
		assert.InDelta(t, 37.0, s.BatteryUsage, 1e-9)
	})

	t.Run("increasing remaining yields negative usage", func(t *testing.T) {
		ch := &telemetry.Channels{
			Battery: []telemetry.BatterySample{{Remaining: 60}, {Remaining: 75}},
		}
		s := Summarize(ch, defaultThresholds())
		assert.InDelta(t, -15.0, s.BatteryUsage, 1e-9)
	})
}

// End-to-end scenario: a degraded flight must surface both the GPS and the
// altitude findings alongside correct scalar metrics.
func TestSummarize_DegradedFlightScenario(t *testing.T) {
	gps := make([]telemetry.GPSSample, 100)
	for i := range gps {
		gps[i] = telemetry.GPSSample{
			Timestamp: float64(i),
			Alt:       10,
			FixType:   3,
		}
		if i < 15 {
			gps[i].FixType = 0
		}
	}
	// One sudden 8 m drop at the end.
	gps[99].Alt = 2

	ch := &telemetry.Channels{GPS: gps}
	s := Summarize(ch, defaultThresholds())

	assert.Contains(t, s.Anomalies, AnomalyGPSInstability)
	assert.Contains(t, s.Anomalies, AnomalyAltitudeDrop)
	assert.InDelta(t, 99.0, s.Duration, 1e-9)
	assert.InDelta(t, 10.0, s.MaxAltitude, 1e-9)
}

func TestNewRecord(t *testing.T) {
	res := &telemetry.Result{
		Channels: &telemetry.Channels{
			Position: []telemetry.PositionSample{{Timestamp: 0, Alt: 5}, {Timestamp: 9, Alt: 8}},
		},
		TotalMessages: 2,
		MessageCounts: map[string]int{"GLOBAL_POSITION_INT": 2},
	}

	r := NewRecord(res, defaultThresholds())

	require.NotEmpty(t, r.ID)
	require.NotNil(t, r.Summary)
	assert.InDelta(t, 9.0, r.Summary.Duration, 1e-9)
	assert.Equal(t, 2, r.TotalMessages)

	// Distinct records get distinct ids.
	other := NewRecord(res, defaultThresholds())
	assert.NotEqual(t, r.ID, other.ID)
}

func TestSummarize_SpeedNorm_NaNSafe(t *testing.T) {
	// Regression guard: the norm of a zero vector is zero, not NaN.
	ch := &telemetry.Channels{Position: []telemetry.PositionSample{{}}}
	s := Summarize(ch, defaultThresholds())
	assert.False(t, math.IsNaN(s.MaxSpeed))
	assert.Zero(t, s.MaxSpeed)
}
