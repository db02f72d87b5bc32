package anomaly

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/flightd/internal/flight"
)

// stubProvider satisfies provider.Provider for tests.
type stubProvider struct {
	reply string
	err   error

	gotSystem string
	gotUser   string
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Generate(_ context.Context, system, user string) (string, error) {
	s.gotSystem = system
	s.gotUser = user
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func degradedDigest() *flight.Digest {
	return &flight.Digest{
		GPS: &flight.GPSDigest{
			Points:       100,
			FixHistogram: [4]int{15, 85, 0, 0},
			HDOPMin:      0.8,
			HDOPMax:      4.2,
			SatMin:       4,
			SatMax:       14,
		},
		Altitude: &flight.AltitudeDigest{
			Points:  100,
			Min:     2,
			Max:     10,
			MaxDrop: 8,
			Profile: []float64{10, 10, 2},
		},
	}
}

func TestAnalyze_UsesProviderReply(t *testing.T) {
	p := &stubProvider{reply: "ANOMALIES: GPS signal instability detected\nSEVERITY: high\nREASONING: weak fixes\nRECOMMENDATIONS: check antenna"}
	svc, err := NewService(p, time.Second, nil)
	require.NoError(t, err)

	a := svc.Analyze(context.Background(), degradedDigest(), []string{flight.AnomalyGPSInstability})

	assert.Equal(t, SeverityHigh, a.Severity)
	assert.Equal(t, []string{"GPS signal instability detected"}, a.Anomalies)

	// The prompt carries both the digest and the screen findings.
	assert.Contains(t, p.gotUser, "GPS quality (100 points)")
	assert.Contains(t, p.gotUser, flight.AnomalyGPSInstability)
	assert.Contains(t, p.gotSystem, "RECOMMENDATIONS:")
}

func TestAnalyze_NoProviderFallsBack(t *testing.T) {
	svc, err := NewService(nil, time.Second, nil)
	require.NoError(t, err)

	heuristics := []string{flight.AnomalyGPSInstability, flight.AnomalyAltitudeDrop}
	a := svc.Analyze(context.Background(), degradedDigest(), heuristics)

	// Provider absence alone never yields an unknown severity.
	assert.Equal(t, SeverityHigh, a.Severity)
	assert.Equal(t, heuristics, a.Anomalies)
	assert.NotEmpty(t, a.Reasoning)
	require.Len(t, a.Recommendations, 2)
	assert.Contains(t, strings.ToLower(a.Recommendations[0]), "gps")
}

func TestAnalyze_ProviderErrorFallsBack(t *testing.T) {
	p := &stubProvider{err: errors.New("connection refused")}
	svc, err := NewService(p, time.Second, nil)
	require.NoError(t, err)

	a := svc.Analyze(context.Background(), degradedDigest(), []string{flight.AnomalyLowVoltage})

	assert.Equal(t, SeverityMedium, a.Severity)
	assert.Equal(t, []string{flight.AnomalyLowVoltage}, a.Anomalies)
}

func TestAnalyze_CleanFlightFallback(t *testing.T) {
	svc, err := NewService(nil, time.Second, nil)
	require.NoError(t, err)

	a := svc.Analyze(context.Background(), &flight.Digest{}, nil)

	assert.Equal(t, SeverityLow, a.Severity)
	assert.Equal(t, []string{"None"}, a.Anomalies)
	assert.Equal(t, []string{"Continue routine monitoring"}, a.Recommendations)
}

func TestFallbackNarrative_ParsesUniformly(t *testing.T) {
	heuristics := []string{
		flight.AnomalyGPSInstability,
		flight.AnomalyHighVibration,
		flight.AnomalyLowVoltage,
	}
	a := ParseReply(FallbackNarrative(degradedDigest(), heuristics))

	assert.Equal(t, SeverityCritical, a.Severity)
	assert.Equal(t, heuristics, a.Anomalies)
	assert.Len(t, a.Recommendations, 3)
	assert.Contains(t, a.Reasoning, "100 samples")
}
