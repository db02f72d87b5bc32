package analysis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/flightd/internal/anomaly"
	"github.com/fyrsmithlabs/flightd/internal/config"
	"github.com/fyrsmithlabs/flightd/internal/telemetry"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	cfg, err := config.Load("")
	require.NoError(t, err)

	anomalies, err := anomaly.NewService(nil, time.Second, nil)
	require.NoError(t, err)

	svc, err := NewService(cfg, anomalies, nil)
	require.NoError(t, err)
	return svc
}

func gpsRecords(n int) []telemetry.RawRecord {
	records := make([]telemetry.RawRecord, n)
	for i := range records {
		records[i] = telemetry.RawRecord{
			Type:      "GPS",
			Timestamp: float64(i),
			Fields: map[string]float64{
				"Status": 3,
				"Alt":    10,
				"HDop":   1.1,
				"NSats":  12,
			},
		}
	}
	return records
}

func TestService_Analyze_PipelineAndCache(t *testing.T) {
	svc := newTestService(t)

	records := gpsRecords(100)
	for i := 0; i < 15; i++ {
		records[i].Fields["Status"] = 0
	}
	records[99].Fields["Alt"] = 2 // 8 m drop at the end

	f, err := svc.Analyze(context.Background(), telemetry.NewSliceSource(records))
	require.NoError(t, err)

	require.NotEmpty(t, f.ID)
	assert.Equal(t, 100, f.TotalMessages)
	assert.Contains(t, f.Summary.Anomalies, "GPS signal instability detected")
	assert.Contains(t, f.Summary.Anomalies, "Sudden altitude drop detected")
	assert.InDelta(t, 99.0, f.Summary.Duration, 1e-9)
	assert.InDelta(t, 10.0, f.Summary.MaxAltitude, 1e-9)

	// Narrative tier ran in degraded mode and still produced an analysis.
	require.NotNil(t, f.Analysis)
	assert.Equal(t, anomaly.SeverityHigh, f.Analysis.Severity)

	cached, ok := svc.Flight(f.ID)
	require.True(t, ok)
	assert.Same(t, f, cached)

	all := svc.Flights()
	require.Len(t, all, 1)
	assert.Same(t, f, all[0])
}

func TestService_Analyze_IngestionFailureLeavesNoFlight(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Analyze(context.Background(), telemetry.NewSliceSource(nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, telemetry.ErrNoMessages)
	assert.Empty(t, svc.Flights())
}

func TestService_Flight_Unknown(t *testing.T) {
	svc := newTestService(t)
	_, ok := svc.Flight("nope")
	assert.False(t, ok)
}
