// Package flight derives quantitative summaries, statistical digests and
// deterministic anomaly findings from normalized telemetry channels.
package flight

import (
	"github.com/google/uuid"

	"github.com/fyrsmithlabs/flightd/internal/config"
	"github.com/fyrsmithlabs/flightd/internal/telemetry"
)

// Record owns the normalized telemetry of one parsed flight. Immutable
// after creation except for summary regeneration.
type Record struct {
	ID            string               `json:"flight_id"`
	Channels      *telemetry.Channels  `json:"telemetry"`
	TotalMessages int                  `json:"total_messages"`
	MessageCounts map[string]int       `json:"message_types"`
	Summary       *Summary             `json:"summary"`
}

// NewRecord creates a flight record with a generated id and a computed
// summary.
func NewRecord(res *telemetry.Result, thresholds config.HeuristicsConfig) *Record {
	r := &Record{
		ID:            uuid.New().String(),
		Channels:      res.Channels,
		TotalMessages: res.TotalMessages,
		MessageCounts: res.MessageCounts,
	}
	r.Summary = Summarize(res.Channels, thresholds)
	return r
}

// RegenerateSummary recomputes the summary, e.g. after a threshold change.
func (r *Record) RegenerateSummary(thresholds config.HeuristicsConfig) {
	r.Summary = Summarize(r.Channels, thresholds)
}
