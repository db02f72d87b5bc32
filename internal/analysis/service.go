// Package analysis orchestrates the per-flight pipeline: normalize a raw
// telemetry source, build the flight record with its summary and digests,
// run the narrative anomaly tier, and cache the result by flight id for the
// conversational layer.
package analysis

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/flightd/internal/anomaly"
	"github.com/fyrsmithlabs/flightd/internal/config"
	"github.com/fyrsmithlabs/flightd/internal/flight"
	"github.com/fyrsmithlabs/flightd/internal/logging"
	"github.com/fyrsmithlabs/flightd/internal/telemetry"
)

const tracerName = "github.com/fyrsmithlabs/flightd/internal/analysis"
const meterName = "analysis"

// Flight is the composite analysis product: the flight record with the
// narrative analysis attached.
type Flight struct {
	*flight.Record
	Analysis *anomaly.Analysis `json:"analysis"`
}

// Service runs the analysis pipeline and owns the in-process flight cache.
type Service struct {
	cfg        config.HeuristicsConfig
	ingest     config.IngestConfig
	normalizer *telemetry.Normalizer
	anomalies  *anomaly.Service
	logger     *logging.Logger

	tracer trace.Tracer
	meter  metric.Meter

	// Metrics
	flightsCounter metric.Int64Counter

	mu      sync.RWMutex
	flights map[string]*Flight
}

// NewService creates the pipeline service.
func NewService(cfg *config.Config, anomalies *anomaly.Service, logger *logging.Logger) (*Service, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	s := &Service{
		cfg:        cfg.Heuristics,
		ingest:     cfg.Ingest,
		normalizer: telemetry.NewNormalizer(cfg.Ingest, logger),
		anomalies:  anomalies,
		logger:     logger,
		tracer:     otel.Tracer(tracerName),
		meter:      otel.Meter(meterName),
		flights:    make(map[string]*Flight),
	}

	var err error
	s.flightsCounter, err = s.meter.Int64Counter(
		"flights_analyzed_total",
		metric.WithDescription("Total flights run through the analysis pipeline"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	return s, nil
}

// Analyze runs the full pipeline over one telemetry source. Ingestion
// failures are fatal and leave no partial flight behind; the narrative tier
// never fails. The resulting flight is cached by id.
func (s *Service) Analyze(ctx context.Context, src telemetry.Source) (*Flight, error) {
	ctx, span := s.tracer.Start(ctx, "analysis.analyze")
	defer span.End()

	res, err := s.normalizer.Normalize(ctx, src)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to normalize telemetry: %w", err)
	}

	record := flight.NewRecord(res, s.cfg)
	ctx = logging.WithFlightID(ctx, record.ID)

	f := &Flight{
		Record:   record,
		Analysis: s.anomalies.Analyze(ctx, record.Summary.Digest, record.Summary.Anomalies),
	}

	s.mu.Lock()
	s.flights[f.ID] = f
	s.mu.Unlock()

	span.SetAttributes(
		attribute.String("flight.id", f.ID),
		attribute.Int("messages", f.TotalMessages),
		attribute.Int("anomalies", len(f.Summary.Anomalies)),
	)
	s.flightsCounter.Add(ctx, 1)

	s.logger.Info(ctx, "flight analyzed",
		zap.Int("total_messages", f.TotalMessages),
		zap.Int("anomalies", len(f.Summary.Anomalies)),
		zap.String("severity", f.Analysis.Severity.String()),
	)

	return f, nil
}

// AnalyzeFile opens a JSONL telemetry log and runs Analyze over it.
func (s *Service) AnalyzeFile(ctx context.Context, path string) (*Flight, error) {
	src, err := telemetry.OpenJSONL(path, s.ingest)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	f, err := s.Analyze(ctx, src)
	if err != nil {
		return nil, err
	}

	if lineErrs, dropped := src.Errors(); dropped > 0 {
		s.logger.Warn(ctx, "telemetry lines dropped during parse",
			zap.String("path", path),
			zap.Int("dropped", dropped),
			zap.Int("recorded_errors", len(lineErrs)),
		)
	}

	return f, nil
}

// Flight returns the cached flight for an id.
func (s *Service) Flight(id string) (*Flight, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.flights[id]
	return f, ok
}

// Flights returns all cached flights ordered by id. The slice is a copy;
// the flights themselves are shared and treated as immutable once cached.
func (s *Service) Flights() []*Flight {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Flight, 0, len(s.flights))
	for _, f := range s.flights {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
