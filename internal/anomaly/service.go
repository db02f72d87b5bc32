package anomaly

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/flightd/internal/flight"
	"github.com/fyrsmithlabs/flightd/internal/logging"
	"github.com/fyrsmithlabs/flightd/internal/provider"
)

const tracerName = "github.com/fyrsmithlabs/flightd/internal/anomaly"
const meterName = "anomaly"

// defaultAnalyzeTimeout bounds one provider call when the configuration
// does not say otherwise.
const defaultAnalyzeTimeout = 60 * time.Second

// Service runs the narrative tier. It composes a provider call with the
// deterministic fallback so Analyze always yields a well-formed Analysis.
type Service struct {
	provider provider.Provider // nil in degraded mode
	timeout  time.Duration
	logger   *logging.Logger

	tracer trace.Tracer
	meter  metric.Meter

	// Metrics
	analysesCounter  metric.Int64Counter
	fallbacksCounter metric.Int64Counter
}

// NewService creates the narrative analysis service. A nil provider is
// valid and keeps the service fully functional in degraded mode.
func NewService(p provider.Provider, timeout time.Duration, logger *logging.Logger) (*Service, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if timeout <= 0 {
		timeout = defaultAnalyzeTimeout
	}

	s := &Service{
		provider: p,
		timeout:  timeout,
		logger:   logger,
		tracer:   otel.Tracer(tracerName),
		meter:    otel.Meter(meterName),
	}

	if err := s.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	return s, nil
}

// Analyze produces the narrative analysis for one flight's digests and
// heuristic findings. Provider absence, failure, and timeout all degrade to
// the deterministic fallback narrative; the call never fails.
func (s *Service) Analyze(ctx context.Context, d *flight.Digest, heuristics []string) *Analysis {
	ctx, span := s.tracer.Start(ctx, "anomaly.analyze",
		trace.WithAttributes(
			attribute.Int("heuristic_findings", len(heuristics)),
			attribute.Bool("provider_configured", s.provider != nil),
		),
	)
	defer span.End()

	raw, source := s.narrative(ctx, d, heuristics)
	analysis := ParseReply(raw)

	span.SetAttributes(
		attribute.String("source", source),
		attribute.String("severity", analysis.Severity.String()),
	)
	s.analysesCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))

	return analysis
}

// narrative obtains the raw four-section text, from the provider when
// possible and from the fallback otherwise.
func (s *Service) narrative(ctx context.Context, d *flight.Digest, heuristics []string) (raw, source string) {
	if s.provider == nil {
		s.fallbacksCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "no_provider")))
		return FallbackNarrative(d, heuristics), "fallback"
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	system, user := BuildPrompt(d, heuristics)
	reply, err := s.provider.Generate(callCtx, system, user)
	if err != nil {
		s.logger.Warn(ctx, "narrative provider failed, using fallback",
			zap.String("provider", s.provider.Name()),
			zap.Error(err),
		)
		s.fallbacksCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "provider_error")))
		return FallbackNarrative(d, heuristics), "fallback"
	}

	return reply, s.provider.Name()
}

func (s *Service) initMetrics() error {
	var err error

	s.analysesCounter, err = s.meter.Int64Counter(
		"anomaly_analyses_total",
		metric.WithDescription("Total narrative anomaly analyses"),
	)
	if err != nil {
		return err
	}

	s.fallbacksCounter, err = s.meter.Int64Counter(
		"anomaly_fallbacks_total",
		metric.WithDescription("Analyses served by the deterministic fallback"),
	)
	return err
}
