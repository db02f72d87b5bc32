// Package chat is the conversational front over analyzed flights. It
// composes the reasoning provider, the analysis cache and the conversation
// memory, and never fails a conversation: every internal failure degrades
// to a well-formed response.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/flightd/internal/analysis"
	"github.com/fyrsmithlabs/flightd/internal/logging"
	"github.com/fyrsmithlabs/flightd/internal/memory"
	"github.com/fyrsmithlabs/flightd/internal/provider"
)

const tracerName = "github.com/fyrsmithlabs/flightd/internal/chat"
const meterName = "chat"

// Response is the well-formed answer envelope. It is returned even when
// everything behind it failed.
type Response struct {
	Answer             string    `json:"answer"`
	FlightID           string    `json:"flight_id,omitempty"`
	Suggestions        []string  `json:"proactive_suggestions"`
	ComparisonInsights string    `json:"comparison_insights"`
	Timestamp          time.Time `json:"timestamp"`
}

// Service processes conversational messages about analyzed flights.
type Service struct {
	provider provider.Provider // nil in degraded mode
	flights  *analysis.Service
	memory   *memory.Service
	logger   *logging.Logger

	tracer trace.Tracer
	meter  metric.Meter

	// Metrics
	messagesCounter metric.Int64Counter
}

// NewService creates the chat service. A nil provider keeps it functional
// with deterministic data-grounded replies.
func NewService(p provider.Provider, flights *analysis.Service, mem *memory.Service, logger *logging.Logger) (*Service, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	s := &Service{
		provider: p,
		flights:  flights,
		memory:   mem,
		logger:   logger.Named("chat"),
		tracer:   otel.Tracer(tracerName),
		meter:    otel.Meter(meterName),
	}

	var err error
	s.messagesCounter, err = s.meter.Int64Counter(
		"chat_messages_total",
		metric.WithDescription("Chat messages processed"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	return s, nil
}

// Process answers one user message, optionally in the context of an
// analyzed flight. It records the turn, collects proactive suggestions and
// cross-flight comparison, and always returns a well-formed response.
func (s *Service) Process(ctx context.Context, message, flightID string) *Response {
	ctx, span := s.tracer.Start(ctx, "chat.process",
		trace.WithAttributes(attribute.String("flight.id", flightID)),
	)
	defer span.End()

	if flightID != "" {
		ctx = logging.WithFlightID(ctx, flightID)
	}

	var f *analysis.Flight
	if flightID != "" {
		f, _ = s.flights.Flight(flightID)
	}

	conversationContext := ""
	if flightID != "" {
		conversationContext = s.memory.ConversationContext(flightID, 0)
	}

	answer, source := s.answer(ctx, message, f, conversationContext)
	span.SetAttributes(attribute.String("source", source))
	s.messagesCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))

	resp := &Response{
		Answer:    answer,
		FlightID:  flightID,
		Timestamp: time.Now(),
	}

	if flightID != "" {
		var turnCtx map[string]any
		if f != nil {
			turnCtx = memory.MetricsContext(f.Summary)
		}
		s.memory.RecordTurn(ctx, flightID, message, answer, turnCtx)

		if f != nil {
			resp.Suggestions = s.memory.Suggestions(flightID, f.Summary.Anomalies)
			resp.ComparisonInsights = s.memory.CompareFlights(flightID, f.Summary)
		}
	}

	return resp
}

// answer produces the reply text and names its source: the provider, the
// deterministic fallback, or the degraded apology on provider failure.
func (s *Service) answer(ctx context.Context, message string, f *analysis.Flight, conversationContext string) (answer, source string) {
	if s.provider == nil {
		return fallbackReply(f), "fallback"
	}

	system := buildSystemPrompt(f, conversationContext)
	reply, err := s.provider.Generate(ctx, system, message)
	if err != nil {
		s.logger.Warn(ctx, "chat provider failed",
			zap.String("provider", s.provider.Name()),
			zap.Error(err),
		)
		return degradedReply(err), "degraded"
	}
	return reply, s.provider.Name()
}

// analystPrompt frames the provider as a flight analyst with memory
// directives.
const analystPrompt = `You are an expert UAV flight data analyst with advanced memory capabilities. You help users understand flight telemetry data, identify issues, and provide insights about drone flights.

You can analyze:
- GPS coordinates and flight paths
- Altitude and speed data
- Battery performance
- Vibration levels
- Flight anomalies
- Safety concerns

IMPORTANT: You have conversation memory and should:
1. Reference previous discussions when relevant
2. Build upon earlier analyses
3. Avoid repeating information already covered
4. Provide progressive insights that deepen understanding
5. Be proactive in suggesting related topics

Provide clear, technical answers while being accessible to users.`

// buildSystemPrompt appends the conversation history and the current-flight
// block to the analyst persona.
func buildSystemPrompt(f *analysis.Flight, conversationContext string) string {
	var b strings.Builder
	b.WriteString(analystPrompt)

	if conversationContext != "" {
		b.WriteString("\n\nConversation History:\n")
		b.WriteString(conversationContext)
	}

	if f != nil {
		fmt.Fprintf(&b, `

Current Flight Data:
- Duration: %.1f seconds
- Max Altitude: %.1f meters
- GPS Points: %d
- Battery Data Points: %d
- Detected Anomalies: %s
- Assessed Severity: %s

Use this data to answer questions about the flight.`,
			f.Summary.Duration,
			f.Summary.MaxAltitude,
			len(f.Channels.GPS),
			len(f.Channels.Battery),
			anomalyList(f.Summary.Anomalies),
			f.Analysis.Severity,
		)
	}

	return b.String()
}

// fallbackReply is the deterministic data-grounded reply used when no
// provider is configured.
func fallbackReply(f *analysis.Flight) string {
	if f == nil {
		return "I'm ready to analyze flight data! Please analyze a telemetry log first, then I can answer questions about the flight."
	}

	return fmt.Sprintf(`I can see you're asking about flight data. Here's what I found:

Flight Summary:
- Duration: %.1f seconds
- Max Altitude: %.1f meters
- Anomalies: %s
- Assessed Severity: %s

To get more detailed AI analysis, please configure an OpenAI or Anthropic API key.`,
		f.Summary.Duration,
		f.Summary.MaxAltitude,
		anomalyList(f.Summary.Anomalies),
		f.Analysis.Severity,
	)
}

// degradedReply is the apologetic response on provider failure. It is
// well-formed and actionable, never a raw error.
func degradedReply(err error) string {
	return fmt.Sprintf(
		"Sorry, I encountered an error while reasoning about your question: %v. Please retry in a moment, or ask for the flight summary, which I can answer without the reasoning provider.",
		err,
	)
}

func anomalyList(anomalies []string) string {
	if len(anomalies) == 0 {
		return "None detected"
	}
	return strings.Join(anomalies, ", ")
}
