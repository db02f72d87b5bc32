package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/flightd/internal/config"
	"github.com/fyrsmithlabs/flightd/internal/flight"
	"github.com/fyrsmithlabs/flightd/internal/logging"
)

const tracerName = "github.com/fyrsmithlabs/flightd/internal/memory"
const meterName = "memory"

// Context-truncation length for assistant responses rendered into the
// conversation context block.
const responsePreviewLen = 200

// Comparison thresholds against the average of previous flights.
const (
	altitudeComparisonFactor = 1.2
	durationComparisonFactor = 1.3
)

// Service is the conversation memory engine. Turn appends for one flight id
// serialize on a per-flight mutex; distinct flights proceed in parallel.
type Service struct {
	cfg    config.MemoryConfig
	store  Store
	logger *logging.Logger

	tracer trace.Tracer
	meter  metric.Meter

	// Metrics
	turnsCounter metric.Int64Counter

	mu       sync.RWMutex
	sessions map[string]*Session
	profile  Profile

	flightMuMu sync.Mutex
	flightMu   map[string]*sync.Mutex
}

// NewService creates the memory engine and loads any persisted state. Load
// failures are logged and leave the engine empty but functional.
func NewService(cfg config.MemoryConfig, store Store, logger *logging.Logger) (*Service, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	s := &Service{
		cfg:      cfg,
		store:    store,
		logger:   logger.Named("memory"),
		tracer:   otel.Tracer(tracerName),
		meter:    otel.Meter(meterName),
		sessions: make(map[string]*Session),
		profile:  defaultProfile(),
		flightMu: make(map[string]*sync.Mutex),
	}

	var err error
	s.turnsCounter, err = s.meter.Int64Counter(
		"memory_turns_total",
		metric.WithDescription("Conversation turns recorded"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	s.load(context.Background())
	return s, nil
}

// load restores persisted sessions and profile. Non-fatal on any failure.
func (s *Service) load(ctx context.Context) {
	if s.store == nil {
		return
	}

	data, err := s.store.Load(ctx)
	if err != nil {
		s.logger.Warn(ctx, "failed to load memory, starting empty", zap.Error(err))
		return
	}
	if len(data) == 0 {
		return
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.logger.Warn(ctx, "failed to decode memory, starting empty", zap.Error(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, session := range snap.Sessions {
		s.sessions[session.FlightID] = session
	}
	if snap.Profile.PreferredAnalysisDepth != "" {
		s.profile = snap.Profile
	}
}

// lockFlight returns the mutex serializing writes for one flight id.
func (s *Service) lockFlight(flightID string) *sync.Mutex {
	s.flightMuMu.Lock()
	defer s.flightMuMu.Unlock()

	m, ok := s.flightMu[flightID]
	if !ok {
		m = &sync.Mutex{}
		s.flightMu[flightID] = m
	}
	return m
}

// RecordTurn appends a conversation turn to the flight's session, creating
// the session on first contact, updates the derived topic sets and the user
// profile, and persists synchronously. Concurrent turns for the same flight
// id serialize; persistence failure is logged, never returned.
func (s *Service) RecordTurn(ctx context.Context, flightID, userMessage, assistantResponse string, turnCtx map[string]any) {
	ctx, span := s.tracer.Start(ctx, "memory.record_turn",
		trace.WithAttributes(attribute.String("flight.id", flightID)),
	)
	defer span.End()

	fm := s.lockFlight(flightID)
	fm.Lock()
	defer fm.Unlock()

	topic := ClassifyTopic(userMessage)
	sentiment := ClassifySentiment(userMessage)
	now := time.Now()

	s.mu.Lock()
	session, ok := s.sessions[flightID]
	if !ok {
		session = &Session{
			FlightID:     flightID,
			StartTime:    now,
			LastActivity: now,
		}
		s.sessions[flightID] = session
	}

	session.Turns = append(session.Turns, Turn{
		ID:                uuid.New().String(),
		Timestamp:         now,
		UserMessage:       userMessage,
		AssistantResponse: assistantResponse,
		FlightID:          flightID,
		Context:           turnCtx,
		Topic:             topic,
		Sentiment:         sentiment,
	})
	session.LastActivity = now
	if !session.discussed(topic) {
		session.TopicsDiscussed = append(session.TopicsDiscussed, topic)
	}

	s.updateProfile(topic)
	data, err := s.encode()
	s.mu.Unlock()

	span.SetAttributes(attribute.String("topic", topic), attribute.String("sentiment", sentiment))
	s.turnsCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("topic", topic)))

	if err != nil {
		s.logger.Error(ctx, "failed to encode memory", zap.Error(err))
		return
	}
	s.persist(ctx, data)
}

// updateProfile mutates the profile under s.mu.
func (s *Service) updateProfile(topic string) {
	found := false
	for _, t := range s.profile.FrequentlyAskedTopics {
		if t == topic {
			found = true
			break
		}
	}
	if !found {
		s.profile.FrequentlyAskedTopics = append(s.profile.FrequentlyAskedTopics, topic)
	}

	switch topic {
	case TopicTechnical:
		s.profile.PreferredAnalysisDepth = "detailed"
	case TopicGeneral:
		s.profile.PreferredAnalysisDepth = "summary"
	}
}

// encode marshals the snapshot; caller holds s.mu.
func (s *Service) encode() ([]byte, error) {
	snap := snapshot{
		Sessions:    make([]*Session, 0, len(s.sessions)),
		Profile:     s.profile,
		LastUpdated: time.Now(),
	}
	for _, session := range s.sessions {
		snap.Sessions = append(snap.Sessions, session)
	}
	return json.MarshalIndent(snap, "", "  ")
}

// persist writes one encoded snapshot; failures are logged, never fatal.
func (s *Service) persist(ctx context.Context, data []byte) {
	if s.store == nil {
		return
	}
	if err := s.store.Save(ctx, data); err != nil {
		s.logger.Warn(ctx, "failed to persist memory, in-memory state continues", zap.Error(err))
	}
}

// ConversationContext renders the last n turns of a flight's session for
// prompt inclusion. Responses are truncated to 200 characters. An unknown
// flight renders to the empty string.
func (s *Service) ConversationContext(flightID string, n int) string {
	if n <= 0 {
		n = s.cfg.RecentTurns
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[flightID]
	if !ok || len(session.Turns) == 0 {
		return ""
	}

	turns := session.Turns
	if len(turns) > n {
		turns = turns[len(turns)-n:]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Previous conversation context for flight %s:\n", flightID)
	for _, turn := range turns {
		preview := turn.AssistantResponse
		if len(preview) > responsePreviewLen {
			preview = preview[:responsePreviewLen]
		}
		fmt.Fprintf(&b, "User: %s\n", turn.UserMessage)
		fmt.Fprintf(&b, "Assistant: %s...\n", preview)
		fmt.Fprintf(&b, "Topic: %s\n\n", turn.Topic)
	}
	return b.String()
}

// Suggestions proposes up to two follow-ups for a flight: undiscussed
// topics matching anomaly signals first, then a safety assessment when
// anomalies pile up, then a technical deep-dive when the conversation
// trends technical. Fixed priority, capped at two.
func (s *Service) Suggestions(flightID string, anomalies []string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[flightID]
	if !ok {
		return nil
	}

	var suggestions []string

	if !session.discussed(TopicGPS) && anyContains(anomalies, "GPS") {
		suggestions = append(suggestions,
			"I notice we haven't discussed the GPS signal instability yet. Would you like me to analyze the GPS performance patterns?")
	}
	if !session.discussed(TopicBattery) && anyContainsFold(anomalies, "battery") {
		suggestions = append(suggestions,
			"You might want to know about the battery performance degradation I detected. Should I explain the voltage patterns?")
	}
	if !session.discussed(TopicSafety) && len(anomalies) > 2 {
		suggestions = append(suggestions,
			"Given the multiple anomalies detected, would you like me to provide a comprehensive safety assessment?")
	}
	if len(session.Turns) > 3 {
		technical := 0
		for _, turn := range session.Turns[len(session.Turns)-3:] {
			if turn.Topic == TopicTechnical {
				technical++
			}
		}
		if technical > 1 {
			suggestions = append(suggestions,
				"I see you're interested in technical details. Would you like me to dive deeper into the telemetry data analysis?")
		}
	}

	if len(suggestions) > 2 {
		suggestions = suggestions[:2]
	}
	return suggestions
}

// MetricsContext builds the per-turn context snapshot recorded alongside a
// turn. The "altitude" key marks a context as carrying proxy metrics for
// cross-flight comparison.
func MetricsContext(summary *flight.Summary) map[string]any {
	if summary == nil {
		return nil
	}
	return map[string]any{
		"altitude":      summary.MaxAltitude,
		"max_altitude":  summary.MaxAltitude,
		"duration":      summary.Duration,
		"max_speed":     summary.MaxSpeed,
		"anomaly_count": len(summary.Anomalies),
	}
}

// CompareFlights compares the current flight's summary against proxy
// metrics recovered from other sessions' turn contexts. It needs at least
// two sessions and at least one other session with a metrics-bearing turn;
// sentences fire only past the 1.2x altitude and 1.3x duration thresholds
// and join with " | ".
//
// The proxy scan takes the first metrics-bearing turn per session, which is
// not guaranteed to be that flight's canonical summary.
func (s *Service) CompareFlights(flightID string, summary *flight.Summary) string {
	if summary == nil {
		return ""
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.sessions) < 2 {
		return ""
	}

	var prevAltitudes, prevDurations []float64
	for id, session := range s.sessions {
		if id == flightID {
			continue
		}
		for _, turn := range session.Turns {
			if _, ok := turn.Context["altitude"]; !ok {
				continue
			}
			prevAltitudes = append(prevAltitudes, toFloat(turn.Context["max_altitude"]))
			prevDurations = append(prevDurations, toFloat(turn.Context["duration"]))
			break
		}
	}
	if len(prevAltitudes) == 0 {
		return ""
	}

	var insights []string

	avgAltitude := mean(prevAltitudes)
	if summary.MaxAltitude > avgAltitude*altitudeComparisonFactor {
		insights = append(insights, fmt.Sprintf(
			"This flight reached %.1fm - significantly higher than your average of %.1fm",
			summary.MaxAltitude, avgAltitude))
	}

	avgDuration := mean(prevDurations)
	if summary.Duration > avgDuration*durationComparisonFactor {
		insights = append(insights, fmt.Sprintf(
			"This was a longer flight (%.1fs vs avg %.1fs)",
			summary.Duration, avgDuration))
	}

	return strings.Join(insights, " | ")
}

// Cleanup evicts sessions inactive past the retention window and persists
// the reduced set. It returns the eviction count. Zero retention uses the
// configured default.
func (s *Service) Cleanup(ctx context.Context, retention time.Duration) int {
	if retention <= 0 {
		retention = s.cfg.Retention.Duration()
	}
	cutoff := time.Now().Add(-retention)

	s.mu.Lock()
	var removed []string
	for id, session := range s.sessions {
		if session.LastActivity.Before(cutoff) {
			removed = append(removed, id)
		}
	}
	for _, id := range removed {
		delete(s.sessions, id)
	}

	var data []byte
	var err error
	if len(removed) > 0 {
		data, err = s.encode()
	}
	s.mu.Unlock()

	if len(removed) == 0 {
		return 0
	}

	s.logger.Info(ctx, "evicted inactive sessions",
		zap.Int("count", len(removed)),
		zap.Duration("retention", retention),
	)
	if err != nil {
		s.logger.Error(ctx, "failed to encode memory", zap.Error(err))
		return len(removed)
	}
	s.persist(ctx, data)
	return len(removed)
}

// Session returns a flight's session.
func (s *Service) Session(flightID string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[flightID]
	return session, ok
}

// SessionCount returns the number of live sessions.
func (s *Service) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Profile returns a copy of the user profile.
func (s *Service) Profile() Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}

func anyContains(list []string, substr string) bool {
	for _, item := range list {
		if strings.Contains(item, substr) {
			return true
		}
	}
	return false
}

func anyContainsFold(list []string, substr string) bool {
	for _, item := range list {
		if strings.Contains(strings.ToLower(item), strings.ToLower(substr)) {
			return true
		}
	}
	return false
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
