// Package memory implements the per-flight conversational memory engine:
// append-only conversation turns grouped into flight sessions, a process
// wide user profile, proactive suggestions, and cross-flight comparison.
// Persistence is synchronous but non-fatal; the in-memory state stays
// authoritative for the process lifetime.
package memory

import "time"

// Turn is one immutable conversation exchange.
type Turn struct {
	ID                string         `json:"id"`
	Timestamp         time.Time      `json:"timestamp"`
	UserMessage       string         `json:"user_message"`
	AssistantResponse string         `json:"assistant_response"`
	FlightID          string         `json:"flight_id"`
	Context           map[string]any `json:"context,omitempty"`
	Topic             string         `json:"topic"`
	Sentiment         string         `json:"sentiment"`
	FollowUpSuggested bool           `json:"follow_up_suggested"`
}

// Session is the conversational state for one flight id. Turns are
// append-only; the derived sets grow monotonically.
type Session struct {
	FlightID          string    `json:"flight_id"`
	StartTime         time.Time `json:"start_time"`
	LastActivity      time.Time `json:"last_activity"`
	Turns             []Turn    `json:"conversation_turns"`
	TopicsDiscussed   []string  `json:"topics_discussed"`
	InsightsShared    []string  `json:"insights_shared"`
	UserInterests     []string  `json:"user_interests"`
	AnomaliesExplored []string  `json:"anomalies_explored"`
}

// discussed reports whether a topic is already in the session's set.
func (s *Session) discussed(topic string) bool {
	for _, t := range s.TopicsDiscussed {
		if t == topic {
			return true
		}
	}
	return false
}

// Profile accumulates cross-session operator preferences. It has no
// independent lifecycle; it is mutated only as a side effect of recording
// turns and grows for the process lifetime.
type Profile struct {
	PreferredAnalysisDepth string   `json:"preferred_analysis_depth"`
	FrequentlyAskedTopics  []string `json:"frequently_asked_topics"`
	ResponseStyle          string   `json:"response_preferences"`
	FlightHistory          []string `json:"flight_history"`
	LearningPatterns       []string `json:"learning_patterns"`
}

func defaultProfile() Profile {
	return Profile{
		PreferredAnalysisDepth: "detailed",
		ResponseStyle:          "technical",
	}
}

// snapshot is the on-disk shape of the whole memory.
type snapshot struct {
	Sessions    []*Session `json:"flight_sessions"`
	Profile     Profile    `json:"user_profile"`
	LastUpdated time.Time  `json:"last_updated"`
}
