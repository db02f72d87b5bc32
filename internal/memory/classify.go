package memory

import "strings"

// Topic vocabulary. Classification tests the categories in this fixed
// order and the first match wins; general is the default.
const (
	TopicGPS         = "gps"
	TopicBattery     = "battery"
	TopicAltitude    = "altitude"
	TopicVibration   = "vibration"
	TopicSafety      = "safety"
	TopicPerformance = "performance"
	TopicAnomalies   = "anomalies"
	TopicTechnical   = "technical"
	TopicGeneral     = "general"
)

var topicKeywords = []struct {
	topic    string
	keywords []string
}{
	{TopicGPS, []string{"gps", "signal", "satellite", "location"}},
	{TopicBattery, []string{"battery", "voltage", "power", "charge"}},
	{TopicAltitude, []string{"altitude", "height", "elevation", "drop"}},
	{TopicVibration, []string{"vibration", "shake", "oscillation"}},
	{TopicSafety, []string{"safety", "danger", "risk", "concern"}},
	{TopicPerformance, []string{"performance", "efficiency", "optimize"}},
	{TopicAnomalies, []string{"anomaly", "error", "issue", "problem"}},
	{TopicTechnical, []string{"technical", "detail", "data", "metric"}},
}

// ClassifyTopic assigns a message to the first topic whose keyword set it
// matches by substring, case-insensitively.
func ClassifyTopic(message string) string {
	lower := strings.ToLower(message)
	for _, entry := range topicKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.topic
			}
		}
	}
	return TopicGeneral
}

// Sentiment labels.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

var positiveWords = []string{"good", "great", "excellent", "perfect", "amazing", "thanks"}
var negativeWords = []string{"bad", "terrible", "awful", "concerned", "worried", "problem"}

// ClassifySentiment compares positive against negative word counts; ties
// are neutral.
func ClassifySentiment(message string) string {
	lower := strings.ToLower(message)

	positive := 0
	for _, w := range positiveWords {
		if strings.Contains(lower, w) {
			positive++
		}
	}
	negative := 0
	for _, w := range negativeWords {
		if strings.Contains(lower, w) {
			negative++
		}
	}

	switch {
	case positive > negative:
		return SentimentPositive
	case negative > positive:
		return SentimentNegative
	}
	return SentimentNeutral
}
