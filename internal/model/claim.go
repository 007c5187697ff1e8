package model

import "sort"

// Topic is one of the fixed consensus topics
type Topic string

const (
	TopicPricing      Topic = "pricing"
	TopicUsability    Topic = "usability"
	TopicSupport      Topic = "support"
	TopicIntegrations Topic = "integrations"
	TopicPerformance  Topic = "performance"
	TopicReliability  Topic = "reliability"
	TopicFeatures     Topic = "features"
	TopicSecurity     Topic = "security"
	TopicOnboarding   Topic = "onboarding"
)

// Sentiment is -1, 0 or +1
type Sentiment int

const (
	SentimentNegative Sentiment = -1
	SentimentNeutral  Sentiment = 0
	SentimentPositive Sentiment = 1
)

func (s Sentiment) String() string {
	switch {
	case s > 0:
		return "positive"
	case s < 0:
		return "negative"
	default:
		return "mixed"
	}
}

// ExternalClaim is one topic+sentiment assertion derived from a single opinion page.
// Claim is generated text, never a verbatim excerpt.
type ExternalClaim struct {
	ID         string        `json:"id"`
	ToolID     string        `json:"tool_id"`
	SourceType string        `json:"source_type"`
	SourceURL  string        `json:"source_url"`
	Topic      Topic         `json:"topic"`
	Sentiment  Sentiment     `json:"sentiment"`
	Claim      string        `json:"claim"`
	Strength   float64       `json:"strength"`
	Evidence   ClaimEvidence `json:"evidence"`
}

// ClaimEvidence records which taxonomy phrases matched
type ClaimEvidence struct {
	PositiveHits int      `json:"positive_hits"`
	NegativeHits int      `json:"negative_hits"`
	Matched      []string `json:"matched,omitempty"`
}

// OpinionSources maps an opinion source type to the URL to read
type OpinionSources map[string]string

// Types returns the source types in sorted order
func (o OpinionSources) Types() []string {
	types := make([]string, 0, len(o))
	for t := range o {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
