package model

import "time"

// ConsensusLabel summarises a topic signal
type ConsensusLabel string

const (
	LabelPositive ConsensusLabel = "positive"
	LabelNegative ConsensusLabel = "negative"
	LabelMixed    ConsensusLabel = "mixed"
)

// ConsensusTopic aggregates every claim sharing a topic for one tool
type ConsensusTopic struct {
	Topic       Topic          `json:"topic"`
	Signal      float64        `json:"signal"`     // [-1, 1]
	Sentiment   ConsensusLabel `json:"sentiment"`  // derived from Signal
	Confidence  float64        `json:"confidence"` // [0, 1]
	SourceTypes []string       `json:"source_types"`
	ClaimCount  int            `json:"claim_count"`
}

// ConsensusMeta is the aggregator output embedded in rating metadata
type ConsensusMeta struct {
	Version     string           `json:"version"`
	GeneratedAt time.Time        `json:"generated_at"`
	TopicCount  int              `json:"topic_count"`
	Topics      []ConsensusTopic `json:"topics"`
}

// Topic returns the consensus for t if present
func (c ConsensusMeta) Topic(t Topic) (ConsensusTopic, bool) {
	for _, topic := range c.Topics {
		if topic.Topic == t {
			return topic, true
		}
	}
	return ConsensusTopic{}, false
}

// Subscore names
const (
	SubscorePricing      = "pricing"
	SubscoreFeatures     = "features"
	SubscoreIntegrations = "integrations"
	SubscoreSecurity     = "security"
	SubscoreAPIDev       = "api_dev"
	SubscoreReliability  = "reliability"
	SubscoreConsensus    = "consensus"
)

// SubscoreNames lists the seven subscores in fixed order
var SubscoreNames = []string{
	SubscorePricing,
	SubscoreFeatures,
	SubscoreIntegrations,
	SubscoreSecurity,
	SubscoreAPIDev,
	SubscoreReliability,
	SubscoreConsensus,
}

// Subscore is one component of the composite rating
type Subscore struct {
	Score      float64  `json:"score"`      // [0, 10]
	Confidence float64  `json:"confidence"` // [0, 1]
	Evidence   []string `json:"evidence,omitempty"`
}

// RatingMeta is the persisted envelope explaining a composite score
type RatingMeta struct {
	Version        string              `json:"version"`
	Category       string              `json:"category,omitempty"`
	ConfidenceTier ConfidenceTier      `json:"confidence_tier"`
	Subscores      map[string]Subscore `json:"subscores"`
	Weights        map[string]float64  `json:"weights"`
	ChecklistHits  []string            `json:"checklist_hits"`
	Consensus      ConsensusMeta       `json:"consensus"`
}

// Rating is the scorer output
type Rating struct {
	Score float64    `json:"score"`
	Raw   float64    `json:"raw"`
	Meta  RatingMeta `json:"meta"`
}

// Enrichment is the full result of running the pipeline for one tool.
// Nothing in it has been persisted.
type Enrichment struct {
	Tool        Tool                      `json:"tool"`
	Homepage    PageMeta                  `json:"homepage"`
	Links       map[SourceCategory]string `json:"links"`
	Opinions    OpinionSources            `json:"opinions"`
	SourcePages []SourcePage              `json:"source_pages"`
	Facts       ExtractedFacts            `json:"facts"`
	Claims      []ExternalClaim           `json:"claims"`
	Rating      Rating                    `json:"rating"`
	Duration    time.Duration             `json:"duration_ns"`
}
