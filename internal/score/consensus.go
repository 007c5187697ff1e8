package score

import (
	"math"
	"sort"
	"time"

	"github.com/ppiankov/toolrate/internal/model"
)

// ConsensusVersion is stamped on every aggregate
const ConsensusVersion = "v1"

// Sentiment label thresholds on the topic signal
const (
	positiveThreshold = 0.2
	negativeThreshold = -0.2
)

type topicAccumulator struct {
	weighted    float64
	weightSum   float64
	strengthSum float64
	count       int
	sources     map[string]bool
}

// Aggregate groups claims by topic into a weighted consensus.
//
//	weight     = trust(sourceType) × strength
//	signal     = Σ(sentiment × weight) / Σ weight, clamped to [-1, 1]
//	confidence = min(1, sources/5)×0.55 + min(1, claims/10)×0.25 + meanStrength×0.20
//
// Topics are ordered by confidence × |signal| descending, then by name.
func Aggregate(claims []model.ExternalClaim, trust *SourceTrust, now time.Time) model.ConsensusMeta {
	byTopic := make(map[model.Topic]*topicAccumulator)

	for _, c := range claims {
		acc, ok := byTopic[c.Topic]
		if !ok {
			acc = &topicAccumulator{sources: make(map[string]bool)}
			byTopic[c.Topic] = acc
		}
		w := trust.Weight(c.SourceType) * c.Strength
		acc.weighted += float64(c.Sentiment) * w
		acc.weightSum += w
		acc.strengthSum += c.Strength
		acc.count++
		acc.sources[c.SourceType] = true
	}

	topics := make([]model.ConsensusTopic, 0, len(byTopic))
	for topic, acc := range byTopic {
		signal := 0.0
		if acc.weightSum > 0 {
			signal = clamp(acc.weighted/acc.weightSum, -1, 1)
		}

		sourceTypes := make([]string, 0, len(acc.sources))
		for st := range acc.sources {
			sourceTypes = append(sourceTypes, st)
		}
		sort.Strings(sourceTypes)

		meanStrength := acc.strengthSum / float64(acc.count)
		confidence := clamp01(
			math.Min(1, float64(len(sourceTypes))/5)*0.55 +
				math.Min(1, float64(acc.count)/10)*0.25 +
				meanStrength*0.20)

		topics = append(topics, model.ConsensusTopic{
			Topic:       topic,
			Signal:      signal,
			Sentiment:   Label(signal),
			Confidence:  confidence,
			SourceTypes: sourceTypes,
			ClaimCount:  acc.count,
		})
	}

	sort.Slice(topics, func(i, j int) bool {
		ri := topics[i].Confidence * math.Abs(topics[i].Signal)
		rj := topics[j].Confidence * math.Abs(topics[j].Signal)
		if ri != rj {
			return ri > rj
		}
		return topics[i].Topic < topics[j].Topic
	})

	return model.ConsensusMeta{
		Version:     ConsensusVersion,
		GeneratedAt: now.UTC(),
		TopicCount:  len(topics),
		Topics:      topics,
	}
}

// Label maps a signal to positive (≥ 0.2), negative (≤ -0.2) or mixed
func Label(signal float64) model.ConsensusLabel {
	switch {
	case signal >= positiveThreshold:
		return model.LabelPositive
	case signal <= negativeThreshold:
		return model.LabelNegative
	default:
		return model.LabelMixed
	}
}
