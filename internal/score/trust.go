package score

import "strings"

// DefaultTrustWeight applies to source types without an explicit weight
const DefaultTrustWeight = 0.75

// defaultTrustWeights ranks opinion sources by how curated their reviews are
var defaultTrustWeights = map[string]float64{
	"g2":               0.90,
	"trustradius":      0.90,
	"capterra":         0.85,
	"getapp":           0.80,
	"producthunt":      0.70,
	"search_reviews":   0.55,
	"search_developer": 0.60,
	"search_community": 0.50,
}

// SourceTrust maps opinion source types to a weight in [0, 1]
type SourceTrust struct {
	weights map[string]float64
}

// NewSourceTrust creates a trust lookup from the built-in weights with
// overrides applied on top. Out-of-range overrides are clamped.
func NewSourceTrust(overrides map[string]float64) *SourceTrust {
	weights := make(map[string]float64, len(defaultTrustWeights)+len(overrides))
	for sourceType, w := range defaultTrustWeights {
		weights[sourceType] = w
	}
	for sourceType, w := range overrides {
		weights[strings.ToLower(strings.TrimSpace(sourceType))] = clamp01(w)
	}
	return &SourceTrust{weights: weights}
}

// Weight returns the trust weight for sourceType
func (s *SourceTrust) Weight(sourceType string) float64 {
	if s == nil {
		return defaultWeight(sourceType)
	}
	if w, ok := s.weights[strings.ToLower(sourceType)]; ok {
		return w
	}
	return DefaultTrustWeight
}

func defaultWeight(sourceType string) float64 {
	if w, ok := defaultTrustWeights[strings.ToLower(sourceType)]; ok {
		return w
	}
	return DefaultTrustWeight
}

func clamp01(v float64) float64 {
	return clamp(v, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
