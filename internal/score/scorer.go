package score

import (
	"math"

	"github.com/ppiankov/toolrate/internal/model"
)

// RatingVersion is stamped on every rating envelope
const RatingVersion = "v2"

// activeConfidence is the minimum confidence for a subscore to carry weight
const activeConfidence = 0.25

// baseWeights sum to 1.0
var baseWeights = map[string]float64{
	model.SubscorePricing:      0.18,
	model.SubscoreFeatures:     0.28,
	model.SubscoreIntegrations: 0.16,
	model.SubscoreSecurity:     0.18,
	model.SubscoreAPIDev:       0.10,
	model.SubscoreReliability:  0.10,
	model.SubscoreConsensus:    0.10,
}

// securityBonuses are added to the security base for each flag known true
var securityBonuses = []struct {
	key   string
	bonus float64
}{
	{model.FlagSOC2, 3.2},
	{model.FlagISO27001, 2.3},
	{model.FlagGDPR, 1.0},
	{model.FlagHIPAA, 1.2},
	{model.FlagSSO, 1.0},
	{model.FlagSCIM, 1.0},
}

// Input is everything the scorer reads. Tool carries the merged facts.
type Input struct {
	Tool      model.Tool
	Evidence  model.EvidenceMap
	Consensus model.ConsensusMeta
}

// Scorer computes the composite rating
type Scorer struct {
	checklist *Checklist
}

// NewScorer creates a scorer. A nil checklist uses DefaultChecklist.
func NewScorer(checklist *Checklist) *Scorer {
	if checklist == nil {
		checklist = DefaultChecklist()
	}
	return &Scorer{checklist: checklist}
}

// Score computes seven subscores, drops the ones without enough confidence,
// renormalizes the remaining weights and applies the tier multiplier once.
func (s *Scorer) Score(in Input) model.Rating {
	tool := in.Tool
	tier := tool.ConfidenceTier
	if tier == "" {
		tier = model.TierSeeded
	}

	features, hits := s.features(tool)
	subscores := map[string]model.Subscore{
		model.SubscorePricing:      pricingScore(tool, in.Evidence),
		model.SubscoreFeatures:     features,
		model.SubscoreIntegrations: integrationsScore(tool, in.Evidence, in.Consensus),
		model.SubscoreSecurity:     securityScore(tool, in.Evidence),
		model.SubscoreAPIDev:       apiDevScore(tool, in.Evidence),
		model.SubscoreReliability:  reliabilityScore(tool, in.Evidence),
		model.SubscoreConsensus:    consensusScore(in.Consensus),
	}

	weights := activeWeights(subscores)

	// fixed order: float addition is not associative
	raw := 0.0
	for _, name := range model.SubscoreNames {
		raw += subscores[name].Score * weights[name]
	}
	raw = clamp(raw, 0, 10)

	final := round2(clamp(raw*tier.Multiplier(), 0, 10))

	return model.Rating{
		Score: final,
		Raw:   raw,
		Meta: model.RatingMeta{
			Version:        RatingVersion,
			Category:       tool.Category,
			ConfidenceTier: tier,
			Subscores:      subscores,
			Weights:        weights,
			ChecklistHits:  hits,
			Consensus:      in.Consensus,
		},
	}
}

// activeWeights keeps subscores with enough confidence and rescales their
// base weights to sum to 1. Consensus counts as active for any confidence
// above zero; zero there means no claims at all.
func activeWeights(subscores map[string]model.Subscore) map[string]float64 {
	weights := make(map[string]float64)
	total := 0.0
	for _, name := range model.SubscoreNames {
		conf := subscores[name].Confidence
		active := conf >= activeConfidence
		if name == model.SubscoreConsensus {
			active = conf > 0
		}
		if active {
			weights[name] = baseWeights[name]
			total += baseWeights[name]
		}
	}
	if total == 0 {
		return weights
	}
	for name := range weights {
		weights[name] /= total
	}
	return weights
}

func pricingScore(tool model.Tool, evidence model.EvidenceMap) model.Subscore {
	score := 4.5
	known := 0

	if tool.PricingModel.IsKnown() {
		known++
	}
	switch tool.PricingModel {
	case model.PricingFree:
		score += 3.0
	case model.PricingFreemium:
		score += 2.0
	}

	if tool.HasFreeTrial != nil {
		known++
		if *tool.HasFreeTrial {
			score += 1.0
		}
	}
	if tool.HasFreePlan != nil {
		known++
		if *tool.HasFreePlan {
			score += 1.0
		}
	}
	if tool.StartingPriceMinor != nil {
		known++
		units := float64(*tool.StartingPriceMinor) / 100
		switch {
		case units <= 10:
			score += 1.0
		case units >= 50:
			score -= 0.8
		}
	}

	return model.Subscore{
		Score:      clamp(score, 0, 10),
		Confidence: 0.15 + 0.85*float64(known)/4,
		Evidence:   evidence[string(model.CategoryPricing)],
	}
}

func (s *Scorer) features(tool model.Tool) (model.Subscore, []string) {
	items := s.checklist.For(tool.Category)

	var total, hit, known float64
	hits := []string{}
	for _, item := range items {
		flag, ok := lookupFlag(tool, item.Key)
		if !ok || item.Weight <= 0 {
			continue
		}
		total += item.Weight
		if flag == nil {
			continue
		}
		known += item.Weight
		if *flag {
			hit += item.Weight
			hits = append(hits, item.Key)
		}
	}

	if total == 0 {
		return model.Subscore{}, hits
	}
	return model.Subscore{
		Score:      clamp(hit/total*10, 0, 10),
		Confidence: clamp01(known / total),
	}, hits
}

func integrationsScore(tool model.Tool, evidence model.EvidenceMap, consensus model.ConsensusMeta) model.Subscore {
	n := len(tool.Integrations)
	score := clamp(2+4.2*math.Log10(float64(n)+1), 0, 10)
	if topic, ok := consensus.Topic(model.TopicIntegrations); ok {
		score = clamp(score+1.2*topic.Signal, 0, 10)
	}

	confidence := 0.2
	if n > 0 {
		confidence = math.Min(1, 0.4+0.1*float64(n))
	}

	return model.Subscore{
		Score:      score,
		Confidence: confidence,
		Evidence:   evidence[string(model.CategoryIntegrations)],
	}
}

func securityScore(tool model.Tool, evidence model.EvidenceMap) model.Subscore {
	score := 2.5
	present, known := 0, 0
	for _, sb := range securityBonuses {
		flag, _ := tool.Flags.Lookup(sb.key)
		if flag == nil {
			continue
		}
		known++
		if *flag {
			score += sb.bonus
			present++
		}
	}

	confidence := 0.2
	if evidence.Has(string(model.CategorySecurity)) || known > 0 {
		confidence = math.Min(1, 0.5+0.1*float64(present))
	}

	return model.Subscore{
		Score:      clamp(score, 0, 10),
		Confidence: confidence,
		Evidence:   evidence[string(model.CategorySecurity)],
	}
}

func apiDevScore(tool model.Tool, evidence model.EvidenceMap) model.Subscore {
	score := 3.0
	if tool.Flags.API != nil && *tool.Flags.API {
		score += 4.5
	}
	hasDocs := evidence.Has(string(model.CategoryDocs))
	if hasDocs {
		score += 1.5
	}

	confidence := 0.2
	if tool.Flags.API != nil || hasDocs {
		confidence = 0.75
	}

	return model.Subscore{
		Score:      clamp(score, 0, 10),
		Confidence: confidence,
		Evidence:   evidence[string(model.CategoryDocs)],
	}
}

func reliabilityScore(tool model.Tool, evidence model.EvidenceMap) model.Subscore {
	score := 2.5
	confidence := 0.2

	if f := tool.Flags.StatusPage; f != nil {
		confidence += 0.4
		if *f {
			score += 3.5
		}
	}
	if f := tool.Flags.Changelog; f != nil {
		confidence += 0.4
		if *f {
			score += 4.0
		}
	}

	var ev []string
	ev = append(ev, evidence[string(model.CategoryStatus)]...)
	ev = append(ev, evidence[string(model.CategoryChangelog)]...)

	return model.Subscore{
		Score:      clamp(score, 0, 10),
		Confidence: math.Min(1, confidence),
		Evidence:   ev,
	}
}

func consensusScore(consensus model.ConsensusMeta) model.Subscore {
	if len(consensus.Topics) == 0 {
		return model.Subscore{}
	}

	var signalSum, confSum float64
	for _, topic := range consensus.Topics {
		signalSum += topic.Signal
		confSum += topic.Confidence
	}
	n := float64(len(consensus.Topics))
	meanSignal := signalSum / n
	meanConfidence := confSum / n

	return model.Subscore{
		Score:      clamp(5+meanSignal*(2.0+meanConfidence*2.0), 0, 10),
		Confidence: clamp01(meanConfidence),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
