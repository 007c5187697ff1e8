package extract

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/toolrate/internal/model"
)

type topicPhrases struct {
	topic    model.Topic
	positive []string
	negative []string
}

// topicTaxonomy is checked in order; ties on total hits keep the earlier topic.
// No phrase is a substring of a phrase on the opposite side.
var topicTaxonomy = []topicPhrases{
	{
		topic:    model.TopicPricing,
		positive: []string{"affordable", "good value", "great value", "worth every penny", "reasonably priced", "fair price", "cheaper than"},
		negative: []string{"too expensive", "very expensive", "overpriced", "pricey", "too costly", "hidden fees", "price increase", "not worth the"},
	},
	{
		topic:    model.TopicUsability,
		positive: []string{"easy to use", "very intuitive", "user-friendly", "user friendly", "clean interface", "simple to use", "easy to learn"},
		negative: []string{"hard to use", "confusing", "clunky", "steep learning curve", "unintuitive", "cluttered", "difficult to use"},
	},
	{
		topic:    model.TopicSupport,
		positive: []string{"great support", "helpful support", "prompt support", "excellent support", "fast support", "great customer service", "support team was helpful"},
		negative: []string{"poor support", "slow support", "terrible support", "no response", "unresponsive", "bad customer service", "support is lacking"},
	},
	{
		topic:    model.TopicIntegrations,
		positive: []string{"integrates well", "great integrations", "seamless integration", "easy integration", "lots of integrations", "integrates seamlessly"},
		negative: []string{"limited integrations", "lacks integrations", "integration issues", "poor integration", "doesn't integrate", "does not integrate"},
	},
	{
		topic:    model.TopicPerformance,
		positive: []string{"lightning fast", "very fast", "snappy", "performs well", "quick to load", "blazing fast"},
		negative: []string{"slow to load", "laggy", "sluggish", "performance issues", "takes forever", "memory hog", "very slow"},
	},
	{
		topic:    model.TopicReliability,
		positive: []string{"very reliable", "highly reliable", "rock solid", "great uptime", "dependable", "never goes down", "very stable"},
		negative: []string{"downtime", "outage", "unreliable", "crashes", "buggy", "data loss"},
	},
	{
		topic:    model.TopicFeatures,
		positive: []string{"feature-rich", "feature rich", "powerful features", "lots of features", "robust features", "does everything", "very flexible"},
		negative: []string{"missing features", "lacks features", "limited features", "lacking features", "too basic", "missing basic"},
	},
	{
		topic:    model.TopicSecurity,
		positive: []string{"very secure", "secure platform", "strong security", "enterprise-grade security", "trustworthy", "good security"},
		negative: []string{"security issues", "data breach", "vulnerability", "insecure", "privacy concerns", "security concerns"},
	},
	{
		topic:    model.TopicOnboarding,
		positive: []string{"easy setup", "quick setup", "easy to set up", "smooth onboarding", "up and running", "great onboarding"},
		negative: []string{"hard to set up", "difficult setup", "complicated setup", "long setup", "painful onboarding", "difficult to set up"},
	},
}

// ClaimExtractor reads third-party opinion pages and classifies their
// dominant topic and sentiment
type ClaimExtractor struct {
	fetcher  PageFetcher
	parallel int
}

// NewClaimExtractor creates a new claim extractor
func NewClaimExtractor(fetcher PageFetcher, parallel int) *ClaimExtractor {
	if parallel <= 0 {
		parallel = 1
	}
	return &ClaimExtractor{fetcher: fetcher, parallel: parallel}
}

// Extract fetches every non-fallback opinion source and returns one claim
// per page that hits the taxonomy. Search-query fallbacks are never fetched.
func (e *ClaimExtractor) Extract(ctx context.Context, toolID string, sources model.OpinionSources) []model.ExternalClaim {
	type slot struct {
		sourceType string
		url        string
		result     model.FetchResult
	}

	var slots []slot
	for _, sourceType := range sources.Types() {
		if IsSearchFallback(sourceType) {
			continue
		}
		slots = append(slots, slot{sourceType: sourceType, url: sources[sourceType]})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallel)
	for i := range slots {
		g.Go(func() error {
			slots[i].result = e.fetcher.Fetch(gctx, slots[i].url)
			return nil
		})
	}
	_ = g.Wait()

	var claims []model.ExternalClaim
	for _, s := range slots {
		if !s.result.OK() {
			continue
		}
		text := PageText(s.result.Text, s.result.ContentType)
		claim, ok := ClassifyClaim(text)
		if !ok {
			continue
		}
		claim.ToolID = toolID
		claim.SourceType = s.sourceType
		claim.SourceURL = s.url
		claim.Claim = claimText(s.sourceType, claim.Topic, claim.Sentiment)
		claims = append(claims, claim)
	}

	return claims
}

// ClassifyClaim scores normalized text against the topic taxonomy. The topic
// with the most phrase hits wins; a page with no hits yields no claim.
func ClassifyClaim(text string) (model.ExternalClaim, bool) {
	bestIdx, bestTotal := -1, 0
	var bestEvidence model.ClaimEvidence

	for i, tp := range topicTaxonomy {
		ev := model.ClaimEvidence{}
		ev.PositiveHits, ev.Matched = countPhrases(text, tp.positive, ev.Matched)
		ev.NegativeHits, ev.Matched = countPhrases(text, tp.negative, ev.Matched)

		total := ev.PositiveHits + ev.NegativeHits
		if total > bestTotal {
			bestIdx, bestTotal, bestEvidence = i, total, ev
		}
	}

	if bestIdx < 0 {
		return model.ExternalClaim{}, false
	}

	sentiment := model.SentimentNeutral
	switch {
	case bestEvidence.PositiveHits > bestEvidence.NegativeHits:
		sentiment = model.SentimentPositive
	case bestEvidence.NegativeHits > bestEvidence.PositiveHits:
		sentiment = model.SentimentNegative
	}

	return model.ExternalClaim{
		Topic:     topicTaxonomy[bestIdx].topic,
		Sentiment: sentiment,
		Strength:  claimStrength(bestTotal),
		Evidence:  bestEvidence,
	}, true
}

func countPhrases(text string, phrases []string, matched []string) (int, []string) {
	hits := 0
	for _, phrase := range phrases {
		if n := strings.Count(text, phrase); n > 0 {
			hits += n
			matched = append(matched, phrase)
		}
	}
	return hits, matched
}

// claimStrength is clamp(hits/3, 0.25, 1)
func claimStrength(hits int) float64 {
	s := float64(hits) / 3
	if s < 0.25 {
		return 0.25
	}
	if s > 1 {
		return 1
	}
	return s
}

// claimText generates the claim sentence. Page excerpts are never quoted.
func claimText(sourceType string, topic model.Topic, sentiment model.Sentiment) string {
	source := SourceLabel(sourceType)
	switch sentiment {
	case model.SentimentPositive:
		return fmt.Sprintf("%s reviewers are largely positive about %s.", source, topic)
	case model.SentimentNegative:
		return fmt.Sprintf("%s reviewers raise concerns about %s.", source, topic)
	default:
		return fmt.Sprintf("%s reviewers are mixed on %s.", source, topic)
	}
}
