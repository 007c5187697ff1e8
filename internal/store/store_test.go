package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/toolrate/internal/model"
	"github.com/ppiankov/toolrate/internal/pipeline"
)

var _ pipeline.Store = (*Store)(nil)

var testNow = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "toolrate.db"))
	require.NoError(t, err)
	s.now = func() time.Time { return testNow }
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedTool(t *testing.T, s *Store, slug string, category string) model.Tool {
	t.Helper()
	tool, err := s.UpsertTool(context.Background(), model.Tool{
		Slug:       slug,
		Name:       slug,
		WebsiteURL: "https://" + slug + ".io",
		Category:   category,
	})
	require.NoError(t, err)
	return tool
}

func TestOpen_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "toolrate.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	assert.Equal(t, path, s.Path())
	assert.FileExists(t, path)
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "toolrate.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.UpsertTool(context.Background(), model.Tool{Slug: "acme", WebsiteURL: "https://acme.io"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	tool, err := s.GetTool(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, "acme", tool.Slug)
}

func TestUpsertTool_Defaults(t *testing.T) {
	s := openTestStore(t)

	tool := seedTool(t, s, "acme", "crm")

	assert.NotEmpty(t, tool.ID)
	assert.Equal(t, model.PricingUnknown, tool.PricingModel)
	assert.Equal(t, model.TierSeeded, tool.ConfidenceTier)
	assert.Equal(t, model.BillingUnknown, tool.BillingPeriod)
	assert.Nil(t, tool.StartingPriceMinor)
	assert.Nil(t, tool.HasFreeTrial)
	assert.Nil(t, tool.Rating)
	assert.Nil(t, tool.RatedAt)
}

func TestUpsertTool_Validation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.UpsertTool(ctx, model.Tool{WebsiteURL: "https://acme.io"})
	assert.ErrorContains(t, err, "slug")

	_, err = s.UpsertTool(ctx, model.Tool{Slug: "acme"})
	assert.ErrorContains(t, err, "website")
}

func TestUpsertTool_ReusesIDBySlugAndKeepsFacts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first, err := s.UpsertTool(ctx, model.Tool{
		Slug:         "acme",
		Name:         "Acme",
		WebsiteURL:   "https://acme.io",
		HasFreePlan:  model.Bool(true),
		Integrations: []string{"Slack"},
		Flags:        model.FeatureFlags{SSO: model.Bool(true)},
	})
	require.NoError(t, err)

	second, err := s.UpsertTool(ctx, model.Tool{
		Slug:         "acme",
		Name:         "Acme Inc",
		WebsiteURL:   "https://acme.com",
		PricingModel: model.PricingFreemium,
		Flags:        model.FeatureFlags{API: model.Bool(true)},
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Acme Inc", second.Name)
	assert.Equal(t, "https://acme.com", second.WebsiteURL)
	assert.Equal(t, model.PricingFreemium, second.PricingModel)
	require.NotNil(t, second.HasFreePlan, "known fact is not regressed to unknown")
	assert.True(t, *second.HasFreePlan)
	assert.Equal(t, []string{"Slack"}, second.Integrations)
	require.NotNil(t, second.Flags.SSO)
	require.NotNil(t, second.Flags.API)
}

func TestGetTool(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	tool := seedTool(t, s, "acme", "crm")

	byID, err := s.GetTool(ctx, tool.ID)
	require.NoError(t, err)
	bySlug, err := s.GetTool(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, byID, bySlug)

	_, err = s.GetTool(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListTools(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedTool(t, s, "zeta", "crm")
	seedTool(t, s, "alpha", "crm")
	beta := seedTool(t, s, "beta", "Analytics")

	all, err := s.ListTools(ctx, Selection{All: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta", "zeta"}, slugs(all))

	crm, err := s.ListTools(ctx, Selection{Category: "CRM"})
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, slugs(crm))

	refs, err := s.ListTools(ctx, Selection{Refs: []string{"zeta", beta.ID}, All: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "beta"}, slugs(refs))

	partial, err := s.ListTools(ctx, Selection{Refs: []string{"alpha", "ghost"}})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorContains(t, err, "ghost")
	assert.Equal(t, []string{"alpha"}, slugs(partial))

	_, err = s.ListTools(ctx, Selection{})
	assert.ErrorContains(t, err, "empty selection")
}

func TestListTools_RefsSelectEachToolOnce(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	acme := seedTool(t, s, "acme", "")
	seedTool(t, s, "beta", "")

	tools, err := s.ListTools(ctx, Selection{Refs: []string{"acme", acme.ID, "beta", "acme"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"acme", "beta"}, slugs(tools))
}

func TestSourcePages_UpsertOverwrites(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	tool := seedTool(t, s, "acme", "")

	require.NoError(t, s.UpsertSourcePage(ctx, model.SourcePage{
		ToolID: tool.ID, Category: model.CategoryDocs, URL: "https://acme.io/docs",
		Meta: model.PageMeta{Status: 200},
	}))
	require.NoError(t, s.UpsertSourcePage(ctx, model.SourcePage{
		ToolID: tool.ID, Category: model.CategoryPricing, URL: "https://acme.io/pricing",
		FetchedAt: testNow.Add(-time.Hour), Meta: model.PageMeta{Status: 200},
	}))
	require.NoError(t, s.UpsertSourcePage(ctx, model.SourcePage{
		ToolID: tool.ID, Category: model.CategoryDocs, URL: "https://docs.acme.io",
		Meta: model.PageMeta{FinalURL: "https://docs.acme.io/", Status: 200, ContentType: "text/html"},
	}))

	pages, err := s.ListSourcePages(ctx, tool.ID)
	require.NoError(t, err)
	require.Len(t, pages, 2)

	assert.Equal(t, model.CategoryPricing, pages[0].Category)
	assert.Equal(t, testNow.Add(-time.Hour), pages[0].FetchedAt)
	assert.Equal(t, model.CategoryDocs, pages[1].Category)
	assert.Equal(t, "https://docs.acme.io", pages[1].URL)
	assert.Equal(t, "text/html", pages[1].Meta.ContentType)
	assert.Equal(t, testNow, pages[1].FetchedAt)
}

func TestReplaceClaims(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	tool := seedTool(t, s, "acme", "")
	other := seedTool(t, s, "other", "")

	require.NoError(t, s.ReplaceClaims(ctx, other.ID, []model.ExternalClaim{
		{SourceType: "g2", Topic: model.TopicPricing, Sentiment: model.SentimentNegative, Claim: "x", Strength: 0.5},
	}))
	require.NoError(t, s.ReplaceClaims(ctx, tool.ID, []model.ExternalClaim{
		{SourceType: "g2", Topic: model.TopicSupport, Sentiment: model.SentimentPositive, Claim: "a", Strength: 1},
		{SourceType: "capterra", Topic: model.TopicUsability, Sentiment: model.SentimentNeutral, Claim: "b", Strength: 0.25},
	}))

	claims, err := s.ListClaims(ctx, tool.ID)
	require.NoError(t, err)
	require.Len(t, claims, 2)
	assert.Equal(t, "capterra", claims[0].SourceType)
	assert.NotEmpty(t, claims[0].ID)
	assert.NotEqual(t, claims[0].ID, claims[1].ID)
	assert.Equal(t, model.SentimentPositive, claims[1].Sentiment)

	require.NoError(t, s.ReplaceClaims(ctx, tool.ID, []model.ExternalClaim{
		{SourceType: "getapp", Topic: model.TopicReliability, Sentiment: model.SentimentNegative, Claim: "c", Strength: 0.5,
			Evidence: model.ClaimEvidence{NegativeHits: 2, Matched: []string{"downtime"}}},
	}))
	claims, err = s.ListClaims(ctx, tool.ID)
	require.NoError(t, err)
	require.Len(t, claims, 1)
	assert.Equal(t, "getapp", claims[0].SourceType)
	assert.Equal(t, []string{"downtime"}, claims[0].Evidence.Matched)

	require.NoError(t, s.ReplaceClaims(ctx, tool.ID, nil))
	claims, err = s.ListClaims(ctx, tool.ID)
	require.NoError(t, err)
	assert.Empty(t, claims)

	untouched, err := s.ListClaims(ctx, other.ID)
	require.NoError(t, err)
	assert.Len(t, untouched, 1)
}

func TestMergeToolFacts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	tool, err := s.UpsertTool(ctx, model.Tool{
		Slug: "acme", WebsiteURL: "https://acme.io", HasFreePlan: model.Bool(true),
	})
	require.NoError(t, err)

	price := int64(2900)
	days := 14
	facts := model.NewExtractedFacts()
	facts.StartingPriceMinor = &price
	facts.BillingPeriod = model.BillingMonth
	facts.HasFreeTrial = model.Bool(true)
	facts.TrialDays = &days
	facts.Flags.SOC2 = model.Bool(true)

	require.NoError(t, s.MergeToolFacts(ctx, tool.ID, facts, model.TierEnriched))

	got, err := s.GetTool(ctx, tool.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TierEnriched, got.ConfidenceTier)
	require.NotNil(t, got.StartingPriceMinor)
	assert.Equal(t, int64(2900), *got.StartingPriceMinor)
	assert.Equal(t, model.BillingMonth, got.BillingPeriod)
	require.NotNil(t, got.TrialDays)
	assert.Equal(t, 14, *got.TrialDays)
	require.NotNil(t, got.HasFreePlan)
	assert.True(t, *got.HasFreePlan)
	require.NotNil(t, got.Flags.SOC2)

	// unknown values never regress known ones
	require.NoError(t, s.MergeToolFacts(ctx, tool.ID, model.NewExtractedFacts(), ""))
	again, err := s.GetTool(ctx, tool.ID)
	require.NoError(t, err)
	assert.Equal(t, got, again)

	assert.ErrorIs(t, s.MergeToolFacts(ctx, "ghost", facts, model.TierEnriched), ErrNotFound)
}

func TestSaveRating(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	tool := seedTool(t, s, "acme", "crm")

	rating := model.Rating{
		Score: 6.42,
		Raw:   6.76,
		Meta: model.RatingMeta{
			Version:        "v2",
			ConfidenceTier: model.TierEnriched,
			Subscores:      map[string]model.Subscore{model.SubscorePricing: {Score: 5.5, Confidence: 0.6}},
			Weights:        map[string]float64{model.SubscorePricing: 1},
			Consensus: model.ConsensusMeta{
				Version:     "v1",
				GeneratedAt: testNow,
				TopicCount:  1,
				Topics:      []model.ConsensusTopic{{Topic: model.TopicSupport, Signal: 0.5, Sentiment: model.LabelPositive}},
			},
		},
	}
	require.NoError(t, s.SaveRating(ctx, tool.ID, rating))

	got, err := s.GetTool(ctx, "acme")
	require.NoError(t, err)
	require.NotNil(t, got.Rating)
	assert.Equal(t, 6.42, *got.Rating)
	require.NotNil(t, got.RatedAt)
	assert.Equal(t, testNow, *got.RatedAt)
	require.NotNil(t, got.RatingMeta)
	assert.Equal(t, rating.Meta, *got.RatingMeta)

	assert.ErrorIs(t, s.SaveRating(ctx, "ghost", rating), ErrNotFound)
}

func TestCommitter_AgainstStore(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	tool := seedTool(t, s, "acme", "")

	e := &model.Enrichment{
		Tool: model.Tool{ID: tool.ID, ConfidenceTier: model.TierEnriched},
		SourcePages: []model.SourcePage{
			{ToolID: tool.ID, Category: model.CategoryPricing, URL: "https://acme.io/pricing", FetchedAt: testNow},
		},
		Facts:  model.NewExtractedFacts(),
		Claims: []model.ExternalClaim{{ToolID: tool.ID, SourceType: "g2", Topic: model.TopicSupport, Claim: "a", Strength: 1}},
		Rating: model.Rating{Score: 7.1},
	}
	require.NoError(t, pipeline.NewCommitter(s, nil).Commit(ctx, e))

	got, err := s.GetTool(ctx, tool.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TierEnriched, got.ConfidenceTier)
	require.NotNil(t, got.Rating)
	assert.Equal(t, 7.1, *got.Rating)

	pages, err := s.ListSourcePages(ctx, tool.ID)
	require.NoError(t, err)
	assert.Len(t, pages, 1)
	claims, err := s.ListClaims(ctx, tool.ID)
	require.NoError(t, err)
	assert.Len(t, claims, 1)
}

func slugs(tools []model.Tool) []string {
	out := make([]string, 0, len(tools))
	for _, tool := range tools {
		out = append(out, tool.Slug)
	}
	return out
}
