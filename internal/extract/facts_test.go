package extract

import (
	"context"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/toolrate/internal/model"
)

// stubFetcher serves canned results keyed by URL and records requests
type stubFetcher struct {
	mu      sync.Mutex
	pages   map[string]model.FetchResult
	fetched []string
}

func newStubFetcher(pages map[string]string) *stubFetcher {
	f := &stubFetcher{pages: make(map[string]model.FetchResult)}
	for u, body := range pages {
		f.pages[u] = model.FetchResult{FinalURL: u, Status: 200, ContentType: "text/html; charset=utf-8", Text: body}
	}
	return f
}

func (f *stubFetcher) Fetch(_ context.Context, rawURL string) model.FetchResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, rawURL)
	return f.pages[rawURL]
}

func (f *stubFetcher) requested() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.fetched...)
}

func okPage(category model.SourceCategory, u, body string) FetchedPage {
	return FetchedPage{
		Category: category,
		URL:      u,
		Result:   model.FetchResult{FinalURL: u, Status: 200, ContentType: "text/html", Text: body},
	}
}

func TestDetectFacts_Pricing(t *testing.T) {
	pages := []FetchedPage{okPage(model.CategoryPricing, "https://x.com/pricing",
		`<html><body><h1>Plans</h1><p>Pro $29/month</p><p>Start your 14-day free trial</p></body></html>`)}

	facts := DetectFacts(pages)

	require.NotNil(t, facts.StartingPriceMinor)
	assert.Equal(t, int64(2900), *facts.StartingPriceMinor)
	assert.Equal(t, model.BillingMonth, facts.BillingPeriod)
	require.NotNil(t, facts.HasFreeTrial)
	assert.True(t, *facts.HasFreeTrial)
	require.NotNil(t, facts.TrialDays)
	assert.Equal(t, 14, *facts.TrialDays)
	assert.Nil(t, facts.HasFreePlan)
	assert.Equal(t, []string{"https://x.com/pricing"}, facts.Evidence["pricing"])
}

func TestDetectFacts_TrialLengthIgnoresOtherDayPhrases(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"money-back before trial", `<p>Pro $29/month. 30-day money-back guarantee. Start your 14-day free trial</p>`, 14},
		{"trial without free", `<p>Pro $29/month. Start your 21-day trial today</p>`, 21},
		{"trial for n days", `<p>7-day onboarding. Free trial for 10 days.</p>`, 10},
		{"unattached count", `<p>Free trial included. Cancel within 30 days.</p>`, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			facts := DetectFacts([]FetchedPage{okPage(model.CategoryPricing, "https://x.com/pricing", tt.body)})

			require.NotNil(t, facts.HasFreeTrial)
			assert.True(t, *facts.HasFreeTrial)
			require.NotNil(t, facts.TrialDays)
			assert.Equal(t, tt.want, *facts.TrialDays)
		})
	}
}

func TestDetectFacts_DayPhraseWithoutTrial(t *testing.T) {
	facts := DetectFacts([]FetchedPage{okPage(model.CategoryPricing, "https://x.com/pricing",
		`<p>Pro $29/month. 30-day money-back guarantee.</p>`)})

	assert.Nil(t, facts.HasFreeTrial)
	assert.Nil(t, facts.TrialDays)
}

func TestDetectFacts_PricingPicksMinimum(t *testing.T) {
	pages := []FetchedPage{okPage(model.CategoryPricing, "https://x.com/pricing",
		`<p>Team $1,200 per year</p><p>Starter $9.5 per year</p><p>Free plan available</p>`)}

	facts := DetectFacts(pages)

	require.NotNil(t, facts.StartingPriceMinor)
	assert.Equal(t, int64(950), *facts.StartingPriceMinor)
	assert.Equal(t, model.BillingYear, facts.BillingPeriod)
	require.NotNil(t, facts.HasFreePlan)
	assert.True(t, *facts.HasFreePlan)
	assert.Nil(t, facts.HasFreeTrial)
}

func TestDetectFacts_Security(t *testing.T) {
	pages := []FetchedPage{okPage(model.CategorySecurity, "https://x.com/security",
		`<html><body><p>We are SOC 2 Type II certified.</p><p>SAML SSO on Enterprise.</p></body></html>`)}

	facts := DetectFacts(pages)

	require.NotNil(t, facts.Flags.SOC2)
	assert.True(t, *facts.Flags.SOC2)
	require.NotNil(t, facts.Flags.SSO)
	assert.True(t, *facts.Flags.SSO)
	assert.Nil(t, facts.Flags.HIPAA)
	assert.Nil(t, facts.Flags.ISO27001)
	assert.True(t, facts.Evidence.Has("security"))
}

func TestDetectFacts_Integrations(t *testing.T) {
	pages := []FetchedPage{okPage(model.CategoryIntegrations, "https://x.com/integrations",
		`<html><body><ul><li>Slack</li><li>Zapier</li><li>GitHub</li></ul></body></html>`)}

	facts := DetectFacts(pages)

	if diff := cmp.Diff([]string{"Slack", "Zapier", "Github"}, facts.Integrations); diff != "" {
		t.Errorf("integrations mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, facts.Evidence.Has("integrations"))
}

func TestDetectFacts_DocsChangelogStatus(t *testing.T) {
	pages := []FetchedPage{
		okPage(model.CategoryDocs, "https://x.com/docs", `<p>REST API reference</p>`),
		okPage(model.CategoryChangelog, "https://x.com/changelog", `<p>v2.1 shipped</p>`),
		okPage(model.CategoryStatus, "https://status.x.com", `<p>All systems operational</p>`),
	}

	facts := DetectFacts(pages)

	require.NotNil(t, facts.Flags.API)
	assert.True(t, *facts.Flags.API)
	require.NotNil(t, facts.Flags.Changelog)
	require.NotNil(t, facts.Flags.StatusPage)
	assert.Equal(t, []string{"changelog", "docs", "status"}, facts.Evidence.Keys())
}

func TestDetectFacts_FailedPagesIgnored(t *testing.T) {
	pages := []FetchedPage{
		{Category: model.CategoryPricing, URL: "https://x.com/pricing", Result: model.FetchResult{}},
		{Category: model.CategoryStatus, URL: "https://x.com/status", Result: model.FetchResult{Status: 503, Text: "down"}},
	}

	facts := DetectFacts(pages)

	assert.Nil(t, facts.StartingPriceMinor)
	assert.Nil(t, facts.Flags.StatusPage)
	assert.Equal(t, model.BillingUnknown, facts.BillingPeriod)
	assert.Empty(t, facts.Evidence)
}

func TestDetectFacts_Pure(t *testing.T) {
	pages := []FetchedPage{
		okPage(model.CategoryPricing, "https://x.com/pricing", `<p>$19 monthly, free trial</p>`),
		okPage(model.CategorySecurity, "https://x.com/security", `<p>GDPR and HIPAA</p>`),
	}

	first := DetectFacts(pages)
	second := DetectFacts(pages)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("DetectFacts is not deterministic:\n%s", diff)
	}
}

func TestFactExtractor_FetchesClassifiedCategories(t *testing.T) {
	fetcher := newStubFetcher(map[string]string{
		"https://x.com/pricing":  `<p>$10/mo</p>`,
		"https://x.com/security": `<p>ISO 27001</p>`,
	})
	extractor := NewFactExtractor(fetcher, 2)

	links := map[model.SourceCategory]string{
		model.CategoryPricing:  "https://x.com/pricing",
		model.CategorySecurity: "https://x.com/security",
		model.CategoryStatus:   "https://x.com/status",
	}

	facts, pages := extractor.Extract(context.Background(), links)

	require.Len(t, pages, 3)
	assert.Equal(t, model.CategoryPricing, pages[0].Category)
	assert.Equal(t, model.CategorySecurity, pages[1].Category)
	assert.Equal(t, model.CategoryStatus, pages[2].Category)
	assert.False(t, pages[2].Result.OK())

	require.NotNil(t, facts.StartingPriceMinor)
	assert.Equal(t, int64(1000), *facts.StartingPriceMinor)
	require.NotNil(t, facts.Flags.ISO27001)
	assert.Nil(t, facts.Flags.StatusPage)
	assert.ElementsMatch(t, []string{
		"https://x.com/pricing", "https://x.com/security", "https://x.com/status",
	}, fetcher.requested())
}

func TestFactExtractor_NoLinks(t *testing.T) {
	fetcher := newStubFetcher(nil)
	facts, pages := NewFactExtractor(fetcher, 0).Extract(context.Background(), nil)

	assert.Empty(t, pages)
	assert.Empty(t, fetcher.requested())
	assert.Equal(t, model.BillingUnknown, facts.BillingPeriod)
}
