package extract

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveOpinionSources_PlatformsAndFallbacks(t *testing.T) {
	links := []string{
		"https://x.com/pricing",
		"https://www.g2.com/products/x/reviews",
		"https://www.g2.com/",
		"https://www.capterra.com/p/12345/x/",
		"https://twitter.com/x",
	}

	sources := ResolveOpinionSources(links, "https://x.com", "Acme X")

	assert.Equal(t, "https://www.g2.com/products/x/reviews", sources[SourceG2])
	assert.Equal(t, "https://www.capterra.com/p/12345/x/", sources[SourceCapterra])
	assert.NotContains(t, sources, SourceTrustRadius)
	assert.NotContains(t, sources, SourceProductHunt)

	require.Contains(t, sources, SourceSearchCommunity)
	require.Contains(t, sources, SourceSearchDeveloper)
	require.Contains(t, sources, SourceSearchReviews)

	parsed, err := url.Parse(sources[SourceSearchCommunity])
	require.NoError(t, err)
	assert.Equal(t, `"Acme X" review site:reddit.com`, parsed.Query().Get("q"))
}

func TestResolveOpinionSources_IgnoresOriginHost(t *testing.T) {
	// A vendor hosting its own "g2" subdomain is not a third-party source
	links := []string{"https://g2.com/products/g2/reviews"}

	sources := ResolveOpinionSources(links, "https://www.g2.com", "G2")
	assert.NotContains(t, sources, SourceG2)
}

func TestResolveOpinionSources_NameFallsBackToHost(t *testing.T) {
	sources := ResolveOpinionSources(nil, "https://www.x.com", "  ")

	parsed, err := url.Parse(sources[SourceSearchDeveloper])
	require.NoError(t, err)
	assert.Equal(t, `"x.com" site:stackoverflow.com`, parsed.Query().Get("q"))
	assert.Len(t, sources, 3)
}

func TestResolveOpinionSources_LookalikeDomain(t *testing.T) {
	links := []string{"https://notg2.com/products/x/reviews"}

	sources := ResolveOpinionSources(links, "https://x.com", "X")
	assert.NotContains(t, sources, SourceG2)
}

func TestIsSearchFallback(t *testing.T) {
	assert.True(t, IsSearchFallback(SourceSearchCommunity))
	assert.True(t, IsSearchFallback(SourceSearchReviews))
	assert.False(t, IsSearchFallback(SourceG2))
}

func TestSourceLabel(t *testing.T) {
	assert.Equal(t, "Product Hunt", SourceLabel(SourceProductHunt))
	assert.Equal(t, "custom", SourceLabel("custom"))
	for _, st := range []string{SourceG2, SourceCapterra, SourceTrustRadius, SourceGetApp} {
		assert.False(t, strings.Contains(SourceLabel(st), "_"), st)
	}
}
