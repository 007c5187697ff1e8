package extract

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/ppiankov/toolrate/internal/model"
)

// Opinion source types
const (
	SourceG2          = "g2"
	SourceCapterra    = "capterra"
	SourceTrustRadius = "trustradius"
	SourceProductHunt = "producthunt"
	SourceGetApp      = "getapp"

	SourceSearchCommunity = "search_community"
	SourceSearchDeveloper = "search_developer"
	SourceSearchReviews   = "search_reviews"
)

const searchFallbackPrefix = "search_"

type reviewPlatform struct {
	sourceType string
	domain     string
	keywords   []string
}

// reviewPlatforms is the allow-list of off-site review platforms
var reviewPlatforms = []reviewPlatform{
	{SourceG2, "g2.com", []string{"/products/", "review"}},
	{SourceCapterra, "capterra.com", []string{"/p/", "review"}},
	{SourceTrustRadius, "trustradius.com", []string{"/products/", "review"}},
	{SourceProductHunt, "producthunt.com", []string{"/products/", "/posts/", "review"}},
	{SourceGetApp, "getapp.com", []string{"/software/", "review"}},
}

const searchEndpoint = "https://www.google.com/search"

// IsSearchFallback reports whether sourceType is a synthesized search query.
// Those URLs are never fetched for claims.
func IsSearchFallback(sourceType string) bool {
	return strings.HasPrefix(sourceType, searchFallbackPrefix)
}

// ResolveOpinionSources finds review-platform links among a homepage's
// outbound links and always adds three search-query fallbacks.
func ResolveOpinionSources(links []string, origin string, toolName string) model.OpinionSources {
	sources := make(model.OpinionSources)
	originHost := hostOf(origin)

	for _, platform := range reviewPlatforms {
		best, bestScore := "", 0
		for _, link := range links {
			host := hostOf(link)
			if host == "" || host == originHost || !matchesDomain(host, platform.domain) {
				continue
			}
			score := keywordHits(strings.ToLower(link), platform.keywords)*keywordPoints + lengthBonus(link)
			if score > bestScore {
				best, bestScore = link, score
			}
		}
		if best != "" {
			sources[platform.sourceType] = best
		}
	}

	name := strings.TrimSpace(toolName)
	if name == "" {
		name = originHost
	}
	if name == "" {
		return sources
	}

	sources[SourceSearchCommunity] = searchURL(fmt.Sprintf("%q review site:reddit.com", name))
	sources[SourceSearchDeveloper] = searchURL(fmt.Sprintf("%q site:stackoverflow.com", name))
	sources[SourceSearchReviews] = searchURL(fmt.Sprintf("%q reviews alternatives", name))

	return sources
}

func matchesDomain(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}

func searchURL(query string) string {
	return searchEndpoint + "?" + url.Values{"q": {query}}.Encode()
}

// SourceLabel returns a display name for an opinion source type
func SourceLabel(sourceType string) string {
	switch sourceType {
	case SourceG2:
		return "G2"
	case SourceCapterra:
		return "Capterra"
	case SourceTrustRadius:
		return "TrustRadius"
	case SourceProductHunt:
		return "Product Hunt"
	case SourceGetApp:
		return "GetApp"
	case SourceSearchCommunity:
		return "Community discussion"
	case SourceSearchDeveloper:
		return "Developer forums"
	case SourceSearchReviews:
		return "Web reviews"
	}
	return sourceType
}
