package extract

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/ppiankov/toolrate/internal/model"
)

// categoryKeywords are matched as lowercase substrings of candidate URLs
var categoryKeywords = map[model.SourceCategory][]string{
	model.CategoryPricing:      {"pricing", "price", "plans", "buy"},
	model.CategorySecurity:     {"security", "trust", "compliance", "privacy", "gdpr", "soc2"},
	model.CategoryDocs:         {"docs", "documentation", "developer", "api", "reference"},
	model.CategoryIntegrations: {"integration", "marketplace", "apps", "connectors", "plugins"},
	model.CategoryChangelog:    {"changelog", "release-notes", "releases", "whats-new", "what-s-new", "updates"},
	model.CategoryStatus:       {"status", "uptime"},
}

const (
	keywordPoints    = 10
	sameOriginPoints = 2
)

// ExtractLinks returns every anchor href in htmlContent resolved against
// baseURL. Only http(s) URLs are kept; order is first-seen and duplicates
// are dropped.
func ExtractLinks(htmlContent string, baseURL string) []string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil
	}

	var links []string
	seen := make(map[string]bool)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key != "href" {
					continue
				}
				if resolved := resolveURL(base, strings.TrimSpace(attr.Val)); resolved != "" && !seen[resolved] {
					seen[resolved] = true
					links = append(links, resolved)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return links
}

// resolveURL resolves a relative URL against a base URL
func resolveURL(base *url.URL, href string) string {
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}

	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "javascript:") || strings.HasPrefix(lower, "mailto:") || strings.HasPrefix(lower, "tel:") {
		return ""
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := base.ResolveReference(parsed)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	resolved.Fragment = ""

	return resolved.String()
}

// ClassifyLinks picks the best candidate URL per source category.
//
//	score = 10 × keyword hits + 2 if same origin + max(0, 10 − len(url)/20)
//
// A candidate needs at least one keyword hit. Ties keep the first-seen URL.
// Categories without a candidate are absent from the result.
func ClassifyLinks(links []string, origin string) map[model.SourceCategory]string {
	originHost := hostOf(origin)
	result := make(map[model.SourceCategory]string)

	for _, category := range model.SourceCategories {
		best, bestScore := "", 0
		for _, link := range links {
			hits := keywordHits(strings.ToLower(link), categoryKeywords[category])
			if hits == 0 {
				continue
			}
			score := hits*keywordPoints + lengthBonus(link)
			if originHost != "" && hostOf(link) == originHost {
				score += sameOriginPoints
			}
			if score > bestScore {
				best, bestScore = link, score
			}
		}
		if best != "" {
			result[category] = best
		}
	}

	return result
}

func keywordHits(lowerURL string, keywords []string) int {
	hits := 0
	for _, kw := range keywords {
		if strings.Contains(lowerURL, kw) {
			hits++
		}
	}
	return hits
}

// lengthBonus favours short, canonical-looking URLs
func lengthBonus(u string) int {
	bonus := 10 - len(u)/20
	if bonus < 0 {
		return 0
	}
	return bonus
}

// hostOf returns the lowercase host of rawURL without a leading "www."
func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
}
