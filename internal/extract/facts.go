package extract

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ppiankov/toolrate/internal/model"
)

// PageFetcher is the total fetch function the extractors depend on
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) model.FetchResult
}

// FetchedPage pairs a category URL with its fetch outcome
type FetchedPage struct {
	Category model.SourceCategory
	URL      string
	Result   model.FetchResult
}

// FactExtractor fetches classified first-party pages and detects facts in them
type FactExtractor struct {
	fetcher  PageFetcher
	parallel int
}

// NewFactExtractor creates an extractor fetching at most parallel pages at once
func NewFactExtractor(fetcher PageFetcher, parallel int) *FactExtractor {
	if parallel <= 0 {
		parallel = 1
	}
	return &FactExtractor{fetcher: fetcher, parallel: parallel}
}

// Extract fetches every category in links and returns the detected facts
// together with the fetched pages in fixed category order.
func (e *FactExtractor) Extract(ctx context.Context, links map[model.SourceCategory]string) (model.ExtractedFacts, []FetchedPage) {
	pages := e.fetchAll(ctx, links)
	return DetectFacts(pages), pages
}

// fetchAll fetches categories concurrently. Each goroutine owns one slot.
func (e *FactExtractor) fetchAll(ctx context.Context, links map[model.SourceCategory]string) []FetchedPage {
	var pages []FetchedPage
	for _, category := range model.SourceCategories {
		if u, ok := links[category]; ok && u != "" {
			pages = append(pages, FetchedPage{Category: category, URL: u})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallel)
	for i := range pages {
		g.Go(func() error {
			pages[i].Result = e.fetcher.Fetch(gctx, pages[i].URL)
			return nil
		})
	}
	_ = g.Wait()

	return pages
}

// DetectFacts runs category detectors over successfully fetched pages.
// It is a pure function of the page contents.
func DetectFacts(pages []FetchedPage) model.ExtractedFacts {
	facts := model.NewExtractedFacts()

	for _, page := range pages {
		if !page.Result.OK() {
			continue
		}
		text := PageText(page.Result.Text, page.Result.ContentType)

		switch page.Category {
		case model.CategoryPricing:
			detectPricing(text, page.URL, &facts)
		case model.CategoryIntegrations:
			detectIntegrations(text, page.URL, &facts)
		case model.CategorySecurity:
			detectSecurity(text, page.URL, &facts)
		case model.CategoryDocs:
			detectDocs(text, page.URL, &facts)
		case model.CategoryChangelog:
			facts.Flags.Changelog = model.Bool(true)
			facts.Evidence.Add(string(model.CategoryChangelog), page.URL)
		case model.CategoryStatus:
			facts.Flags.StatusPage = model.Bool(true)
			facts.Evidence.Add(string(model.CategoryStatus), page.URL)
		}
	}

	return facts
}

// Pricing

var (
	priceRe     = regexp.MustCompile(`(?:us\$|\$|€|£|\busd\b|\beur\b|\bgbp\b)\s?(\d{1,3}(?:,\d{3})+|\d+)(?:\.(\d{1,2}))?`)
	trialDaysRe = []*regexp.Regexp{
		regexp.MustCompile(`\b(\d{1,3})[- ]days?[- ](?:free )?trial`),
		regexp.MustCompile(`\btrial (?:for|of) (\d{1,3}) days`),
	}
	anyDaysRe = regexp.MustCompile(`\b(\d{1,3})[- ]day`)
)

// trialPhrases mark a trial offer; the length is parsed separately
var trialPhrases = []string{"free trial", "day trial", "days trial", "trial period", "trial for", "trial of", "try it free", "try for free"}

var billingPhrases = []struct {
	period  model.BillingPeriod
	phrases []string
}{
	{model.BillingMonth, []string{"/mo", "per month", "a month", "monthly", "per user per month", "/user/month"}},
	{model.BillingYear, []string{"/year", "/yr", "per year", "a year", "annually", "annual", "yearly"}},
	{model.BillingOneTime, []string{"one-time", "one time", "lifetime", "pay once"}},
}

var freePlanPhrases = []string{"free plan", "free forever", "forever free", "free tier", "free version", "free edition", "free starter"}

func detectPricing(text, pageURL string, facts *model.ExtractedFacts) {
	key := string(model.CategoryPricing)
	found := false

	if minor, ok := minimumPrice(text); ok {
		facts.StartingPriceMinor = &minor
		facts.BillingPeriod = billingPeriod(text)
		found = true
	}

	if containsAny(text, trialPhrases) {
		facts.HasFreeTrial = model.Bool(true)
		if days, ok := trialDays(text); ok {
			facts.TrialDays = &days
		}
		found = true
	}

	if containsAny(text, freePlanPhrases) {
		facts.HasFreePlan = model.Bool(true)
		found = true
	}

	if found {
		facts.Evidence.Add(key, pageURL)
	}
}

// minimumPrice returns the smallest positive currency amount in minor units
func minimumPrice(text string) (int64, bool) {
	var best int64
	found := false

	for _, m := range priceRe.FindAllStringSubmatch(text, -1) {
		whole, err := strconv.ParseInt(strings.ReplaceAll(m[1], ",", ""), 10, 64)
		if err != nil || whole > math.MaxInt64/100 {
			continue
		}
		minor := whole * 100
		if frac := m[2]; frac != "" {
			if len(frac) == 1 {
				frac += "0"
			}
			cents, _ := strconv.ParseInt(frac, 10, 64)
			minor += cents
		}
		if minor <= 0 {
			continue
		}
		if !found || minor < best {
			best, found = minor, true
		}
	}

	return best, found
}

func billingPeriod(text string) model.BillingPeriod {
	for _, family := range billingPhrases {
		for _, phrase := range family.phrases {
			if strings.Contains(text, phrase) {
				return family.period
			}
		}
	}
	return model.BillingUnknown
}

// trialDays prefers a day count attached to the word trial and falls back
// to the first N-day phrase on the page
func trialDays(text string) (int, bool) {
	for _, re := range trialDaysRe {
		if n, ok := firstDays(re, text); ok {
			return n, true
		}
	}
	return firstDays(anyDaysRe, text)
}

func firstDays(re *regexp.Regexp, text string) (int, bool) {
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err == nil && n >= 1 && n <= 365 {
			return n, true
		}
	}
	return 0, false
}

func containsAny(text string, phrases []string) bool {
	for _, phrase := range phrases {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}

// Integrations

// knownIntegrations is matched as lowercase substrings of page text
var knownIntegrations = []string{
	"slack", "zapier", "github", "gitlab", "bitbucket", "jira", "confluence",
	"trello", "asana", "notion", "airtable", "salesforce", "hubspot",
	"zendesk", "intercom", "stripe", "paypal", "shopify", "mailchimp",
	"google drive", "google sheets", "google calendar", "gmail",
	"microsoft teams", "outlook", "dropbox", "zoom", "figma", "discord",
	"okta", "twilio", "quickbooks", "xero", "datadog", "pagerduty",
}

func detectIntegrations(text, pageURL string, facts *model.ExtractedFacts) {
	type hit struct {
		name string
		pos  int
	}
	var hits []hit
	for _, name := range knownIntegrations {
		if pos := strings.Index(text, name); pos >= 0 {
			hits = append(hits, hit{name: name, pos: pos})
		}
	}
	if len(hits) == 0 {
		return
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	titleCaser := cases.Title(language.English) // not safe for concurrent use
	seen := make(map[string]bool, len(facts.Integrations))
	for _, existing := range facts.Integrations {
		seen[existing] = true
	}
	for _, h := range hits {
		name := titleCaser.String(h.name)
		if !seen[name] {
			seen[name] = true
			facts.Integrations = append(facts.Integrations, name)
		}
	}
	facts.Evidence.Add(string(model.CategoryIntegrations), pageURL)
}

// Security

var (
	soc2Re     = regexp.MustCompile(`\bsoc\s?(?:2|ii)\b`)
	iso27001Re = regexp.MustCompile(`\biso(?:/iec)?\s?27001\b`)
	gdprRe     = regexp.MustCompile(`\bgdpr\b`)
	hipaaRe    = regexp.MustCompile(`\bhipaa\b`)
	ssoRe      = regexp.MustCompile(`\bsso\b|\bsaml\b|single sign[- ]on`)
	scimRe     = regexp.MustCompile(`\bscim\b`)
)

func detectSecurity(text, pageURL string, facts *model.ExtractedFacts) {
	checks := []struct {
		re   *regexp.Regexp
		flag **bool
	}{
		{soc2Re, &facts.Flags.SOC2},
		{iso27001Re, &facts.Flags.ISO27001},
		{gdprRe, &facts.Flags.GDPR},
		{hipaaRe, &facts.Flags.HIPAA},
		{ssoRe, &facts.Flags.SSO},
		{scimRe, &facts.Flags.SCIM},
	}

	found := false
	for _, c := range checks {
		if c.re.MatchString(text) {
			*c.flag = model.Bool(true)
			found = true
		}
	}
	if found {
		facts.Evidence.Add(string(model.CategorySecurity), pageURL)
	}
}

// Docs

var apiRe = regexp.MustCompile(`\bapis?\b|developers`)

func detectDocs(text, pageURL string, facts *model.ExtractedFacts) {
	if apiRe.MatchString(text) {
		facts.Flags.API = model.Bool(true)
	}
	// The docs page existing is itself evidence, independent of the API flag
	facts.Evidence.Add(string(model.CategoryDocs), pageURL)
}
