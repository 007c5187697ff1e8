package model

import (
	"sort"
	"time"
)

// SourceCategory classifies a first-party page linked from a vendor homepage
type SourceCategory string

const (
	CategoryPricing      SourceCategory = "pricing"
	CategorySecurity     SourceCategory = "security"
	CategoryDocs         SourceCategory = "docs"
	CategoryIntegrations SourceCategory = "integrations"
	CategoryChangelog    SourceCategory = "changelog"
	CategoryStatus       SourceCategory = "status"
)

// SourceCategories lists every category in fixed processing order
var SourceCategories = []SourceCategory{
	CategoryPricing,
	CategorySecurity,
	CategoryDocs,
	CategoryIntegrations,
	CategoryChangelog,
	CategoryStatus,
}

// FetchResult is the outcome of a page fetch. A zero Status means the fetch
// did not produce a response (bad scheme, DNS, TLS, timeout, abort).
type FetchResult struct {
	FinalURL    string `json:"final_url,omitempty"`
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Text        string `json:"-"`
}

// OK reports whether the fetch produced a usable response
func (r FetchResult) OK() bool {
	return r.Status > 0 && r.Status < 400
}

// SourcePage records which URL was used for a category. At most one per
// (ToolID, Category); later runs overwrite earlier ones.
type SourcePage struct {
	ToolID    string         `json:"tool_id"`
	Category  SourceCategory `json:"category"`
	URL       string         `json:"url"`
	FetchedAt time.Time      `json:"fetched_at"`
	Meta      PageMeta       `json:"meta"`
}

// PageMeta is the HTTP metadata persisted alongside a source page
type PageMeta struct {
	FinalURL    string `json:"final_url,omitempty"`
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
}

// EvidenceMap maps a fact category to the URLs that support it.
// An absent key means no evidence; empty slices are never stored.
type EvidenceMap map[string][]string

// Add records url under key, skipping duplicates and empty values
func (m EvidenceMap) Add(key, url string) {
	if key == "" || url == "" {
		return
	}
	for _, existing := range m[key] {
		if existing == url {
			return
		}
	}
	m[key] = append(m[key], url)
}

// Has reports whether key has at least one supporting URL
func (m EvidenceMap) Has(key string) bool {
	return len(m[key]) > 0
}

// Keys returns the evidence keys in sorted order
func (m EvidenceMap) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Merge overlays other onto a copy of m
func (m EvidenceMap) Merge(other EvidenceMap) EvidenceMap {
	out := make(EvidenceMap, len(m)+len(other))
	for k, urls := range m {
		for _, u := range urls {
			out.Add(k, u)
		}
	}
	for k, urls := range other {
		for _, u := range urls {
			out.Add(k, u)
		}
	}
	return out
}

// ExtractedFacts is the transient output of first-party fact extraction
type ExtractedFacts struct {
	StartingPriceMinor *int64        `json:"starting_price_minor,omitempty"`
	BillingPeriod      BillingPeriod `json:"billing_period,omitempty"`
	HasFreeTrial       *bool         `json:"has_free_trial,omitempty"`
	TrialDays          *int          `json:"trial_days,omitempty"`
	HasFreePlan        *bool         `json:"has_free_plan,omitempty"`
	Integrations       []string      `json:"integrations,omitempty"`
	Flags              FeatureFlags  `json:"flags"`
	Evidence           EvidenceMap   `json:"evidence"`
}

// NewExtractedFacts returns empty facts with an initialized evidence map
func NewExtractedFacts() ExtractedFacts {
	return ExtractedFacts{
		BillingPeriod: BillingUnknown,
		Evidence:      make(EvidenceMap),
	}
}
