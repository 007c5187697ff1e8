package model

import "time"

// PricingModel is the commercial model a vendor advertises
type PricingModel string

const (
	PricingFree         PricingModel = "FREE"
	PricingFreemium     PricingModel = "FREEMIUM"
	PricingPaid         PricingModel = "PAID"
	PricingSubscription PricingModel = "SUBSCRIPTION"
	PricingOneTime      PricingModel = "ONE_TIME"
	PricingContact      PricingModel = "CONTACT"
	PricingUnknown      PricingModel = "UNKNOWN"
)

// IsKnown reports whether the pricing model carries information
func (p PricingModel) IsKnown() bool {
	return p != "" && p != PricingUnknown
}

// ConfidenceTier is a coarse label for how much verified data backs a tool record
type ConfidenceTier string

const (
	TierSeeded   ConfidenceTier = "SEEDED"
	TierEnriched ConfidenceTier = "ENRICHED"
	TierVerified ConfidenceTier = "VERIFIED"
)

// Multiplier returns the global score multiplier for the tier.
// Unknown tiers are treated as SEEDED.
func (t ConfidenceTier) Multiplier() float64 {
	switch t {
	case TierVerified:
		return 1.0
	case TierEnriched:
		return 0.95
	default:
		return 0.85
	}
}

// BillingPeriod is the period a starting price applies to
type BillingPeriod string

const (
	BillingMonth   BillingPeriod = "MONTH"
	BillingYear    BillingPeriod = "YEAR"
	BillingOneTime BillingPeriod = "ONE_TIME"
	BillingUnknown BillingPeriod = "UNKNOWN"
)

// FeatureFlags holds nullable booleans. nil means unknown, never false.
type FeatureFlags struct {
	API        *bool `json:"api,omitempty" yaml:"api,omitempty"`
	SSO        *bool `json:"sso,omitempty" yaml:"sso,omitempty"`
	SCIM       *bool `json:"scim,omitempty" yaml:"scim,omitempty"`
	SOC2       *bool `json:"soc2,omitempty" yaml:"soc2,omitempty"`
	ISO27001   *bool `json:"iso27001,omitempty" yaml:"iso27001,omitempty"`
	GDPR       *bool `json:"gdpr,omitempty" yaml:"gdpr,omitempty"`
	HIPAA      *bool `json:"hipaa,omitempty" yaml:"hipaa,omitempty"`
	Changelog  *bool `json:"changelog,omitempty" yaml:"changelog,omitempty"`
	StatusPage *bool `json:"status_page,omitempty" yaml:"status_page,omitempty"`
}

// Lookup returns the flag stored under a checklist key.
// Unknown keys report (nil, false).
func (f FeatureFlags) Lookup(key string) (*bool, bool) {
	switch key {
	case FlagAPI:
		return f.API, true
	case FlagSSO:
		return f.SSO, true
	case FlagSCIM:
		return f.SCIM, true
	case FlagSOC2:
		return f.SOC2, true
	case FlagISO27001:
		return f.ISO27001, true
	case FlagGDPR:
		return f.GDPR, true
	case FlagHIPAA:
		return f.HIPAA, true
	case FlagChangelog:
		return f.Changelog, true
	case FlagStatusPage:
		return f.StatusPage, true
	}
	return nil, false
}

// Merge overlays every non-nil flag of other onto f
func (f FeatureFlags) Merge(other FeatureFlags) FeatureFlags {
	pick := func(cur, next *bool) *bool {
		if next != nil {
			return next
		}
		return cur
	}
	return FeatureFlags{
		API:        pick(f.API, other.API),
		SSO:        pick(f.SSO, other.SSO),
		SCIM:       pick(f.SCIM, other.SCIM),
		SOC2:       pick(f.SOC2, other.SOC2),
		ISO27001:   pick(f.ISO27001, other.ISO27001),
		GDPR:       pick(f.GDPR, other.GDPR),
		HIPAA:      pick(f.HIPAA, other.HIPAA),
		Changelog:  pick(f.Changelog, other.Changelog),
		StatusPage: pick(f.StatusPage, other.StatusPage),
	}
}

// Checklist flag keys
const (
	FlagAPI          = "api"
	FlagSSO          = "sso"
	FlagSCIM         = "scim"
	FlagSOC2         = "soc2"
	FlagISO27001     = "iso27001"
	FlagGDPR         = "gdpr"
	FlagHIPAA        = "hipaa"
	FlagChangelog    = "changelog"
	FlagStatusPage   = "status_page"
	FlagFreeTrial    = "free_trial"
	FlagFreePlan     = "free_plan"
	FlagIntegrations = "integrations"
)

// Tool is a catalog record. Fact fields are nullable: nil means unknown.
type Tool struct {
	ID             string         `json:"id" yaml:"id"`
	Slug           string         `json:"slug" yaml:"slug"`
	Name           string         `json:"name" yaml:"name"`
	WebsiteURL     string         `json:"website_url" yaml:"website_url"`
	Category       string         `json:"category,omitempty" yaml:"category,omitempty"`
	PricingModel   PricingModel   `json:"pricing_model,omitempty" yaml:"pricing_model,omitempty"`
	ConfidenceTier ConfidenceTier `json:"confidence_tier,omitempty" yaml:"confidence_tier,omitempty"`

	StartingPriceMinor *int64        `json:"starting_price_minor,omitempty" yaml:"starting_price_minor,omitempty"`
	BillingPeriod      BillingPeriod `json:"billing_period,omitempty" yaml:"billing_period,omitempty"`
	HasFreeTrial       *bool         `json:"has_free_trial,omitempty" yaml:"has_free_trial,omitempty"`
	TrialDays          *int          `json:"trial_days,omitempty" yaml:"trial_days,omitempty"`
	HasFreePlan        *bool         `json:"has_free_plan,omitempty" yaml:"has_free_plan,omitempty"`
	Integrations       []string      `json:"integrations,omitempty" yaml:"integrations,omitempty"`
	Flags              FeatureFlags  `json:"flags" yaml:"flags,omitempty"`

	Rating     *float64    `json:"rating,omitempty" yaml:"-"`
	RatingMeta *RatingMeta `json:"rating_meta,omitempty" yaml:"-"`
	RatedAt    *time.Time  `json:"rated_at,omitempty" yaml:"-"`
}

// MergeFacts returns a copy of t with every non-null extracted value applied.
// A known fact is never regressed to unknown.
func (t Tool) MergeFacts(f ExtractedFacts) Tool {
	out := t
	if f.StartingPriceMinor != nil {
		out.StartingPriceMinor = f.StartingPriceMinor
	}
	if f.BillingPeriod != "" && f.BillingPeriod != BillingUnknown {
		out.BillingPeriod = f.BillingPeriod
	}
	if f.HasFreeTrial != nil {
		out.HasFreeTrial = f.HasFreeTrial
	}
	if f.TrialDays != nil {
		out.TrialDays = f.TrialDays
	}
	if f.HasFreePlan != nil {
		out.HasFreePlan = f.HasFreePlan
	}
	if len(f.Integrations) > 0 {
		out.Integrations = append([]string(nil), f.Integrations...)
	}
	out.Flags = t.Flags.Merge(f.Flags)
	return out
}

// Bool returns a pointer to v
func Bool(v bool) *bool { return &v }
