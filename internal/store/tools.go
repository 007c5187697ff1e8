package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ppiankov/toolrate/internal/model"
)

// Selection picks the tools an enrichment run covers. Refs wins over
// Category, Category wins over All.
type Selection struct {
	Refs     []string // ids or slugs
	Category string
	All      bool
}

const toolColumns = `id, slug, name, website_url, category, pricing_model, confidence_tier,
	starting_price_minor, billing_period, has_free_trial, trial_days, has_free_plan,
	integrations_json, flags_json, rating, rating_meta_json, rated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// UpsertTool inserts or updates a catalog record. Catalog fields (name,
// website, category, pricing model, tier) are replaced; fact fields follow
// the non-null-wins merge. A tool without an id reuses the id of an
// existing tool with the same slug, or gets a new one.
func (s *Store) UpsertTool(ctx context.Context, tool model.Tool) (model.Tool, error) {
	if strings.TrimSpace(tool.Slug) == "" {
		return model.Tool{}, fmt.Errorf("tool slug is required")
	}
	if strings.TrimSpace(tool.WebsiteURL) == "" {
		return model.Tool{}, fmt.Errorf("tool %s: website url is required", tool.Slug)
	}

	ref := tool.ID
	if ref == "" {
		ref = tool.Slug
	}
	existing, err := s.GetTool(ctx, ref)
	switch {
	case err == nil:
		merged := existing.MergeFacts(factsOf(tool))
		merged.Slug = tool.Slug
		merged.Name = tool.Name
		merged.WebsiteURL = tool.WebsiteURL
		merged.Category = tool.Category
		if tool.PricingModel != "" {
			merged.PricingModel = tool.PricingModel
		}
		if tool.ConfidenceTier != "" {
			merged.ConfidenceTier = tool.ConfidenceTier
		}
		tool = merged
	case errors.Is(err, ErrNotFound):
		if tool.ID == "" {
			tool.ID = uuid.NewString()
		}
	default:
		return model.Tool{}, err
	}

	if tool.Name == "" {
		tool.Name = tool.Slug
	}
	if tool.PricingModel == "" {
		tool.PricingModel = model.PricingUnknown
	}
	if tool.ConfidenceTier == "" {
		tool.ConfidenceTier = model.TierSeeded
	}
	if tool.BillingPeriod == "" {
		tool.BillingPeriod = model.BillingUnknown
	}

	integrations, err := json.Marshal(tool.Integrations)
	if err != nil {
		return model.Tool{}, fmt.Errorf("marshal integrations: %w", err)
	}
	flags, err := json.Marshal(tool.Flags)
	if err != nil {
		return model.Tool{}, fmt.Errorf("marshal flags: %w", err)
	}

	now := formatTime(s.now())
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tools (id, slug, name, website_url, category, pricing_model, confidence_tier,
			starting_price_minor, billing_period, has_free_trial, trial_days, has_free_plan,
			integrations_json, flags_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			slug = excluded.slug,
			name = excluded.name,
			website_url = excluded.website_url,
			category = excluded.category,
			pricing_model = excluded.pricing_model,
			confidence_tier = excluded.confidence_tier,
			starting_price_minor = excluded.starting_price_minor,
			billing_period = excluded.billing_period,
			has_free_trial = excluded.has_free_trial,
			trial_days = excluded.trial_days,
			has_free_plan = excluded.has_free_plan,
			integrations_json = excluded.integrations_json,
			flags_json = excluded.flags_json,
			updated_at = excluded.updated_at
	`, tool.ID, tool.Slug, tool.Name, tool.WebsiteURL, tool.Category,
		string(tool.PricingModel), string(tool.ConfidenceTier),
		nullInt64(tool.StartingPriceMinor), string(tool.BillingPeriod),
		nullBool(tool.HasFreeTrial), nullInt(tool.TrialDays), nullBool(tool.HasFreePlan),
		string(integrations), string(flags), now, now)
	if err != nil {
		return model.Tool{}, fmt.Errorf("failed to upsert tool %s: %w", tool.Slug, err)
	}

	return s.GetTool(ctx, tool.ID)
}

// GetTool loads a tool by id or slug
func (s *Store) GetTool(ctx context.Context, ref string) (model.Tool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+toolColumns+` FROM tools WHERE id = ? OR slug = ? LIMIT 1`, ref, ref)
	tool, err := scanTool(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Tool{}, fmt.Errorf("tool %q: %w", ref, ErrNotFound)
	}
	if err != nil {
		return model.Tool{}, fmt.Errorf("failed to load tool %q: %w", ref, err)
	}
	return tool, nil
}

// ListTools returns the tools matching sel, ordered by slug for category
// and all selections and in first-seen ref order otherwise. Each tool is
// returned at most once.
func (s *Store) ListTools(ctx context.Context, sel Selection) ([]model.Tool, error) {
	switch {
	case len(sel.Refs) > 0:
		var tools []model.Tool
		var missing []string
		selected := make(map[string]bool)
		for _, ref := range sel.Refs {
			tool, err := s.GetTool(ctx, ref)
			if errors.Is(err, ErrNotFound) {
				missing = append(missing, ref)
				continue
			}
			if err != nil {
				return nil, err
			}
			// an id and a slug may name the same tool
			if selected[tool.ID] {
				continue
			}
			selected[tool.ID] = true
			tools = append(tools, tool)
		}
		if len(missing) > 0 {
			return tools, fmt.Errorf("unknown tools %s: %w", strings.Join(missing, ", "), ErrNotFound)
		}
		return tools, nil

	case sel.Category != "":
		return s.queryTools(ctx,
			`SELECT `+toolColumns+` FROM tools WHERE lower(category) = lower(?) ORDER BY slug`, sel.Category)

	case sel.All:
		return s.queryTools(ctx, `SELECT `+toolColumns+` FROM tools ORDER BY slug`)
	}

	return nil, fmt.Errorf("empty selection: name tools, a category, or all")
}

func (s *Store) queryTools(ctx context.Context, query string, args ...any) ([]model.Tool, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tools []model.Tool
	for rows.Next() {
		tool, err := scanTool(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tool: %w", err)
		}
		tools = append(tools, tool)
	}
	return tools, rows.Err()
}

// MergeToolFacts applies extracted facts with non-null-wins semantics and
// records the tool's confidence tier
func (s *Store) MergeToolFacts(ctx context.Context, toolID string, facts model.ExtractedFacts, tier model.ConfidenceTier) error {
	existing, err := s.GetTool(ctx, toolID)
	if err != nil {
		return err
	}
	merged := existing.MergeFacts(facts)
	if tier != "" {
		merged.ConfidenceTier = tier
	}

	integrations, err := json.Marshal(merged.Integrations)
	if err != nil {
		return fmt.Errorf("marshal integrations: %w", err)
	}
	flags, err := json.Marshal(merged.Flags)
	if err != nil {
		return fmt.Errorf("marshal flags: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE tools SET
			confidence_tier = ?,
			starting_price_minor = ?,
			billing_period = ?,
			has_free_trial = ?,
			trial_days = ?,
			has_free_plan = ?,
			integrations_json = ?,
			flags_json = ?,
			updated_at = ?
		WHERE id = ?
	`, string(merged.ConfidenceTier), nullInt64(merged.StartingPriceMinor), string(merged.BillingPeriod),
		nullBool(merged.HasFreeTrial), nullInt(merged.TrialDays), nullBool(merged.HasFreePlan),
		string(integrations), string(flags), formatTime(s.now()), existing.ID)
	if err != nil {
		return fmt.Errorf("failed to merge facts for %s: %w", toolID, err)
	}
	return nil
}

// SaveRating stores the composite score and its metadata envelope
func (s *Store) SaveRating(ctx context.Context, toolID string, rating model.Rating) error {
	meta, err := json.Marshal(rating.Meta)
	if err != nil {
		return fmt.Errorf("marshal rating meta: %w", err)
	}

	now := formatTime(s.now())
	res, err := s.db.ExecContext(ctx,
		`UPDATE tools SET rating = ?, rating_meta_json = ?, rated_at = ?, updated_at = ? WHERE id = ?`,
		rating.Score, string(meta), now, now, toolID)
	if err != nil {
		return fmt.Errorf("failed to save rating for %s: %w", toolID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("tool %q: %w", toolID, ErrNotFound)
	}
	return nil
}

func scanTool(row rowScanner) (model.Tool, error) {
	var (
		tool                       model.Tool
		pricingModel, tier         string
		billing                    string
		price, trialDays           sql.NullInt64
		freeTrial, freePlan        sql.NullBool
		integrationsJSON, flagJSON sql.NullString
		rating                     sql.NullFloat64
		metaJSON, ratedAt          sql.NullString
	)

	err := row.Scan(&tool.ID, &tool.Slug, &tool.Name, &tool.WebsiteURL, &tool.Category,
		&pricingModel, &tier, &price, &billing, &freeTrial, &trialDays, &freePlan,
		&integrationsJSON, &flagJSON, &rating, &metaJSON, &ratedAt)
	if err != nil {
		return model.Tool{}, err
	}

	tool.PricingModel = model.PricingModel(pricingModel)
	tool.ConfidenceTier = model.ConfidenceTier(tier)
	tool.BillingPeriod = model.BillingPeriod(billing)
	if price.Valid {
		v := price.Int64
		tool.StartingPriceMinor = &v
	}
	if trialDays.Valid {
		v := int(trialDays.Int64)
		tool.TrialDays = &v
	}
	if freeTrial.Valid {
		tool.HasFreeTrial = model.Bool(freeTrial.Bool)
	}
	if freePlan.Valid {
		tool.HasFreePlan = model.Bool(freePlan.Bool)
	}
	if integrationsJSON.Valid && integrationsJSON.String != "" {
		if err := json.Unmarshal([]byte(integrationsJSON.String), &tool.Integrations); err != nil {
			return model.Tool{}, fmt.Errorf("decode integrations: %w", err)
		}
	}
	if flagJSON.Valid && flagJSON.String != "" {
		if err := json.Unmarshal([]byte(flagJSON.String), &tool.Flags); err != nil {
			return model.Tool{}, fmt.Errorf("decode flags: %w", err)
		}
	}
	if rating.Valid {
		v := rating.Float64
		tool.Rating = &v
	}
	if metaJSON.Valid && metaJSON.String != "" {
		var meta model.RatingMeta
		if err := json.Unmarshal([]byte(metaJSON.String), &meta); err != nil {
			return model.Tool{}, fmt.Errorf("decode rating meta: %w", err)
		}
		tool.RatingMeta = &meta
	}
	if ratedAt.Valid && ratedAt.String != "" {
		t, err := parseTime(ratedAt.String)
		if err != nil {
			return model.Tool{}, fmt.Errorf("decode rated_at: %w", err)
		}
		tool.RatedAt = &t
	}

	return tool, nil
}

// factsOf lifts a tool's fact fields into ExtractedFacts for merging
func factsOf(tool model.Tool) model.ExtractedFacts {
	return model.ExtractedFacts{
		StartingPriceMinor: tool.StartingPriceMinor,
		BillingPeriod:      tool.BillingPeriod,
		HasFreeTrial:       tool.HasFreeTrial,
		TrialDays:          tool.TrialDays,
		HasFreePlan:        tool.HasFreePlan,
		Integrations:       tool.Integrations,
		Flags:              tool.Flags,
	}
}

func nullInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return int64(*v)
}

func nullBool(v *bool) any {
	if v == nil {
		return nil
	}
	if *v {
		return int64(1)
	}
	return int64(0)
}
