package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/toolrate/internal/cache"
	"github.com/ppiankov/toolrate/internal/extract"
	"github.com/ppiankov/toolrate/internal/model"
	"github.com/ppiankov/toolrate/internal/score"
	"github.com/ppiankov/toolrate/internal/worker"
)

// Pipeline enriches and rates one tool at a time. It holds no per-tool
// state and is safe for concurrent use by the batch workers.
type Pipeline struct {
	fetcher        extract.PageFetcher
	factExtractor  *extract.FactExtractor
	claimExtractor *extract.ClaimExtractor
	trust          *score.SourceTrust
	scorer         *score.Scorer
	logger         *zap.Logger
	now            func() time.Time
}

// Option customises a Pipeline
type Option func(*Pipeline)

// WithPageFetcher replaces the HTTP fetcher
func WithPageFetcher(f extract.PageFetcher) Option {
	return func(p *Pipeline) { p.fetcher = f }
}

// WithClock sets the time source used for timestamps
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// NewPipeline creates a new pipeline with the given configuration
func NewPipeline(cfg *model.Config, logger *zap.Logger, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		cfg = model.DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	checklist := score.DefaultChecklist()
	if cfg.Scoring.ChecklistPath != "" {
		loaded, err := score.LoadChecklist(cfg.Scoring.ChecklistPath)
		if err != nil {
			return nil, fmt.Errorf("load checklist: %w", err)
		}
		checklist = loaded
	}

	p := &Pipeline{
		trust:  score.NewSourceTrust(cfg.Scoring.SourceTrust),
		scorer: score.NewScorer(checklist),
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.fetcher == nil {
		fetcherOpts := []FetcherOption{
			WithLogger(logger.Named("fetch")),
			WithLimiter(worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)),
		}
		if pages := OpenPageCache(cfg.Cache); pages != nil {
			fetcherOpts = append(fetcherOpts, WithPageCache(pages))
		}
		p.fetcher = NewFetcher(cfg.HTTP, fetcherOpts...)
	}

	p.factExtractor = extract.NewFactExtractor(p.fetcher, cfg.Concurrency.CategoryFetchers)
	p.claimExtractor = extract.NewClaimExtractor(p.fetcher, cfg.Concurrency.CategoryFetchers)

	return p, nil
}

// OpenPageCache builds the configured page cache, or nil when caching is off.
// Without a disk directory pages live only in memory for the run.
func OpenPageCache(cfg model.CacheConfig) *cache.PageCache {
	if !cfg.Enabled {
		return nil
	}
	if cfg.DiskDir == "" {
		return cache.NewPageCache(cache.NewMemoryCache(cfg.MemoryTTL, 10*time.Minute), cfg.MemoryTTL)
	}
	return cache.NewPageCache(cache.NewLayeredCache(cfg.MemoryTTL, cfg.DiskDir, cfg.DiskTTL), cfg.DiskTTL)
}

// EnrichTool runs discovery, extraction, aggregation and scoring for one
// tool. Nothing is persisted. Fetch failures only reduce what is found;
// an error is returned only for a tool without a website or a done ctx.
func (p *Pipeline) EnrichTool(ctx context.Context, tool model.Tool) (*model.Enrichment, error) {
	if tool.WebsiteURL == "" {
		return nil, fmt.Errorf("tool %s has no website url", tool.Slug)
	}
	start := time.Now()
	log := p.logger.With(zap.String("tool_id", tool.ID), zap.String("slug", tool.Slug))

	// 1. Homepage and discovery
	d := p.Discover(ctx, tool.Name, tool.WebsiteURL)
	categories, opinions := d.Links, d.Opinions
	if !d.home.OK() {
		log.Info("homepage fetch failed; continuing with search fallbacks only",
			zap.String("url", tool.WebsiteURL), zap.Int("status", d.home.Status))
	}
	log.Debug("discovery finished",
		zap.Int("links", d.LinkCount),
		zap.Int("categories", len(categories)),
		zap.Int("opinion_sources", len(opinions)))

	// 2. First-party facts
	facts, pages := p.factExtractor.Extract(ctx, categories)

	// 3. Third-party claims
	claims := p.claimExtractor.Extract(ctx, tool.ID, opinions)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("enrich %s: %w", tool.Slug, err)
	}

	// 4. Aggregate and score
	now := p.now().UTC()
	consensus := score.Aggregate(claims, p.trust, now)

	merged := tool.MergeFacts(facts)
	sourcePages := successfulPages(tool.ID, pages, now)
	merged.ConfidenceTier = promoteTier(merged.ConfidenceTier, len(sourcePages) > 0)

	rating := p.scorer.Score(score.Input{
		Tool:      merged,
		Evidence:  facts.Evidence,
		Consensus: consensus,
	})

	merged.Rating = &rating.Score
	merged.RatingMeta = &rating.Meta
	merged.RatedAt = &now

	log.Debug("tool scored",
		zap.Float64("score", rating.Score),
		zap.Int("source_pages", len(sourcePages)),
		zap.Int("claims", len(claims)),
		zap.String("tier", string(merged.ConfidenceTier)))

	return &model.Enrichment{
		Tool:        merged,
		Homepage:    d.Homepage,
		Links:       categories,
		Opinions:    opinions,
		SourcePages: sourcePages,
		Facts:       facts,
		Claims:      claims,
		Rating:      rating,
		Duration:    time.Since(start),
	}, nil
}

// Discovery is what a homepage reveals before any category page is fetched
type Discovery struct {
	Origin    string                          `json:"origin"`
	Homepage  model.PageMeta                  `json:"homepage"`
	LinkCount int                             `json:"link_count"`
	Links     map[model.SourceCategory]string `json:"links"`
	Opinions  model.OpinionSources            `json:"opinions"`

	home model.FetchResult
}

// Discover fetches the homepage, classifies its links and resolves opinion
// sources. A failed homepage fetch yields search fallbacks only.
func (p *Pipeline) Discover(ctx context.Context, name, website string) *Discovery {
	home := p.fetcher.Fetch(ctx, website)
	origin := website
	var links []string
	if home.OK() {
		if home.FinalURL != "" {
			origin = home.FinalURL
		}
		links = extract.ExtractLinks(home.Text, origin)
	}

	return &Discovery{
		Origin: origin,
		Homepage: model.PageMeta{
			FinalURL:    home.FinalURL,
			Status:      home.Status,
			ContentType: home.ContentType,
		},
		LinkCount: len(links),
		Links:     extract.ClassifyLinks(links, origin),
		Opinions:  extract.ResolveOpinionSources(links, origin, name),
		home:      home,
	}
}

// successfulPages turns fetched category pages into SourcePage records.
// Failed fetches produce no record so a previous good page is kept.
func successfulPages(toolID string, pages []extract.FetchedPage, now time.Time) []model.SourcePage {
	var out []model.SourcePage
	for _, page := range pages {
		if !page.Result.OK() {
			continue
		}
		out = append(out, model.SourcePage{
			ToolID:    toolID,
			Category:  page.Category,
			URL:       page.URL,
			FetchedAt: now,
			Meta: model.PageMeta{
				FinalURL:    page.Result.FinalURL,
				Status:      page.Result.Status,
				ContentType: page.Result.ContentType,
			},
		})
	}
	return out
}

// promoteTier moves SEEDED to ENRICHED once first-party pages were read.
// VERIFIED is set by humans and never changed here.
func promoteTier(tier model.ConfidenceTier, fetchedFirstParty bool) model.ConfidenceTier {
	switch tier {
	case model.TierVerified, model.TierEnriched:
		return tier
	}
	if fetchedFirstParty {
		return model.TierEnriched
	}
	return model.TierSeeded
}
