package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ppiankov/toolrate/internal/model"
)

// Store is the persistence surface the commit step writes through
type Store interface {
	UpsertSourcePage(ctx context.Context, page model.SourcePage) error
	ReplaceClaims(ctx context.Context, toolID string, claims []model.ExternalClaim) error
	MergeToolFacts(ctx context.Context, toolID string, facts model.ExtractedFacts, tier model.ConfidenceTier) error
	SaveRating(ctx context.Context, toolID string, rating model.Rating) error
}

// Committer writes one tool's enrichment. Every write is scoped to that
// tool's rows.
type Committer struct {
	store  Store
	logger *zap.Logger
}

// NewCommitter creates a committer over store
func NewCommitter(store Store, logger *zap.Logger) *Committer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Committer{store: store, logger: logger}
}

// Commit upserts source pages, replaces the claim set, merges facts and
// saves the rating, in that order. Claim replacement is delete-then-insert
// and is not atomic with the rest; a crash in between leaves the tool
// without claims until its next run.
func (c *Committer) Commit(ctx context.Context, e *model.Enrichment) error {
	if e == nil {
		return fmt.Errorf("nothing to commit")
	}
	toolID := e.Tool.ID

	for _, page := range e.SourcePages {
		if err := c.store.UpsertSourcePage(ctx, page); err != nil {
			return fmt.Errorf("upsert %s page: %w", page.Category, err)
		}
	}

	if err := c.store.ReplaceClaims(ctx, toolID, e.Claims); err != nil {
		return fmt.Errorf("replace claims: %w", err)
	}

	if err := c.store.MergeToolFacts(ctx, toolID, e.Facts, e.Tool.ConfidenceTier); err != nil {
		return fmt.Errorf("merge facts: %w", err)
	}

	if err := c.store.SaveRating(ctx, toolID, e.Rating); err != nil {
		return fmt.Errorf("save rating: %w", err)
	}

	c.logger.Debug("enrichment committed",
		zap.String("tool_id", toolID),
		zap.Int("source_pages", len(e.SourcePages)),
		zap.Int("claims", len(e.Claims)),
		zap.Float64("score", e.Rating.Score))

	return nil
}
