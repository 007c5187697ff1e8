package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/toolrate/internal/model"
)

// Enricher runs the per-tool pipeline
type Enricher interface {
	EnrichTool(ctx context.Context, tool model.Tool) (*model.Enrichment, error)
}

// Committer persists one tool's enrichment
type Committer interface {
	Commit(ctx context.Context, e *model.Enrichment) error
}

// ToolResult is the outcome of enriching one tool
type ToolResult struct {
	Tool       model.Tool
	Enrichment *model.Enrichment
	Committed  bool
	Error      error
	Duration   time.Duration
}

// BatchSummary counts batch outcomes
type BatchSummary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Committed int `json:"committed"`
}

// BatchProcessor enriches many tools on a bounded worker pool
type BatchProcessor struct {
	enricher    Enricher
	committer   Committer
	concurrency int
	logger      *zap.Logger
}

// NewBatchProcessor creates a new batch processor. A nil committer makes the
// batch a dry run.
func NewBatchProcessor(enricher Enricher, committer Committer, concurrency int, logger *zap.Logger) *BatchProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchProcessor{
		enricher:    enricher,
		committer:   committer,
		concurrency: concurrency,
		logger:      logger,
	}
}

// ProcessTools enriches every tool. results[i] belongs to tools[i]. A failing
// or panicking tool is logged and recorded; it never stops the batch.
func (b *BatchProcessor) ProcessTools(ctx context.Context, tools []model.Tool) []*ToolResult {
	results := make([]*ToolResult, len(tools))
	if len(tools) == 0 {
		return results
	}

	pool := NewPool(b.concurrency)
	b.logger.Info("batch started",
		zap.Int("tools", len(tools)),
		zap.Int("workers", pool.Workers()),
		zap.Bool("dry_run", b.committer == nil))

	pool.Run(ctx, len(tools), func(ctx context.Context, i int) {
		results[i] = b.process(ctx, tools[i])
	})

	// Tools never reached because ctx was cancelled
	for i, r := range results {
		if r == nil {
			err := ctx.Err()
			if err == nil {
				err = fmt.Errorf("tool %s was not processed", tools[i].Slug)
			}
			results[i] = &ToolResult{Tool: tools[i], Error: err}
		}
	}

	summary := Summarize(results)
	b.logger.Info("batch finished",
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Int("committed", summary.Committed))

	return results
}

func (b *BatchProcessor) process(ctx context.Context, tool model.Tool) (res *ToolResult) {
	start := time.Now()
	res = &ToolResult{Tool: tool}
	log := b.logger.With(zap.String("tool_id", tool.ID), zap.String("slug", tool.Slug))

	defer func() {
		if r := recover(); r != nil {
			res.Error = fmt.Errorf("panic while enriching %s: %v", tool.Slug, r)
			log.Error("tool enrichment panicked", zap.Any("panic", r))
		}
		res.Duration = time.Since(start)
	}()

	enrichment, err := b.enricher.EnrichTool(ctx, tool)
	if err != nil {
		res.Error = fmt.Errorf("enrich %s: %w", tool.Slug, err)
		log.Warn("tool enrichment failed", zap.Error(err))
		return res
	}
	res.Enrichment = enrichment

	if b.committer != nil {
		if err := b.committer.Commit(ctx, enrichment); err != nil {
			res.Error = fmt.Errorf("commit %s: %w", tool.Slug, err)
			log.Warn("tool commit failed", zap.Error(err))
			return res
		}
		res.Committed = true
	}

	log.Debug("tool enriched",
		zap.Float64("score", enrichment.Rating.Score),
		zap.Int("claims", len(enrichment.Claims)))

	return res
}

// Summarize counts successes, failures and commits
func Summarize(results []*ToolResult) BatchSummary {
	s := BatchSummary{Total: len(results)}
	for _, r := range results {
		if r == nil {
			continue
		}
		if r.Error != nil {
			s.Failed++
			continue
		}
		s.Succeeded++
		if r.Committed {
			s.Committed++
		}
	}
	return s
}

// ReadRefsFromFile reads tool ids or slugs from a file (one per line).
// Blank lines and # comments are skipped; duplicates are dropped.
func ReadRefsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var refs []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !seen[line] {
			seen[line] = true
			refs = append(refs, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return refs, nil
}
