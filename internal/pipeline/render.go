package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ppiankov/toolrate/internal/model"
	"github.com/ppiankov/toolrate/internal/worker"
)

// Report is the JSON document written for a batch run
type Report struct {
	GeneratedAt time.Time           `json:"generated_at"`
	DryRun      bool                `json:"dry_run"`
	Summary     worker.BatchSummary `json:"summary"`
	Tools       []ToolReport        `json:"tools"`
}

// ToolReport is one tool's entry in a Report
type ToolReport struct {
	ToolID     string            `json:"tool_id"`
	Slug       string            `json:"slug"`
	Committed  bool              `json:"committed"`
	Error      string            `json:"error,omitempty"`
	DurationMS int64             `json:"duration_ms"`
	Enrichment *model.Enrichment `json:"enrichment,omitempty"`
}

// BuildReport converts batch results into a Report
func BuildReport(results []*worker.ToolResult, dryRun bool, now time.Time) *Report {
	report := &Report{
		GeneratedAt: now.UTC(),
		DryRun:      dryRun,
		Summary:     worker.Summarize(results),
		Tools:       make([]ToolReport, 0, len(results)),
	}
	for _, r := range results {
		if r == nil {
			continue
		}
		tr := ToolReport{
			ToolID:     r.Tool.ID,
			Slug:       r.Tool.Slug,
			Committed:  r.Committed,
			DurationMS: r.Duration.Milliseconds(),
			Enrichment: r.Enrichment,
		}
		if r.Error != nil {
			tr.Error = r.Error.Error()
		}
		report.Tools = append(report.Tools, tr)
	}
	return report
}

// RenderJSON writes report to path, creating parent directories
func RenderJSON(report *Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// RenderSummary prints a short human-readable table of the batch
func RenderSummary(w io.Writer, report *Report) {
	mode := "committed"
	if report.DryRun {
		mode = "dry run"
	}
	fmt.Fprintf(w, "\nEnriched %d tools (%s): %d ok, %d failed\n",
		report.Summary.Total, mode, report.Summary.Succeeded, report.Summary.Failed)
	fmt.Fprintln(w, "────────────────────────────────────────────────────────")

	for _, tr := range report.Tools {
		if tr.Error != "" {
			fmt.Fprintf(w, "✗ %-24s %s\n", tr.Slug, tr.Error)
			continue
		}
		e := tr.Enrichment
		fmt.Fprintf(w, "✓ %-24s %5.2f/10  %-8s pages:%d claims:%d\n",
			tr.Slug, e.Rating.Score, e.Tool.ConfidenceTier, len(e.SourcePages), len(e.Claims))
	}
}

// RenderTool prints one tool's rating breakdown and consensus
func RenderTool(w io.Writer, tool model.Tool) {
	fmt.Fprintf(w, "%s (%s)\n", tool.Name, tool.WebsiteURL)
	fmt.Fprintf(w, "Tier: %s\n", tool.ConfidenceTier)
	if tool.Rating == nil || tool.RatingMeta == nil {
		fmt.Fprintln(w, "Not rated yet")
		return
	}

	meta := tool.RatingMeta
	fmt.Fprintf(w, "Rating: %.2f/10 (%s)\n\n", *tool.Rating, meta.Version)

	fmt.Fprintln(w, "Subscores:")
	for _, name := range model.SubscoreNames {
		sub := meta.Subscores[name]
		weight, active := meta.Weights[name]
		status := "inactive"
		if active {
			status = fmt.Sprintf("weight %.2f", weight)
		}
		fmt.Fprintf(w, "  %-13s %5.2f  conf %.2f  %s\n", name, sub.Score, sub.Confidence, status)
	}

	if len(meta.Consensus.Topics) == 0 {
		return
	}
	fmt.Fprintln(w, "\nConsensus:")
	for _, t := range meta.Consensus.Topics {
		fmt.Fprintf(w, "  %-13s %-8s signal %+.2f  conf %.2f  (%d claims)\n",
			t.Topic, t.Sentiment, t.Signal, t.Confidence, t.ClaimCount)
	}
}
