package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/toolrate/internal/pipeline"
	"github.com/ppiankov/toolrate/internal/store"
	"github.com/ppiankov/toolrate/internal/worker"
)

var (
	enrichCategory string
	enrichAll      bool
	enrichFile     string
	concurrency    int
	dryRun         bool
	outJSON        string
	batchTimeout   time.Duration
	noCache        bool
	refreshCache   bool
	noRobots       bool
	httpProxy      string
	httpsProxy     string
)

// enrichCmd represents the enrich command
var enrichCmd = &cobra.Command{
	Use:   "enrich [id|slug...]",
	Short: "Enrich and rate tools from their public web pages",
	Long: `Enrich discovers first-party and review pages for each selected tool,
extracts facts and review claims, aggregates consensus and computes a rating.

Tools are selected by id or slug, by category, from a file, or all at once.
Tools are processed in parallel; a failure in one tool never stops the others.
With --dry-run nothing is written and the report shows the intended writes.

Example:
  toolrate enrich acme linear
  toolrate enrich --category crm --concurrency 8
  toolrate enrich --all --dry-run --json report.json
  toolrate enrich --file slugs.txt`,
	RunE: runEnrich,
}

func init() {
	rootCmd.AddCommand(enrichCmd)

	// Selection flags
	enrichCmd.Flags().StringVar(&enrichCategory, "category", "", "enrich every tool in this category")
	enrichCmd.Flags().BoolVar(&enrichAll, "all", false, "enrich every tool")
	enrichCmd.Flags().StringVar(&enrichFile, "file", "", "read tool ids or slugs from file (one per line)")

	// Run flags
	enrichCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of tools enriched in parallel (default from config)")
	enrichCmd.Flags().BoolVar(&dryRun, "dry-run", false, "compute everything but write nothing")
	enrichCmd.Flags().StringVar(&outJSON, "json", "", "write a JSON report to this path")
	enrichCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for the run")

	// HTTP flags
	enrichCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable page cache (force fresh fetch)")
	enrichCmd.Flags().BoolVar(&refreshCache, "refresh", false, "purge cached pages before the run")
	enrichCmd.Flags().BoolVar(&noRobots, "no-robots", false, "ignore robots.txt")
	enrichCmd.Flags().StringVar(&httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	enrichCmd.Flags().StringVar(&httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")

	_ = viper.BindPFlag("concurrency.workers", enrichCmd.Flags().Lookup("concurrency"))
	_ = viper.BindPFlag("output.json_path", enrichCmd.Flags().Lookup("json"))
}

func runEnrich(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if refreshCache {
		if _, err := clearPageCache(cfg.Cache); err != nil {
			return err
		}
		logger.Info("page cache purged", zap.String("dir", cfg.Cache.DiskDir))
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	if noRobots {
		cfg.HTTP.RespectRobots = false
	}
	if httpProxy != "" {
		cfg.HTTP.HTTPProxy = httpProxy
	}
	if httpsProxy != "" {
		cfg.HTTP.HTTPSProxy = httpsProxy
	}

	refs := append([]string(nil), args...)
	if enrichFile != "" {
		fromFile, err := worker.ReadRefsFromFile(enrichFile)
		if err != nil {
			return err
		}
		refs = append(refs, fromFile...)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = db.Close() }()

	tools, err := db.ListTools(ctx, store.Selection{Refs: refs, Category: enrichCategory, All: enrichAll})
	if err != nil {
		return fmt.Errorf("select tools: %w", err)
	}
	if len(tools) == 0 {
		fmt.Fprintf(os.Stderr, "No tools selected\n")
		return nil
	}

	p, err := pipeline.NewPipeline(cfg, logger.Named("pipeline"))
	if err != nil {
		return err
	}

	var committer worker.Committer
	if !dryRun {
		committer = pipeline.NewCommitter(db, logger.Named("commit"))
	}
	processor := worker.NewBatchProcessor(p, committer, cfg.Concurrency.Workers, logger.Named("batch"))

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  ToolRate Enrichment\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Tools:        %d\n", len(tools))
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "  Database:     %s\n", db.Path())
	fmt.Fprintf(os.Stderr, "  Dry run:      %v\n", dryRun)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	results := processor.ProcessTools(ctx, tools)
	report := pipeline.BuildReport(results, dryRun, time.Now())

	pipeline.RenderSummary(os.Stderr, report)

	if cfg.Output.JSONPath != "" {
		if err := pipeline.RenderJSON(report, cfg.Output.JSONPath); err != nil {
			return fmt.Errorf("render failed: %w", err)
		}
		fmt.Fprintf(os.Stderr, "  Report:    %s\n\n", cfg.Output.JSONPath)
	}

	logger.Info("enrichment run finished",
		zap.Int("total", report.Summary.Total),
		zap.Int("failed", report.Summary.Failed),
		zap.Bool("dry_run", dryRun))

	if report.Summary.Failed > 0 && report.Summary.Failed == report.Summary.Total {
		return fmt.Errorf("all %d tools failed", report.Summary.Total)
	}
	return nil
}
