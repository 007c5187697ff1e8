package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/toolrate/internal/extract"
	"github.com/ppiankov/toolrate/internal/model"
	"github.com/ppiankov/toolrate/internal/pipeline"
)

var (
	discoverName    string
	discoverJSON    bool
	discoverTimeout time.Duration
)

// discoverCmd represents the discover command
var discoverCmd = &cobra.Command{
	Use:   "discover <url>",
	Short: "Show which pages a homepage leads to, without enriching",
	Long: `Discover fetches a single homepage and prints the first-party page chosen
for each category and the opinion sources that would be read.
Nothing else is fetched and nothing is stored.

Example:
  toolrate discover https://acme.io --name Acme`,
	Args: cobra.ExactArgs(1),
	RunE: runDiscover,
}

func init() {
	rootCmd.AddCommand(discoverCmd)

	discoverCmd.Flags().StringVar(&discoverName, "name", "", "tool name used for search fallbacks (default: host)")
	discoverCmd.Flags().BoolVar(&discoverJSON, "json", false, "print the result as JSON")
	discoverCmd.Flags().DurationVar(&discoverTimeout, "timeout", time.Minute, "overall timeout")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	website := args[0]
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), discoverTimeout)
	defer cancel()

	if verbose {
		fmt.Fprintf(os.Stderr, "Discovering: %s\n", website)
	}

	p, err := pipeline.NewPipeline(cfg, logger.Named("pipeline"))
	if err != nil {
		return err
	}
	d := p.Discover(ctx, discoverName, website)

	if discoverJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	}

	if d.Homepage.Status == 0 || d.Homepage.Status >= 400 {
		fmt.Fprintf(os.Stderr, "✗ Homepage unavailable (status %d); only search fallbacks apply\n", d.Homepage.Status)
	} else {
		fmt.Fprintf(os.Stderr, "✓ Homepage %s (%d links)\n", d.Origin, d.LinkCount)
	}

	fmt.Println("\nFirst-party pages:")
	for _, category := range model.SourceCategories {
		u, ok := d.Links[category]
		if !ok {
			u = "-"
		}
		fmt.Printf("  %-13s %s\n", category, u)
	}

	fmt.Println("\nOpinion sources:")
	for _, sourceType := range d.Opinions.Types() {
		marker := ""
		if extract.IsSearchFallback(sourceType) {
			marker = " (search fallback, not fetched)"
		}
		fmt.Printf("  %-17s %s%s\n", extract.SourceLabel(sourceType), d.Opinions[sourceType], marker)
	}
	fmt.Println()

	return nil
}
