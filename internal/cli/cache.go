package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/toolrate/internal/model"
	"github.com/ppiankov/toolrate/internal/pipeline"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the fetched-page cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every cached page",
	Long: `Clear removes every page kept in the on-disk cache so the next
enrichment fetches all pages fresh.

Example:
  toolrate cache clear`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		cleared, err := clearPageCache(cfg.Cache)
		if err != nil {
			return err
		}
		if !cleared {
			fmt.Fprintf(os.Stderr, "Page cache is disabled\n")
			return nil
		}
		fmt.Fprintf(os.Stderr, "Cleared page cache %s\n", cfg.Cache.DiskDir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

// clearPageCache reports false when caching is disabled
func clearPageCache(cfg model.CacheConfig) (bool, error) {
	pages := pipeline.OpenPageCache(cfg)
	if pages == nil {
		return false, nil
	}
	return true, pages.Clear()
}
