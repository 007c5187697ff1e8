package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/toolrate/internal/model"
	"github.com/ppiankov/toolrate/internal/pipeline"
	"github.com/ppiankov/toolrate/internal/store"
)

var showJSON bool

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show <id|slug>",
	Short: "Show a tool's rating, subscores and review consensus",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := store.Open(cfg.Store.Path)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer func() { _ = db.Close() }()

		ctx := cmd.Context()
		tool, err := db.GetTool(ctx, args[0])
		if err != nil {
			return err
		}
		pages, err := db.ListSourcePages(ctx, tool.ID)
		if err != nil {
			return err
		}
		claims, err := db.ListClaims(ctx, tool.ID)
		if err != nil {
			return err
		}

		if showJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				Tool        model.Tool            `json:"tool"`
				SourcePages []model.SourcePage    `json:"source_pages"`
				Claims      []model.ExternalClaim `json:"claims"`
			}{tool, pages, claims})
		}

		pipeline.RenderTool(os.Stdout, tool)
		renderSources(pages, claims)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().BoolVar(&showJSON, "json", false, "print the stored record as JSON")
}

func renderSources(pages []model.SourcePage, claims []model.ExternalClaim) {
	if len(pages) > 0 {
		fmt.Println("\nSources:")
		for _, page := range pages {
			fmt.Printf("  %-13s %s (%d, %s)\n", page.Category, page.URL, page.Meta.Status, page.FetchedAt.Format("2006-01-02"))
		}
	}
	if len(claims) > 0 {
		fmt.Println("\nClaims:")
		for _, c := range claims {
			fmt.Printf("  [%s] %s\n", c.SourceType, c.Claim)
		}
	}
}
