package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/toolrate/internal/model"
	"github.com/ppiankov/toolrate/internal/store"
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import <tools.yaml>",
	Short: "Import tool records from a YAML file",
	Long: `Import upserts catalog records. Existing tools are matched by id or slug;
known facts are never overwritten with unknown values.

File format:
  tools:
    - name: Acme
      website_url: https://acme.io
      category: crm
      pricing_model: FREEMIUM
    - slug: linear
      name: Linear
      website_url: https://linear.app

Example:
  toolrate import tools.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

// importFile is the on-disk shape accepted by import
type importFile struct {
	Tools []model.Tool `yaml:"tools"`
}

func runImport(cmd *cobra.Command, args []string) error {
	tools, err := readImportFile(args[0])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = db.Close() }()

	imported, failed := importTools(cmd.Context(), db, tools)
	fmt.Fprintf(os.Stderr, "\nImported %d tools into %s", imported, db.Path())
	if failed > 0 {
		fmt.Fprintf(os.Stderr, " (%d failed)", failed)
	}
	fmt.Fprintf(os.Stderr, "\n")

	if failed > 0 {
		return fmt.Errorf("%d tools failed to import", failed)
	}
	return nil
}

func importTools(ctx context.Context, db *store.Store, tools []model.Tool) (imported, failed int) {
	for _, tool := range tools {
		saved, err := db.UpsertTool(ctx, tool)
		if err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", tool.Slug, err)
			continue
		}
		imported++
		fmt.Fprintf(os.Stderr, "✓ %-24s %s\n", saved.Slug, saved.ID)
	}
	return imported, failed
}

func readImportFile(path string) ([]model.Tool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var file importFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(file.Tools) == 0 {
		return nil, fmt.Errorf("%s: no tools listed", path)
	}

	for i := range file.Tools {
		t := &file.Tools[i]
		t.Slug = strings.TrimSpace(t.Slug)
		if t.Slug == "" {
			t.Slug = slugify(t.Name)
		}
		t.PricingModel = model.PricingModel(strings.ToUpper(string(t.PricingModel)))
		t.ConfidenceTier = model.ConfidenceTier(strings.ToUpper(string(t.ConfidenceTier)))
		t.BillingPeriod = model.BillingPeriod(strings.ToUpper(string(t.BillingPeriod)))
	}
	return file.Tools, nil
}

// slugify lowercases name and joins its alphanumeric runs with hyphens
func slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	return b.String()
}
