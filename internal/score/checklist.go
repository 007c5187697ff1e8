package score

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/toolrate/internal/model"
)

// ChecklistItem is one weighted feature the features subscore looks for
type ChecklistItem struct {
	Key    string  `yaml:"key" json:"key"`
	Weight float64 `yaml:"weight" json:"weight"`
	Label  string  `yaml:"label" json:"label"`
}

// Checklist holds the default item list and optional per-category lists
type Checklist struct {
	Default    []ChecklistItem            `yaml:"default"`
	Categories map[string][]ChecklistItem `yaml:"categories,omitempty"`
}

// DefaultChecklist returns the built-in checklist used for every category
func DefaultChecklist() *Checklist {
	return &Checklist{
		Default: []ChecklistItem{
			{Key: model.FlagAPI, Weight: 2.0, Label: "Public API"},
			{Key: model.FlagSSO, Weight: 1.5, Label: "Single sign-on"},
			{Key: model.FlagIntegrations, Weight: 1.5, Label: "Third-party integrations"},
			{Key: model.FlagFreeTrial, Weight: 1.0, Label: "Free trial"},
			{Key: model.FlagFreePlan, Weight: 1.0, Label: "Free plan"},
			{Key: model.FlagSCIM, Weight: 0.75, Label: "SCIM provisioning"},
			{Key: model.FlagChangelog, Weight: 0.75, Label: "Public changelog"},
			{Key: model.FlagStatusPage, Weight: 0.75, Label: "Status page"},
			{Key: model.FlagSOC2, Weight: 0.75, Label: "SOC 2 report"},
		},
	}
}

// LoadChecklist reads a YAML checklist file. Items with an unknown key or a
// non-positive weight are rejected.
func LoadChecklist(path string) (*Checklist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read checklist: %w", err)
	}

	var cl Checklist
	if err := yaml.Unmarshal(data, &cl); err != nil {
		return nil, fmt.Errorf("failed to parse checklist: %w", err)
	}

	if len(cl.Default) == 0 {
		cl.Default = DefaultChecklist().Default
	}
	if err := validateItems("default", cl.Default); err != nil {
		return nil, err
	}
	categories := make(map[string][]ChecklistItem, len(cl.Categories))
	for category, items := range cl.Categories {
		if err := validateItems(category, items); err != nil {
			return nil, err
		}
		categories[strings.ToLower(category)] = items
	}
	cl.Categories = categories

	return &cl, nil
}

func validateItems(name string, items []ChecklistItem) error {
	blank := model.Tool{}
	for _, item := range items {
		if _, ok := lookupFlag(blank, item.Key); !ok {
			return fmt.Errorf("checklist %s: unknown key %q", name, item.Key)
		}
		if item.Weight <= 0 {
			return fmt.Errorf("checklist %s: key %q has non-positive weight", name, item.Key)
		}
	}
	return nil
}

// For returns the items for category, falling back to the default list
func (c *Checklist) For(category string) []ChecklistItem {
	if c == nil {
		return DefaultChecklist().Default
	}
	if items, ok := c.Categories[strings.ToLower(category)]; ok && len(items) > 0 {
		return items
	}
	return c.Default
}

// lookupFlag resolves a checklist key against a tool. Keys backed by
// non-flag fields are derived from them.
func lookupFlag(tool model.Tool, key string) (*bool, bool) {
	switch key {
	case model.FlagFreeTrial:
		return tool.HasFreeTrial, true
	case model.FlagFreePlan:
		return tool.HasFreePlan, true
	case model.FlagIntegrations:
		if len(tool.Integrations) > 0 {
			return model.Bool(true), true
		}
		return nil, true
	}
	return tool.Flags.Lookup(key)
}
