package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ppiankov/toolrate/internal/model"
)

// UpsertSourcePage records the URL used for a category, replacing any
// earlier page for the same tool and category
func (s *Store) UpsertSourcePage(ctx context.Context, page model.SourcePage) error {
	meta, err := json.Marshal(page.Meta)
	if err != nil {
		return fmt.Errorf("marshal page meta: %w", err)
	}

	fetchedAt := page.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = s.now()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO source_pages (tool_id, category, url, fetched_at, meta_json)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(tool_id, category) DO UPDATE SET
			url = excluded.url,
			fetched_at = excluded.fetched_at,
			meta_json = excluded.meta_json
	`, page.ToolID, string(page.Category), page.URL, formatTime(fetchedAt), string(meta))
	if err != nil {
		return fmt.Errorf("failed to upsert %s page for %s: %w", page.Category, page.ToolID, err)
	}
	return nil
}

// ListSourcePages returns a tool's pages in category processing order
func (s *Store) ListSourcePages(ctx context.Context, toolID string) ([]model.SourcePage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT category, url, fetched_at, meta_json FROM source_pages WHERE tool_id = ?`, toolID)
	if err != nil {
		return nil, fmt.Errorf("failed to list source pages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	byCategory := make(map[model.SourceCategory]model.SourcePage)
	for rows.Next() {
		var (
			page                      model.SourcePage
			category, fetched, metaJS string
		)
		if err := rows.Scan(&category, &page.URL, &fetched, &metaJS); err != nil {
			return nil, fmt.Errorf("failed to scan source page: %w", err)
		}
		page.ToolID = toolID
		page.Category = model.SourceCategory(category)
		if page.FetchedAt, err = parseTime(fetched); err != nil {
			return nil, fmt.Errorf("decode fetched_at: %w", err)
		}
		if err := json.Unmarshal([]byte(metaJS), &page.Meta); err != nil {
			return nil, fmt.Errorf("decode page meta: %w", err)
		}
		byCategory[page.Category] = page
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	pages := make([]model.SourcePage, 0, len(byCategory))
	for _, category := range model.SourceCategories {
		if page, ok := byCategory[category]; ok {
			pages = append(pages, page)
		}
	}
	return pages, nil
}
