package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ppiankov/toolrate/internal/model"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// PageKey generates a cache key for a fetched URL
func PageKey(url string) string {
	hash := sha256.Sum256([]byte(url))
	return "toolrate-page-v1-" + hex.EncodeToString(hash[:])
}

// cachedPage is the stored form of a fetch result; Text is excluded from
// FetchResult's JSON so it is carried explicitly.
type cachedPage struct {
	Result model.FetchResult `json:"result"`
	Text   string            `json:"text"`
}

// PageCache stores successful fetch results keyed by requested URL
type PageCache struct {
	backend Cache
	ttl     time.Duration
}

// NewPageCache wraps a byte cache
func NewPageCache(backend Cache, ttl time.Duration) *PageCache {
	return &PageCache{backend: backend, ttl: ttl}
}

// Get returns the cached result for url. An entry that no longer decodes
// is dropped so the next fetch rewrites it.
func (p *PageCache) Get(url string) (model.FetchResult, bool) {
	key := PageKey(url)
	data, ok := p.backend.Get(key)
	if !ok {
		return model.FetchResult{}, false
	}
	var page cachedPage
	if err := json.Unmarshal(data, &page); err != nil {
		_ = p.backend.Delete(key)
		return model.FetchResult{}, false
	}
	page.Result.Text = page.Text
	return page.Result, true
}

// Put stores result for url. Unsuccessful results are not cached.
func (p *PageCache) Put(url string, result model.FetchResult) error {
	if !result.OK() {
		return nil
	}
	data, err := json.Marshal(cachedPage{Result: result, Text: result.Text})
	if err != nil {
		return fmt.Errorf("marshal page: %w", err)
	}
	return p.backend.Set(PageKey(url), data, p.ttl)
}

// Clear drops every cached page
func (p *PageCache) Clear() error {
	if err := p.backend.Clear(); err != nil {
		return fmt.Errorf("clear page cache: %w", err)
	}
	return nil
}
