package pipeline

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"github.com/ppiankov/toolrate/internal/cache"
	"github.com/ppiankov/toolrate/internal/model"
	"github.com/ppiankov/toolrate/internal/util"
	"github.com/ppiankov/toolrate/internal/worker"
)

const acceptHeader = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"

// Fetcher performs bounded single-page GETs. Fetch is a total function:
// every failure collapses to a zero FetchResult and nothing is returned as
// an error, so callers only check presence.
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	timeout    time.Duration
	robots     *util.RobotsChecker
	limiter    *worker.Limiter
	pages      *cache.PageCache
	logger     *zap.Logger
}

// FetcherOption customises a Fetcher
type FetcherOption func(*Fetcher)

// WithLimiter applies per-host rate limiting
func WithLimiter(l *worker.Limiter) FetcherOption {
	return func(f *Fetcher) { f.limiter = l }
}

// WithPageCache serves repeated URLs from c
func WithPageCache(c *cache.PageCache) FetcherOption {
	return func(f *Fetcher) { f.pages = c }
}

// WithLogger sets the fetch logger
func WithLogger(l *zap.Logger) FetcherOption {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewFetcher creates a Fetcher from HTTP configuration
func NewFetcher(cfg model.HTTPConfig, opts ...FetcherOption) *Fetcher {
	maxRedirects := cfg.MaxRedirects
	if maxRedirects <= 0 {
		maxRedirects = 5
	}
	maxBytes := cfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = 2_000_000
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = model.DefaultUserAgent
	}

	transport := &http.Transport{
		Proxy:                  util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
		MaxResponseHeaderBytes: cfg.MaxHeaderBytes,
		MaxIdleConns:           100,
		IdleConnTimeout:        90 * time.Second,
		TLSHandshakeTimeout:    10 * time.Second,
	}
	if cfg.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	client := &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
				return fmt.Errorf("redirect to unsupported scheme %q", req.URL.Scheme)
			}
			return nil
		},
		// No cookie jar: requests are anonymous
	}

	f := &Fetcher{
		httpClient: client,
		userAgent:  userAgent,
		maxBytes:   maxBytes,
		timeout:    timeout,
		logger:     zap.NewNop(),
	}
	if cfg.RespectRobots {
		f.robots = util.NewRobotsChecker(client, userAgent)
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves rawURL with the configured timeout
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) model.FetchResult {
	return f.FetchWithTimeout(ctx, rawURL, f.timeout)
}

// FetchWithTimeout retrieves rawURL, aborting the in-flight call once
// timeout elapses
func (f *Fetcher) FetchWithTimeout(ctx context.Context, rawURL string, timeout time.Duration) (result model.FetchResult) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Warn("fetch panicked", zap.String("url", rawURL), zap.Any("panic", r))
			result = model.FetchResult{}
		}
	}()

	if !allowedScheme(rawURL) {
		return model.FetchResult{}
	}

	if f.pages != nil {
		if cached, ok := f.pages.Get(rawURL); ok {
			return cached
		}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := f.limiter.Wait(ctx, rawURL); err != nil {
		f.logger.Debug("rate limiter refused fetch", zap.String("url", rawURL), zap.Error(err))
		return model.FetchResult{}
	}

	if f.robots != nil && !f.robots.Allowed(ctx, rawURL) {
		f.logger.Debug("robots.txt disallows fetch", zap.String("url", rawURL))
		return model.FetchResult{}
	}

	result, err := f.get(ctx, rawURL)
	if err != nil {
		f.logger.Debug("fetch failed", zap.String("url", rawURL), zap.Error(err))
		return model.FetchResult{}
	}

	if f.pages != nil {
		if err := f.pages.Put(rawURL, result); err != nil {
			f.logger.Debug("page cache write failed", zap.String("url", rawURL), zap.Error(err))
		}
	}
	return result
}

func (f *Fetcher) get(ctx context.Context, rawURL string) (model.FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return model.FetchResult{}, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return model.FetchResult{}, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	contentType := resp.Header.Get("Content-Type")

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return model.FetchResult{}, fmt.Errorf("read body: %w", err)
	}

	return model.FetchResult{
		FinalURL:    resp.Request.URL.String(),
		Status:      resp.StatusCode,
		ContentType: contentType,
		Text:        decodeBody(body, contentType),
	}, nil
}

// decodeBody converts body to UTF-8 based on the declared or sniffed charset
func decodeBody(body []byte, contentType string) string {
	enc, _, _ := charset.DetermineEncoding(body, contentType)
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return string(body)
	}
	return string(decoded)
}

func allowedScheme(rawURL string) bool {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}
	scheme := strings.ToLower(parsed.Scheme)
	return (scheme == "http" || scheme == "https") && parsed.Host != ""
}
