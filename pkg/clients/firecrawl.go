package clients

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/beam-cloud/onleads/pkg/types"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/mendableai/firecrawl-go"
)

const (
	DefaultFirecrawlAPI  = "https://api.firecrawl.dev"
	DefaultScrapeTimeout = 120 * time.Second

	scrapeCacheSize = 128
	scrapeCacheTTL  = 10 * time.Minute
)

// FirecrawlClient scrapes a web page to markdown
type FirecrawlClient struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	cache   *expirable.LRU[string, string]

	appOnce sync.Once
	app     *firecrawl.FirecrawlApp
	appErr  error
}

// NewFirecrawlClient creates a new Firecrawl client
func NewFirecrawlClient(config types.ScraperConfig) *FirecrawlClient {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultFirecrawlAPI
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultScrapeTimeout
	}
	return &FirecrawlClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  config.APIKey,
		timeout: timeout,
		cache:   expirable.NewLRU[string, string](scrapeCacheSize, nil, scrapeCacheTTL),
	}
}

// Scrape returns the page content as markdown, falling back to the page html
// when no markdown is produced. Pages scraped in the last few minutes are
// served from memory.
func (f *FirecrawlClient) Scrape(ctx context.Context, url string) (string, error) {
	if f.apiKey == "" {
		return "", &types.ConfigurationError{Key: "FIRECRAWL_API_KEY"}
	}
	if content, ok := f.cache.Get(url); ok {
		return content, nil
	}

	content, err := f.scrape(ctx, url)
	if err != nil {
		return "", err
	}
	f.cache.Add(url, content)
	return content, nil
}

type scrapeResult struct {
	doc *firecrawl.FirecrawlDocument
	err error
}

func (f *FirecrawlClient) scrape(ctx context.Context, url string) (string, error) {
	f.appOnce.Do(func() {
		f.app, f.appErr = firecrawl.NewFirecrawlApp(f.apiKey, f.baseURL)
	})
	if f.appErr != nil {
		return "", fmt.Errorf("firecrawl: %w", f.appErr)
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	// The SDK call is not context aware
	done := make(chan scrapeResult, 1)
	go func() {
		doc, err := f.app.ScrapeURL(url, &firecrawl.ScrapeParams{Formats: []string{"markdown"}})
		done <- scrapeResult{doc: doc, err: err}
	}()

	var result scrapeResult
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("scrape %s: %w", url, ctx.Err())
	case result = <-done:
	}
	if result.err != nil {
		return "", fmt.Errorf("scrape %s: %w", url, result.err)
	}
	if result.doc == nil {
		return "", fmt.Errorf("scrape %s: empty response", url)
	}

	switch {
	case result.doc.Markdown != "":
		return result.doc.Markdown, nil
	case result.doc.HTML != "":
		return result.doc.HTML, nil
	default:
		return result.doc.RawHTML, nil
	}
}
