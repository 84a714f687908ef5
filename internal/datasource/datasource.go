// Package datasource fetches the raw inputs of the daily pipeline: news
// articles from RSS feeds and HTML pages listed in the sources catalog, and
// daily futures closes from the Yahoo Finance chart API.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/seenimoa/graintel/internal/infra"
	"github.com/seenimoa/graintel/pkg/models"
)

// NewsFetcher retrieves the articles published by one catalog source.
type NewsFetcher interface {
	// Name returns the human-readable name of this fetcher.
	Name() string

	// Fetch returns the parsed articles of src.
	Fetch(ctx context.Context, src models.Source) ([]models.NewsArticle, error)
}

// PriceSource returns daily bars for a futures ticker.
type PriceSource interface {
	Name() string
	GetHistoricalData(ctx context.Context, ticker string, from, to time.Time) ([]models.OHLCV, error)
}

// --- Sentinel errors ---

// ErrUnknownSourceType is returned for catalog entries that are neither rss nor html.
var ErrUnknownSourceType = errors.New("unknown source type")

// ErrInvalidCatalog is returned when the sources catalog cannot be used.
var ErrInvalidCatalog = errors.New("invalid sources catalog")

// ErrTickerNotFound is returned when a ticker cannot be resolved.
var ErrTickerNotFound = errors.New("ticker not found")

// ErrHTTP wraps an HTTP error with status code.
type ErrHTTP struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("HTTP %d %s: %s", e.StatusCode, e.Status, e.Body)
}

// --- Shared HTTP client helpers ---

// DefaultUserAgent is the user agent string used for HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// DefaultFetchTimeout bounds a single page or feed download.
const DefaultFetchTimeout = 8 * time.Second

// httpGetter performs rate limited GET requests.
type httpGetter struct {
	client  *http.Client
	limiter *infra.HostLimiter
}

// get performs a GET request with the given URL and headers, returning the response body.
// The caller is responsible for closing the returned ReadCloser.
func (g *httpGetter) get(ctx context.Context, url string, headers map[string]string) (io.ReadCloser, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx, url); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	// Set default headers.
	req.Header.Set("User-Agent", DefaultUserAgent)
	req.Header.Set("Accept", "application/json, text/html, application/rss+xml, */*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9,fr;q=0.8,es;q=0.7,pt;q=0.6")

	// Override/add custom headers.
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP GET %s: %w", url, err)
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &ErrHTTP{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
	}

	return resp.Body, nil
}
