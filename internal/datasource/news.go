package datasource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/graintel/internal/infra"
	"github.com/seenimoa/graintel/pkg/models"
)

// News fetches articles from RSS feeds and HTML pages.
type News struct {
	http   *httpGetter
	parser *gofeed.Parser
	now    func() time.Time
}

// NewsOption configures a News fetcher.
type NewsOption func(*News)

// WithNewsHTTPClient replaces the HTTP client (default: 8 s timeout).
func WithNewsHTTPClient(c *http.Client) NewsOption {
	return func(n *News) { n.http.client = c }
}

// WithNewsRateLimit limits requests per host to one every interval.
func WithNewsRateLimit(every time.Duration, burst int) NewsOption {
	return func(n *News) { n.http.limiter = infra.NewHostLimiter(every, burst) }
}

// WithNewsClock overrides the clock used to stamp FetchedAt.
func WithNewsClock(now func() time.Time) NewsOption {
	return func(n *News) { n.now = now }
}

// NewNews creates a news fetcher. Without options it allows 2 requests per
// second per host.
func NewNews(opts ...NewsOption) *News {
	n := &News{
		http: &httpGetter{
			client:  &http.Client{Timeout: DefaultFetchTimeout},
			limiter: infra.NewHostLimiter(500*time.Millisecond, 2),
		},
		parser: gofeed.NewParser(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Name returns the data source name.
func (n *News) Name() string { return "News" }

// Fetch downloads and parses one source.
func (n *News) Fetch(ctx context.Context, src models.Source) ([]models.NewsArticle, error) {
	switch src.Type {
	case models.SourceRSS:
		return n.fetchRSS(ctx, src)
	case models.SourceHTML:
		a, err := n.fetchHTML(ctx, src)
		if err != nil {
			return nil, err
		}
		return []models.NewsArticle{a}, nil
	default:
		return nil, fmt.Errorf("%w: %q (%s)", ErrUnknownSourceType, src.Type, src.Name)
	}
}

// FetchResult is the outcome of fetching a batch of sources.
type FetchResult struct {
	Articles []models.NewsArticle
	Failed   map[string]error // keyed by source name
}

// FetchAll fetches sources concurrently (at most workers at a time). A
// failing source is logged and skipped; articles keep catalog order.
func FetchAll(ctx context.Context, f NewsFetcher, sources []models.Source, workers int) (FetchResult, error) {
	if workers <= 0 {
		workers = 4
	}
	perSource := make([][]models.NewsArticle, len(sources))
	res := FetchResult{Failed: make(map[string]error)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, src := range sources {
		g.Go(func() error {
			arts, err := f.Fetch(gctx, src)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				log.Warn().Err(err).Str("source", src.Name).Str("url", src.URL).Msg("fetch failed")
				mu.Lock()
				res.Failed[src.Name] = err
				mu.Unlock()
				return nil // non-fatal
			}
			for j := range arts {
				arts[j].Source = src.Name
				arts[j].SourceGroup = src.Group
			}
			perSource[i] = arts
			log.Debug().Str("source", src.Name).Int("articles", len(arts)).Msg("fetched")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, fmt.Errorf("fetch sources: %w", err)
	}

	for _, arts := range perSource {
		res.Articles = append(res.Articles, arts...)
	}
	return res, nil
}

// --- Internal helpers ---

// fetchRSS parses an RSS/Atom feed. The item description becomes both the
// summary and the text of the article.
func (n *News) fetchRSS(ctx context.Context, src models.Source) ([]models.NewsArticle, error) {
	body, err := n.http.get(ctx, src.URL, map[string]string{
		"Accept": "application/rss+xml, application/atom+xml, application/xml, text/xml",
	})
	if err != nil {
		return nil, fmt.Errorf("fetch RSS %s: %w", src.Name, err)
	}
	defer body.Close()

	feed, err := n.parser.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse RSS %s: %w", src.Name, err)
	}

	fetchedAt := n.now().UTC()
	articles := make([]models.NewsArticle, 0, len(feed.Items))
	for _, item := range feed.Items {
		desc := item.Description
		if desc == "" {
			desc = item.Content
		}
		text := cleanHTML(desc)
		a := models.NewsArticle{
			Title:     strings.TrimSpace(item.Title),
			URL:       item.Link,
			Source:    src.Name,
			Summary:   text,
			Text:      text,
			FetchedAt: fetchedAt,
		}
		switch {
		case item.PublishedParsed != nil:
			a.PublishedAt = item.PublishedParsed.UTC()
		case item.UpdatedParsed != nil:
			a.PublishedAt = item.UpdatedParsed.UTC()
		}
		articles = append(articles, a)
	}

	return articles, nil
}

// fetchHTML downloads a page and extracts its paragraphs.
func (n *News) fetchHTML(ctx context.Context, src models.Source) (models.NewsArticle, error) {
	body, err := n.http.get(ctx, src.URL, map[string]string{
		"Accept": "text/html,application/xhtml+xml",
	})
	if err != nil {
		return models.NewsArticle{}, fmt.Errorf("fetch HTML %s: %w", src.Name, err)
	}
	defer body.Close()

	a, err := ParseHTML(src.URL, body)
	if err != nil {
		return models.NewsArticle{}, fmt.Errorf("parse HTML %s: %w", src.Name, err)
	}
	a.Source = src.Name
	a.FetchedAt = n.now().UTC()
	return a, nil
}

// ParseHTML extracts the title and the space-joined text of all <p>
// elements of a page.
func ParseHTML(url string, r io.Reader) (models.NewsArticle, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return models.NewsArticle{}, err
	}

	var parts []string
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		if t := collapseSpace(s.Text()); t != "" {
			parts = append(parts, t)
		}
	})

	return models.NewsArticle{
		Title: collapseSpace(doc.Find("title").First().Text()),
		URL:   url,
		Text:  strings.Join(parts, " "),
	}, nil
}

// cleanHTML strips HTML tags from a string using goquery.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return s
	}
	return collapseSpace(doc.Text())
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
