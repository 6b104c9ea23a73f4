// Package news fetches articles from the RSS feeds behind each news category.
package news

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Article is one news item ready for delivery.
type Article struct {
	Title       string
	Summary     string
	URL         string
	SourceName  string
	PublishedAt time.Time
}

// Feed is one RSS origin inside a category.
type Feed struct {
	URL  string
	Name string
}

// feedsByCategory binds each news category to its RSS origins.
var feedsByCategory = map[string][]Feed{
	"tech": {
		{URL: "https://www.theverge.com/rss/tech/index.xml", Name: "The Verge - Tech"},
	},
	"ai": {
		{URL: "https://www.theverge.com/rss/ai-artificial-intelligence/index.xml", Name: "The Verge - AI"},
	},
	"space": {
		{URL: "https://www.theverge.com/rss/space/index.xml", Name: "The Verge - Space"},
	},
	"economy": {
		{URL: "https://br.investing.com/rss/news_14.rss", Name: "Investing.com - Economy"},
		{URL: "https://br.investing.com/rss/news_1.rss", Name: "Investing.com - Currency Exchange"},
		{URL: "https://www.gazetadopovo.com.br/feed/rss/economia.xml", Name: "Gazeta do Povo - Economia"},
	},
	"brazil": {
		{URL: "https://www.gazetadopovo.com.br/feed/rss/republica.xml", Name: "Gazeta do Povo - República"},
		{URL: "https://conexaopolitica.com.br/feed", Name: "Conexão Política"},
	},
	"agro": {
		{URL: "https://www.embrapa.br/en/noticias-rss/-/asset_publisher/HA73uEmvroGS/rss", Name: "Embrapa - Agro"},
	},
}

// Categories lists the known news categories.
func Categories() []string {
	return []string{"tech", "ai", "space", "economy", "brazil", "agro"}
}

// Provider downloads and parses the feeds of a news category.
type Provider struct {
	client HTTPClient
	log    *slog.Logger
}

// NewProvider creates a Provider with the given HTTP client.
func NewProvider(client HTTPClient, log *slog.Logger) *Provider {
	return &Provider{client: client, log: log}
}

// Fetch returns the articles of every feed in the category. A feed that
// errors is logged and skipped; partial results are returned.
func (p *Provider) Fetch(ctx context.Context, category string) ([]Article, error) {
	feeds, ok := feedsByCategory[category]
	if !ok {
		return nil, fmt.Errorf("unknown news category %q", category)
	}

	var articles []Article
	for _, feed := range feeds {
		items, err := p.fetchFeed(ctx, feed)
		if err != nil {
			p.log.Error("fetch news feed", "feed", feed.Name, "error", err)
			continue
		}
		articles = append(articles, items...)
	}
	return articles, nil
}

func (p *Provider) fetchFeed(ctx context.Context, feed Feed) ([]Article, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "PromoBot/1.0")
	req.Header.Set("Accept", "application/rss+xml, application/xml, text/xml, */*")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 5*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	parsed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	articles := make([]Article, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		a := Article{
			Title:      strings.TrimSpace(item.Title),
			Summary:    summarize(item.Description),
			URL:        item.Link,
			SourceName: feed.Name,
		}
		if item.PublishedParsed != nil {
			a.PublishedAt = *item.PublishedParsed
		}
		articles = append(articles, a)
	}
	return articles, nil
}

// summarize strips markup noise and truncates a feed description.
func summarize(desc string) string {
	desc = strings.TrimSpace(stripTags(desc))
	if len(desc) > 300 {
		desc = desc[:300] + "..."
	}
	return desc
}

func stripTags(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}
