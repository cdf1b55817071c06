package source

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/news-alert-agent/internal/models"
	"github.com/news-alert-agent/internal/netdiag"
	"github.com/news-alert-agent/pkg/logger"
	"github.com/news-alert-agent/pkg/ratelimit"
)

// RSSFetcher handles plain rss providers and rss_file providers pointing at
// a local feed snapshot via file://.
type RSSFetcher struct {
	client      *http.Client
	parser      *gofeed.Parser
	limiter     *ratelimit.MultiLimiter
	diagnostics bool
	log         *logger.Logger
}

// NewRSSFetcher creates an RSS fetcher.
func NewRSSFetcher(client *http.Client, limiter *ratelimit.MultiLimiter, diagnostics bool, log *logger.Logger) *RSSFetcher {
	return &RSSFetcher{
		client:      client,
		parser:      gofeed.NewParser(),
		limiter:     limiter,
		diagnostics: diagnostics,
		log:         log.WithComponent("rss"),
	}
}

// Fetch parses the provider's feed and normalizes its entries.
func (f *RSSFetcher) Fetch(ctx context.Context, provider models.Provider, opts Options) ([]models.NewsItem, error) {
	isFile := provider.Type == models.ProviderTypeRSSFile || strings.HasPrefix(provider.BaseURL, "file://")

	var feed *gofeed.Feed
	var err error
	if isFile {
		feed, err = f.parseFile(provider.BaseURL)
	} else {
		if f.diagnostics && isGoogleNewsProvider(provider) {
			result := netdiag.Preflight(ctx, "news.google.com")
			f.log.Info().Str("provider_id", provider.ProviderID).Msg(result.Format(provider.ProviderID))
		}
		if waitErr := f.limiter.Wait(ctx, ratelimit.LimiterRSS); waitErr != nil {
			return nil, waitErr
		}
		feed, err = fetchFeed(ctx, f.client, f.parser, provider.BaseURL)
	}
	if err != nil {
		return nil, fmt.Errorf("rss %s: %w", provider.Name, err)
	}

	items := entriesToItems(provider, provider.Name, provider.ProviderID, feed.Items)
	f.log.Info().
		Str("provider_id", provider.ProviderID).
		Bool("file", isFile).
		Int("count", len(items)).
		Msg("Fetched RSS items")
	return items, nil
}

func (f *RSSFetcher) parseFile(baseURL string) (*gofeed.Feed, error) {
	path := strings.TrimPrefix(baseURL, "file://")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read feed file: %w", err)
	}
	feed, err := f.parser.ParseString(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse feed file: %w", err)
	}
	return feed, nil
}
