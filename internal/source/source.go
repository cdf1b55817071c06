// Package source adapts external news feed providers to a single Fetch
// contract. Each provider type has its own fetcher; the registry dispatches
// on the provider roster's type column. Adapter failures are the caller's to
// log and skip; a failing provider never aborts the run.
package source

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/news-alert-agent/internal/models"
	"github.com/news-alert-agent/internal/selector"
	"github.com/news-alert-agent/pkg/logger"
	"github.com/news-alert-agent/pkg/ratelimit"
)

const (
	fetchTimeout = 20 * time.Second
	userAgent    = "Mozilla/5.0 (NewsAlertAgent/0.1)"
)

// Options carries the per-run context feed adapters may need. Fetchers must
// tolerate zero companies and return an empty result.
type Options struct {
	Companies    []models.Company
	Triggers     []models.Trigger
	LookbackDays int
	Backtest     bool
}

// Fetcher retrieves news items for a single provider
type Fetcher interface {
	Fetch(ctx context.Context, provider models.Provider, opts Options) ([]models.NewsItem, error)
}

var _ Fetcher = (*Registry)(nil)

// Registry routes providers to the fetcher for their type
type Registry struct {
	rss      *RSSFetcher
	gnews    *GoogleNewsFetcher
	gdelt    *GDELTDocFetcher
	snapshot *GDELTSnapshotFetcher
	articles *ArticleFileFetcher
	log      *logger.Logger
}

// Config holds the registry's construction parameters
type Config struct {
	ArticlesPath string
	Selection    selector.Selector
	Diagnostics  bool
}

// NewRegistry builds a registry with every supported provider type wired in.
func NewRegistry(cfg Config, limiter *ratelimit.MultiLimiter, log *logger.Logger) *Registry {
	client := &http.Client{Timeout: fetchTimeout}
	return &Registry{
		rss:      NewRSSFetcher(client, limiter, cfg.Diagnostics, log),
		gnews:    NewGoogleNewsFetcher(client, limiter, cfg.Selection, cfg.Diagnostics, log),
		gdelt:    NewGDELTDocFetcher(client, limiter, log),
		snapshot: &GDELTSnapshotFetcher{},
		articles: &ArticleFileFetcher{Path: cfg.ArticlesPath},
		log:      log.WithComponent("source"),
	}
}

// Fetch dispatches to the fetcher for the provider's type. Unknown types
// yield no items.
func (r *Registry) Fetch(ctx context.Context, provider models.Provider, opts Options) ([]models.NewsItem, error) {
	switch {
	case provider.Type == models.ProviderTypeGDELTDoc:
		return r.gdelt.Fetch(ctx, provider, opts)
	case provider.Type == models.ProviderTypeGDELTSnapshot:
		return r.snapshot.Fetch(ctx, provider, opts)
	case provider.Type == models.ProviderTypeGNCompany:
		return r.gnews.Fetch(ctx, provider, opts)
	case isRSSProvider(provider):
		return r.rss.Fetch(ctx, provider, opts)
	case provider.Type == models.ProviderTypeSiteStub || provider.Type == models.ProviderTypeDummy:
		return r.articles.Fetch(ctx, provider, opts)
	default:
		r.log.Debug().
			Str("provider_id", provider.ProviderID).
			Str("type", string(provider.Type)).
			Msg("Unknown provider type, skipping")
		return nil, nil
	}
}

func isRSSProvider(provider models.Provider) bool {
	return provider.Type == models.ProviderTypeRSS ||
		provider.Type == models.ProviderTypeRSSFile ||
		strings.HasPrefix(provider.BaseURL, "file://")
}

// isGoogleNewsProvider reports whether the provider points at Google News,
// which gets extra connectivity diagnostics.
func isGoogleNewsProvider(provider models.Provider) bool {
	return strings.HasPrefix(provider.Name, "GN_") ||
		strings.Contains(provider.BaseURL, "news.google.com")
}
