package source

import (
	"context"
	"net/http"

	"github.com/mmcdole/gofeed"

	"github.com/news-alert-agent/internal/models"
	"github.com/news-alert-agent/internal/netdiag"
	"github.com/news-alert-agent/internal/selector"
	"github.com/news-alert-agent/pkg/logger"
	"github.com/news-alert-agent/pkg/ratelimit"
)

// GoogleNewsFetcher queries the Google News RSS search endpoint once per
// selected company. The selection policy caps how many companies are
// queried per run; per-company failures are logged and skipped.
type GoogleNewsFetcher struct {
	client      *http.Client
	parser      *gofeed.Parser
	limiter     *ratelimit.MultiLimiter
	selection   selector.Selector
	diagnostics bool
	log         *logger.Logger
}

// NewGoogleNewsFetcher creates a per-company Google News fetcher.
func NewGoogleNewsFetcher(client *http.Client, limiter *ratelimit.MultiLimiter, selection selector.Selector, diagnostics bool, log *logger.Logger) *GoogleNewsFetcher {
	return &GoogleNewsFetcher{
		client:      client,
		parser:      gofeed.NewParser(),
		limiter:     limiter,
		selection:   selection,
		diagnostics: diagnostics,
		log:         log.WithComponent("gnews"),
	}
}

// Fetch selects this run's company batch and fetches one feed per company.
func (f *GoogleNewsFetcher) Fetch(ctx context.Context, provider models.Provider, opts Options) ([]models.NewsItem, error) {
	candidates := selector.Eligible(opts.Companies)
	selected, err := f.selection.Select(candidates)
	if err != nil {
		// A broken rotation state degrades to an empty or reset batch; the
		// run continues.
		f.log.Warn().Err(err).Msg("Company selection reported an error")
	}

	skipped := len(candidates) - len(selected)
	if skipped < 0 {
		skipped = 0
	}
	f.log.Info().
		Str("provider_id", provider.ProviderID).
		Int("selected", len(selected)).
		Int("skipped", skipped).
		Int("cap", f.selection.Cap).
		Str("mode", string(f.selection.Mode)).
		Msg("Selected company batch")

	if f.diagnostics {
		result := netdiag.Preflight(ctx, "news.google.com")
		f.log.Info().Msg(result.Format(provider.ProviderID))
	}

	var items []models.NewsItem
	for _, company := range selected {
		companyID := company.CompanyID
		if companyID == "" {
			companyID = "unknown"
		}
		query := selector.GoogleNewsQuery(company)
		if query == "" {
			continue
		}
		url := selector.GoogleNewsURL(provider.BaseURL, query)

		if waitErr := f.limiter.Wait(ctx, ratelimit.LimiterGoogleNews); waitErr != nil {
			return items, waitErr
		}
		feed, fetchErr := fetchFeed(ctx, f.client, f.parser, url)
		if fetchErr != nil {
			f.log.Warn().
				Err(fetchErr).
				Str("company_id", companyID).
				Msg("Company feed fetch failed")
			continue
		}
		sourceName := "GN Company | " + companyID
		idPrefix := provider.ProviderID + "-" + companyID
		items = append(items, entriesToItems(provider, sourceName, idPrefix, feed.Items)...)
	}

	f.log.Info().
		Str("provider_id", provider.ProviderID).
		Int("count", len(items)).
		Msg("Fetched Google News items")
	return items, nil
}
