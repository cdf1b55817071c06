package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/news-alert-agent/internal/models"
	"github.com/news-alert-agent/internal/selector"
	"github.com/news-alert-agent/pkg/logger"
	"github.com/news-alert-agent/pkg/ratelimit"
)

const (
	gdeltEndpoint        = "https://api.gdeltproject.org/api/v2/doc/doc"
	gdeltDefaultWindow   = 14
	gdeltMaxRecords      = 250
	gdeltSeendateCompact = "20060102150405"
	gdeltSeendateSpaced  = "2006-01-02 15:04:05"
)

// GDELTDocFetcher queries the GDELT Doc 2.0 article-list API once per
// eligible company over a capped lookback window.
type GDELTDocFetcher struct {
	client  *http.Client
	limiter *ratelimit.MultiLimiter
	log     *logger.Logger
}

// NewGDELTDocFetcher creates a GDELT doc fetcher.
func NewGDELTDocFetcher(client *http.Client, limiter *ratelimit.MultiLimiter, log *logger.Logger) *GDELTDocFetcher {
	return &GDELTDocFetcher{client: client, limiter: limiter, log: log.WithComponent("gdelt")}
}

type gdeltArticle struct {
	URL           string `json:"url"`
	Title         string `json:"title"`
	SeenDate      string `json:"seendate"`
	Date          string `json:"date"`
	SourceCountry string `json:"sourcecountry"`
	Domain        string `json:"domain"`
	Language      string `json:"language"`
}

type gdeltPayload struct {
	Articles []gdeltArticle `json:"articles"`
	Results  []gdeltArticle `json:"results"`
}

// Fetch queries GDELT per company. A per-company failure is logged and the
// loop continues with the next company.
func (f *GDELTDocFetcher) Fetch(ctx context.Context, provider models.Provider, opts Options) ([]models.NewsItem, error) {
	companies := selector.Eligible(opts.Companies)
	triggerKeywords := selector.CollectTriggerKeywords(opts.Triggers)
	windowDays := opts.LookbackDays
	if windowDays <= 0 {
		windowDays = gdeltDefaultWindow
	}

	var items []models.NewsItem
	hadFailure := false
	for _, company := range companies {
		query := selector.GDELTQuery(company, triggerKeywords)
		if query == "" {
			continue
		}
		if waitErr := f.limiter.Wait(ctx, ratelimit.LimiterGDELT); waitErr != nil {
			return items, waitErr
		}
		articles, err := f.query(ctx, query, windowDays)
		if err != nil {
			f.log.Warn().
				Err(err).
				Str("provider_id", provider.ProviderID).
				Str("company_id", company.CompanyID).
				Msg("GDELT fetch failed")
			hadFailure = true
			continue
		}
		for _, article := range articles {
			if article.URL == "" {
				continue
			}
			items = append(items, models.NewsItem{
				ArticleID:      articleHash(provider.ProviderID, article.URL),
				ProviderID:     provider.ProviderID,
				SourceName:     "GDELT",
				Title:          textOrTBD(article.Title),
				URL:            article.URL,
				PublishedAt:    parseSeendate(firstNonEmpty(article.SeenDate, article.Date)),
				ContentSnippet: firstNonEmpty(article.SourceCountry, article.Domain, article.Language),
			})
		}
	}

	f.log.Info().
		Str("provider_id", provider.ProviderID).
		Int("count", len(items)).
		Msg("Fetched GDELT items")
	if opts.Backtest && hadFailure && len(items) == 0 {
		f.log.Warn().Msg("GDELT live fetch failed; use gdelt_snapshot for offline validation")
	}
	return items, nil
}

func (f *GDELTDocFetcher) query(ctx context.Context, query string, windowDays int) ([]gdeltArticle, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("mode", "artlist")
	params.Set("format", "json")
	params.Set("timespan", strconv.Itoa(windowDays)+"d")
	params.Set("maxrecords", strconv.Itoa(gdeltMaxRecords))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, gdeltEndpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	var payload gdeltPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	articles := payload.Articles
	if len(articles) == 0 {
		articles = payload.Results
	}
	if len(articles) > gdeltMaxRecords {
		articles = articles[:gdeltMaxRecords]
	}
	return articles, nil
}

// parseSeendate converts GDELT's compact timestamp to RFC3339 UTC, falling
// back to now when the value is absent or malformed.
func parseSeendate(value string) string {
	if value != "" {
		for _, layout := range []string{gdeltSeendateCompact, gdeltSeendateSpaced} {
			if parsed, err := time.Parse(layout, value); err == nil {
				return parsed.UTC().Format(time.RFC3339)
			}
		}
	}
	return time.Now().UTC().Format(time.RFC3339)
}

func articleHash(providerID, articleURL string) string {
	digest := sha256.Sum256([]byte(providerID + ":" + articleURL))
	return hex.EncodeToString(digest[:])
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
