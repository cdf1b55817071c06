package source

import (
	"context"

	"github.com/news-alert-agent/internal/models"
	"github.com/news-alert-agent/internal/storage/csvfile"
)

// ArticleFileFetcher serves site_stub and dummy providers from a local
// articles CSV, filtered by provider id. Used for offline runs and tests.
type ArticleFileFetcher struct {
	Path string
}

// Fetch returns the stored articles belonging to the provider.
func (f *ArticleFileFetcher) Fetch(ctx context.Context, provider models.Provider, opts Options) ([]models.NewsItem, error) {
	rows, err := csvfile.ReadRows(f.Path)
	if err != nil {
		return nil, err
	}
	var items []models.NewsItem
	for _, row := range rows {
		if row["provider_id"] != provider.ProviderID {
			continue
		}
		items = append(items, models.NewsItem{
			ArticleID:      row["article_id"],
			ProviderID:     row["provider_id"],
			SourceName:     row["source_name"],
			Title:          row["title"],
			URL:            row["url"],
			PublishedAt:    row["published_at"],
			ContentSnippet: row["content_snippet"],
		})
	}
	return items, nil
}
