package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/news-alert-agent/internal/models"
)

// GDELTSnapshotFetcher loads a previously captured GDELT result set from a
// local JSON file, for offline validation and backtests.
type GDELTSnapshotFetcher struct{}

type snapshotEntry struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	PublishedAt string `json:"published_at"`
	Source      string `json:"source"`
	Snippet     string `json:"snippet"`
}

// Fetch reads the snapshot list referenced by the provider's base locator.
func (f *GDELTSnapshotFetcher) Fetch(ctx context.Context, provider models.Provider, opts Options) ([]models.NewsItem, error) {
	if provider.BaseURL == "" {
		return nil, fmt.Errorf("gdelt snapshot %s: missing base_url", provider.Name)
	}
	path := strings.TrimPrefix(provider.BaseURL, "file://")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("gdelt snapshot %s: %w", provider.Name, err)
	}

	var entries []snapshotEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("gdelt snapshot %s: decode: %w", provider.Name, err)
	}

	items := make([]models.NewsItem, 0, len(entries))
	for index, entry := range entries {
		articleURL := entry.URL
		if articleURL == "" {
			articleURL = provider.ProviderID + "-snapshot-" + strconv.Itoa(index+1)
		}
		sourceName := entry.Source
		if sourceName == "" {
			sourceName = provider.Name
		}
		items = append(items, models.NewsItem{
			ArticleID:      articleHash(provider.ProviderID, articleURL),
			ProviderID:     provider.ProviderID,
			SourceName:     sourceName,
			Title:          textOrTBD(entry.Title),
			URL:            articleURL,
			PublishedAt:    normalizeSnapshotTimestamp(entry.PublishedAt),
			ContentSnippet: entry.Snippet,
		})
	}
	return items, nil
}

func normalizeSnapshotTimestamp(value string) string {
	if value == "" {
		return time.Now().UTC().Format(time.RFC3339)
	}
	return value
}
