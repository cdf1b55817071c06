package source

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/news-alert-agent/internal/models"
)

// fetchFeed downloads and parses a feed URL with the shared HTTP client so
// the user agent and timeout are consistent across adapters.
func fetchFeed(ctx context.Context, client *http.Client, parser *gofeed.Parser, url string) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch feed: status %d", resp.StatusCode)
	}

	feed, err := parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return feed, nil
}

// entriesToItems normalizes feed entries into news items. sourceName and the
// article-id fallback prefix vary between plain feeds and per-company feeds.
func entriesToItems(provider models.Provider, sourceName, idPrefix string, entries []*gofeed.Item) []models.NewsItem {
	items := make([]models.NewsItem, 0, len(entries))
	for index, entry := range entries {
		articleID := entry.GUID
		if articleID == "" {
			articleID = entry.Link
		}
		if articleID == "" {
			articleID = idPrefix + "-" + strconv.Itoa(index+1)
		}
		items = append(items, models.NewsItem{
			ArticleID:      articleID,
			ProviderID:     provider.ProviderID,
			SourceName:     sourceName,
			Title:          textOrTBD(entry.Title),
			URL:            textOrTBD(entry.Link),
			PublishedAt:    entryPublishedAt(entry),
			ContentSnippet: entrySnippet(entry),
		})
	}
	return items
}

func entryPublishedAt(entry *gofeed.Item) string {
	published := entry.PublishedParsed
	if published == nil {
		published = entry.UpdatedParsed
	}
	if published != nil {
		return published.UTC().Format(time.RFC3339)
	}
	return time.Now().UTC().Format(time.RFC3339)
}

func entrySnippet(entry *gofeed.Item) string {
	if entry.Description != "" {
		return entry.Description
	}
	if entry.Content != "" {
		return entry.Content
	}
	return "TBD"
}

func textOrTBD(value string) string {
	if value == "" {
		return "TBD"
	}
	return value
}
