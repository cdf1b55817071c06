package source

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/news-alert-agent/internal/models"
	"github.com/news-alert-agent/pkg/logger"
	"github.com/news-alert-agent/pkg/ratelimit"
)

func TestArticleFileFetcherFiltersByProvider(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "articles.csv")
	content := "article_id,provider_id,source_name,title,url,published_at,content_snippet\n" +
		"a1,p1,Stub,Titolo uno,https://example.com/1,2025-03-01T08:00:00Z,snippet\n" +
		"a2,p2,Stub,Titolo due,https://example.com/2,2025-03-01T09:00:00Z,snippet\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write articles: %v", err)
	}

	fetcher := &ArticleFileFetcher{Path: path}
	items, err := fetcher.Fetch(context.Background(), models.Provider{ProviderID: "p1"}, Options{})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}
	if items[0].ArticleID != "a1" || items[0].Title != "Titolo uno" {
		t.Errorf("wrong item: %+v", items[0])
	}
}

func TestGDELTSnapshotFetcher(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.json")
	content := `[
		{"title":"Acme acquisizione","url":"https://example.com/a","published_at":"2025-03-01T08:00:00Z","source":"Giornale","snippet":"dettagli"},
		{"title":"","url":"","published_at":"","source":"","snippet":""}
	]`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}

	fetcher := &GDELTSnapshotFetcher{}
	provider := models.Provider{ProviderID: "p9", Name: "GDELT Snapshot", BaseURL: "file://" + path}
	items, err := fetcher.Fetch(context.Background(), provider, Options{})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}

	if items[0].SourceName != "Giornale" || items[0].PublishedAt != "2025-03-01T08:00:00Z" {
		t.Errorf("first item not preserved: %+v", items[0])
	}
	if items[0].ArticleID != articleHash("p9", "https://example.com/a") {
		t.Errorf("article id should be the provider-url hash")
	}

	// Empty fields fall back to synthetic values.
	if items[1].URL != "p9-snapshot-2" {
		t.Errorf("url fallback = %q, want p9-snapshot-2", items[1].URL)
	}
	if items[1].SourceName != "GDELT Snapshot" {
		t.Errorf("source fallback = %q", items[1].SourceName)
	}
	if items[1].Title != "TBD" {
		t.Errorf("title fallback = %q, want TBD", items[1].Title)
	}
	if _, err := time.Parse(time.RFC3339, items[1].PublishedAt); err != nil {
		t.Errorf("timestamp fallback not RFC3339: %q", items[1].PublishedAt)
	}
}

func TestGDELTSnapshotFetcherMissingBaseURL(t *testing.T) {
	fetcher := &GDELTSnapshotFetcher{}
	if _, err := fetcher.Fetch(context.Background(), models.Provider{Name: "S"}, Options{}); err == nil {
		t.Errorf("expected error for missing base_url")
	}
}

func TestRSSFetcherFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "feed.xml")
	feed := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
	<title>Feed di prova</title>
	<item>
		<title>Acme annuncia acquisizione</title>
		<link>https://example.com/a1</link>
		<guid>guid-1</guid>
		<pubDate>Sat, 01 Mar 2025 08:00:00 GMT</pubDate>
		<description>Dettagli operazione</description>
	</item>
	<item>
		<title>Senza guid</title>
		<link>https://example.com/a2</link>
	</item>
</channel></rss>`
	if err := os.WriteFile(path, []byte(feed), 0644); err != nil {
		t.Fatalf("write feed: %v", err)
	}

	fetcher := NewRSSFetcher(nil, ratelimit.NewDefaultLimiter(), false, logger.Nop())
	provider := models.Provider{
		ProviderID: "p1",
		Name:       "Feed Locale",
		Type:       models.ProviderTypeRSSFile,
		BaseURL:    "file://" + path,
	}

	items, err := fetcher.Fetch(context.Background(), provider, Options{})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	if items[0].ArticleID != "guid-1" {
		t.Errorf("article id = %q, want guid", items[0].ArticleID)
	}
	if items[0].PublishedAt != "2025-03-01T08:00:00Z" {
		t.Errorf("published_at = %q", items[0].PublishedAt)
	}
	if items[0].SourceName != "Feed Locale" {
		t.Errorf("source = %q", items[0].SourceName)
	}
	if items[1].ArticleID != "https://example.com/a2" {
		t.Errorf("missing guid should fall back to link, got %q", items[1].ArticleID)
	}
}

func TestEntriesToItemsFallbacks(t *testing.T) {
	provider := models.Provider{ProviderID: "p1", Name: "Feed"}
	entries := []*gofeed.Item{
		{},
		{Content: "corpo articolo"},
	}

	items := entriesToItems(provider, "Feed", "p1", entries)
	if items[0].ArticleID != "p1-1" {
		t.Errorf("id fallback = %q, want p1-1", items[0].ArticleID)
	}
	if items[0].Title != "TBD" || items[0].URL != "TBD" {
		t.Errorf("empty title/link should become TBD: %+v", items[0])
	}
	if items[0].ContentSnippet != "TBD" {
		t.Errorf("empty snippet = %q, want TBD", items[0].ContentSnippet)
	}
	if items[1].ContentSnippet != "corpo articolo" {
		t.Errorf("content should back a missing description, got %q", items[1].ContentSnippet)
	}
	if _, err := time.Parse(time.RFC3339, items[0].PublishedAt); err != nil {
		t.Errorf("missing date should default to now in RFC3339, got %q", items[0].PublishedAt)
	}
}

func TestParseSeendate(t *testing.T) {
	if got := parseSeendate("20250301123000"); got != "2025-03-01T12:30:00Z" {
		t.Errorf("compact seendate = %q", got)
	}
	if got := parseSeendate("2025-03-01 12:30:00"); got != "2025-03-01T12:30:00Z" {
		t.Errorf("spaced seendate = %q", got)
	}
	if _, err := time.Parse(time.RFC3339, parseSeendate("garbage")); err != nil {
		t.Errorf("malformed seendate should fall back to a valid timestamp")
	}
}

func TestArticleHashStable(t *testing.T) {
	a := articleHash("p1", "https://example.com/a")
	b := articleHash("p1", "https://example.com/a")
	if a != b {
		t.Errorf("hash not stable")
	}
	if len(a) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(a))
	}
	if a == articleHash("p2", "https://example.com/a") {
		t.Errorf("hash should include the provider id")
	}
}

func TestRegistryUnknownType(t *testing.T) {
	registry := NewRegistry(Config{}, ratelimit.NewDefaultLimiter(), logger.Nop())
	items, err := registry.Fetch(context.Background(), models.Provider{
		ProviderID: "px",
		Type:       "telex",
	}, Options{})
	if err != nil {
		t.Fatalf("unknown type should not error: %v", err)
	}
	if items != nil {
		t.Errorf("unknown type should yield no items, got %v", items)
	}
}

func TestIsGoogleNewsProvider(t *testing.T) {
	if !isGoogleNewsProvider(models.Provider{Name: "GN_Italia"}) {
		t.Errorf("GN_ prefix should be recognized")
	}
	if !isGoogleNewsProvider(models.Provider{BaseURL: "https://news.google.com/rss/search"}) {
		t.Errorf("news.google.com base should be recognized")
	}
	if isGoogleNewsProvider(models.Provider{Name: "Feed", BaseURL: "https://example.com"}) {
		t.Errorf("plain feed misclassified")
	}
}

func TestIsRSSProvider(t *testing.T) {
	if !isRSSProvider(models.Provider{Type: models.ProviderTypeRSS}) {
		t.Errorf("rss type should be recognized")
	}
	if !isRSSProvider(models.Provider{Type: "custom", BaseURL: "file:///tmp/feed.xml"}) {
		t.Errorf("file:// base should route to the rss fetcher")
	}
	if isRSSProvider(models.Provider{Type: models.ProviderTypeGDELTDoc}) {
		t.Errorf("gdelt misclassified as rss")
	}
}

func TestTextOrTBD(t *testing.T) {
	if got := textOrTBD(""); got != "TBD" {
		t.Errorf("textOrTBD empty = %q", got)
	}
	if got := textOrTBD("x"); got != "x" {
		t.Errorf("textOrTBD = %q", got)
	}
	if strings.TrimSpace(userAgent) == "" {
		t.Errorf("user agent must be set")
	}
}
