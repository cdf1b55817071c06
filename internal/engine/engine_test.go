package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/news-alert-agent/internal/config"
	"github.com/news-alert-agent/internal/models"
	"github.com/news-alert-agent/internal/source"
	"github.com/news-alert-agent/internal/storage/csvfile"
	"github.com/news-alert-agent/pkg/logger"
)

type fakeFetcher struct {
	items   map[string][]models.NewsItem
	errs    map[string]error
	fetched []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, provider models.Provider, opts source.Options) ([]models.NewsItem, error) {
	f.fetched = append(f.fetched, provider.ProviderID)
	if err := f.errs[provider.ProviderID]; err != nil {
		return nil, err
	}
	return f.items[provider.ProviderID], nil
}

type fakeSink struct {
	received   []models.Alert
	deliverAll bool
}

func (s *fakeSink) Send(ctx context.Context, alerts []models.Alert) map[string]struct{} {
	s.received = append(s.received, alerts...)
	sent := make(map[string]struct{})
	if s.deliverAll {
		for _, alert := range alerts {
			sent[alert.AlertID] = struct{}{}
		}
	}
	return sent
}

type fixture struct {
	cfg     *config.Config
	roster  csvfile.RosterStore
	alerts  csvfile.AlertStore
	fetcher *fakeFetcher
	sink    *fakeSink
}

func writeCSV(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func newFixture(t *testing.T, providersCSV string) *fixture {
	t.Helper()
	dir := t.TempDir()

	companiesPath := filepath.Join(dir, "companies.csv")
	triggersPath := filepath.Join(dir, "triggers.csv")
	providersPath := filepath.Join(dir, "providers.csv")

	writeCSV(t, companiesPath,
		"company_id,name,aliases,revenue_eur,website_domain,country,contact_owner,status,is_bank\n"+
			"c001,Acme,Acme SpA,1000000,acme.it,IT,Anna,active,\n"+
			"c002,Beta,,500000,beta.it,IT,,active,\n")
	writeCSV(t, triggersPath,
		"trigger_id,name,keywords,priority,description\n"+
			"t001,M&A,acquisizione;fusione,high,\n")
	writeCSV(t, providersPath, providersCSV)

	cfg := &config.Config{}
	cfg.Paths.CompaniesCSV = companiesPath
	cfg.Paths.TriggersCSV = triggersPath
	cfg.Paths.ProvidersCSV = providersPath
	cfg.Paths.AlertsCSV = filepath.Join(dir, "alerts.csv")
	cfg.Paths.AlertCandidatesCSV = filepath.Join(dir, "candidates.csv")
	cfg.Paths.BacktestOutputCSV = filepath.Join(dir, "alerts_backtest.csv")
	cfg.Backtest.LookbackDays = 14

	return &fixture{
		cfg: cfg,
		roster: csvfile.RosterStore{
			CompaniesPath: companiesPath,
			TriggersPath:  triggersPath,
			ProvidersPath: providersPath,
		},
		alerts: csvfile.AlertStore{
			AlertsPath:     cfg.Paths.AlertsCSV,
			CandidatesPath: cfg.Paths.AlertCandidatesCSV,
		},
		fetcher: &fakeFetcher{items: map[string][]models.NewsItem{}, errs: map[string]error{}},
		sink:    &fakeSink{},
	}
}

func (f *fixture) engine() *Engine {
	return New(f.cfg, f.roster, f.alerts, f.fetcher, f.sink, logger.Nop())
}

func matchingItem(articleID, url string) models.NewsItem {
	return models.NewsItem{
		ArticleID:      articleID,
		ProviderID:     "p1",
		SourceName:     "Feed One",
		Title:          "Acme annuncia una acquisizione",
		URL:            url,
		PublishedAt:    "2025-03-01T08:00:00Z",
		ContentSnippet: "Acme compra un concorrente",
	}
}

const singleProviderCSV = "provider_id,name,type,base_url,enabled\n" +
	"p1,Feed One,rss,https://example.com/rss,true\n"

func TestRunGeneratesAlerts(t *testing.T) {
	f := newFixture(t, singleProviderCSV)
	f.fetcher.items["p1"] = []models.NewsItem{matchingItem("a1", "https://example.com/a1")}

	result, err := f.engine().Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.ItemsFetched != 1 {
		t.Errorf("ItemsFetched = %d, want 1", result.ItemsFetched)
	}
	if result.AlertsGenerated != 1 {
		t.Errorf("AlertsGenerated = %d, want 1", result.AlertsGenerated)
	}
	if result.CandidateRows != 1 {
		t.Errorf("CandidateRows = %d, want 1", result.CandidateRows)
	}

	rows, err := csvfile.ReadRows(f.cfg.Paths.AlertsCSV)
	if err != nil {
		t.Fatalf("read alerts: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("alert rows = %d, want 1", len(rows))
	}
	row := rows[0]
	if row["company_id"] != "c001" || row["trigger_id"] != "t001" {
		t.Errorf("wrong correlation: %v", row)
	}
	if row["contact_owner"] != "Anna" {
		t.Errorf("contact_owner = %q, want Anna", row["contact_owner"])
	}
	if row["status"] != "new" {
		t.Errorf("status = %q, want new", row["status"])
	}
	if row["dedupe_key"] == "" {
		t.Errorf("dedupe_key not stored")
	}
}

func TestRunIsIdempotent(t *testing.T) {
	f := newFixture(t, singleProviderCSV)
	f.fetcher.items["p1"] = []models.NewsItem{matchingItem("a1", "https://example.com/a1")}

	if _, err := f.engine().Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	result, err := f.engine().Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if result.AlertsGenerated != 0 {
		t.Errorf("second run generated %d alerts, want 0", result.AlertsGenerated)
	}
	if result.DedupeSkipped != 1 {
		t.Errorf("DedupeSkipped = %d, want 1", result.DedupeSkipped)
	}

	rows, _ := csvfile.ReadRows(f.cfg.Paths.AlertsCSV)
	if len(rows) != 1 {
		t.Errorf("alert rows after rerun = %d, want 1", len(rows))
	}
	// Candidates are audit rows and accumulate every run.
	candidates, _ := csvfile.ReadRows(f.cfg.Paths.AlertCandidatesCSV)
	if len(candidates) != 2 {
		t.Errorf("candidate rows = %d, want 2", len(candidates))
	}
}

func TestRunCrossProviderDedupe(t *testing.T) {
	providersCSV := "provider_id,name,type,base_url,enabled\n" +
		"p1,Feed One,rss,https://example.com/rss,true\n" +
		"p2,Feed Two,rss,https://example.org/rss,true\n"
	f := newFixture(t, providersCSV)

	f.fetcher.items["p1"] = []models.NewsItem{matchingItem("a1", "https://example.com/a1")}
	other := matchingItem("a2", "https://example.org/other-url")
	other.ProviderID = "p2"
	other.SourceName = "Feed Two"
	f.fetcher.items["p2"] = []models.NewsItem{other}

	result, err := f.engine().Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.AlertsGenerated != 1 {
		t.Errorf("AlertsGenerated = %d, want 1 (same event from two providers)", result.AlertsGenerated)
	}
	if result.DedupeSkipped != 1 {
		t.Errorf("DedupeSkipped = %d, want 1", result.DedupeSkipped)
	}
	if result.CandidateRows != 2 {
		t.Errorf("CandidateRows = %d, want 2", result.CandidateRows)
	}
}

func TestRunNoCompanyMatch(t *testing.T) {
	f := newFixture(t, singleProviderCSV)
	f.fetcher.items["p1"] = []models.NewsItem{{
		ArticleID:   "a1",
		ProviderID:  "p1",
		Title:       "Notizie generiche con acquisizione",
		PublishedAt: "2025-03-01T08:00:00Z",
	}}

	result, err := f.engine().Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.AlertsGenerated != 0 || result.CandidateRows != 0 {
		t.Errorf("no roster mention should produce nothing, got alerts=%d candidates=%d",
			result.AlertsGenerated, result.CandidateRows)
	}
}

func TestRunProviderFailureSkipped(t *testing.T) {
	providersCSV := "provider_id,name,type,base_url,enabled\n" +
		"p1,Broken,rss,https://example.com/rss,true\n" +
		"p2,Feed Two,rss,https://example.org/rss,true\n"
	f := newFixture(t, providersCSV)

	f.fetcher.errs["p1"] = errors.New("connection refused")
	item := matchingItem("a1", "https://example.org/a1")
	item.ProviderID = "p2"
	f.fetcher.items["p2"] = []models.NewsItem{item}

	result, err := f.engine().Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Errors) != 1 {
		t.Errorf("Errors = %d, want 1", len(result.Errors))
	}
	if result.AlertsGenerated != 1 {
		t.Errorf("healthy provider should still produce its alert, got %d", result.AlertsGenerated)
	}
}

func TestRunMarksSent(t *testing.T) {
	f := newFixture(t, singleProviderCSV)
	f.fetcher.items["p1"] = []models.NewsItem{matchingItem("a1", "https://example.com/a1")}
	f.sink.deliverAll = true

	result, err := f.engine().Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Sent != 1 {
		t.Errorf("Sent = %d, want 1", result.Sent)
	}

	rows, _ := csvfile.ReadRows(f.cfg.Paths.AlertsCSV)
	if rows[0]["status"] != "sent" {
		t.Errorf("status = %q, want sent", rows[0]["status"])
	}
}

func TestBacktestIncludesDisabledGDELTProviders(t *testing.T) {
	providersCSV := "provider_id,name,type,base_url,enabled\n" +
		"p1,Feed One,rss,https://example.com/rss,true\n" +
		"p2,GDELT,gdelt_doc,https://api.gdeltproject.org/api/v2/doc/doc,false\n"
	f := newFixture(t, providersCSV)
	f.cfg.Backtest.Enabled = true
	f.alerts.AlertsPath = f.cfg.Paths.BacktestOutputCSV
	f.alerts.RunType = "backtest"

	if _, err := f.engine().Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	fetched := map[string]bool{}
	for _, id := range f.fetcher.fetched {
		fetched[id] = true
	}
	if !fetched["p2"] {
		t.Errorf("backtest should include disabled gdelt_doc providers, fetched: %v", f.fetcher.fetched)
	}
}

func TestBacktestZeroAlertsWritesHeader(t *testing.T) {
	f := newFixture(t, singleProviderCSV)
	f.cfg.Backtest.Enabled = true
	f.cfg.Backtest.CompanyIDs = "c999"
	f.alerts.AlertsPath = f.cfg.Paths.BacktestOutputCSV
	f.alerts.RunType = "backtest"
	f.fetcher.items["p1"] = []models.NewsItem{matchingItem("a1", "https://example.com/a1")}

	result, err := f.engine().Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.AlertsGenerated != 0 {
		t.Errorf("allow-list excludes everything, got %d alerts", result.AlertsGenerated)
	}

	header, err := csvfile.ReadHeader(f.cfg.Paths.BacktestOutputCSV)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if len(header) == 0 {
		t.Fatalf("backtest output file should exist with a header")
	}
	if header[len(header)-1] != "run_type" {
		t.Errorf("header = %v, want trailing run_type", header)
	}
}

func TestBacktestCompanyFilterCaseInsensitive(t *testing.T) {
	f := newFixture(t, singleProviderCSV)
	f.cfg.Backtest.Enabled = true
	f.cfg.Backtest.CompanyIDs = " C001 "
	f.alerts.AlertsPath = f.cfg.Paths.BacktestOutputCSV
	f.alerts.RunType = "backtest"
	f.fetcher.items["p1"] = []models.NewsItem{matchingItem("a1", "https://example.com/a1")}

	result, err := f.engine().Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.AlertsGenerated != 1 {
		t.Errorf("AlertsGenerated = %d, want 1 for allow-listed company", result.AlertsGenerated)
	}
}
