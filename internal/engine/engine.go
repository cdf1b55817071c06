// Package engine orchestrates one correlation run: fetch news per provider,
// match companies and triggers, build alert candidates and alerts, drop
// alerts already seen in the destination store, persist and dispatch.
package engine

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/news-alert-agent/internal/config"
	"github.com/news-alert-agent/internal/dedupe"
	"github.com/news-alert-agent/internal/dispatch"
	"github.com/news-alert-agent/internal/match"
	"github.com/news-alert-agent/internal/models"
	"github.com/news-alert-agent/internal/source"
	"github.com/news-alert-agent/internal/storage"
	"github.com/news-alert-agent/pkg/logger"
)

// Engine runs the correlation pipeline
type Engine struct {
	cfg     *config.Config
	roster  storage.RosterStore
	alerts  storage.AlertStore
	fetcher source.Fetcher
	sink    dispatch.Sink
	log     *logger.Logger

	now   func() time.Time
	newID func() string
}

// New creates an engine. The alert store passed in must already point at
// the run's destination (live or backtest table).
func New(
	cfg *config.Config,
	roster storage.RosterStore,
	alerts storage.AlertStore,
	fetcher source.Fetcher,
	sink dispatch.Sink,
	log *logger.Logger,
) *Engine {
	return &Engine{
		cfg:     cfg,
		roster:  roster,
		alerts:  alerts,
		fetcher: fetcher,
		sink:    sink,
		log:     log.WithComponent("engine"),
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// RunResult contains the counters of one pipeline run
type RunResult struct {
	ProvidersProcessed int
	ItemsFetched       int
	CandidateRows      int
	AlertsGenerated    int
	DedupeSkipped      int
	Sent               int
	Errors             []error
	Duration           time.Duration
}

// Run executes one pipeline pass. Adapter and data failures are absorbed
// into the result counters; only storage failures on the destination
// tables surface as errors.
func (e *Engine) Run(ctx context.Context) (*RunResult, error) {
	startTime := e.now()
	result := &RunResult{}
	isBacktest := e.cfg.Backtest.Enabled

	companies, err := e.roster.Companies(ctx)
	if err != nil {
		return nil, err
	}
	if isBacktest {
		companies = filterCompaniesByIDs(companies, e.cfg.Backtest.CompanyIDs)
	}
	triggers, err := e.roster.Triggers(ctx)
	if err != nil {
		return nil, err
	}
	allProviders, err := e.roster.Providers(ctx)
	if err != nil {
		return nil, err
	}

	e.logProvenance(companies, triggers, allProviders)

	providers := selectProviders(allProviders, isBacktest)
	result.ProvidersProcessed = len(providers)
	e.log.Info().Int("providers", len(providers)).Msg("Providers selected")

	createdAt := e.now().UTC().Format(time.RFC3339)
	opts := source.Options{
		Companies: companies,
		Triggers:  triggers,
		Backtest:  isBacktest,
	}
	if isBacktest {
		opts.LookbackDays = e.cfg.Backtest.LookbackDays
	}

	var allCandidates []models.AlertCandidate
	var allAlerts []models.Alert

	for _, provider := range providers {
		items, fetchErr := e.fetcher.Fetch(ctx, provider, opts)
		if fetchErr != nil {
			e.log.Warn().
				Err(fetchErr).
				Str("provider_id", provider.ProviderID).
				Msg("Provider fetch failed, skipping")
			result.Errors = append(result.Errors, fetchErr)
			continue
		}
		result.ItemsFetched += len(items)

		for _, item := range items {
			companyMatches := match.Companies(item, companies)
			if len(companyMatches) == 0 {
				continue
			}
			matchedTriggers := match.Triggers(item.Text(), triggers)
			if len(matchedTriggers) == 0 {
				continue
			}
			candidates, alerts := e.buildAlerts(item, companyMatches, matchedTriggers, createdAt)
			allCandidates = append(allCandidates, candidates...)
			allAlerts = append(allAlerts, alerts...)
		}
	}

	result.CandidateRows = len(allCandidates)
	if err := e.alerts.AppendCandidates(ctx, allCandidates); err != nil {
		return result, err
	}

	existingKeys, err := e.alerts.ExistingKeys(ctx)
	if err != nil {
		return result, err
	}
	var newAlerts []models.Alert
	for _, alert := range allAlerts {
		if _, seen := existingKeys[alert.DedupeKey]; seen {
			continue
		}
		existingKeys[alert.DedupeKey] = struct{}{}
		newAlerts = append(newAlerts, alert)
	}
	result.AlertsGenerated = len(newAlerts)
	result.DedupeSkipped = len(allAlerts) - len(newAlerts)

	e.log.Info().
		Int("items", result.ItemsFetched).
		Int("alerts", result.AlertsGenerated).
		Int("dedupe_skipped", result.DedupeSkipped).
		Msg("Correlation complete")

	if len(newAlerts) > 0 {
		if err := e.alerts.AppendAlerts(ctx, newAlerts); err != nil {
			return result, err
		}
	} else if isBacktest {
		if err := e.alerts.EnsureHeader(ctx); err != nil {
			return result, err
		}
	}

	sentIDs := e.sink.Send(ctx, newAlerts)
	result.Sent = len(sentIDs)
	if len(sentIDs) > 0 {
		if err := e.alerts.MarkSent(ctx, sentIDs); err != nil {
			return result, err
		}
	}

	result.Duration = e.now().Sub(startTime)
	e.log.Info().
		Int("sent", result.Sent).
		Dur("duration", result.Duration).
		Msg("Run completed")
	return result, nil
}

// buildAlerts emits one candidate and one alert per (company match, trigger)
// pair for the article. Candidates are audit rows; alerts carry the freshly
// computed dedupe key.
func (e *Engine) buildAlerts(
	item models.NewsItem,
	companyMatches []models.CompanyMatch,
	triggers []models.Trigger,
	createdAt string,
) ([]models.AlertCandidate, []models.Alert) {
	var candidates []models.AlertCandidate
	var alerts []models.Alert

	for _, companyMatch := range companyMatches {
		company := companyMatch.Company
		for _, trigger := range triggers {
			candidates = append(candidates, models.AlertCandidate{
				CandidateID: e.newID(),
				ArticleID:   item.ArticleID,
				CompanyID:   company.CompanyID,
				TriggerID:   trigger.TriggerID,
				MatchMethod: string(companyMatch.Method),
				Confidence:  companyMatch.Confidence,
			})

			contactOwner := company.ContactOwner
			if contactOwner == "" {
				contactOwner = "N/A"
			}
			alerts = append(alerts, models.Alert{
				AlertID:      e.newID(),
				CompanyID:    company.CompanyID,
				CompanyName:  company.Name,
				TriggerID:    trigger.TriggerID,
				TriggerName:  trigger.Name,
				ContactOwner: contactOwner,
				Source:       item.SourceName,
				ArticleURL:   item.URL,
				PublishedAt:  item.PublishedAt,
				DedupeKey:    dedupe.Key(company.CompanyID, trigger.TriggerID, item.PublishedAt, item.Title),
				CreatedAt:    createdAt,
				Status:       models.AlertStatusNew,
			})
		}
	}
	return candidates, alerts
}

// selectProviders keeps enabled providers; backtest runs additionally pick
// up snapshot-capable gdelt_doc providers regardless of their enabled flag.
func selectProviders(providers []models.Provider, backtest bool) []models.Provider {
	var selected []models.Provider
	for _, provider := range providers {
		if provider.Enabled || (backtest && provider.Type == models.ProviderTypeGDELTDoc) {
			selected = append(selected, provider)
		}
	}
	return selected
}

// filterCompaniesByIDs restricts the roster to a case-insensitive
// comma-separated id allow-list. An empty list keeps everything.
func filterCompaniesByIDs(companies []models.Company, idsCSV string) []models.Company {
	targets := make(map[string]struct{})
	for _, id := range strings.Split(idsCSV, ",") {
		trimmed := strings.ToLower(strings.TrimSpace(id))
		if trimmed != "" {
			targets[trimmed] = struct{}{}
		}
	}
	if len(targets) == 0 {
		return companies
	}
	var filtered []models.Company
	for _, company := range companies {
		if _, ok := targets[strings.ToLower(company.CompanyID)]; ok {
			filtered = append(filtered, company)
		}
	}
	return filtered
}

func (e *Engine) logProvenance(companies []models.Company, triggers []models.Trigger, providers []models.Provider) {
	active := 0
	for _, company := range companies {
		if company.IsActive() {
			active++
		}
	}
	firstCompany, lastCompany := "n/a", "n/a"
	if len(companies) > 0 {
		firstCompany = companies[0].CompanyID
		lastCompany = companies[len(companies)-1].CompanyID
	}
	firstTrigger := "n/a"
	if len(triggers) > 0 {
		firstTrigger = triggers[0].TriggerID
	}
	enabledCount := 0
	firstEnabled := "n/a"
	for _, provider := range providers {
		if provider.Enabled {
			if enabledCount == 0 {
				firstEnabled = provider.ProviderID
			}
			enabledCount++
		}
	}

	e.log.Info().
		Str("companies_csv", e.cfg.Paths.CompaniesCSV).
		Str("triggers_csv", e.cfg.Paths.TriggersCSV).
		Str("providers_csv", e.cfg.Paths.ProvidersCSV).
		Str("alerts_csv", e.cfg.Paths.AlertsCSV).
		Msg("Provenance")
	e.log.Info().
		Int("rows_loaded", len(companies)).
		Int("rows_active", active).
		Str("first_company_id", firstCompany).
		Str("last_company_id", lastCompany).
		Msg("Companies loaded")
	e.log.Info().
		Int("count", len(triggers)).
		Str("first_trigger_id", firstTrigger).
		Msg("Triggers loaded")
	e.log.Info().
		Int("rows_loaded", len(providers)).
		Int("enabled_count", enabledCount).
		Str("first_enabled_provider_id", firstEnabled).
		Msg("Providers loaded")
}
