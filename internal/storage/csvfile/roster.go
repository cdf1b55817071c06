package csvfile

import (
	"context"
	"strings"

	"github.com/news-alert-agent/internal/models"
	"github.com/news-alert-agent/internal/storage"
)

var _ storage.RosterStore = RosterStore{}

// RosterStore loads companies, triggers and providers from CSV files.
// Missing optional fields default to the empty string; a missing enabled
// flag defaults to true.
type RosterStore struct {
	CompaniesPath string
	TriggersPath  string
	ProvidersPath string
}

// Companies loads the company roster in file order. Aliases are stored
// semicolon-separated in a single column.
func (s RosterStore) Companies(ctx context.Context) ([]models.Company, error) {
	rows, err := ReadRows(s.CompaniesPath)
	if err != nil {
		return nil, err
	}
	companies := make([]models.Company, 0, len(rows))
	for _, row := range rows {
		companies = append(companies, models.Company{
			CompanyID:           row["company_id"],
			Name:                row["name"],
			Aliases:             splitList(row["aliases"]),
			RevenueEUR:          row["revenue_eur"],
			IndustryCode:        row["industry_code"],
			IndustryDescription: row["industry_description"],
			Website:             row["website"],
			WebsiteDomain:       row["website_domain"],
			Country:             row["country"],
			ContactOwner:        row["contact_owner"],
			Status:              row["status"],
			IsBank:              row["is_bank"],
		})
	}
	return companies, nil
}

// Triggers loads the trigger roster. Keywords are semicolon-separated.
func (s RosterStore) Triggers(ctx context.Context) ([]models.Trigger, error) {
	rows, err := ReadRows(s.TriggersPath)
	if err != nil {
		return nil, err
	}
	triggers := make([]models.Trigger, 0, len(rows))
	for _, row := range rows {
		triggers = append(triggers, models.Trigger{
			TriggerID:   row["trigger_id"],
			Name:        row["name"],
			Keywords:    splitList(row["keywords"]),
			Priority:    row["priority"],
			Description: row["description"],
		})
	}
	return triggers, nil
}

// Providers loads the provider roster.
func (s RosterStore) Providers(ctx context.Context) ([]models.Provider, error) {
	rows, err := ReadRows(s.ProvidersPath)
	if err != nil {
		return nil, err
	}
	providers := make([]models.Provider, 0, len(rows))
	for _, row := range rows {
		providers = append(providers, models.Provider{
			ProviderID: row["provider_id"],
			Name:       row["name"],
			Type:       models.ProviderType(row["type"]),
			BaseURL:    row["base_url"],
			Enabled:    ParseBool(row["enabled"], true),
		})
	}
	return providers, nil
}

// ParseBool interprets roster boolean text, falling back to the default on
// anything unrecognized.
func ParseBool(value string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	}
	return def
}

func splitList(value string) []string {
	var items []string
	for _, part := range strings.Split(value, ";") {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
