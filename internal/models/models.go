package models

import "strings"

// MatchMethod identifies how a company was matched against a news item
type MatchMethod string

const (
	MatchMethodDomain MatchMethod = "domain"
	MatchMethodAlias  MatchMethod = "alias"
	MatchMethodName   MatchMethod = "name"
)

// Confidence scores per match method. Domain hits are the strongest signal,
// a bare display-name substring the weakest.
const (
	ConfidenceDomain = 0.95
	ConfidenceAlias  = 0.85
	ConfidenceName   = 0.75
)

// AlertStatus represents the lifecycle state of an alert
type AlertStatus string

const (
	AlertStatusNew  AlertStatus = "new"
	AlertStatusSent AlertStatus = "sent"
)

// ProviderType enumerates the supported feed provider kinds
type ProviderType string

const (
	ProviderTypeRSS           ProviderType = "rss"
	ProviderTypeRSSFile       ProviderType = "rss_file"
	ProviderTypeGNCompany     ProviderType = "gn_company"
	ProviderTypeGDELTDoc      ProviderType = "gdelt_doc"
	ProviderTypeGDELTSnapshot ProviderType = "gdelt_snapshot"
	ProviderTypeSiteStub      ProviderType = "site_stub"
	ProviderTypeDummy         ProviderType = "dummy"
)

// Company represents one row of the company roster
type Company struct {
	CompanyID           string   `json:"company_id"`
	Name                string   `json:"name"`
	Aliases             []string `json:"aliases"`
	RevenueEUR          string   `json:"revenue_eur"`
	IndustryCode        string   `json:"industry_code"`
	IndustryDescription string   `json:"industry_description"`
	Website             string   `json:"website"`
	WebsiteDomain       string   `json:"website_domain"`
	Country             string   `json:"country"`
	ContactOwner        string   `json:"contact_owner"`
	Status              string   `json:"status"`
	IsBank              string   `json:"is_bank"`
}

// IsActive reports whether the company participates in matching and
// selection. An empty status counts as active.
func (c Company) IsActive() bool {
	status := strings.ToLower(strings.TrimSpace(c.Status))
	return status == "" || status == "active"
}

// Bank reports whether the company is flagged as a bank in the roster.
func (c Company) Bank() bool {
	normalized := strings.ToLower(strings.TrimSpace(c.IsBank))
	switch normalized {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}

// Trigger is a named business event category detected via keyword containment
type Trigger struct {
	TriggerID   string   `json:"trigger_id"`
	Name        string   `json:"name"`
	Keywords    []string `json:"keywords"`
	Priority    string   `json:"priority"`
	Description string   `json:"description"`
}

// Provider represents one configured news feed provider
type Provider struct {
	ProviderID string       `json:"provider_id"`
	Name       string       `json:"name"`
	Type       ProviderType `json:"type"`
	BaseURL    string       `json:"base_url"`
	Enabled    bool         `json:"enabled"`
}

// NewsItem is a single fetched article, normalized across provider types
type NewsItem struct {
	ArticleID      string `json:"article_id"`
	ProviderID     string `json:"provider_id"`
	SourceName     string `json:"source_name"`
	Title          string `json:"title"`
	URL            string `json:"url"`
	PublishedAt    string `json:"published_at"`
	ContentSnippet string `json:"content_snippet"`
}

// Text returns the combined title+snippet haystack used for matching.
func (n NewsItem) Text() string {
	return strings.TrimSpace(n.Title + " " + n.ContentSnippet)
}

// CompanyMatch tags a company with the highest-confidence method that
// matched it for a given news item
type CompanyMatch struct {
	Company    Company
	Method     MatchMethod
	Confidence float64
}

// AlertCandidate is one audit row per (company match, trigger, article)
// triple. Candidates are never deduplicated.
type AlertCandidate struct {
	CandidateID string  `json:"candidate_id"`
	ArticleID   string  `json:"article_id"`
	CompanyID   string  `json:"company_id"`
	TriggerID   string  `json:"trigger_id"`
	MatchMethod string  `json:"match_method"`
	Confidence  float64 `json:"confidence"`
}

// Alert is the deduplicated output record for a (company, trigger, article)
type Alert struct {
	AlertID      string      `json:"alert_id"`
	CompanyID    string      `json:"company_id"`
	CompanyName  string      `json:"company_name"`
	TriggerID    string      `json:"trigger_id"`
	TriggerName  string      `json:"trigger_name"`
	ContactOwner string      `json:"contact_owner"`
	Source       string      `json:"source"`
	ArticleURL   string      `json:"article_url"`
	PublishedAt  string      `json:"published_at"`
	DedupeKey    string      `json:"dedupe_key"`
	CreatedAt    string      `json:"created_at"`
	Status       AlertStatus `json:"status"`
}
