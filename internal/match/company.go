// Package match correlates news items with the company and trigger rosters.
package match

import (
	"strings"

	"github.com/news-alert-agent/internal/models"
)

// Companies returns the distinct companies mentioned by the news item, each
// tagged with the highest-confidence method that matched. Matching is plain
// substring containment with no word boundaries; a short alias embedded in an
// unrelated word still matches. Output preserves company encounter order.
func Companies(item models.NewsItem, companies []models.Company) []models.CompanyMatch {
	text := strings.ToLower(item.Text())
	snippet := strings.ToLower(item.ContentSnippet)
	url := strings.ToLower(item.URL)

	matches := make(map[string]models.CompanyMatch)
	var order []string

	record := func(company models.Company, method models.MatchMethod, confidence float64) {
		current, ok := matches[company.CompanyID]
		if ok && current.Confidence >= confidence {
			return
		}
		if !ok {
			order = append(order, company.CompanyID)
		}
		matches[company.CompanyID] = models.CompanyMatch{
			Company:    company,
			Method:     method,
			Confidence: confidence,
		}
	}

	for _, company := range companies {
		if !company.IsActive() {
			continue
		}
		if company.WebsiteDomain != "" {
			domain := strings.ToLower(company.WebsiteDomain)
			if strings.Contains(url, domain) || strings.Contains(snippet, domain) {
				record(company, models.MatchMethodDomain, models.ConfidenceDomain)
			}
		}
		for _, alias := range company.Aliases {
			if alias != "" && strings.Contains(text, strings.ToLower(alias)) {
				record(company, models.MatchMethodAlias, models.ConfidenceAlias)
			}
		}
		if company.Name != "" && strings.Contains(text, strings.ToLower(company.Name)) {
			record(company, models.MatchMethodName, models.ConfidenceName)
		}
	}

	result := make([]models.CompanyMatch, 0, len(order))
	for _, id := range order {
		result = append(result, matches[id])
	}
	return result
}
