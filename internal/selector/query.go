package selector

import (
	"net/url"
	"strings"

	"github.com/news-alert-agent/internal/models"
)

// bankExclusion trims banking-sector false positives out of Google News
// results for non-bank companies.
const bankExclusion = " -banca -banche -bank -banks"

const defaultGoogleNewsBase = "https://news.google.com/rss/search"

// GoogleNewsQuery builds the per-company search query: quoted name and
// aliases deduped case-insensitively in first-seen order, a site: clause for
// the website domain, and the bank exclusion suffix. An empty term set
// yields an empty query and the caller must skip the company.
func GoogleNewsQuery(company models.Company) string {
	parts := companyTerms(company)
	if len(parts) == 0 {
		return ""
	}
	return "(" + strings.Join(parts, " OR ") + ")" + bankExclusion
}

// GDELTQuery builds the company clause ANDed with an OR-clause of the
// deduped trigger keywords. Without keywords the company clause stands alone.
func GDELTQuery(company models.Company, triggerKeywords []string) string {
	parts := companyTerms(company)
	if len(parts) == 0 {
		return ""
	}
	companyClause := "(" + strings.Join(parts, " OR ") + ")"
	if len(triggerKeywords) == 0 {
		return companyClause
	}
	quoted := make([]string, 0, len(triggerKeywords))
	for _, keyword := range triggerKeywords {
		quoted = append(quoted, `"`+keyword+`"`)
	}
	return companyClause + " AND (" + strings.Join(quoted, " OR ") + ")"
}

// CollectTriggerKeywords flattens trigger keywords, stripping embedded
// quotes and deduping case-insensitively in first-seen order.
func CollectTriggerKeywords(triggers []models.Trigger) []string {
	var keywords []string
	seen := make(map[string]struct{})
	for _, trigger := range triggers {
		for _, keyword := range trigger.Keywords {
			cleaned := strings.TrimSpace(strings.ReplaceAll(keyword, `"`, ""))
			if cleaned == "" {
				continue
			}
			key := strings.ToLower(cleaned)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			keywords = append(keywords, cleaned)
		}
	}
	return keywords
}

// GoogleNewsURL renders the final feed URL for a query, localized to the
// Italian Google News edition.
func GoogleNewsURL(baseURL, query string) string {
	base := baseURL
	if base == "" {
		base = defaultGoogleNewsBase
	}
	return base + "?q=" + url.QueryEscape(query) + "&hl=it&gl=IT&ceid=IT:it"
}

func companyTerms(company models.Company) []string {
	name := strings.TrimSpace(company.Name)
	if name == "" {
		return nil
	}
	terms := append([]string{name}, company.Aliases...)
	seen := make(map[string]struct{})
	var parts []string
	for _, term := range terms {
		cleaned := strings.TrimSpace(strings.ReplaceAll(term, `"`, ""))
		if cleaned == "" {
			continue
		}
		key := strings.ToLower(cleaned)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		parts = append(parts, `"`+cleaned+`"`)
	}
	domain := strings.TrimSpace(company.WebsiteDomain)
	if domain != "" {
		parts = append(parts, "site:"+domain)
	}
	return parts
}
