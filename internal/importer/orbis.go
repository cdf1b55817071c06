// Package importer converts Orbis company exports (xlsx) into the company
// roster CSV. Column headers in the export are Italian and their row position
// varies per export, so the header row is located by scanning.
package importer

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/news-alert-agent/internal/storage/csvfile"
	"github.com/news-alert-agent/pkg/logger"
)

const headerScanRows = 200

// Canonical roster columns, in output order.
var rosterFields = []string{
	"company_id", "name", "aliases", "revenue_eur",
	"industry_code", "industry_description",
	"website", "website_domain", "country",
	"contact_owner", "status", "is_bank",
}

var reportFields = []string{"company_id", "name", "reason"}

// headerAliases maps normalized Orbis header fragments to roster columns.
// Matching is substring-based because exports vary in punctuation and
// footnote markers.
var headerAliases = map[string]string{
	"ragione sociale":      "name",
	"numero bvd":           "company_id",
	"bvd id":               "company_id",
	"paese":                "country",
	"nace rev. 2, codice":  "industry_code",
	"nace rev. 2, descriz": "industry_description",
	"ricavi":               "revenue_mil",
	"fatturato":            "revenue_mil",
	"indirizzo sito web":   "website",
	"sito web":             "website",
}

// legalSuffixes are the Italian corporate-form suffixes stripped and
// re-attached when building alias variants.
var legalSuffixes = []string{"S.p.A.", "SpA", "S.r.l.", "SRL", "Srl", "S.P.A."}

// Summary reports the outcome of one import.
type Summary struct {
	RowsIn         int
	RowsWritten    int
	RowsDropped    int
	MissingWebsite int
	MissingRevenue int
}

// Importer converts one Orbis export into the roster CSV plus a dropped-rows
// report.
type Importer struct {
	InputPath  string
	OutputPath string
	ReportPath string

	log *logger.Logger
}

// New creates an importer for the given input, output and report paths.
func New(inputPath, outputPath, reportPath string, log *logger.Logger) *Importer {
	return &Importer{
		InputPath:  inputPath,
		OutputPath: outputPath,
		ReportPath: reportPath,
		log:        log.WithComponent("importer"),
	}
}

// Run reads the export, maps every data row to a roster row, drops rows
// without a company id or name, and writes both output files.
func (im *Importer) Run(ctx context.Context) (*Summary, error) {
	workbook, err := excelize.OpenFile(im.InputPath)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", im.InputPath, err)
	}
	defer func() { _ = workbook.Close() }()

	sheet, headerIdx, columns, err := locateHeader(workbook)
	if err != nil {
		return nil, err
	}
	im.log.Info().
		Str("sheet", sheet).
		Int("header_row", headerIdx+1).
		Int("mapped_columns", len(columns)).
		Msg("Header located")

	rows, err := workbook.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}

	summary := &Summary{}
	var rosterRows []map[string]string
	var droppedRows []map[string]string

	for _, record := range rows[headerIdx+1:] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if isBlankRecord(record) {
			continue
		}
		summary.RowsIn++

		raw := func(field string) string {
			idx, ok := columns[field]
			if !ok || idx >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[idx])
		}

		companyID := raw("company_id")
		name := raw("name")
		if companyID == "" || name == "" {
			reason := "missing_company_id"
			if companyID != "" {
				reason = "missing_name"
			}
			droppedRows = append(droppedRows, map[string]string{
				"company_id": companyID,
				"name":       name,
				"reason":     reason,
			})
			continue
		}

		revenue := convertRevenue(raw("revenue_mil"))
		if revenue == "" {
			summary.MissingRevenue++
		}
		website := normalizeWebsite(raw("website"))
		if website == "" {
			summary.MissingWebsite++
		}

		rosterRows = append(rosterRows, map[string]string{
			"company_id":           companyID,
			"name":                 name,
			"aliases":              strings.Join(buildAliases(name), ";"),
			"revenue_eur":          revenue,
			"industry_code":        raw("industry_code"),
			"industry_description": raw("industry_description"),
			"website":              website,
			"website_domain":       extractDomain(website),
			"country":              raw("country"),
			"contact_owner":        "N/A",
			"status":               "active",
			"is_bank":              "",
		})
	}

	if err := csvfile.WriteRows(im.OutputPath, rosterFields, rosterRows); err != nil {
		return nil, err
	}
	if err := csvfile.WriteRows(im.ReportPath, reportFields, droppedRows); err != nil {
		return nil, err
	}

	summary.RowsWritten = len(rosterRows)
	summary.RowsDropped = len(droppedRows)
	im.log.Info().
		Int("rows_in", summary.RowsIn).
		Int("rows_written", summary.RowsWritten).
		Int("rows_dropped", summary.RowsDropped).
		Int("missing_website", summary.MissingWebsite).
		Int("missing_revenue", summary.MissingRevenue).
		Msg("Import complete")
	return summary, nil
}

// locateHeader scans every sheet for the row mapping the most known Orbis
// headers and returns the winning sheet, row index and column map.
func locateHeader(workbook *excelize.File) (string, int, map[string]int, error) {
	bestSheet := ""
	bestIdx := -1
	bestScore := 0
	var bestColumns map[string]int

	for _, sheet := range workbook.GetSheetList() {
		rows, err := workbook.GetRows(sheet)
		if err != nil {
			continue
		}
		limit := len(rows)
		if limit > headerScanRows {
			limit = headerScanRows
		}
		for idx := 0; idx < limit; idx++ {
			columns := mapColumns(rows[idx])
			if len(columns) > bestScore {
				bestSheet, bestIdx, bestScore = sheet, idx, len(columns)
				bestColumns = columns
			}
		}
	}

	if bestColumns == nil || !hasColumn(bestColumns, "company_id") {
		return "", 0, nil, fmt.Errorf("no recognizable header row found in workbook")
	}
	if !hasColumn(bestColumns, "name") {
		return "", 0, nil, fmt.Errorf("header row found but company name column missing")
	}
	return bestSheet, bestIdx, bestColumns, nil
}

func hasColumn(columns map[string]int, field string) bool {
	_, ok := columns[field]
	return ok
}

// mapColumns matches each cell of a candidate header row against the known
// Italian header fragments. First match per roster column wins.
func mapColumns(record []string) map[string]int {
	columns := make(map[string]int)
	for idx, cell := range record {
		normalized := strings.ToLower(strings.TrimSpace(cell))
		if normalized == "" {
			continue
		}
		for fragment, field := range headerAliases {
			if !strings.Contains(normalized, fragment) {
				continue
			}
			if _, taken := columns[field]; !taken {
				columns[field] = idx
			}
		}
	}
	return columns
}

// buildAliases produces deduplicated name variants: the name itself, the name
// with any legal suffix stripped, and the stripped base recombined with each
// suffix form.
func buildAliases(name string) []string {
	base := name
	for _, suffix := range legalSuffixes {
		if strings.HasSuffix(strings.ToLower(base), strings.ToLower(suffix)) {
			base = strings.TrimSpace(base[:len(base)-len(suffix)])
			break
		}
	}

	var aliases []string
	seen := make(map[string]struct{})
	add := func(alias string) {
		alias = strings.TrimSpace(alias)
		if alias == "" {
			return
		}
		lowered := strings.ToLower(alias)
		if _, ok := seen[lowered]; ok {
			return
		}
		seen[lowered] = struct{}{}
		aliases = append(aliases, alias)
	}

	add(name)
	add(base)
	for _, suffix := range legalSuffixes {
		add(base + " " + suffix)
	}
	return aliases
}

// convertRevenue turns an Orbis revenue figure in millions into integer EUR.
func convertRevenue(value string) string {
	cleaned := strings.ReplaceAll(strings.TrimSpace(value), ",", "")
	if cleaned == "" || strings.EqualFold(cleaned, "n.d.") {
		return ""
	}
	millions, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return ""
	}
	return strconv.FormatInt(int64(math.Round(millions*1_000_000)), 10)
}

// normalizeWebsite forces a scheme on bare www hosts so the roster always
// stores a fetchable URL.
func normalizeWebsite(value string) string {
	website := strings.TrimSpace(value)
	if website == "" {
		return ""
	}
	if strings.HasPrefix(website, "http://") || strings.HasPrefix(website, "https://") {
		return website
	}
	return "https://" + website
}

// extractDomain reduces a website URL to its bare lowercase host.
func extractDomain(website string) string {
	domain := strings.TrimSpace(website)
	if domain == "" {
		return ""
	}
	domain = strings.TrimPrefix(domain, "https://")
	domain = strings.TrimPrefix(domain, "http://")
	domain = strings.TrimPrefix(domain, "www.")
	if idx := strings.IndexAny(domain, "/?#"); idx >= 0 {
		domain = domain[:idx]
	}
	return strings.ToLower(domain)
}

func isBlankRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
