// Package selector decides which subset of the eligible company universe is
// queried against rate-limited external feeds on a given run.
package selector

import (
	"crypto/sha256"
	"encoding/hex"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/news-alert-agent/internal/models"
)

// Mode selects the company rotation policy
type Mode string

const (
	ModeTopRevenue Mode = "top_revenue"
	ModeRandom     Mode = "random"
	ModeRolling    Mode = "rolling"
	ModePointer    Mode = "pointer"
)

// ParseMode maps a config string to a Mode, defaulting to top_revenue.
func ParseMode(value string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case ModeRandom:
		return ModeRandom
	case ModeRolling:
		return ModeRolling
	case ModePointer:
		return ModePointer
	}
	return ModeTopRevenue
}

// Selector picks a per-run batch of companies under a fixed query cap.
// Cap is the per-run batch size. Seed drives the random and rolling modes.
// UniverseSize and PointerPath apply to pointer mode only.
type Selector struct {
	Cap          int
	Mode         Mode
	Seed         string
	UniverseSize int
	PointerPath  string
}

// Eligible applies the pre-filter for per-company feed types: active,
// non-empty name, Italian, and not flagged as a bank.
func Eligible(companies []models.Company) []models.Company {
	var eligible []models.Company
	for _, company := range companies {
		if !company.IsActive() || company.Name == "" {
			continue
		}
		if strings.ToUpper(strings.TrimSpace(company.Country)) != "IT" {
			continue
		}
		if company.Bank() {
			continue
		}
		eligible = append(eligible, company)
	}
	return eligible
}

// Select returns this run's batch. Pointer mode additionally advances the
// persisted rotation pointer; the other modes never return an error.
func (s Selector) Select(companies []models.Company) ([]models.Company, error) {
	if s.Cap <= 0 || len(companies) == 0 {
		return nil, nil
	}

	if s.Mode == ModePointer {
		return s.selectPointer(companies)
	}

	ordered := sortByID(companies)
	if s.Cap >= len(ordered) {
		return ordered, nil
	}

	switch s.Mode {
	case ModeRandom:
		return SelectRandom(companies, s.Cap, s.Seed), nil
	case ModeRolling:
		return SelectRolling(companies, s.Cap, s.Seed), nil
	default:
		return SelectTopRevenue(companies, s.Cap), nil
	}
}

func (s Selector) selectPointer(companies []models.Company) ([]models.Company, error) {
	pointer, err := LoadPointer(s.PointerPath)
	if err != nil {
		// Malformed state resets the rotation rather than aborting the run.
		pointer = 0
	}
	universe := BuildUniverse(companies, s.UniverseSize)
	batch, next := SelectBatch(universe, s.Cap, pointer)
	if saveErr := SavePointer(s.PointerPath, next); saveErr != nil {
		return batch, saveErr
	}
	return batch, err
}

// SelectTopRevenue sorts by company id ascending for a stable tiebreak, then
// by numeric revenue descending, and takes the first cap companies.
func SelectTopRevenue(companies []models.Company, cap int) []models.Company {
	ordered := sortByID(companies)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ParseRevenue(ordered[i].RevenueEUR) > ParseRevenue(ordered[j].RevenueEUR)
	})
	if cap < len(ordered) {
		ordered = ordered[:cap]
	}
	return ordered
}

// SelectRandom shuffles the id-ordered universe with a generator seeded from
// the seed string and takes the first cap companies. Identical seed and
// universe yield identical output.
func SelectRandom(companies []models.Company, cap int, seed string) []models.Company {
	ordered := sortByID(companies)
	rng := rand.New(rand.NewSource(SeedInt(seed)))
	rng.Shuffle(len(ordered), func(i, j int) {
		ordered[i], ordered[j] = ordered[j], ordered[i]
	})
	if cap < len(ordered) {
		ordered = ordered[:cap]
	}
	return ordered
}

// SelectRolling returns cap consecutive companies from the id-ordered
// universe starting at a seed-derived offset, wrapping past the end.
func SelectRolling(companies []models.Company, cap int, seed string) []models.Company {
	ordered := sortByID(companies)
	if len(ordered) == 0 {
		return nil
	}
	if cap >= len(ordered) {
		return ordered
	}
	start := positiveMod(SeedInt(seed), len(ordered))
	return rollingWindow(ordered, cap, start)
}

// BuildUniverse returns the rotation universe for pointer mode: top-revenue
// ordering capped at universeSize. universeSize <= 0 keeps every company.
func BuildUniverse(companies []models.Company, universeSize int) []models.Company {
	if universeSize <= 0 || universeSize >= len(companies) {
		universeSize = len(companies)
	}
	return SelectTopRevenue(companies, universeSize)
}

// SelectBatch picks batchSize consecutive companies from the universe
// starting at the persisted pointer, wrapping to the front, and returns the
// advanced pointer (pointer + batchSize mod universe size). A batch covering
// the whole universe leaves the pointer untouched.
func SelectBatch(universe []models.Company, batchSize, pointer int) ([]models.Company, int) {
	if len(universe) == 0 || batchSize <= 0 {
		return nil, pointer
	}
	if batchSize >= len(universe) {
		return universe, pointer
	}
	start := positiveMod(int64(pointer), len(universe))
	batch := rollingWindow(universe, batchSize, start)
	return batch, (start + batchSize) % len(universe)
}

// SeedInt derives a deterministic integer from a seed string: empty seeds
// map to 0, an ISO date-like prefix to its ordinal day number, an integer
// string to its value, anything else to a hash-derived integer.
func SeedInt(seed string) int64 {
	value := strings.TrimSpace(seed)
	if value == "" {
		return 0
	}
	if len(value) >= 10 {
		if parsed, err := time.Parse("2006-01-02", value[:10]); err == nil {
			return ordinalDay(parsed)
		}
	}
	if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
		return parsed
	}
	digest := sha256.Sum256([]byte(value))
	prefix, _ := strconv.ParseUint(hex.EncodeToString(digest[:8]), 16, 64)
	return int64(prefix)
}

// ParseRevenue converts roster revenue text to a number, tolerating thousands
// separators. Unparseable or absent revenue counts as 0.
func ParseRevenue(value string) float64 {
	cleaned := strings.TrimSpace(strings.ReplaceAll(value, ",", ""))
	if cleaned == "" {
		return 0
	}
	parsed, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return parsed
}

func sortByID(companies []models.Company) []models.Company {
	ordered := make([]models.Company, len(companies))
	copy(ordered, companies)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CompanyID < ordered[j].CompanyID
	})
	return ordered
}

func rollingWindow(items []models.Company, cap, start int) []models.Company {
	if cap >= len(items) {
		return items
	}
	end := start + cap
	if end <= len(items) {
		return items[start:end]
	}
	window := make([]models.Company, 0, cap)
	window = append(window, items[start:]...)
	window = append(window, items[:end-len(items)]...)
	return window
}

// ordinalDay returns the proleptic ordinal of the date, with day 1 being
// 0001-01-01, matching the seed scheme used by historical runs. Computed in
// whole days since the Unix epoch; a Duration would overflow over this span.
func ordinalDay(t time.Time) int64 {
	epoch := time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)
	return t.Unix()/86400 - epoch.Unix()/86400 + 1
}

func positiveMod(value int64, n int) int {
	m := value % int64(n)
	if m < 0 {
		m += int64(n)
	}
	return int(m)
}
