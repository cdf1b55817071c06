package match

import (
	"strings"

	"github.com/news-alert-agent/internal/models"
)

// Triggers returns the triggers with at least one keyword contained in the
// text (case-insensitive). A trigger fires at most once; the first matching
// keyword short-circuits evaluation for that trigger.
func Triggers(text string, triggers []models.Trigger) []models.Trigger {
	haystack := strings.ToLower(text)
	var matched []models.Trigger
	for _, trigger := range triggers {
		for _, keyword := range trigger.Keywords {
			if keyword != "" && strings.Contains(haystack, strings.ToLower(keyword)) {
				matched = append(matched, trigger)
				break
			}
		}
	}
	return matched
}
