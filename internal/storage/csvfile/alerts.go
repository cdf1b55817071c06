package csvfile

import (
	"context"
	"os"
	"strconv"

	"github.com/news-alert-agent/internal/dedupe"
	"github.com/news-alert-agent/internal/models"
	"github.com/news-alert-agent/internal/storage"
)

var _ storage.AlertStore = AlertStore{}

// AlertStore persists alerts and candidates as append-only CSV tables.
// RunType tags every alert row when set (backtest runs write to a separate
// file carrying a run_type discriminator column).
type AlertStore struct {
	AlertsPath     string
	CandidatesPath string
	RunType        string
}

var candidateFields = []string{
	"candidate_id",
	"article_id",
	"company_id",
	"trigger_id",
	"match_method",
	"confidence",
}

var alertFields = []string{
	"alert_id",
	"company_id",
	"company_name",
	"trigger_id",
	"trigger_name",
	"contact_owner",
	"source",
	"article_url",
	"published_at",
	"dedupe_key",
	"created_at",
	"status",
}

func (s AlertStore) fieldnames() []string {
	fields := append([]string{}, alertFields...)
	if s.RunType != "" {
		fields = append(fields, "run_type")
	}
	return fields
}

// ExistingKeys returns every dedupe key present in the alert table. Rows
// written before the dedupe_key column existed get their key reconstructed
// from company, trigger, published date and title.
func (s AlertStore) ExistingKeys(ctx context.Context) (map[string]struct{}, error) {
	rows, err := ReadRows(s.AlertsPath)
	if err != nil {
		return nil, err
	}
	keys := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		companyID := row["company_id"]
		triggerID := row["trigger_id"]
		if companyID == "" || triggerID == "" {
			continue
		}
		key := row["dedupe_key"]
		if key == "" {
			title := row["title"]
			if title == "" {
				title = row["article_title"]
			}
			key = dedupe.Key(companyID, triggerID, row["published_at"], title)
		}
		if key != "" {
			keys[key] = struct{}{}
		}
	}
	return keys, nil
}

// AppendAlerts appends alert rows, writing the header on first use.
func (s AlertStore) AppendAlerts(ctx context.Context, alerts []models.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	rows := make([]map[string]string, 0, len(alerts))
	for _, alert := range alerts {
		row := map[string]string{
			"alert_id":      alert.AlertID,
			"company_id":    alert.CompanyID,
			"company_name":  alert.CompanyName,
			"trigger_id":    alert.TriggerID,
			"trigger_name":  alert.TriggerName,
			"contact_owner": alert.ContactOwner,
			"source":        alert.Source,
			"article_url":   alert.ArticleURL,
			"published_at":  alert.PublishedAt,
			"dedupe_key":    alert.DedupeKey,
			"created_at":    alert.CreatedAt,
			"status":        string(alert.Status),
		}
		if s.RunType != "" {
			row["run_type"] = s.RunType
		}
		rows = append(rows, row)
	}
	return AppendRows(s.AlertsPath, s.fieldnames(), rows)
}

// AppendCandidates appends audit rows. Candidates are never deduplicated.
func (s AlertStore) AppendCandidates(ctx context.Context, candidates []models.AlertCandidate) error {
	if len(candidates) == 0 {
		return nil
	}
	rows := make([]map[string]string, 0, len(candidates))
	for _, candidate := range candidates {
		rows = append(rows, map[string]string{
			"candidate_id": candidate.CandidateID,
			"article_id":   candidate.ArticleID,
			"company_id":   candidate.CompanyID,
			"trigger_id":   candidate.TriggerID,
			"match_method": candidate.MatchMethod,
			"confidence":   strconv.FormatFloat(candidate.Confidence, 'g', -1, 64),
		})
	}
	return AppendRows(s.CandidatesPath, candidateFields, rows)
}

// EnsureHeader creates the alert table with its full header when it does not
// exist yet, so a zero-alert run still leaves a well-formed file behind.
func (s AlertStore) EnsureHeader(ctx context.Context) error {
	if _, err := os.Stat(s.AlertsPath); err == nil {
		return nil
	}
	return WriteRows(s.AlertsPath, s.fieldnames(), nil)
}

// MarkSent rewrites the alert table flipping the status of the delivered
// alert ids to sent. The stored header is preserved so legacy columns
// survive the rewrite.
func (s AlertStore) MarkSent(ctx context.Context, alertIDs map[string]struct{}) error {
	if len(alertIDs) == 0 {
		return nil
	}
	rows, err := ReadRows(s.AlertsPath)
	if err != nil || len(rows) == 0 {
		return err
	}
	header, err := ReadHeader(s.AlertsPath)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if _, ok := alertIDs[row["alert_id"]]; ok {
			row["status"] = string(models.AlertStatusSent)
		}
	}
	return WriteRows(s.AlertsPath, header, rows)
}
