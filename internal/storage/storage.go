// Package storage defines the persistence interfaces consumed by the
// correlation engine: a roster source and an append-only alert store.
package storage

import (
	"context"

	"github.com/news-alert-agent/internal/models"
)

// RosterStore supplies the company, trigger and provider rosters in their
// stored order.
type RosterStore interface {
	Companies(ctx context.Context) ([]models.Company, error)
	Triggers(ctx context.Context) ([]models.Trigger, error)
	Providers(ctx context.Context) ([]models.Provider, error)
}

// AlertStore persists alerts and their audit candidates. Alerts append-only,
// keyed by dedupe key; candidates append-only and never deduplicated.
type AlertStore interface {
	// ExistingKeys returns every dedupe key already present in the
	// destination, reconstructing keys for legacy rows that predate the
	// stored dedupe_key column.
	ExistingKeys(ctx context.Context) (map[string]struct{}, error)

	AppendAlerts(ctx context.Context, alerts []models.Alert) error
	AppendCandidates(ctx context.Context, candidates []models.AlertCandidate) error

	// EnsureHeader creates the destination with its full header schema when
	// it does not exist yet, so downstream consumers can rely on its shape
	// even after a zero-alert run.
	EnsureHeader(ctx context.Context) error

	// MarkSent flips the status of the given alert ids to sent. The
	// transition never reverts.
	MarkSent(ctx context.Context, alertIDs map[string]struct{}) error
}
