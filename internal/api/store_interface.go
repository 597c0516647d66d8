package api

import (
	"context"

	"github.com/kihaltung/attitude/internal/models"
	"github.com/kihaltung/attitude/internal/services"
)

// Store is the persistence surface the HTTP layer needs. Both the in-memory
// store and the SQL store in internal/db implement it.
type Store interface {
	services.SnapshotSource
	services.SubmissionStore
	services.ParticipantStore
	services.ConsentStore
	services.ChallengeStore
	services.ItemStore
	services.AuthStore

	ListAudit(ctx context.Context, limit int) ([]models.AuditEntry, error)
}
