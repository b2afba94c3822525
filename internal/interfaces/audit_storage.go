package interfaces

import (
	"context"

	"github.com/ternarybob/medguard/internal/models"
)

// AuditStorage persists gateway audit records
type AuditStorage interface {
	// Save inserts a record; records are immutable once written
	Save(ctx context.Context, record *models.GatewayAudit) error

	// List returns the newest records first, at most limit
	List(ctx context.Context, limit int) ([]models.GatewayAudit, error)

	// ListBySession returns a session's records, oldest first
	ListBySession(ctx context.Context, sessionID string) ([]models.GatewayAudit, error)

	// DeleteOlderThan removes records older than the cutoff and returns the count removed
	DeleteOlderThan(ctx context.Context, cutoffUnix int64) (int, error)
}
