package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/medguard/internal/interfaces"
	"github.com/ternarybob/medguard/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// AuditStorage implements the AuditStorage interface for Badger
type AuditStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewAuditStorage creates a new AuditStorage instance
func NewAuditStorage(db *BadgerDB, logger arbor.ILogger) interfaces.AuditStorage {
	return &AuditStorage{
		db:     db,
		logger: logger,
	}
}

func (s *AuditStorage) Save(ctx context.Context, record *models.GatewayAudit) error {
	if record.ID == "" {
		return fmt.Errorf("audit record ID is required")
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}
	if err := s.db.Store().Insert(record.ID, record); err != nil {
		return fmt.Errorf("failed to save audit record: %w", err)
	}
	return nil
}

func (s *AuditStorage) List(ctx context.Context, limit int) ([]models.GatewayAudit, error) {
	var records []models.GatewayAudit
	query := badgerhold.Where("ID").Ne("").SortBy("Timestamp").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := s.db.Store().Find(&records, query); err != nil {
		return nil, fmt.Errorf("failed to list audit records: %w", err)
	}
	return records, nil
}

func (s *AuditStorage) ListBySession(ctx context.Context, sessionID string) ([]models.GatewayAudit, error) {
	var records []models.GatewayAudit
	query := badgerhold.Where("SessionID").Eq(sessionID).Index("SessionID").SortBy("Timestamp")
	if err := s.db.Store().Find(&records, query); err != nil {
		return nil, fmt.Errorf("failed to list audit records for session: %w", err)
	}
	return records, nil
}

// DeleteOlderThan removes records with a timestamp before the cutoff
func (s *AuditStorage) DeleteOlderThan(ctx context.Context, cutoffUnix int64) (int, error) {
	cutoff := time.Unix(cutoffUnix, 0).UTC()
	query := badgerhold.Where("Timestamp").Lt(cutoff)

	count, err := s.db.Store().Count(&models.GatewayAudit{}, query)
	if err != nil {
		return 0, fmt.Errorf("failed to count expired audit records: %w", err)
	}
	if count == 0 {
		return 0, nil
	}

	if err := s.db.Store().DeleteMatching(&models.GatewayAudit{}, badgerhold.Where("Timestamp").Lt(cutoff)); err != nil {
		return 0, fmt.Errorf("failed to delete expired audit records: %w", err)
	}

	s.logger.Info().Int("count", int(count)).Str("cutoff", cutoff.Format(time.RFC3339)).Msg("Deleted expired audit records")

	if rewritten, err := s.db.CollectGarbage(0.5); err != nil {
		s.logger.Warn().Err(err).Msg("Audit value log cleanup failed")
	} else if rewritten > 0 {
		s.logger.Debug().Int("files", rewritten).Msg("Audit value log files rewritten")
	}
	return int(count), nil
}
