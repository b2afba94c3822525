package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/medguard/internal/interfaces"
	"github.com/ternarybob/medguard/internal/models"
)

// AuditLogger records gateway calls. Records carry sizes and outcome only.
type AuditLogger interface {
	Record(ctx context.Context, record *models.GatewayAudit) error
	GetLogs(ctx context.Context, limit int) ([]models.GatewayAudit, error)
	ExportToJSON(ctx context.Context, w io.Writer) error
}

// StorageAuditLogger implements AuditLogger on top of AuditStorage
type StorageAuditLogger struct {
	storage interfaces.AuditStorage
	logger  arbor.ILogger
}

var _ AuditLogger = (*StorageAuditLogger)(nil)

func NewStorageAuditLogger(storage interfaces.AuditStorage, logger arbor.ILogger) *StorageAuditLogger {
	return &StorageAuditLogger{
		storage: storage,
		logger:  logger,
	}
}

// Record stores one gateway call
func (l *StorageAuditLogger) Record(ctx context.Context, record *models.GatewayAudit) error {
	l.logger.Debug().
		Str("provider", record.Provider).
		Str("model", record.Model).
		Bool("success", record.Success).
		Int("question_chars", record.QuestionChars).
		Int("response_chars", record.ResponseChars).
		Dur("duration", record.Duration).
		Msg("Recording gateway call")

	if err := l.storage.Save(ctx, record); err != nil {
		l.logger.Error().
			Err(err).
			Str("provider", record.Provider).
			Msg("Failed to save gateway audit record")
		return fmt.Errorf("failed to save audit record: %w", err)
	}
	return nil
}

// GetLogs returns recent records, newest first
func (l *StorageAuditLogger) GetLogs(ctx context.Context, limit int) ([]models.GatewayAudit, error) {
	records, err := l.storage.List(ctx, limit)
	if err != nil {
		l.logger.Error().Err(err).Int("limit", limit).Msg("Failed to query audit records")
		return nil, fmt.Errorf("failed to query audit records: %w", err)
	}
	return records, nil
}

// ExportToJSON writes the most recent records as indented JSON
func (l *StorageAuditLogger) ExportToJSON(ctx context.Context, w io.Writer) error {
	records, err := l.GetLogs(ctx, 10000)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(records); err != nil {
		return fmt.Errorf("failed to encode audit records: %w", err)
	}

	l.logger.Info().Int("count", len(records)).Msg("Exported audit records to JSON")
	return nil
}

// NullAuditLogger discards records. Used when assistant auditing is disabled.
type NullAuditLogger struct{}

var _ AuditLogger = NullAuditLogger{}

func (NullAuditLogger) Record(context.Context, *models.GatewayAudit) error { return nil }

func (NullAuditLogger) GetLogs(context.Context, int) ([]models.GatewayAudit, error) {
	return []models.GatewayAudit{}, nil
}

func (NullAuditLogger) ExportToJSON(_ context.Context, w io.Writer) error {
	_, err := w.Write([]byte("[]\n"))
	return err
}
