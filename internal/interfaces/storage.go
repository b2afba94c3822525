package interfaces

import "context"

// StorageManager - composite interface for all storage operations
type StorageManager interface {
	AuditStorage() AuditStorage
	KeyValueStorage() KeyValueStorage

	// LoadVariablesFromFiles upserts secrets from variables.toml in dirPath
	LoadVariablesFromFiles(ctx context.Context, dirPath string) error

	DB() interface{}
	Close() error
}
