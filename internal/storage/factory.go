package storage

import (
	"errors"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/medguard/internal/common"
	"github.com/ternarybob/medguard/internal/interfaces"
	"github.com/ternarybob/medguard/internal/storage/badger"
)

// ErrStorageDisabled is returned when [storage.badger] is switched off.
// Callers continue without an audit log or variables store.
var ErrStorageDisabled = errors.New("storage disabled")

// NewStorageManager opens the configured store. Badger is the only backend.
func NewStorageManager(logger arbor.ILogger, config *common.Config) (interfaces.StorageManager, error) {
	if !config.Storage.Badger.Enabled {
		return nil, ErrStorageDisabled
	}
	manager, err := badger.NewManager(logger, &config.Storage.Badger)
	if err != nil {
		return nil, err
	}
	return manager, nil
}
