package badger

import (
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/medguard/internal/common"
	"github.com/timshannon/badgerhold/v4"
)

// BadgerDB owns the badgerhold store behind the audit log and variables
type BadgerDB struct {
	store  *badgerhold.Store
	logger arbor.ILogger
	path   string
}

func storeOptions(path string) badgerhold.Options {
	options := badgerhold.DefaultOptions
	options.Options = badger.DefaultOptions(path).
		WithLogger(nil). // badger's own logger is noisy; arbor logs open and close
		WithNumVersionsToKeep(1).
		WithCompactL0OnClose(true)
	return options
}

// NewBadgerDB opens (and with reset_on_startup, first wipes) the database.
// The directory is created owner-only since it holds API keys.
func NewBadgerDB(logger arbor.ILogger, config *common.BadgerConfig) (*BadgerDB, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("badger path is required")
	}

	if config.ResetOnStartup {
		logger.Debug().Str("path", config.Path).Msg("Resetting database (reset_on_startup=true)")
		if err := os.RemoveAll(config.Path); err != nil {
			logger.Warn().Err(err).Str("path", config.Path).Msg("Failed to delete database directory")
		}
	}

	if err := os.MkdirAll(config.Path, 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	store, err := badgerhold.Open(storeOptions(config.Path))
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database at %s: %w", config.Path, err)
	}

	logger.Debug().Str("path", config.Path).Msg("Badger database opened")
	return &BadgerDB{store: store, logger: logger, path: config.Path}, nil
}

// Store returns the underlying badgerhold store
func (b *BadgerDB) Store() *badgerhold.Store {
	return b.store
}

// CollectGarbage rewrites value log files until badger reports nothing
// left to reclaim. Deleted audit records only free disk space after this.
func (b *BadgerDB) CollectGarbage(discardRatio float64) (int, error) {
	rewritten := 0
	for {
		err := b.store.Badger().RunValueLogGC(discardRatio)
		if errors.Is(err, badger.ErrNoRewrite) {
			return rewritten, nil
		}
		if err != nil {
			return rewritten, fmt.Errorf("value log gc failed: %w", err)
		}
		rewritten++
	}
}

func (b *BadgerDB) Close() error {
	if b.store == nil {
		return nil
	}
	if err := b.store.Close(); err != nil {
		return fmt.Errorf("failed to close badger database: %w", err)
	}
	b.logger.Debug().Str("path", b.path).Msg("Badger database closed")
	return nil
}
