package badger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/medguard/internal/interfaces"
	"github.com/timshannon/badgerhold/v4"
)

// KVStorage keeps variables (API keys loaded from variables.toml) in Badger
type KVStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

var _ interfaces.KeyValueStorage = (*KVStorage)(nil)

func NewKVStorage(db *BadgerDB, logger arbor.ILogger) *KVStorage {
	return &KVStorage{
		db:     db,
		logger: logger,
	}
}

func variableKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

func (s *KVStorage) Get(ctx context.Context, key string) (string, error) {
	var variable interfaces.Variable
	err := s.db.Store().Get(variableKey(key), &variable)
	switch {
	case errors.Is(err, badgerhold.ErrNotFound):
		return "", interfaces.ErrKeyNotFound
	case err != nil:
		return "", fmt.Errorf("failed to read variable: %w", err)
	}
	return variable.Value, nil
}

// Upsert keeps the original CreatedAt when overwriting
func (s *KVStorage) Upsert(ctx context.Context, key string, value string, description string) (bool, error) {
	id := variableKey(key)
	if id == "" {
		return false, fmt.Errorf("variable key is required")
	}

	now := time.Now().UTC()
	variable := interfaces.Variable{
		Key:         id,
		Value:       value,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var existing interfaces.Variable
	err := s.db.Store().Get(id, &existing)
	created := errors.Is(err, badgerhold.ErrNotFound)
	switch {
	case err == nil:
		variable.CreatedAt = existing.CreatedAt
	case !created:
		return false, fmt.Errorf("failed to read variable: %w", err)
	}

	if err := s.db.Store().Upsert(id, &variable); err != nil {
		return false, fmt.Errorf("failed to store variable: %w", err)
	}

	s.logger.Debug().Str("key", id).Bool("created", created).Msg("Variable stored")
	return created, nil
}

func (s *KVStorage) Snapshot(ctx context.Context) (map[string]string, error) {
	var variables []interfaces.Variable
	if err := s.db.Store().Find(&variables, badgerhold.Where("Key").Ne("")); err != nil {
		return nil, fmt.Errorf("failed to read variables: %w", err)
	}

	values := make(map[string]string, len(variables))
	for _, v := range variables {
		values[v.Key] = v.Value
	}
	return values, nil
}
