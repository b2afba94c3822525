package badger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// VariableFile represents one secret in variables.toml
// Format:
// [anthropic_api_key]
// value = "..."
// description = "optional description"
type VariableFile struct {
	Value       string `toml:"value"`
	Description string `toml:"description"`
}

// VariablesFileName is looked up in the configured variables directory
const VariablesFileName = "variables.toml"

// LoadVariablesFromFiles upserts every non-empty entry of variables.toml.
// A missing file is not an error; values are never logged.
func (m *Manager) LoadVariablesFromFiles(ctx context.Context, dirPath string) error {
	filePath := filepath.Join(dirPath, VariablesFileName)

	content, err := os.ReadFile(filePath)
	if errors.Is(err, os.ErrNotExist) {
		m.logger.Debug().Str("file", filePath).Msg("No variables file found")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read variables file: %w", err)
	}

	var variables map[string]VariableFile
	if err := toml.Unmarshal(content, &variables); err != nil {
		return fmt.Errorf("failed to parse variables file %s: %w", filePath, err)
	}

	loaded, skipped := 0, 0
	for key, variable := range variables {
		if variable.Value == "" {
			m.logger.Warn().Str("key", key).Msg("Skipping variable with empty value")
			skipped++
			continue
		}

		description := variable.Description
		if description == "" {
			description = "Loaded from " + VariablesFileName
		}

		if _, err := m.kv.Upsert(ctx, key, variable.Value, description); err != nil {
			return fmt.Errorf("failed to store variable %s: %w", key, err)
		}
		loaded++
	}

	m.logger.Info().
		Int("loaded", loaded).
		Int("skipped", skipped).
		Str("file", filePath).
		Msg("Variables loaded")

	return nil
}
