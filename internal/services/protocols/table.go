package protocols

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/ternarybob/medguard/internal/models"
	"gopkg.in/yaml.v3"
)

// DefaultTableVersion is reported when the built-in table is in use
const DefaultTableVersion = "builtin-v2"

// Table is the governance table. Protocols are matched by keyword in order;
// Guidelines are looked up by exact condition key.
type Table struct {
	Version    string                 `toml:"version" yaml:"version" validate:"required"`
	Protocols  []models.ProtocolEntry `toml:"protocols" yaml:"protocols" validate:"dive"`
	Guidelines map[string]string      `toml:"guidelines" yaml:"guidelines"`
}

// DefaultTable returns a fresh copy of the built-in table
func DefaultTable() *Table {
	return &Table{
		Version: DefaultTableVersion,
		Protocols: []models.ProtocolEntry{
			{
				ID:       "BP-101",
				Keyword:  "bp",
				Citation: "Protocol #BP-101 (Source: OpenFDA): Reduce sodium, daily monitoring. If >140/90, consider ACE inhibitors.",
			},
			{
				ID:       "DM-202",
				Keyword:  "sugar",
				Citation: "Protocol #DM-202 (Source: PubMed): Check Hba1c. Metformin 500mg if prescribed. Target < 7.0%.",
			},
			{
				ID:       "ID-303",
				Keyword:  "fever",
				Citation: "Protocol #ID-303 (Source: ClinicalTrials.gov): Paracetamol 650mg. Hydration. Dengue/Malaria panel if > 3 days.",
			},
			{
				ID:       "NE-404",
				Keyword:  "dizziness",
				Citation: "Protocol #NE-404 (Source: AHA): Check orthostatic vitals. ECG recommended to rule out arrhythmia.",
			},
			{
				ID:       "CP-505",
				Keyword:  "chest pain",
				Citation: "Protocol #CP-505 (Source: AHA): Immediate ECG. Troponin T test. Administer Aspirin 325mg if ACS suspected.",
			},
		},
		Guidelines: map[string]string{
			"high_bp":       "Standard Protocol: Reduce sodium intake, increase aerobic exercise, monitor daily. Consult cardiologist if > 160/100.",
			"low_vitamin_d": "Standard Protocol: Supplement 600-800 IU daily, increase sun exposure (15 mins/day).",
			"high_glucose":  "Standard Protocol: Fasting required. Immediate Hba1c test recommended. Reduce simple carbs.",
		},
	}
}

// LoadTable reads a governance table from a .toml, .yaml or .yml file.
// An empty path returns the built-in table.
func LoadTable(path string) (*Table, error) {
	if path == "" {
		return DefaultTable(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read protocol table %s: %w", path, err)
	}

	table, err := ParseTable(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("protocol table %s: %w", path, err)
	}
	return table, nil
}

// ParseTable decodes and validates a table. ext selects the format (".toml", ".yaml", ".yml").
func ParseTable(data []byte, ext string) (*Table, error) {
	var table Table
	switch strings.ToLower(ext) {
	case ".toml":
		if err := toml.Unmarshal(data, &table); err != nil {
			return nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &table); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported table format %q", ext)
	}

	if err := table.Validate(); err != nil {
		return nil, err
	}
	return &table, nil
}

// Validate checks required fields and rejects duplicate IDs or keywords
func (t *Table) Validate() error {
	if err := validator.New().Struct(t); err != nil {
		return fmt.Errorf("invalid protocol table: %w", err)
	}
	if len(t.Protocols) == 0 && len(t.Guidelines) == 0 {
		return fmt.Errorf("invalid protocol table: no protocols or guidelines")
	}

	ids := make(map[string]bool, len(t.Protocols))
	keywords := make(map[string]bool, len(t.Protocols))
	for _, p := range t.Protocols {
		kw := strings.ToLower(strings.TrimSpace(p.Keyword))
		if kw == "" {
			return fmt.Errorf("invalid protocol table: blank keyword for %q", p.ID)
		}
		if ids[p.ID] {
			return fmt.Errorf("invalid protocol table: duplicate id %q", p.ID)
		}
		if keywords[kw] {
			return fmt.Errorf("invalid protocol table: duplicate keyword %q", p.Keyword)
		}
		ids[p.ID] = true
		keywords[kw] = true
	}
	return nil
}
