package common

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"

	"github.com/ternarybob/medguard/internal/interfaces"
)

// Config represents the application configuration
type Config struct {
	Environment string           `toml:"environment" validate:"oneof=development production dev prod test"`
	Server      ServerConfig     `toml:"server"`
	Logging     LoggingConfig    `toml:"logging"`
	Storage     StorageConfig    `toml:"storage"`
	Variables   KeysDirConfig    `toml:"variables"` // Variables directory (./variables.toml) holding secrets such as API keys
	Extraction  ExtractionConfig `toml:"extraction"`
	OCR         OCRConfig        `toml:"ocr"`
	Redaction   RedactionConfig  `toml:"redaction"`
	Triage      TriageConfig     `toml:"triage"`
	Protocols   ProtocolsConfig  `toml:"protocols"`
	Assistant   AssistantConfig  `toml:"assistant"`
	Sessions    SessionsConfig   `toml:"sessions"`
	Report      ReportConfig     `toml:"report"`
	Gemini      GeminiConfig     `toml:"gemini"`
	Claude      ClaudeConfig     `toml:"claude"`
	LLM         LLMConfig        `toml:"llm"`
}

type ServerConfig struct {
	Port          int    `toml:"port" validate:"min=1,max=65535"`
	Host          string `toml:"host" validate:"required"`
	MaxUploadSize int64  `toml:"max_upload_size" validate:"min=1024"` // Bytes accepted for a document upload
}

type LoggingConfig struct {
	Level      string   `toml:"level" validate:"oneof=trace debug info warn error"`
	Format     string   `toml:"format" validate:"oneof=text json"`
	Output     []string `toml:"output" validate:"dive,oneof=stdout console file"`
	TimeFormat string   `toml:"time_format"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Enabled        bool   `toml:"enabled"`          // Audit log and variables store; disabled runs fully in memory
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// KeysDirConfig contains configuration for key/value file loading (generic secrets/configuration)
type KeysDirConfig struct {
	Dir string `toml:"dir"` // Directory containing variables.toml
}

// ExtractionConfig controls the document extraction chain
type ExtractionConfig struct {
	MinTextChars int    `toml:"min_text_chars" validate:"min=1"` // Below this, layout text is treated as a scanned document
	MaxPages     int    `toml:"max_pages" validate:"min=1"`      // Pages read from a single document
	MaxBytes     int64  `toml:"max_bytes" validate:"min=1"`      // Largest document accepted
	TempDir      string `toml:"temp_dir"`                        // Scratch space for page text and rasterized pages; empty uses the OS default
}

// OCRConfig contains the rasterizer and OCR engine settings
type OCRConfig struct {
	Enabled       bool   `toml:"enabled"`
	PdftoppmPath  string `toml:"pdftoppm_path"`  // Poppler rasterizer binary
	TesseractPath string `toml:"tesseract_path"` // Tesseract OCR binary
	Language      string `toml:"language"`       // Tesseract language code (default: "eng")
	DPI           int    `toml:"dpi" validate:"min=72,max=600"`
	MaxPages      int    `toml:"max_pages" validate:"min=1"` // Pages rasterized per document
	Timeout       string `toml:"timeout"`                    // Per-command timeout as duration string
}

// RedactionConfig controls the PII redactor
type RedactionConfig struct {
	RedactQuestions bool           `toml:"redact_questions"` // Run the rule layer over user questions before they reach the model
	Presidio        PresidioConfig `toml:"presidio"`
}

// PresidioConfig configures the optional entity recognition service
type PresidioConfig struct {
	Enabled  bool     `toml:"enabled"`
	Endpoint string   `toml:"endpoint" validate:"omitempty,url"`
	Language string   `toml:"language"`
	MinScore float64  `toml:"min_score" validate:"min=0,max=1"`
	Timeout  string   `toml:"timeout"`
	Entities []string `toml:"entities"`
}

// TriageConfig optionally replaces the built-in keyword sets
type TriageConfig struct {
	CriticalKeywords []string `toml:"critical_keywords"`
	ModerateKeywords []string `toml:"moderate_keywords"`
	VitalsRules      bool     `toml:"vitals_rules"` // Grade blood pressure readings in addition to keywords
}

// ProtocolsConfig points at the governance table
type ProtocolsConfig struct {
	File string `toml:"file"` // TOML or YAML table; empty uses the built-in table
}

// AssistantConfig controls the question answering gateway
type AssistantConfig struct {
	Provider    LLMProvider `toml:"provider" validate:"omitempty,oneof=gemini claude"`
	Model       string      `toml:"model"`
	Temperature float32     `toml:"temperature" validate:"min=0,max=2"`
	MaxTokens   int         `toml:"max_tokens" validate:"min=1"`
	Timeout     string      `toml:"timeout"`
	Audit       bool        `toml:"audit"`         // Record each gateway call (sizes and outcome only)
	AuditMaxAge string      `toml:"audit_max_age"` // Records older than this are purged by the sweeper; empty keeps them
}

// SessionsConfig controls the in-memory consultation registry
type SessionsConfig struct {
	IdleTimeout     string  `toml:"idle_timeout"`   // Sessions idle longer than this are purged
	SweepSchedule   string  `toml:"sweep_schedule"` // Cron schedule (with seconds) for the purge
	MaxSessions     int     `toml:"max_sessions" validate:"min=1"`
	QuestionsPerMin float64 `toml:"questions_per_min" validate:"min=0"` // Per-session question rate; 0 disables limiting
}

// ReportConfig controls exported session reports and referral drafts
type ReportConfig struct {
	Institution  string `toml:"institution"`                              // Shown in report headers and the referral signature
	ReferralFrom string `toml:"referral_from" validate:"omitempty,email"` // From address of referral drafts
	ReferralTo   string `toml:"referral_to" validate:"omitempty,email"`   // Optional To address; drafts omit the header when empty
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`     // Prefer MEDGUARD_GEMINI_API_KEY or variables.toml
	Model       string  `toml:"model"`       // Model for AI operations (default: "gemini-2.5-flash")
	Timeout     string  `toml:"timeout"`     // Operation timeout as duration string (default: "2m")
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.7)
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`     // Prefer ANTHROPIC_API_KEY or variables.toml
	Model       string  `toml:"model"`       // Model for AI operations (default: "claude-haiku-4-5")
	MaxTokens   int     `toml:"max_tokens"`  // Maximum tokens in response (default: 2048)
	Timeout     string  `toml:"timeout"`     // Operation timeout as duration string (default: "2m")
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.7)
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
)

// LLMConfig contains unified configuration for all AI providers
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider" validate:"oneof=gemini claude"`
}

// NewDefaultConfig creates a configuration with default values.
// Only user-facing settings should need to appear in medguard.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port:          8085,
			Host:          "localhost",
			MaxUploadSize: 20 * 1024 * 1024, // 20MB
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     []string{"stdout", "file"},
			TimeFormat: "15:04:05",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Enabled: true,
				Path:    "./data",
			},
		},
		Variables: KeysDirConfig{
			Dir: "./",
		},
		Extraction: ExtractionConfig{
			MinTextChars: 50,
			MaxPages:     200,
			MaxBytes:     20 * 1024 * 1024,
		},
		OCR: OCRConfig{
			Enabled:       true,
			PdftoppmPath:  "pdftoppm",
			TesseractPath: "tesseract",
			Language:      "eng",
			DPI:           300,
			MaxPages:      20,
			Timeout:       "60s",
		},
		Redaction: RedactionConfig{
			RedactQuestions: true,
			Presidio: PresidioConfig{
				Enabled:  false, // Opt-in: requires a running presidio-analyzer
				Endpoint: "http://localhost:5002",
				Language: "en",
				MinScore: 0.35,
				Timeout:  "5s",
				Entities: []string{"PERSON", "PHONE_NUMBER", "EMAIL_ADDRESS", "DATE_TIME", "LOCATION", "URL"},
			},
		},
		Triage: TriageConfig{
			VitalsRules: true,
		},
		Assistant: AssistantConfig{
			Temperature: 0.7,
			MaxTokens:   2048,
			Timeout:     "2m",
			Audit:       true,
			AuditMaxAge: "720h", // 30 days
		},
		Sessions: SessionsConfig{
			IdleTimeout:     "2h",
			SweepSchedule:   "0 */5 * * * *", // Every 5 minutes
			MaxSessions:     500,
			QuestionsPerMin: 20,
		},
		Report: ReportConfig{
			Institution:  "MedGuard",
			ReferralFrom: "medguard@hospital.example",
		},
		Gemini: GeminiConfig{
			Model:       "gemini-2.5-flash",
			Timeout:     "2m",
			Temperature: 0.7,
		},
		Claude: ClaudeConfig{
			Model:       "claude-haiku-4-5",
			MaxTokens:   2048,
			Timeout:     "2m",
			Temperature: 0.7,
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderClaude,
		},
	}
}

// LoadFromFiles loads configuration with priority: default -> file1 -> file2 -> ... -> env.
// CLI flags are applied afterwards by ApplyFlagOverrides.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// Later files override earlier ones
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

var configValidator = validator.New()

// Validate checks enumerated and ranged fields and the duration strings
func (c *Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	durations := map[string]string{
		"ocr.timeout":                c.OCR.Timeout,
		"redaction.presidio.timeout": c.Redaction.Presidio.Timeout,
		"assistant.timeout":          c.Assistant.Timeout,
		"assistant.audit_max_age":    c.Assistant.AuditMaxAge,
		"sessions.idle_timeout":      c.Sessions.IdleTimeout,
		"gemini.timeout":             c.Gemini.Timeout,
		"claude.timeout":             c.Claude.Timeout,
	}
	for name, value := range durations {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid configuration: %s: %w", name, err)
		}
	}

	if c.Sessions.SweepSchedule != "" {
		if err := ValidateSweepSchedule(c.Sessions.SweepSchedule); err != nil {
			return fmt.Errorf("invalid configuration: sessions.sweep_schedule: %w", err)
		}
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("MEDGUARD_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("MEDGUARD_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("MEDGUARD_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Storage configuration
	if badgerPath := os.Getenv("MEDGUARD_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}
	if enabled := os.Getenv("MEDGUARD_BADGER_ENABLED"); enabled != "" {
		if b, err := strconv.ParseBool(enabled); err == nil {
			config.Storage.Badger.Enabled = b
		}
	}

	// Logging configuration
	if level := os.Getenv("MEDGUARD_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("MEDGUARD_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	if output := os.Getenv("MEDGUARD_LOG_OUTPUT"); output != "" {
		if outputs := splitList(output); len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Extraction and OCR configuration
	if minChars := os.Getenv("MEDGUARD_EXTRACTION_MIN_TEXT_CHARS"); minChars != "" {
		if n, err := strconv.Atoi(minChars); err == nil {
			config.Extraction.MinTextChars = n
		}
	}
	if dir := os.Getenv("MEDGUARD_EXTRACTION_TEMP_DIR"); dir != "" {
		config.Extraction.TempDir = dir
	}
	if enabled := os.Getenv("MEDGUARD_OCR_ENABLED"); enabled != "" {
		if b, err := strconv.ParseBool(enabled); err == nil {
			config.OCR.Enabled = b
		}
	}
	if path := os.Getenv("MEDGUARD_OCR_PDFTOPPM_PATH"); path != "" {
		config.OCR.PdftoppmPath = path
	}
	if path := os.Getenv("MEDGUARD_OCR_TESSERACT_PATH"); path != "" {
		config.OCR.TesseractPath = path
	}

	// Redaction configuration
	if enabled := os.Getenv("MEDGUARD_PRESIDIO_ENABLED"); enabled != "" {
		if b, err := strconv.ParseBool(enabled); err == nil {
			config.Redaction.Presidio.Enabled = b
		}
	}
	if endpoint := os.Getenv("MEDGUARD_PRESIDIO_ENDPOINT"); endpoint != "" {
		config.Redaction.Presidio.Endpoint = endpoint
	}

	// Governance table
	if file := os.Getenv("MEDGUARD_PROTOCOLS_FILE"); file != "" {
		config.Protocols.File = file
	}

	// Assistant configuration
	if provider := os.Getenv("MEDGUARD_ASSISTANT_PROVIDER"); provider != "" {
		config.Assistant.Provider = LLMProvider(provider)
	}
	if model := os.Getenv("MEDGUARD_ASSISTANT_MODEL"); model != "" {
		config.Assistant.Model = model
	}

	// Gemini configuration
	if apiKey := os.Getenv("MEDGUARD_GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
	if model := os.Getenv("MEDGUARD_GEMINI_MODEL"); model != "" {
		config.Gemini.Model = model
	}

	// Claude configuration
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if apiKey := os.Getenv("MEDGUARD_CLAUDE_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey // MEDGUARD_ prefix takes priority
	}
	if model := os.Getenv("MEDGUARD_CLAUDE_MODEL"); model != "" {
		config.Claude.Model = model
	}

	// LLM provider configuration
	if provider := os.Getenv("MEDGUARD_LLM_DEFAULT_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(provider)
	}

	// Variables configuration
	if variablesDir := os.Getenv("MEDGUARD_VARIABLES_DIR"); variablesDir != "" {
		config.Variables.Dir = variablesDir
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// ResolveAPIKey resolves an API key by name.
// Resolution order: environment variables -> KV store (variables.toml) -> config fallback -> error.
func ResolveAPIKey(ctx context.Context, kvStorage interfaces.KeyValueStorage, name string, configFallback string) (string, error) {
	keyToEnvMapping := map[string][]string{
		"gemini_api_key":    {"MEDGUARD_GEMINI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"},
		"anthropic_api_key": {"MEDGUARD_CLAUDE_API_KEY", "ANTHROPIC_API_KEY"},
	}

	for _, envVarName := range keyToEnvMapping[name] {
		if envValue := os.Getenv(envVarName); envValue != "" {
			return envValue, nil
		}
	}

	if kvStorage != nil {
		apiKey, err := kvStorage.Get(ctx, name)
		if err == nil && apiKey != "" {
			return apiKey, nil
		}
	}

	if configFallback != "" {
		return configFallback, nil
	}

	return "", fmt.Errorf("API key '%s' not found in environment, KV store, or config", name)
}

// ValidateSweepSchedule validates a six-field (seconds first) cron expression
func ValidateSweepSchedule(schedule string) error {
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}

// ParseDurationOr parses a duration string, returning fallback when empty or invalid
func ParseDurationOr(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
