package common

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// PrintBanner displays the application banner and the resolved runtime settings
func PrintBanner(config *Config, logger arbor.ILogger) {
	banner.Print("MedGuard", GetVersion())

	logger.Info().
		Str("environment", config.Environment).
		Str("provider", string(config.LLM.DefaultProvider)).
		Bool("presidio", config.Redaction.Presidio.Enabled).
		Bool("ocr", config.OCR.Enabled).
		Bool("audit", config.Storage.Badger.Enabled && config.Assistant.Audit).
		Msg("MedGuard clinical intake pipeline")
}
