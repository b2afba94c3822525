package common

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
)

const (
	defaultTimeFormat = "15:04:05"
	logFileName       = "medguard.log"
)

// logOutputs records which [logging].output targets are switched on
type logOutputs struct {
	file    bool
	console bool
}

func parseLogOutputs(outputs []string) logOutputs {
	var o logOutputs
	for _, output := range outputs {
		switch output {
		case "file":
			o.file = true
		case "stdout", "console":
			o.console = true
		}
	}
	return o
}

func writerConfig(config *Config) models.WriterConfiguration {
	timeFormat := config.Logging.TimeFormat
	if timeFormat == "" {
		timeFormat = defaultTimeFormat
	}
	return models.WriterConfiguration{
		TimeFormat: timeFormat,
		TextOutput: config.Logging.Format != "json",
	}
}

// InitLogger builds the arbor logger from [logging]. File output goes to
// logs/medguard.log beside the executable.
func InitLogger(config *Config) arbor.ILogger {
	logger := arbor.NewLogger()
	outputs := parseLogOutputs(config.Logging.Output)

	if outputs.file {
		if logsDir, err := logDirectory(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: file logging disabled: %v\n", err)
		} else {
			fileWriter := writerConfig(config)
			fileWriter.Type = models.LogWriterTypeFile
			fileWriter.FileName = filepath.Join(logsDir, logFileName)
			fileWriter.MaxSize = 100 * 1024 * 1024
			fileWriter.MaxBackups = 3
			logger = logger.WithFileWriter(fileWriter)
		}
	}

	if outputs.console || !outputs.file {
		consoleWriter := writerConfig(config)
		consoleWriter.Type = models.LogWriterTypeConsole
		logger = logger.WithConsoleWriter(consoleWriter)
	}

	logger = logger.WithLevelFromString(config.Logging.Level)
	logger.Debug().
		Bool("file_output", outputs.file).
		Bool("console_output", outputs.console).
		Str("level", config.Logging.Level).
		Msg("Logger initialised")

	return logger
}

func logDirectory() (string, error) {
	execPath, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %w", err)
	}
	logsDir := filepath.Join(filepath.Dir(execPath), "logs")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create logs directory: %w", err)
	}
	return logsDir, nil
}

// NewStdioLogger returns a warn-level console logger for processes whose stdout is a protocol channel
func NewStdioLogger() arbor.ILogger {
	return arbor.NewLogger().WithConsoleWriter(models.WriterConfiguration{
		Type:       models.LogWriterTypeConsole,
		TimeFormat: defaultTimeFormat,
	}).WithLevelFromString("warn")
}

// GetLogFilePath returns the file the logger writes to, or "" for console only
func GetLogFilePath(logger arbor.ILogger) string {
	if logger == nil {
		return ""
	}
	return logger.GetLogFilePath()
}
