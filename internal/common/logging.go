// Package common provides shared utilities for the MGNREGA portal.
package common

import (
	"os"
	"strings"

	"github.com/phuslu/log"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
	"github.com/ternarybob/arbor/writers"
)

// LoggingConfig holds the logger settings the portal binaries pass in.
type LoggingConfig struct {
	Level      string
	Outputs    []string
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
}

func (c LoggingConfig) level() string {
	if c.Level == "" {
		return "info"
	}
	return strings.ToLower(c.Level)
}

func (c LoggingConfig) outputs() []string {
	if len(c.Outputs) == 0 {
		return []string{"console"}
	}
	return c.Outputs
}

// Logger is the portal's structured logger.
type Logger struct {
	arbor.ILogger
}

// discardWriter drops everything written to it.
type discardWriter struct{}

func (w *discardWriter) Write(p []byte) (int, error)           { return len(p), nil }
func (w *discardWriter) WithLevel(_ log.Level) writers.IWriter { return w }
func (w *discardWriter) GetFilePath() string                   { return "" }
func (w *discardWriter) Close() error                          { return nil }

// Defaults for the file writer.
const (
	defaultLogFile    = "logs/mgnrega-portal.log"
	defaultMaxSize    = 500 * 1024
	defaultMaxBackups = 20
	logTimeFormat     = "2006-01-02T15:04:05Z07:00"
)

// NewConsoleLogger creates a logger writing to stderr only. Stdout stays
// free for command output.
func NewConsoleLogger(level string) *Logger {
	return NewLoggerFromConfig(LoggingConfig{Level: level, Outputs: []string{"console"}})
}

// NewLoggerFromConfig creates a logger configured from LoggingConfig.
// Outputs may name "console" (stderr) and "file"; a memory writer is
// always attached.
func NewLoggerFromConfig(cfg LoggingConfig) *Logger {
	l := arbor.NewLogger()
	for _, out := range cfg.outputs() {
		switch out {
		case "console":
			l = l.WithConsoleWriter(consoleWriterConfig())
		case "file":
			l = l.WithFileWriter(fileWriterConfig(cfg))
		}
	}

	l = l.WithMemoryWriter(models.WriterConfiguration{
		Type: models.LogWriterTypeMemory,
	}).WithLevelFromString(cfg.level())

	return &Logger{ILogger: l}
}

func consoleWriterConfig() models.WriterConfiguration {
	return models.WriterConfiguration{
		Type:       models.LogWriterTypeConsole,
		Writer:     os.Stderr,
		TimeFormat: logTimeFormat,
	}
}

func fileWriterConfig(cfg LoggingConfig) models.WriterConfiguration {
	path := cfg.FilePath
	if path == "" {
		path = defaultLogFile
	}
	maxSize := int64(cfg.MaxSizeMB) * 1024 * 1024
	if maxSize <= 0 {
		maxSize = defaultMaxSize
	}
	maxBackups := cfg.MaxBackups
	if maxBackups <= 0 {
		maxBackups = defaultMaxBackups
	}
	return models.WriterConfiguration{
		Type:       models.LogWriterTypeFile,
		FileName:   path,
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
		TimeFormat: logTimeFormat,
	}
}

// NewSilentLogger returns a logger for tests. Its explicit discard writer
// keeps output away from arbor's globally registered writers.
func NewSilentLogger() *Logger {
	return &Logger{ILogger: arbor.NewLogger().WithWriters([]writers.IWriter{&discardWriter{}})}
}

// WithCorrelationId returns a new Logger tagged with a request correlation ID.
func (l *Logger) WithCorrelationId(id string) *Logger {
	return &Logger{ILogger: l.ILogger.WithCorrelationId(id)}
}
