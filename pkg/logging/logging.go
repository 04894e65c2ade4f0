// Package logging provides logging for conversation sessions.
// Each session gets a structured logger; file output is stored in the
// application's config directory.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// New returns a structured logger writing to w, tagged with the component
// name.
func New(w io.Writer, component string) zerolog.Logger {
	if w == nil {
		w = os.Stdout
	}
	return zerolog.New(w).With().
		Timestamp().
		Str("component", component).
		Logger()
}

// Nop returns a logger that discards everything. Used as the default when a
// caller passes no logger.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

// NewFileLogger creates a logger writing to both stdout and a per-instance
// log file under configDir/Parley/logs. The returned closer must be called
// when the instance shuts down.
func NewFileLogger(component, instanceID string) (zerolog.Logger, func() error, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	logDir := filepath.Join(configDir, "Parley", "logs")
	if err := os.MkdirAll(logDir, 0750); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	logFileName := fmt.Sprintf("%s-%s.log", component, instanceID)
	logFilePath := filepath.Join(logDir, logFileName)

	logFile, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("failed to open log file: %w", err)
	}

	writer := zerolog.MultiLevelWriter(logFile, zerolog.ConsoleWriter{Out: os.Stdout})
	logger := zerolog.New(writer).With().
		Timestamp().
		Str("component", component).
		Str("instance", instanceID).
		Logger()

	return logger, logFile.Close, nil
}

// CleanupOldLogs removes log files older than the specified number of days.
func CleanupOldLogs(days int) error {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}

	logDir := filepath.Join(configDir, "Parley", "logs")

	entries, err := os.ReadDir(logDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // Directory doesn't exist, nothing to clean
		}
		return fmt.Errorf("failed to read log directory: %w", err)
	}

	cutoffTime := time.Now().AddDate(0, 0, -days)
	removed := 0

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		// Only process .log files
		if filepath.Ext(entry.Name()) != ".log" {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoffTime) {
			filePath := filepath.Join(logDir, entry.Name())
			if err := os.Remove(filePath); err != nil {
				log.Printf("Failed to remove old log file %s: %v", filePath, err)
			} else {
				removed++
			}
		}
	}

	if removed > 0 {
		log.Printf("Cleaned up %d old log file(s) older than %d days", removed, days)
	}

	return nil
}
