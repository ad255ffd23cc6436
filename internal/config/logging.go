package config

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauern/hookwarden/internal/core"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogRotationConfig holds configuration for log rotation
type LogRotationConfig struct {
	MaxAge     int  `toml:"max_age"`     // Maximum number of days to retain log files
	MaxSize    int  `toml:"max_size"`    // Maximum size in megabytes before rotation
	MaxBackups int  `toml:"max_backups"` // Maximum number of backup files to retain
	Compress   bool `toml:"compress"`    // Whether to compress rotated files
}

// DefaultLogRotationConfig returns sensible defaults for log rotation
func DefaultLogRotationConfig() LogRotationConfig {
	return LogRotationConfig{
		MaxAge:     30,   // 30 days default retention
		MaxSize:    10,   // 10MB per file
		MaxBackups: 5,    // Keep 5 backup files
		Compress:   true, // Compress old files
	}
}

// SetupLogRotation configures log rotation for a given log file path
func SetupLogRotation(logPath string, config LogRotationConfig) *lumberjack.Logger {
	// Ensure the directory exists
	if err := os.MkdirAll(filepath.Dir(logPath), 0o750); err != nil {
		log.Printf("Failed to create log directory: %v", err)
		return nil
	}

	return &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    config.MaxSize,
		MaxBackups: config.MaxBackups,
		MaxAge:     config.MaxAge,
		Compress:   config.Compress,
		LocalTime:  true, // Use local time for timestamps
	}
}

// NewEngineLogger builds the logger for one invocation. When logging is
// disabled, or the log file cannot be prepared, the returned logger discards
// everything. The closer must be called once the invocation is done.
func NewEngineLogger(s LoggingSettings) (*core.Logger, io.Closer) {
	level, err := core.ParseLogLevel(s.Level)
	if err != nil {
		level = core.LevelInfo
	}
	if !s.Enabled {
		return core.NewLogger(io.Discard, s.Format, level), nopCloser{}
	}

	path := ExpandHome(s.Path)
	rotator := SetupLogRotation(path, s.Rotation)
	if rotator == nil {
		return core.NewLogger(io.Discard, s.Format, level), nopCloser{}
	}
	return core.NewLogger(rotator, s.Format, level), rotator
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// ExpandHome replaces a leading ~ with the home directory
func ExpandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// CleanupOldLogs manually removes log files older than the specified number of days
// This provides additional cleanup beyond lumberjack's built-in MaxAge
func CleanupOldLogs(logDir string, maxAgeDays int) (int, error) {
	if maxAgeDays <= 0 {
		return 0, nil // No cleanup if maxAge is 0 or negative
	}

	cutoff := time.Now().AddDate(0, 0, -maxAgeDays)
	removed := 0

	err := filepath.Walk(logDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		// Skip directories
		if info.IsDir() {
			return nil
		}

		// Only consider .log files and compressed log files
		if filepath.Ext(path) == ".log" || filepath.Ext(path) == ".gz" {
			if info.ModTime().Before(cutoff) {
				if err := os.Remove(path); err != nil {
					log.Printf("Failed to remove old log file %s: %v", path, err)
				} else {
					removed++
				}
			}
		}

		return nil
	})

	return removed, err
}
