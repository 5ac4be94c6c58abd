package tui

import (
	"os"
	"path/filepath"
)

// GetLogFilePath returns the path to the log file.
// If PUBSITE_LOG_FILE is set, uses that path.
// Otherwise, uses ~/.pubsite/logs/pubsite.log
func GetLogFilePath() string {
	if customPath := os.Getenv("PUBSITE_LOG_FILE"); customPath != "" {
		return customPath
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "pubsite.log"
	}

	return filepath.Join(homeDir, ".pubsite", "logs", "pubsite.log")
}
