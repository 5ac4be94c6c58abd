package utils

import (
	"os"
)

// IsInteractive checks if we're in an interactive terminal
func IsInteractive() bool {
	// Allow forcing non-interactive mode via environment variable
	if os.Getenv("PUBSITE_NON_INTERACTIVE") != "" || os.Getenv("PUBSITE_TEST_NO_INTERACTIVE") != "" {
		return false
	}

	// Check if stdin is a terminal
	fileInfo, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}
