// Package tui provides the terminal user interface for pubsite.
//
// It handles:
//   - Structured logging and status reporting (Splog)
//   - The publish progress display (using bubbletea)
//   - Confirmation prompts (using survey)
//   - Terminal styling and colors (using lipgloss)
package tui
