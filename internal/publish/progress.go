package publish

import (
	"pubsite.dev/pubsite/internal/tui"
)

// ProgressReporter is an interface for reporting publish progress.
// Step indexes refer to Steps.
type ProgressReporter interface {
	StepStarted(stepIndex int, description string)
	StepCompleted(stepIndex int)
	StepFailed(stepIndex int, err error)
	StepProgress(stepIndex int, done, total int)
}

// LogReporter reports progress line by line through splog, for non-interactive output
type LogReporter struct {
	Splog *tui.Splog
}

func (r LogReporter) StepStarted(_ int, description string) {
	r.Splog.Info("%s...", description)
}

func (r LogReporter) StepCompleted(stepIndex int) {
	r.Splog.Debug("%s done", Steps[stepIndex].Description())
}

func (r LogReporter) StepFailed(stepIndex int, err error) {
	r.Splog.Debug("%s failed: %v", Steps[stepIndex].Description(), err)
}

func (r LogReporter) StepProgress(_ int, done, total int) {
	r.Splog.Debug("uploaded %d/%d files", done, total)
}

type nopReporter struct{}

func (nopReporter) StepStarted(int, string)    {}
func (nopReporter) StepCompleted(int)          {}
func (nopReporter) StepFailed(int, error)      {}
func (nopReporter) StepProgress(int, int, int) {}
