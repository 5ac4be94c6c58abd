package tui

import (
	"sync"
)

// ProgressUpdate represents an update to publish progress
type ProgressUpdate struct {
	Type        string // "started", "completed", "failed", "progress"
	StepIndex   int
	Description string
	Error       error
	Done        int
	Total       int
}

const (
	updateStarted   = "started"
	updateCompleted = "completed"
	updateFailed    = "failed"
	updateProgress  = "progress"
)

// ChannelPublishProgressReporter implements publish.ProgressReporter using channels
type ChannelPublishProgressReporter struct {
	updates chan ProgressUpdate
	once    sync.Once
}

// NewChannelPublishProgressReporter creates a new channel-based progress reporter
func NewChannelPublishProgressReporter() *ChannelPublishProgressReporter {
	return &ChannelPublishProgressReporter{
		updates: make(chan ProgressUpdate, 100),
	}
}

// Updates returns the channel for receiving updates
func (r *ChannelPublishProgressReporter) Updates() <-chan ProgressUpdate {
	return r.updates
}

// Close closes the update channel (safe to call multiple times)
func (r *ChannelPublishProgressReporter) Close() {
	r.once.Do(func() {
		close(r.updates)
	})
}

// StepStarted reports that a step has started
func (r *ChannelPublishProgressReporter) StepStarted(stepIndex int, description string) {
	r.updates <- ProgressUpdate{
		Type:        updateStarted,
		StepIndex:   stepIndex,
		Description: description,
	}
}

// StepCompleted reports that a step has completed
func (r *ChannelPublishProgressReporter) StepCompleted(stepIndex int) {
	r.updates <- ProgressUpdate{
		Type:      updateCompleted,
		StepIndex: stepIndex,
	}
}

// StepFailed reports that a step has failed
func (r *ChannelPublishProgressReporter) StepFailed(stepIndex int, err error) {
	r.updates <- ProgressUpdate{
		Type:      updateFailed,
		StepIndex: stepIndex,
		Error:     err,
	}
}

// StepProgress reports how many items of a step are finished. Progress is
// dropped rather than blocking when the display falls behind.
func (r *ChannelPublishProgressReporter) StepProgress(stepIndex int, done, total int) {
	select {
	case r.updates <- ProgressUpdate{
		Type:      updateProgress,
		StepIndex: stepIndex,
		Done:      done,
		Total:     total,
	}:
	default:
	}
}
