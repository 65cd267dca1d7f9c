package orchestrator

import "fmt"

// ProgressReporter emits progress events through a buffered channel.
type ProgressReporter struct {
	ch chan ProgressEvent
}

// NewProgressReporter creates a ProgressReporter with a buffered channel of size 64.
func NewProgressReporter() *ProgressReporter {
	return &ProgressReporter{
		ch: make(chan ProgressEvent, 64),
	}
}

// Emit sends a progress event in a non-blocking fashion.
// If the channel is full, the event is silently dropped.
func (pr *ProgressReporter) Emit(event ProgressEvent) {
	select {
	case pr.ch <- event:
	default:
	}
}

// Subscribe returns a read-only channel for consuming progress events.
func (pr *ProgressReporter) Subscribe() <-chan ProgressEvent {
	return pr.ch
}

// Close closes the progress event channel.
func (pr *ProgressReporter) Close() {
	close(pr.ch)
}

// FormatProgress formats a ProgressEvent as a human-readable status line.
func FormatProgress(event ProgressEvent) string {
	switch event.Status {
	case ProgressPending:
		return fmt.Sprintf("  ○ %s (pending)", event.Topic)
	case ProgressWorking:
		if event.Topic == "" {
			// round header
			return event.Message
		}
		return fmt.Sprintf("  ● %s...", event.Topic)
	case ProgressCached:
		return fmt.Sprintf("  ✓ %s (cached)", event.Topic)
	case ProgressComplete:
		if event.Message != "" {
			return fmt.Sprintf("  ✓ %s complete: %s", event.Topic, event.Message)
		}
		return fmt.Sprintf("  ✓ %s complete", event.Topic)
	case ProgressFailed:
		return fmt.Sprintf("  ✗ %s failed: %s", event.Topic, event.Message)
	case ProgressMerging:
		return fmt.Sprintf("  ↻ merging %s", event.Message)
	default:
		return fmt.Sprintf("  ? %s (unknown status)", event.Topic)
	}
}

// FormatRoundHeader formats a round header for display.
// Returns: "Round {N}/{max}: {topics} topic(s)"
func FormatRoundHeader(round, maxRounds, topics int) string {
	noun := "topics"
	if topics == 1 {
		noun = "topic"
	}
	return fmt.Sprintf("Round %d/%d: %d %s", round, maxRounds, topics, noun)
}

// emit is Emit on a possibly nil reporter.
func (pr *ProgressReporter) emit(event ProgressEvent) {
	if pr != nil {
		pr.Emit(event)
	}
}
