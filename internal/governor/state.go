// Package governor schedules delays and converts failure streaks into
// mandatory pauses instead of escalating errors.
package governor

// RunState holds the counters for one crawl invocation. It is owned by the
// orchestrator and mutated only on its single control thread, so no locking
// is needed.
type RunState struct {
	RequestCount        int
	ConsecutiveFailures int
	BlockedCount        int
	DailyCount          int
}

// RecordFailure bumps the consecutive-failure counter.
func (s *RunState) RecordFailure() {
	s.ConsecutiveFailures++
}

// ResetFailures clears the consecutive-failure counter after a success.
func (s *RunState) ResetFailures() {
	s.ConsecutiveFailures = 0
}
