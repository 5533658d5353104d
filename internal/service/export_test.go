package service

// JobGuard exposes the scheduler's guard to the external test package.
func (s *Scheduler) JobGuard() *ExportedRunningGuard {
	return &s.guard
}
