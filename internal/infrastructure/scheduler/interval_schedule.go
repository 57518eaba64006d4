package scheduler

import (
	"fmt"
	"time"
)

// IntervalSchedule runs a job at a fixed interval. A non-zero Offset delays
// the first run relative to registration.
type IntervalSchedule struct {
	Interval time.Duration
	Offset   time.Duration
	started  bool
}

// Every creates an IntervalSchedule.
func Every(interval time.Duration) *IntervalSchedule {
	return &IntervalSchedule{Interval: interval}
}

// WithOffset shifts the first run by d, spreading jobs that share an interval.
func (s *IntervalSchedule) WithOffset(d time.Duration) *IntervalSchedule {
	s.Offset = d
	return s
}

// Next returns the next scheduled time.
func (s *IntervalSchedule) Next(t time.Time) time.Time {
	if !s.started {
		s.started = true
		if s.Offset > 0 {
			return t.Add(s.Offset)
		}
	}
	return t.Add(s.Interval)
}

// String returns the string representation of the schedule.
func (s *IntervalSchedule) String() string {
	return fmt.Sprintf("@every %s", s.Interval.String())
}
