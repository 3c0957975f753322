package timeutil

import (
	"sync"
	"time"
)

// Stopwatch totals the time spent in named stages. Chunk workers time
// their own units of work concurrently, so it is safe for concurrent use.
type Stopwatch struct {
	clock  Clock
	mu     sync.Mutex
	totals map[string]time.Duration
}

// NewStopwatch returns a Stopwatch reading c.
func NewStopwatch(c Clock) *Stopwatch {
	return &Stopwatch{clock: c, totals: make(map[string]time.Duration)}
}

// Start begins timing one unit of work in stage. The returned func stops
// it, adds the interval to the stage total and returns the interval.
// Calling it more than once adds nothing further.
func (s *Stopwatch) Start(stage string) func() time.Duration {
	t0 := s.clock.Now()
	var once sync.Once
	var d time.Duration
	return func() time.Duration {
		once.Do(func() {
			d = s.clock.Since(t0)
			s.mu.Lock()
			s.totals[stage] += d
			s.mu.Unlock()
		})
		return d
	}
}

// Total returns the accumulated time for stage.
func (s *Stopwatch) Total(stage string) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totals[stage]
}

// Totals returns a copy of every stage total.
func (s *Stopwatch) Totals() map[string]time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]time.Duration, len(s.totals))
	for k, v := range s.totals {
		out[k] = v
	}
	return out
}
