// Package journal records verification attempts and emulator decisions.
package journal

import (
	"sync"
	"time"
)

// Attempt is one verification attempt for a (rule, test case) pair.
type Attempt struct {
	Timestamp time.Time `json:"timestamp"`
	Phase     string    `json:"phase"`
	Rule      string    `json:"rule"`
	TestCase  string    `json:"test_case"`
	Number    int       `json:"attempt"`
	Observed  int       `json:"observed"`
	Expected  int       `json:"expected"`
	Tolerance int       `json:"tolerance"`
	Passed    bool      `json:"passed"`
	Error     string    `json:"error,omitempty"`
}

// PhaseResult is the outcome of one phase of a run.
type PhaseResult struct {
	Name     string        `json:"name"`
	Rules    int           `json:"rules"`
	Checks   int           `json:"checks"`
	Passed   bool          `json:"passed"`
	Duration time.Duration `json:"duration"`
	Failure  string        `json:"failure,omitempty"`
}

// Run is the record of one complete harness run.
type Run struct {
	ID       string        `json:"id"`
	Started  time.Time     `json:"started"`
	Finished time.Time     `json:"finished"`
	Phases   []PhaseResult `json:"phases"`
	Attempts []Attempt     `json:"attempts"`
	// AttemptsDropped counts attempts overwritten in a full journal.
	AttemptsDropped int    `json:"attempts_dropped,omitempty"`
	Passed          bool   `json:"passed"`
	Failure         string `json:"failure,omitempty"`
}

// Decision is one sampling decision taken by the emulator.
type Decision struct {
	Timestamp   time.Time `json:"timestamp"`
	ServiceName string    `json:"service_name"`
	Method      string    `json:"method"`
	Target      string    `json:"target"`
	Rule        string    `json:"rule,omitempty"`
	Borrowed    bool      `json:"borrowed"`
	Sampled     bool      `json:"sampled"`
}

// Summary aggregates attempts.
type Summary struct {
	Attempts int
	Passed   int
	Failed   int
	Errors   int
}

// RingBuffer is a concurrent-safe fixed-size ring buffer.
type RingBuffer[T any] struct {
	mu      sync.RWMutex
	entries []T
	size    int
	head    int
	count   int
	total   int
}

// NewRingBuffer creates a ring buffer that holds up to size entries.
func NewRingBuffer[T any](size int) *RingBuffer[T] {
	if size <= 0 {
		size = 100
	}
	return &RingBuffer[T]{
		entries: make([]T, size),
		size:    size,
	}
}

// Add appends an entry, overwriting the oldest if full.
func (rb *RingBuffer[T]) Add(e T) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.entries[rb.head] = e
	rb.head = (rb.head + 1) % rb.size
	if rb.count < rb.size {
		rb.count++
	}
	rb.total++
}

// Last returns the last n entries in chronological order.
func (rb *RingBuffer[T]) Last(n int) []T {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if n > rb.count {
		n = rb.count
	}
	if n <= 0 {
		return nil
	}

	result := make([]T, n)
	start := (rb.head - n + rb.size) % rb.size
	for i := range n {
		result[i] = rb.entries[(start+i)%rb.size]
	}
	return result
}

// Count returns the number of entries currently stored.
func (rb *RingBuffer[T]) Count() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.count
}

// Total returns the number of entries ever added, including overwritten ones.
func (rb *RingBuffer[T]) Total() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.total
}

// Summarize aggregates the given attempts.
func Summarize(attempts []Attempt) Summary {
	var s Summary
	for _, a := range attempts {
		s.Attempts++
		switch {
		case a.Passed:
			s.Passed++
		case a.Error != "":
			s.Errors++
		default:
			s.Failed++
		}
	}
	return s
}
