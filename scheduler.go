package wanikache

import (
	"sync"
)

// RequestScheduler gates how many fetches may be outstanding against the
// remote API at once. Admission is strictly FIFO up to the concurrency cap;
// completion order depends on network latency. Queued tasks are never
// cancelled: a task either runs or the process exits.
type RequestScheduler struct {
	mu       sync.Mutex
	inFlight int
	max      int
	queue    []chan struct{}
	metrics  *MetricsCollector
	logger   Logger
	debug    *DebugConfig
}

// defaultMaxConcurrent bounds simultaneous requests to stay well inside the
// remote rate limit.
const defaultMaxConcurrent = 3

// NewRequestScheduler creates a scheduler admitting at most max concurrent
// tasks.
func NewRequestScheduler(max int) *RequestScheduler {
	if max <= 0 {
		max = defaultMaxConcurrent
	}
	return &RequestScheduler{max: max}
}

// Do admits the task when a slot frees up, runs it, and hands the slot to the
// next queued task on completion.
func (s *RequestScheduler) Do(fn func() (*fetchOutcome, error)) (*fetchOutcome, error) {
	s.acquire()
	defer s.release()
	return fn()
}

func (s *RequestScheduler) acquire() {
	s.mu.Lock()
	if s.inFlight < s.max && len(s.queue) == 0 {
		s.inFlight++
		s.mu.Unlock()
		return
	}

	ready := make(chan struct{})
	s.queue = append(s.queue, ready)
	depth := len(s.queue)
	s.mu.Unlock()

	if s.debug != nil && s.debug.Enabled && s.debug.LogScheduler && s.logger != nil {
		s.logger.Debug("Request queued", "queueDepth", depth)
	}
	s.metrics.RecordSchedulerQueueDepth(depth)

	<-ready
}

func (s *RequestScheduler) release() {
	s.mu.Lock()
	if len(s.queue) > 0 {
		// Hand the slot to the oldest waiter; inFlight stays constant.
		ready := s.queue[0]
		s.queue = s.queue[1:]
		close(ready)
	} else {
		s.inFlight--
	}
	s.metrics.RecordSchedulerQueueDepth(len(s.queue))
	s.mu.Unlock()
}

// InFlight reports the number of currently admitted tasks.
func (s *RequestScheduler) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}
