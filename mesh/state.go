package mesh

import (
	"sync"
)

// historyLimit bounds how many past results the tracker keeps
const historyLimit = 32

// ResultTracker holds the latest solution for HTTP and websocket endpoints
// and fans updates out to subscribers.
type ResultTracker struct {
	mu          sync.RWMutex
	latest      *Solution
	history     []Result
	errors      map[string]string // source -> last error
	subscribers map[chan Result]struct{}
}

// NewResultTracker creates a new result tracker
func NewResultTracker() *ResultTracker {
	return &ResultTracker{
		errors:      make(map[string]string),
		subscribers: make(map[chan Result]struct{}),
	}
}

// Update stores a new solution and notifies subscribers. Slow subscribers
// miss updates rather than block the caller.
func (rt *ResultTracker) Update(sol *Solution) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	rt.latest = sol
	delete(rt.errors, sol.Result.Source)
	rt.history = append(rt.history, sol.Result)
	if len(rt.history) > historyLimit {
		rt.history = rt.history[len(rt.history)-historyLimit:]
	}

	for ch := range rt.subscribers {
		select {
		case ch <- sol.Result:
		default:
		}
	}
}

// RecordError remembers the last failure for a source
func (rt *ResultTracker) RecordError(source string, err error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.errors[source] = err.Error()
}

// Latest returns the most recent solution, or nil before the first solve
func (rt *ResultTracker) Latest() *Solution {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.latest
}

// LatestResult returns a copy of the most recent result
func (rt *ResultTracker) LatestResult() (Result, bool) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	if rt.latest == nil {
		return Result{}, false
	}
	return rt.latest.Result, true
}

// History returns past results, oldest first
func (rt *ResultTracker) History() []Result {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	out := make([]Result, len(rt.history))
	copy(out, rt.history)
	return out
}

// Errors returns the last error per source
func (rt *ResultTracker) Errors() map[string]string {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	out := make(map[string]string, len(rt.errors))
	for k, v := range rt.errors {
		out[k] = v
	}
	return out
}

// HasResult returns true once at least one solve succeeded
func (rt *ResultTracker) HasResult() bool {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.latest != nil
}

// Subscribe registers a channel that receives every new result. The
// returned function unregisters and closes it.
func (rt *ResultTracker) Subscribe() (<-chan Result, func()) {
	ch := make(chan Result, 4)
	rt.mu.Lock()
	rt.subscribers[ch] = struct{}{}
	rt.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			rt.mu.Lock()
			delete(rt.subscribers, ch)
			rt.mu.Unlock()
			close(ch)
		})
	}
}

// SubscriberCount returns the number of active subscribers
func (rt *ResultTracker) SubscriberCount() int {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return len(rt.subscribers)
}
