package convert

import "sync"

// LogRing is a bounded buffer of the most recent diagnostic lines from the
// encoder's error stream. Oldest lines are evicted first.
type LogRing struct {
	mu    sync.Mutex
	lines []string
	cap   int
	start int
	count int
}

// NewLogRing creates a ring with the given fixed capacity.
func NewLogRing(capacity int) *LogRing {
	if capacity <= 0 {
		capacity = 1
	}
	return &LogRing{
		lines: make([]string, capacity),
		cap:   capacity,
	}
}

// Push appends one line, evicting the oldest when full.
func (r *LogRing) Push(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.count < r.cap {
		r.lines[(r.start+r.count)%r.cap] = line
		r.count++
		return
	}
	r.lines[r.start] = line
	r.start = (r.start + 1) % r.cap
}

// Lines returns the buffered lines in arrival order.
func (r *LogRing) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, r.count)
	for i := 0; i < r.count; i++ {
		out = append(out, r.lines[(r.start+i)%r.cap])
	}
	return out
}
