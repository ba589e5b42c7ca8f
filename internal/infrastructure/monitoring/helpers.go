package monitoring

import "sync"

// UnknownProject labels metrics for requests without a project id.
const UnknownProject = "unknown"

// ProjectLabel normalizes a project id for use as a label value.
func ProjectLabel(projectID string) string {
	if projectID == "" {
		return UnknownProject
	}
	return projectID
}

// maxTracker remembers the largest observation per key.
type maxTracker struct {
	mu   sync.Mutex
	seen map[string]float64
}

func newMaxTracker() *maxTracker {
	return &maxTracker{seen: make(map[string]float64)}
}

// observe returns the peak for key and whether v raised it.
func (t *maxTracker) observe(key string, v float64) (float64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if prev, ok := t.seen[key]; ok && v <= prev {
		return prev, false
	}
	t.seen[key] = v
	return v, true
}
