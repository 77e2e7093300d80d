package analytics

import "time"

// Mode names the engine a query ran against.
type Mode string

const (
	ModeBoolean Mode = "boolean"
	ModeVector  Mode = "vector"
)

// SearchEvent describes one answered (or rejected) query.
type SearchEvent struct {
	Mode      Mode      `json:"mode"`
	Query     string    `json:"query"`
	Terms     []string  `json:"terms,omitempty"`
	TotalHits int       `json:"total_hits"`
	Returned  int       `json:"returned"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// Failed reports whether the query was rejected.
func (e SearchEvent) Failed() bool {
	return e.Error != ""
}

// eventKey partitions analytics events by mode.
func eventKey(e SearchEvent) string {
	return "search." + string(e.Mode)
}
