package kafka

import "time"

// StoreUpdatedKey is the message key of every StoreUpdatedEvent.
const StoreUpdatedKey = "store.updated"

// StoreUpdatedEvent announces that a normalization run rewrote the
// frequency store. Searchers rebuild their engines when they see one for the
// store path they serve.
type StoreUpdatedEvent struct {
	StorePath string    `json:"store_path"`
	Documents int       `json:"documents"`
	Terms     int       `json:"terms"`
	Failed    []string  `json:"failed,omitempty"`
	Appended  bool      `json:"appended"`
	Timestamp time.Time `json:"timestamp"`
}
