package models

import (
	"context"
	"path/filepath"

	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/pkg/kafka"
)

// StoreUpdatedHandler reloads the registry for every store.updated event
// naming its store. Events without a path apply to every searcher. A failed
// reload is logged and the message still committed: the next event or the
// file watcher retries.
func StoreUpdatedHandler(r *Registry) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[kafka.StoreUpdatedEvent](value)
		if err != nil {
			r.logger.Warn("ignoring malformed store.updated event", "error", err)
			return nil
		}
		if event.StorePath != "" && filepath.Clean(event.StorePath) != filepath.Clean(r.path) {
			r.logger.Debug("store.updated event for another store", "event_store", event.StorePath)
			return nil
		}
		if _, err := r.Reload(ctx, TriggerEvent); err != nil {
			r.logger.Warn("reload after store.updated event failed", "error", err)
		}
		return nil
	}
}
