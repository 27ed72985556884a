package history

import "context"

// Store persists run entries.
type Store interface {
	// Save stores an entry, replacing any entry with the same run id.
	Save(ctx context.Context, entry Entry) error
	// Get returns the entry for runID or ErrRunNotFound.
	Get(ctx context.Context, runID string) (Entry, error)
	// List returns entries newest first.
	List(ctx context.Context, filter Filter) ([]Entry, error)
	Close() error
}
