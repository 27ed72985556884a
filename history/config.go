package history

import (
	"database/sql"
	"fmt"
)

// Drivers accepted by Config.Driver.
const (
	DriverNone   = ""
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

const defaultLimit = 1000

// Config holds history store initialization parameters.
type Config struct {
	// Driver selects the store; empty disables history.
	Driver string `json:"driver,omitempty" yaml:"driver,omitempty"`

	// Path is the SQLite database file (":memory:" allowed).
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// Limit caps the entries kept by the memory store.
	Limit int `json:"limit,omitempty" yaml:"limit,omitempty"`
}

// DefaultConfig returns the default history configuration (disabled).
func DefaultConfig() Config {
	return Config{Limit: defaultLimit}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Driver != "" {
		c.Driver = source.Driver
	}
	if source.Path != "" {
		c.Path = source.Path
	}
	if source.Limit > 0 {
		c.Limit = source.Limit
	}
}

// NewStore creates a Store from configuration. Returns a nil Store when
// Driver is empty, indicating history is disabled.
func NewStore(cfg *Config) (Store, error) {
	switch cfg.Driver {
	case DriverNone:
		return nil, nil
	case DriverMemory:
		return NewMemoryStore(cfg.Limit), nil
	case DriverSQLite:
		path := cfg.Path
		if path == "" {
			path = "flow-history.db"
		}
		db, err := sql.Open("sqlite", path)
		if err != nil {
			return nil, fmt.Errorf("open history database: %w", err)
		}
		db.SetMaxOpenConns(1)
		store, err := NewSQLiteStore(db)
		if err != nil {
			db.Close()
			return nil, err
		}
		store.owned = true
		return store, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
}
