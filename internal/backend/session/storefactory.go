package session

import (
	"fmt"
	"log/slog"
	"time"
)

const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// NewStore builds the session store named by storeType. The connection string
// is ignored for the memory store.
func NewStore(storeType, connectionString string, ttl time.Duration) (Store, error) {
	var (
		store Store
		err   error
	)
	switch storeType {
	case "", StoreMemory:
		store = NewMemoryStore(ttl)
	case StoreSQLite:
		store, err = NewSQLiteStore(connectionString, ttl)
	case StoreRedis:
		store, err = NewRedisStore(connectionString, ttl)
	default:
		return nil, fmt.Errorf("unsupported session store: %s", storeType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s session store: %w", storeType, err)
	}

	slog.Info("session store initialized", "type", storeType, "ttl", ttl)
	return store, nil
}
