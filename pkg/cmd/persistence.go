package cmd

import (
	"fmt"
	"strings"

	"github.com/pressline/pressline/pkg/persistence"
	"github.com/pressline/pressline/pkg/persistence/file"
	"github.com/pressline/pressline/pkg/persistence/memory"
	"github.com/pressline/pressline/pkg/persistence/redis"
)

// NewPersistence selects a workflow store from a database URL: redis:// for
// shared deployments, file:// for single-node durability, memory:// for
// throwaway runs. Anything without a scheme is treated as a file path.
func NewPersistence(databaseURL string) (persistence.Persistence, error) {
	switch parseProvider(databaseURL) {
	case "redis", "rediss":
		return redis.NewPersistence(databaseURL)
	case "memory":
		return memory.NewPersistence(), nil
	default:
		return file.NewPersistence(databaseURL)
	}
}

func parseProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	return provider
}

// MustNewPersistence panics on a bad database URL. Intended for startup paths
// where there is nothing to do but exit.
func MustNewPersistence(databaseURL string) persistence.Persistence {
	store, err := NewPersistence(databaseURL)
	if err != nil {
		panic(fmt.Errorf("failed to create persistence for %q: %w", databaseURL, err))
	}

	return store
}
