// Package cmd provides common initialization for the command-line binaries.
package cmd

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/pressline/pressline/pkg/publisher/instagram"
	"github.com/pressline/pressline/pkg/publisher/wordpress"
	"github.com/pressline/pressline/pkg/registry"
)

// NewRegistry creates the adapter registry with every built-in platform
// registered.
func NewRegistry(logger *slog.Logger) *registry.Registry {
	client := &http.Client{Timeout: 30 * time.Second}

	reg := registry.NewRegistry(logger)
	reg.Register(wordpress.NewAdapter(client, logger))
	reg.Register(instagram.NewAdapter(client, logger))

	return reg
}
