// Package publisher defines the capability contract every publishing platform
// adapter implements, plus the error classification the retry policy relies on.
package publisher

import (
	"context"

	"github.com/pressline/pressline/pkg/models"
)

// Adapter publishes articles to one platform. Adapters are stateless with
// respect to workflow identity: credentials and target options arrive in the
// per-call config, never cached per workflow. Publish must be safe to call
// more than once for the same idempotency token; suppressing the duplicate
// side effect is the adapter's responsibility.
type Adapter interface {
	// ID returns the platform key the adapter is registered under.
	ID() string

	// Validate checks a target configuration before any publish attempt, so a
	// malformed target fails fast without consuming a generation result.
	Validate(ctx context.Context, config map[string]any) error

	// Publish pushes the article to the platform and returns the external
	// reference of the created artifact.
	Publish(ctx context.Context, article *models.Article, config map[string]any, idempotencyToken string) (*Outcome, error)
}

// Outcome is the normalized result of a successful publish call.
type Outcome struct {
	// ExternalRef points at the created artifact, typically a post URL or ID.
	ExternalRef string `json:"external_ref"`
}
