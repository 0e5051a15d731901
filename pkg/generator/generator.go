// Package generator calls the external content service that drafts articles.
package generator

import (
	"context"
	"fmt"

	"github.com/pressline/pressline/pkg/models"
)

// Client is the content generation boundary the dispatcher consumes. A failed
// generation is fatal to its workflow; partial or garbled generations are not
// safely resumable, so retrying means resubmitting a whole new workflow.
type Client interface {
	Generate(ctx context.Context, params models.ContentParams) (*models.Article, error)
}

// GenerationError wraps a content service failure with a human-readable cause.
type GenerationError struct {
	Cause string
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("content generation failed: %s", e.Cause)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// NewGenerationError creates a generation failure with a cause string.
func NewGenerationError(cause string, err error) *GenerationError {
	return &GenerationError{Cause: cause, Err: err}
}
