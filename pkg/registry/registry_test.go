package registry

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pressline/pressline/pkg/models"
	"github.com/pressline/pressline/pkg/publisher"
)

type stubAdapter struct {
	id string
}

func (s *stubAdapter) ID() string {
	return s.id
}

func (s *stubAdapter) Validate(_ context.Context, _ map[string]any) error {
	return nil
}

func (s *stubAdapter) Publish(_ context.Context, _ *models.Article, _ map[string]any, _ string) (*publisher.Outcome, error) {
	return &publisher.Outcome{ExternalRef: "ref-" + s.id}, nil
}

func TestRegistry_RegisterAndResolve(t *testing.T) {
	reg := NewRegistry(slog.Default())
	reg.Register(&stubAdapter{id: "wordpress"})
	reg.Register(&stubAdapter{id: "instagram"})

	adapter, err := reg.Resolve("wordpress")
	require.NoError(t, err)
	assert.Equal(t, "wordpress", adapter.ID())
}

func TestRegistry_Resolve_Unknown(t *testing.T) {
	reg := NewRegistry(slog.Default())

	adapter, err := reg.Resolve("myspace")
	assert.Nil(t, adapter)
	assert.ErrorIs(t, err, ErrUnknownPlatform)
	assert.Contains(t, err.Error(), "myspace")
}

func TestRegistry_Platforms(t *testing.T) {
	reg := NewRegistry(slog.Default())
	reg.Register(&stubAdapter{id: "wordpress"})
	reg.Register(&stubAdapter{id: "instagram"})

	assert.Equal(t, []string{"instagram", "wordpress"}, reg.Platforms())
}

func TestRegistry_HealthCheck(t *testing.T) {
	reg := NewRegistry(slog.Default())

	_, ok := reg.HealthCheck()
	assert.False(t, ok)

	reg.Register(&stubAdapter{id: "wordpress"})

	msg, ok := reg.HealthCheck()
	assert.True(t, ok)
	assert.Contains(t, msg, "1 publisher adapters")
}
