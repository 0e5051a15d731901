package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/pressline/pressline/pkg/eventbus"
	"github.com/pressline/pressline/pkg/events"
)

// EventBus is a mock implementation of eventbus.EventBus.
type EventBus struct {
	mock.Mock
}

func (m *EventBus) Publish(ctx context.Context, key string, event eventbus.Event) error {
	args := m.Called(ctx, key, event)

	return args.Error(0)
}

func (m *EventBus) Handle(eventType events.EventType, handler eventbus.EventHandler) {
	m.Called(eventType, handler)
}

func (m *EventBus) Subscribe(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *EventBus) Close() error {
	args := m.Called()

	return args.Error(0)
}

func (m *EventBus) GenerateID() string {
	args := m.Called()

	return args.String(0)
}
