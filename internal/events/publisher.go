package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// SessionTopic is the single topic session events are published on;
// subscribers filter by the session_id metadata.
const SessionTopic = "exam.session.events"

// Publisher defines the interface for publishing session events.
type Publisher interface {
	PublishSessionEvent(ctx context.Context, event *SessionEvent) error
	Close() error
}

// Bus is an in-process publisher/subscriber built on Watermill's gochannel
// Pub/Sub. The engine publishes into it; the websocket handlers subscribe.
type Bus struct {
	pubsub *gochannel.GoChannel
	logger *slog.Logger
}

func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: 64},
			watermill.NewSlogLogger(logger),
		),
		logger: logger,
	}
}

// PublishSessionEvent publishes one event on the session topic.
func (b *Bus) PublishSessionEvent(ctx context.Context, event *SessionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal session event: %w", err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.Metadata.Set("event_type", string(event.Type))
	msg.Metadata.Set("session_id", event.SessionID)

	if err := b.pubsub.Publish(SessionTopic, msg); err != nil {
		b.logger.Error("Failed to publish session event",
			"event_id", event.ID,
			"event_type", event.Type,
			"error", err)
		return fmt.Errorf("failed to publish session event: %w", err)
	}
	return nil
}

// Subscribe returns a channel of raw messages on the session topic. Callers
// must Ack every message.
func (b *Bus) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, SessionTopic)
}

func (b *Bus) Close() error {
	return b.pubsub.Close()
}

// MockPublisher records events in memory for tests.
type MockPublisher struct {
	mu     sync.Mutex
	events []SessionEvent
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) PublishSessionEvent(ctx context.Context, event *SessionEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *event)
	return nil
}

func (m *MockPublisher) Close() error { return nil }

// Published returns a copy of all recorded events.
func (m *MockPublisher) Published() []SessionEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SessionEvent, len(m.events))
	copy(out, m.events)
	return out
}

// ByType returns recorded events of one type.
func (m *MockPublisher) ByType(t Type) []SessionEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []SessionEvent
	for _, ev := range m.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}
