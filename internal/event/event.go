package event

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/quorix-labs/botlink/internal/domain"
)

// Type represents the type of an event
type Type string

// Metadata defines the type for event metadata
type Metadata interface{}

// Event represents a generic event in the system
type Event struct {
	Version  string      `json:"version"` // Event schema version (e.g., "1.0")
	Type     Type        `json:"type"`
	Payload  interface{} `json:"payload"`
	Metadata Metadata    `json:"metadata"`
}

// Event types published by the session supervisor core.
const (
	// IncomingMessage is one inbound user message from a live listener.
	IncomingMessage Type = "link.message.incoming"

	// LinkActivated fires once when SubmitCode promotes a link to active.
	LinkActivated Type = "link.activated"

	// LinkRevoked fires when Unlink soft-deletes a link.
	LinkRevoked Type = "link.revoked"

	// LinkDeauthorized fires when the external account revoked our session.
	LinkDeauthorized Type = "link.deauthorized"

	// MessageDropped fires instead of IncomingMessage when a listener's
	// mailbox is full. Backpressure signal, not an error.
	MessageDropped Type = "link.message.dropped"
)

// Typed event payloads for type safety

// IncomingMessagePayloadV1 is one inbound user message routed off a listener.
type IncomingMessagePayloadV1 struct {
	LinkID                 string    `json:"link_id"`
	BotID                  string    `json:"bot_id"`
	ExternalConversationID string    `json:"external_conversation_id"`
	SenderExternalID       string    `json:"sender_external_id"`
	SenderDisplay          string    `json:"sender_display,omitempty"`
	Body                   string    `json:"body"`
	ReceivedAt             time.Time `json:"received_at"`
}

// LinkLifecyclePayloadV1 is shared by activation and revocation events.
type LinkLifecyclePayloadV1 struct {
	LinkID   string          `json:"link_id"`
	BotID    string          `json:"bot_id"`
	Platform domain.Platform `json:"platform"`
}

// LinkDeauthorizedPayloadV1 carries the reason the network rejected the session.
type LinkDeauthorizedPayloadV1 struct {
	LinkID   string          `json:"link_id"`
	BotID    string          `json:"bot_id"`
	Platform domain.Platform `json:"platform"`
	Reason   string          `json:"reason"`
}

// MessageDroppedPayloadV1 reports mailbox overflow on one listener.
// DropCounter increases monotonically for the lifetime of the listener.
type MessageDroppedPayloadV1 struct {
	LinkID      string `json:"link_id"`
	DropCounter uint64 `json:"drop_counter"`
}

// Type-safe event constructors

// NewIncomingMessageEvent creates a new incoming message event
func NewIncomingMessageEvent(p IncomingMessagePayloadV1) Event {
	return Event{
		Version: EventSchemaVersion,
		Type:    IncomingMessage,
		Payload: p,
	}
}

// NewLinkActivatedEvent creates a new link activated event
func NewLinkActivatedEvent(linkID, botID string, platform domain.Platform) Event {
	return Event{
		Version: EventSchemaVersion,
		Type:    LinkActivated,
		Payload: LinkLifecyclePayloadV1{
			LinkID:   linkID,
			BotID:    botID,
			Platform: platform,
		},
	}
}

// NewLinkRevokedEvent creates a new link revoked event
func NewLinkRevokedEvent(linkID, botID string, platform domain.Platform) Event {
	return Event{
		Version: EventSchemaVersion,
		Type:    LinkRevoked,
		Payload: LinkLifecyclePayloadV1{
			LinkID:   linkID,
			BotID:    botID,
			Platform: platform,
		},
	}
}

// NewLinkDeauthorizedEvent creates a new link deauthorized event
func NewLinkDeauthorizedEvent(linkID, botID string, platform domain.Platform, reason string) Event {
	return Event{
		Version: EventSchemaVersion,
		Type:    LinkDeauthorized,
		Payload: LinkDeauthorizedPayloadV1{
			LinkID:   linkID,
			BotID:    botID,
			Platform: platform,
			Reason:   reason,
		},
	}
}

// NewMessageDroppedEvent creates a new message dropped event
func NewMessageDroppedEvent(linkID string, dropCounter uint64) Event {
	return Event{
		Version: EventSchemaVersion,
		Type:    MessageDropped,
		Payload: MessageDroppedPayloadV1{
			LinkID:      linkID,
			DropCounter: dropCounter,
		},
	}
}

// Handler is a function that handles an event
type Handler func(ctx context.Context, event Event) error

// Bus defines the interface for an event bus
type Bus interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType Type, handler Handler)
}

// MemoryBus is an in-memory implementation of the Event Bus
type MemoryBus struct {
	handlers map[Type][]Handler
	mu       sync.RWMutex
}

// NewMemoryBus creates a new MemoryBus
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		handlers: make(map[Type][]Handler),
	}
}

// Publish publishes an event to all subscribers
func (b *MemoryBus) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	handlers, ok := b.handlers[event.Type]
	b.mu.RUnlock()

	if !ok {
		return nil
	}

	var errs []error
	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf(LogMsgHandlerErrorFormat, len(errs), event.Type, errs)
	}

	return nil
}

// Subscribe subscribes a handler to an event type
func (b *MemoryBus) Subscribe(eventType Type, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
}
