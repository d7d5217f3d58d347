// Package events fans checklist domain events out to in-process subscribers
// such as the log sink and outbound webhooks.
package events

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rpggio/phaseline/internal/domain/checklist"
)

const defaultBuffer = 256

// Envelope wraps an event with a delivery ID.
type Envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	ReceivedAt time.Time       `json:"received_at"`
	Payload    checklist.Event `json:"payload"`
}

// Handler consumes delivered events. Errors are logged and never retried.
type Handler interface {
	Handle(ctx context.Context, env Envelope) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, env Envelope) error

func (f HandlerFunc) Handle(ctx context.Context, env Envelope) error {
	return f(ctx, env)
}

type subscription struct {
	name    string
	filter  eventFilter
	handler Handler
}

// Bus is a buffered, non-blocking checklist.Publisher. Events are delivered
// in publish order by a single Run loop.
type Bus struct {
	queue  chan Envelope
	logger *slog.Logger

	mu   sync.RWMutex
	subs []subscription
}

// NewBus creates a bus holding up to buffer undelivered events.
func NewBus(buffer int, logger *slog.Logger) *Bus {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Bus{
		queue:  make(chan Envelope, buffer),
		logger: logger,
	}
}

// Subscribe registers a handler for the given event types. No types means
// every event.
func (b *Bus) Subscribe(name string, types []string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, subscription{name: name, filter: newEventFilter(types), handler: h})
}

// Publish enqueues evt. A full queue drops the event with a warning.
func (b *Bus) Publish(ctx context.Context, evt checklist.Event) {
	env := Envelope{
		ID:         uuid.NewString(),
		Type:       evt.EventType(),
		ReceivedAt: time.Now().UTC(),
		Payload:    evt,
	}
	select {
	case b.queue <- env:
	default:
		b.logger.WarnContext(ctx, "event dropped, queue full", "type", env.Type, "id", env.ID)
	}
}

// Run delivers events until ctx is cancelled, then drains what is already
// queued.
func (b *Bus) Run(ctx context.Context) error {
	for {
		select {
		case env := <-b.queue:
			b.dispatch(ctx, env)
		case <-ctx.Done():
			b.drain()
			return nil
		}
	}
}

func (b *Bus) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case env := <-b.queue:
			b.dispatch(ctx, env)
		default:
			return
		}
	}
}

func (b *Bus) dispatch(ctx context.Context, env Envelope) {
	b.mu.RLock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, sub := range subs {
		if !sub.filter.match(env.Type) {
			continue
		}
		if err := sub.handler.Handle(ctx, env); err != nil {
			b.logger.Warn("event delivery failed",
				"subscriber", sub.name,
				"type", env.Type,
				"id", env.ID,
				"error", err,
			)
		}
	}
}

type eventFilter struct {
	all bool
	set map[string]struct{}
}

func newEventFilter(types []string) eventFilter {
	set := make(map[string]struct{}, len(types))
	for _, t := range types {
		key := strings.TrimSpace(t)
		if key == "" {
			continue
		}
		set[key] = struct{}{}
	}
	if len(set) == 0 {
		return eventFilter{all: true}
	}
	return eventFilter{set: set}
}

func (f eventFilter) match(eventType string) bool {
	if f.all {
		return true
	}
	_, ok := f.set[eventType]
	return ok
}

// LogHandler writes every event to logger at info level.
func LogHandler(logger *slog.Logger) Handler {
	return HandlerFunc(func(ctx context.Context, env Envelope) error {
		logger.InfoContext(ctx, "checklist event", "type", env.Type, "id", env.ID, "payload", env.Payload)
		return nil
	})
}
