package manager

import "github.com/rs/zerolog"

// Event represents a worker lifecycle event.
// Minimal and stable: name + model ID and optional fields via key/values.
type Event struct {
	Name    string
	ModelID string
	Fields  map[string]any
}

// Event names.
const (
	EventWorkerCreated   = "worker_created"
	EventWorkerFallback  = "worker_fallback"
	EventWorkerReused    = "worker_reused"
	EventWorkerReleased  = "worker_released"
	EventWorkerDisposed  = "worker_disposed"
	EventWorkerEvicted   = "worker_evicted"
	EventReapDone        = "reap_done"
	EventBackendDegraded = "backend_degraded"
)

// EventPublisher receives events from the manager. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

// LogPublisher writes each event as a debug line.
type LogPublisher struct{ log zerolog.Logger }

func NewLogPublisher(log zerolog.Logger) *LogPublisher {
	return &LogPublisher{log: log.With().Str("category", "events").Logger()}
}

func (p *LogPublisher) Publish(e Event) {
	ev := p.log.Debug().Str("event", e.Name)
	if e.ModelID != "" {
		ev = ev.Str("model", e.ModelID)
	}
	if len(e.Fields) > 0 {
		ev = ev.Fields(e.Fields)
	}
	ev.Msg("event")
}
