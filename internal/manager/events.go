package manager

// Event represents a manager lifecycle or request event.
// Minimal and stable: name, mode and optional fields via key/values.
type Event struct {
	Name   string
	Mode   string
	Fields map[string]any
}

// Event names.
const (
	EventLoaded          = "session.loaded"
	EventLoadFailed      = "session.load_failed"
	EventReset           = "session.reset"
	EventResetFailed     = "session.reset_failed"
	EventClosed          = "session.closed"
	EventReflected       = "reflect.completed"
	EventFailed          = "reflect.failed"
	EventQuestionSkipped = "guiding.skipped"
)

// EventPublisher receives events from the manager. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

// LogPublisher forwards events to the manager's structured logger at debug
// level. It is what the server wires in by default.
type LogPublisher struct{ log func(Event) }

// NewLogPublisher returns a publisher calling fn for every event.
func NewLogPublisher(fn func(Event)) LogPublisher { return LogPublisher{log: fn} }

func (p LogPublisher) Publish(e Event) {
	if p.log != nil {
		p.log(e)
	}
}
