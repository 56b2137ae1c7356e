package pulljoy

import "fmt"

// UnsupportedEventTypeError is returned when the engine is fed an event of a
// type it does not know.
// The webhook provider only forwards known event types, encountering this
// error means the provider and the engine disagree about the supported set,
// which is a contract violation and not a condition to ignore.
type UnsupportedEventTypeError struct {
	EventType string
}

func (e *UnsupportedEventTypeError) Error() string {
	return fmt.Sprintf("unsupported event type: %s", e.EventType)
}
