package timer

import "fmt"

// CallbackPanic describes a recovered panic in a timer callback.
type CallbackPanic struct {
	Name  string
	Kind  Kind
	Value any
}

func (e *CallbackPanic) Error() string {
	return fmt.Sprintf("%s %q panicked: %v", e.Kind, e.Name, e.Value)
}
