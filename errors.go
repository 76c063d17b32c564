package bosun

import "fmt"

// PanicError is returned by Broadcast when a listener panics and the notifier was
// created with WithPanicRecovery.
type PanicError struct {
	// Value is the recovered panic value.
	Value any

	// Stack is the goroutine stack at the time of the panic.
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("bosun: listener panicked: %v", e.Value)
}

// Unwrap returns the panic value if it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
