package ipc

import "fmt"

// ProgrammingError is the panic value for codec misuse: ordering violations,
// overlapping builds, and malformed Method declarations.
type ProgrammingError struct {
	Op  string
	Msg string
}

func (e *ProgrammingError) Error() string {
	return fmt.Sprintf("ipc: %s: %s", e.Op, e.Msg)
}

func misuse(op, format string, args ...any) {
	panic(&ProgrammingError{Op: op, Msg: fmt.Sprintf(format, args...)})
}
