package session

import "fmt"

// ExecutionError is one command run that exited non-zero.
type ExecutionError struct {
	Attempt Attempt
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("command exited with status %d: %s", e.Attempt.ExitCode, e.Attempt.Command)
}

// ExhaustedError is returned when every attempt up to the ceiling failed.
// It carries the full attempt history so callers can render what was
// tried and why each try failed.
type ExhaustedError struct {
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("no working command after %d attempts", len(e.Attempts))
}

// Unwrap exposes each executed failure as an ExecutionError so callers
// can inspect individual attempts with errors.As.
func (e *ExhaustedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, attempt := range e.Attempts {
		if attempt.Command == "" {
			continue
		}
		errs = append(errs, &ExecutionError{Attempt: attempt})
	}
	return errs
}

// AbortError marks a run the user ended on purpose, either by declining
// the confirmation prompt or by interrupting a running command.
type AbortError struct {
	Err error
}

func (e *AbortError) Error() string {
	if e.Err != nil {
		return "aborted: " + e.Err.Error()
	}
	return "aborted"
}

func (e *AbortError) Unwrap() error { return e.Err }
