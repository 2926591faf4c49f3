package entities

import "fmt"

// The three fatal error classes. Everything else in the pipeline
// degrades to a warning and leaves the exit code alone.

// ValidationError reports a malformed scan request. Raised before any
// side effect; no workspace exists when it is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// FetchError reports a fatal clone or checkout failure.
type FetchError struct {
	Op  string // "clone" or "checkout"
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// EngineError reports an analysis-engine process exiting non-zero,
// as opposed to running cleanly and finding issues.
type EngineError struct {
	ExitCode int
	Stderr   string
}

func (e *EngineError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("engine exited with code %d: %s", e.ExitCode, e.Stderr)
	}
	return fmt.Sprintf("engine exited with code %d", e.ExitCode)
}
