package warehouse

import "fmt"

// SourceUnavailableError reports a raw source file that cannot be located.
// This is fatal and aborts the run before any staging.
type SourceUnavailableError struct {
	Source string
	Path   string
	Err    error
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("source %q unavailable at %s: %v", e.Source, e.Path, e.Err)
}

func (e *SourceUnavailableError) Unwrap() error {
	return e.Err
}

// PreconditionError reports an operation requested before the pipeline
// reached the required phase.
type PreconditionError struct {
	Operation string
	Need      Phase
	Got       Phase
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s requires phase %s, pipeline is %s", e.Operation, e.Need, e.Got)
}
