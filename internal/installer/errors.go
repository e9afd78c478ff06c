package installer

import (
	"fmt"
	"strings"
)

// ValidationError reports problems found before any mutation.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("installation is invalid: %s", strings.Join(e.Issues, "; "))
}

// StepError reports the step that failed during execution.
type StepError struct {
	Index int
	Step  Step
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s %s): %v", e.Index+1, e.Step.Type, e.Step.Path, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
