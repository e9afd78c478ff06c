package depgraph

import (
	"fmt"
	"strings"
)

// CircularDependencyError reports one or more dependency cycles among the
// requested components. Order holds the best-effort order computed while
// detecting them, for diagnostics.
type CircularDependencyError struct {
	Cycles [][]string
	IDs    []string // every implicated id, in first-seen order
	Order  []string
}

func (e *CircularDependencyError) Error() string {
	parts := make([]string, 0, len(e.Cycles))
	for _, c := range e.Cycles {
		parts = append(parts, strings.Join(c, " -> "))
	}
	return fmt.Sprintf("circular dependency detected: %s (involves %s)",
		strings.Join(parts, "; "), strings.Join(e.IDs, ", "))
}
