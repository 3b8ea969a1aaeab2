// Package graph implements traversal over the SOP dependency graph:
// reachability, cycle detection and direct neighbour lookups.
//
// Every operation is a pure function of the graph it is given. Traversal
// state is passed explicitly through the recursion, so a *models.Graph may be
// shared by concurrent readers as long as nobody mutates it.
package graph

import (
	"errors"
	"fmt"
)

// ErrNodeNotFound is returned when an entry point names a node that is not in
// the graph.
var ErrNodeNotFound = errors.New("node not found")

// NotFoundError carries the missing id and the ids that do exist, so callers
// can present alternatives.
type NotFoundError struct {
	ID        string
	Available []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("node %q not found in graph (%d nodes available)", e.ID, len(e.Available))
}

func (e *NotFoundError) Unwrap() error {
	return ErrNodeNotFound
}
