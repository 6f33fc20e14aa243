// Package flow implements the async flow DAG engine: a named graph of tasks
// with dependency edges, executed with a bounded parallelism cap through an
// apartment, with pattern-matched observers for flow- and task-level
// lifecycle events.
package flow

import (
	"github.com/go-asyncflow/asyncflow/apartment"
	"github.com/go-asyncflow/asyncflow/future"
)

// TaskInputs maps each of a task's declared dependencies to the value it
// produced, so a task can consume its predecessors' results instead of
// merely observing that they succeeded.
type TaskInputs map[string]any

// TaskOutcome is what a task's future resolves with once the task (or a
// cascaded skip standing in for it) completes: Value is the task's produced
// value (nil on failure or for a flat task awaited only for its error), and
// Err is the (possibly cascaded and name-tagged) error, nil on success.
type TaskOutcome struct {
	Value any
	Err   error
}

// taskSpec is one node in a Flow's dependency graph. Exactly one of fn or
// flatFn is set, selected by flat.
type taskSpec struct {
	name string
	deps []string
	apt  apartment.Apartment

	flat   bool
	fn     func(TaskInputs) (any, error)
	flatFn func(TaskInputs) future.Future[any]
}
