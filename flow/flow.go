package flow

import (
	"fmt"
	"regexp"
	"sync"
	"sync/atomic"

	"github.com/go-asyncflow/asyncflow/apartment"
	"github.com/go-asyncflow/asyncflow/future"
)

var taskNamePattern = regexp.MustCompile(`^[^ \t,;:&|!()\[\]*?]+$`)

// Flow is a named, mutable builder for a task dependency graph. Build it up
// with AddTask/AddFlatTask, then Run it; a Flow can be run more than once
// (each Run starts a fresh execution of the same graph, replacing the
// previous run's per-task results and futures).
type Flow struct {
	name string

	mu    sync.Mutex
	tasks map[string]*taskSpec
	order []string

	defaultApt  apartment.Apartment
	parallelism int

	userData map[string]any

	cancelRequested atomic.Bool

	runMu       sync.Mutex
	taskResults map[string]error
	taskValues  map[string]any
	taskFutures map[string]future.Future[TaskOutcome]

	observers *observerSet
}

// New creates an empty Flow identified by name (matched against the
// patterns of flow-level observers, and passed to every observer callback).
func New(name string) *Flow {
	return &Flow{
		name:      name,
		tasks:     make(map[string]*taskSpec),
		userData:  make(map[string]any),
		observers: newObserverSet(),
	}
}

// Name returns the flow's name.
func (f *Flow) Name() string { return f.name }

// SetDefaultApartment sets the apartment Run uses when called with a nil
// apartment and no per-task apartment override applies.
func (f *Flow) SetDefaultApartment(apt apartment.Apartment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.defaultApt = apt
}

// SetParallelism sets the concurrency cap Run uses when called with a
// parallelism of 0 or less. 0 (the default) means unlimited: every ready
// task may run at once.
func (f *Flow) SetParallelism(limit int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.parallelism = limit
}

// AddTask registers a task named name, depending on the tasks named in
// deps, running fn with its dependencies' produced values once all of them
// have completed successfully. apt overrides the apartment this task runs
// on; nil defers to the apartment Run (or SetDefaultApartment) chooses. The
// name must be non-empty, must not contain any of the glob/separator
// characters reserved for observer patterns, and must not depend on
// itself. It returns an error if any of those hold, or if name is already
// registered.
func (f *Flow) AddTask(name string, deps []string, apt apartment.Apartment, fn func(TaskInputs) (any, error)) error {
	return f.addTask(name, deps, apt, &taskSpec{fn: fn})
}

// AddFlatTask registers a task whose fn returns a Future instead of
// computing a value synchronously: the task is only considered complete
// once that inner future settles, the same way future.FlatThen flattens a
// Future[Future[T]] instead of requiring the continuation to already hold
// the value.
func (f *Flow) AddFlatTask(name string, deps []string, apt apartment.Apartment, fn func(TaskInputs) future.Future[any]) error {
	return f.addTask(name, deps, apt, &taskSpec{flat: true, flatFn: fn})
}

func (f *Flow) addTask(name string, deps []string, apt apartment.Apartment, spec *taskSpec) error {
	if name == "" {
		return fmt.Errorf("flow: task name must not be empty")
	}
	if !taskNamePattern.MatchString(name) {
		return fmt.Errorf("flow: task name %q contains a reserved separator/wildcard character", name)
	}
	for _, d := range deps {
		if d == name {
			return fmt.Errorf("flow: task %q cannot depend on itself", name)
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.tasks[name]; exists {
		return fmt.Errorf("flow: task %q already registered", name)
	}
	spec.name = name
	spec.deps = dedupe(deps)
	spec.apt = apt
	f.tasks[name] = spec
	f.order = append(f.order, name)
	return nil
}

// dedupe preserves input order while treating repeated dependency names as
// a single edge (SPEC_FULL.md §9: "x: a, a" is equivalent to "x: a").
func dedupe(deps []string) []string {
	if len(deps) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(deps))
	out := make([]string, 0, len(deps))
	for _, d := range deps {
		if seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	return out
}

// ObserveFlowRunning registers fn to run when a flow whose name matches
// pattern starts running, and returns an id usable with RemoveObserver.
func (f *Flow) ObserveFlowRunning(pattern string, fn func(flowName string)) uint64 {
	return f.observers.ObserveFlowRunning(pattern, fn)
}

// ObserveFlowCompleted registers fn to run when a flow whose name matches
// pattern finishes, successfully or not, and returns an id usable with
// RemoveObserver.
func (f *Flow) ObserveFlowCompleted(pattern string, fn func(flowName string, err error)) uint64 {
	return f.observers.ObserveFlowCompleted(pattern, fn)
}

// ObserveTaskRunning registers fn to run when a task whose name matches
// pattern starts running, and returns an id usable with RemoveObserver.
func (f *Flow) ObserveTaskRunning(pattern string, fn func(flowName, taskName string)) uint64 {
	return f.observers.ObserveTaskRunning(pattern, fn)
}

// ObserveTaskCompleted registers fn to run when a task whose name matches
// pattern finishes, successfully or not, and returns an id usable with
// RemoveObserver.
func (f *Flow) ObserveTaskCompleted(pattern string, fn func(flowName, taskName string, err error)) uint64 {
	return f.observers.ObserveTaskCompleted(pattern, fn)
}

// RemoveObserver deletes a previously registered observer by id, reporting
// whether one was found.
func (f *Flow) RemoveObserver(id uint64) bool {
	return f.observers.RemoveObserver(id)
}

// SetUserData stores an arbitrary value under key in the flow's free-form
// per-flow map, untouched by the engine itself — a home for state a task's
// closure or an observer wants to share without its own synchronization.
func (f *Flow) SetUserData(key string, value any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userData[key] = value
}

// GetUserData retrieves a value previously stored with SetUserData.
func (f *Flow) GetUserData(key string) (any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.userData[key]
	return v, ok
}

// TryCancel requests cooperative cancellation of the current Run. Tasks
// already dispatched still run to completion; tasks not yet dispatched
// short-circuit with a cancellation error instead of running their
// evaluator function. A request made before Run is cleared when Run starts.
// Idempotent.
func (f *Flow) TryCancel() {
	f.cancelRequested.Store(true)
}

// CancelRequested reports whether TryCancel has been called since the Flow
// was created, or since the start of the most recent Run (Run clears the
// flag at the start of each fresh execution).
func (f *Flow) CancelRequested() bool {
	return f.cancelRequested.Load()
}

// GetTaskResult returns the error (nil on success) recorded for the named
// task by the most recent Run, and whether that task actually completed
// (ran or was skipped as a cascaded failure) during that run.
func (f *Flow) GetTaskResult(name string) (error, bool) {
	f.runMu.Lock()
	defer f.runMu.Unlock()
	if f.taskResults == nil {
		return nil, false
	}
	err, ok := f.taskResults[name]
	return err, ok
}

// GetTaskValue returns the value the named task produced on its most recent
// Run, and whether it had one — false both when the task never ran and
// when it ran but failed (Value is always nil on failure).
func (f *Flow) GetTaskValue(name string) (any, bool) {
	f.runMu.Lock()
	defer f.runMu.Unlock()
	if f.taskValues == nil {
		return nil, false
	}
	v, ok := f.taskValues[name]
	return v, ok
}

// GetTaskFuture returns a future that resolves with the named task's
// TaskOutcome once the most recent Run reaches it, or false if name was
// never registered or no Run has started yet.
func (f *Flow) GetTaskFuture(name string) (future.Future[TaskOutcome], bool) {
	f.runMu.Lock()
	defer f.runMu.Unlock()
	if f.taskFutures == nil {
		return future.Future[TaskOutcome]{}, false
	}
	ft, ok := f.taskFutures[name]
	return ft, ok
}

// ForceCleanup drops all retained task, observer and user-data state,
// breaking any reference cycle formed when a task closure captured the Flow
// itself. The Flow must not be Run again afterward.
func (f *Flow) ForceCleanup() {
	f.mu.Lock()
	f.tasks = nil
	f.order = nil
	f.userData = nil
	f.mu.Unlock()

	f.observers.clear()

	f.runMu.Lock()
	f.taskResults = nil
	f.taskValues = nil
	f.taskFutures = nil
	f.runMu.Unlock()
}

// Validate checks the graph for unknown dependencies and cycles without
// running it.
func (f *Flow) Validate() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, err := f.computeLevels()
	return err
}
