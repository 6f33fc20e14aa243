package flow

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/go-asyncflow/asyncflow/apartment"
	"github.com/go-asyncflow/asyncflow/asyncresult"
	"github.com/go-asyncflow/asyncflow/future"
)

// RunResult summarizes a finished Run: Err is the first task error
// encountered (already tagged with its task name via TaskError), or nil if
// every task succeeded. FirstFailedTask is that task's name, or "".
type RunResult struct {
	FirstFailedTask string
	Err             error
}

// Run executes every task in the graph, dispatching ready tasks (those
// whose dependencies have all succeeded) with at most parallelism running
// at once, each onto its own per-task apartment override if AddTask/
// AddFlatTask set one, else apt, else the apartment set by
// SetDefaultApartment, else an ad hoc goroutine. parallelism <= 0 falls
// back to the limit set by SetParallelism, 0 meaning unlimited.
//
// A task whose dependency failed is never run — its failure cascades to
// every transitive dependent, which complete with the upstream's (tagged)
// error instead of running their own evaluator, the same way a `flat_then`
// pipe forwards an upstream error without invoking its body. Run validates
// the graph first; an invalid graph fails the returned Future immediately.
// It also clears any pending TryCancel request from a previous run, and —
// once the run is underway — TryCancel skips every task not yet dispatched
// the same way a failed dependency does.
//
// GetTaskResult, GetTaskValue and GetTaskFuture become valid for this run's
// tasks as soon as Run returns, even before the run completes.
func (f *Flow) Run(apt apartment.Apartment, parallelism int) future.Future[RunResult] {
	p := future.New[RunResult]()

	f.mu.Lock()
	if _, err := f.computeLevels(); err != nil {
		f.mu.Unlock()
		p.Reject(err)
		return p.Future()
	}
	if apt == nil {
		apt = f.defaultApt
	}
	if parallelism <= 0 {
		parallelism = f.parallelism
	}
	tasks := make(map[string]*taskSpec, len(f.tasks))
	for k, v := range f.tasks {
		tasks[k] = v
	}
	order := append([]string(nil), f.order...)
	f.mu.Unlock()

	if parallelism <= 0 {
		parallelism = len(tasks)
	}
	if parallelism < 1 {
		parallelism = 1
	}

	f.cancelRequested.Store(false)

	taskPromises := make(map[string]future.Promise[TaskOutcome], len(tasks))
	taskFutures := make(map[string]future.Future[TaskOutcome], len(tasks))
	for name := range tasks {
		pr := future.New[TaskOutcome]()
		taskPromises[name] = pr
		taskFutures[name] = pr.Future()
	}
	f.runMu.Lock()
	f.taskResults = make(map[string]error, len(tasks))
	f.taskValues = make(map[string]any, len(tasks))
	f.taskFutures = taskFutures
	f.runMu.Unlock()

	go f.run(apt, parallelism, tasks, order, taskPromises, p)
	return p.Future()
}

func (f *Flow) run(apt apartment.Apartment, parallelism int, tasks map[string]*taskSpec, order []string, taskPromises map[string]future.Promise[TaskOutcome], p future.Promise[RunResult]) {
	f.observers.notifyFlowRunning(f.name)

	indegree := make(map[string]int, len(tasks))
	dependents := make(map[string][]string, len(tasks))
	for name, spec := range tasks {
		indegree[name] = len(spec.deps)
		for _, d := range spec.deps {
			dependents[d] = append(dependents[d], name)
		}
	}

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		values    = make(map[string]any, len(tasks))
		causeOf   = make(map[string]error, len(tasks))
		firstErr  error
		firstTask string
	)
	wg.Add(len(tasks))
	sem := semaphore.NewWeighted(int64(parallelism))
	ctx := context.Background()

	// inputsFor snapshots the produced values of spec's dependencies.
	inputsFor := func(spec *taskSpec) TaskInputs {
		mu.Lock()
		defer mu.Unlock()
		in := make(TaskInputs, len(spec.deps))
		for _, d := range spec.deps {
			in[d] = values[d]
		}
		return in
	}

	// settle tags err with name, records the task's value/error as its
	// result/future, and returns the tagged error for the caller to pass
	// along to finish and the completed observers.
	settle := func(name string, value any, err error) error {
		tagged := taggedError(name, err)
		f.recordTaskOutcome(name, value, tagged)
		taskPromises[name].Resolve(TaskOutcome{Value: value, Err: tagged})
		if tagged != nil {
			mu.Lock()
			if firstErr == nil {
				firstErr = tagged
				firstTask = name
			}
			mu.Unlock()
		} else {
			mu.Lock()
			values[name] = value
			mu.Unlock()
		}
		return tagged
	}

	var finish func(name string, cause error)
	var schedule func(name string)

	schedule = func(name string) {
		spec := tasks[name]
		taskApt := spec.apt
		if taskApt == nil {
			taskApt = apt
		}
		body := func() {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				tagged := settle(name, nil, err)
				f.observers.notifyTaskCompleted(f.name, name, tagged)
				finish(name, tagged)
				return
			}
			defer sem.Release(1)

			if f.CancelRequested() {
				err := asyncresult.New(asyncresult.Cancelled, fmt.Sprintf("flow: task %q skipped, flow cancelled", name))
				tagged := settle(name, nil, err)
				f.observers.notifyTaskCompleted(f.name, name, tagged)
				finish(name, tagged)
				return
			}

			f.observers.notifyTaskRunning(f.name, name)
			value, err := runTask(spec, inputsFor(spec), taskApt)
			tagged := settle(name, value, err)
			f.observers.notifyTaskCompleted(f.name, name, tagged)
			finish(name, tagged)
		}
		if taskApt != nil {
			if _, err := taskApt.Schedule(body, apartment.PriorityNormal); err != nil {
				wg.Done()
				tagged := settle(name, nil, err)
				finish(name, tagged)
			}
			return
		}
		go body()
	}

	finish = func(name string, cause error) {
		mu.Lock()
		if cause != nil {
			causeOf[name] = cause
		}
		deps := dependents[name]
		mu.Unlock()

		for _, dep := range deps {
			mu.Lock()
			indegree[dep]--
			depCause := causeOf[name]
			if depCause != nil {
				if _, already := causeOf[dep]; !already {
					causeOf[dep] = depCause
				}
			}
			ready := indegree[dep] == 0
			skip := causeOf[dep]
			mu.Unlock()

			if !ready {
				continue
			}
			if skip != nil {
				wg.Done() // this dependent never actually executes its own fn
				f.recordTaskOutcome(dep, nil, skip)
				taskPromises[dep].Resolve(TaskOutcome{Err: skip})
				f.observers.notifyTaskCompleted(f.name, dep, skip)
				finish(dep, skip)
			} else {
				schedule(dep)
			}
		}
	}

	for _, name := range order {
		if indegree[name] == 0 {
			schedule(name)
		}
	}

	wg.Wait()
	f.observers.notifyFlowCompleted(f.name, firstErr)
	p.Resolve(RunResult{FirstFailedTask: firstTask, Err: firstErr})
}

func (f *Flow) recordTaskOutcome(name string, value any, err error) {
	f.runMu.Lock()
	defer f.runMu.Unlock()
	if f.taskResults == nil {
		f.taskResults = make(map[string]error)
	}
	if f.taskValues == nil {
		f.taskValues = make(map[string]any)
	}
	f.taskResults[name] = err
	if err == nil {
		f.taskValues[name] = value
	}
}

func runTask(spec *taskSpec, inputs TaskInputs, apt apartment.Apartment) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("flow: task %q panicked: %v", spec.name, r)
		}
	}()
	if spec.flat {
		inner := spec.flatFn(inputs)
		res := future.WaitOn(inner, apt)
		return res.Unwrap()
	}
	return spec.fn(inputs)
}
