package flow

import "fmt"

// TaskError tags an error with the name of the flow task it originated
// from, so a flow-completed observer can tell which task first failed
// without re-deriving it from RunResult.
type TaskError struct {
	TaskName string
	Cause    error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("flow: task %q failed: %v", e.TaskName, e.Cause)
}

func (e *TaskError) Unwrap() error { return e.Cause }

func taggedError(taskName string, err error) error {
	if err == nil {
		return nil
	}
	return &TaskError{TaskName: taskName, Cause: err}
}
