package flow

import "fmt"

// computeLevels assigns each task a topological level (0 for tasks with no
// dependencies, 1 + max(dependency levels) otherwise), detecting both
// unknown dependency names and cycles. It caps recursion depth at
// 2*len(tasks): any acyclic DAG over n tasks has height at most n-1, so
// exceeding twice that can only mean a cycle. Callers hold f.mu.
func (f *Flow) computeLevels() (map[string]int, error) {
	levels := make(map[string]int, len(f.tasks))
	limit := 2 * len(f.tasks)

	var resolve func(name string, stack map[string]bool) (int, error)
	resolve = func(name string, stack map[string]bool) (int, error) {
		if lv, ok := levels[name]; ok {
			return lv, nil
		}
		if stack[name] {
			return 0, fmt.Errorf("flow: dependency cycle through task %q", name)
		}
		spec, ok := f.tasks[name]
		if !ok {
			return 0, fmt.Errorf("flow: unknown dependency %q", name)
		}
		stack[name] = true
		lv := 0
		for _, d := range spec.deps {
			dl, err := resolve(d, stack)
			if err != nil {
				return 0, err
			}
			if dl+1 > lv {
				lv = dl + 1
			}
			if lv > limit {
				return 0, fmt.Errorf("flow: dependency depth exceeds %d tasks, likely a cycle", limit)
			}
		}
		delete(stack, name)
		levels[name] = lv
		return lv, nil
	}

	for _, name := range f.order {
		if _, err := resolve(name, make(map[string]bool)); err != nil {
			return nil, err
		}
	}
	return levels, nil
}
