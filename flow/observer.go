package flow

import (
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
)

// patternSeparators splits an observer pattern into its comma/semicolon/
// pipe/whitespace-separated glob items.
var patternSeparators = regexp.MustCompile(`[,;|\s]+`)

// compilePattern turns a pattern — a separator-delimited list of glob items
// using "*" (any run of characters) and "?" (exactly one character) — into
// a single anchored regexp: each item becomes one alternative, wildcards
// translate to their regexp equivalents, and every other rune is matched
// literally. "a.b.*, a.x.?" matches "a.b.c.d" and "a.x.y" but not "a.x.yy".
func compilePattern(pattern string) *regexp.Regexp {
	items := patternSeparators.Split(strings.TrimSpace(pattern), -1)
	alts := make([]string, 0, len(items))
	for _, item := range items {
		if item == "" {
			continue
		}
		alts = append(alts, compileGlobItem(item))
	}
	if len(alts) == 0 {
		alts = append(alts, compileGlobItem(pattern))
	}
	return regexp.MustCompile("^(?:" + strings.Join(alts, "|") + ")$")
}

// compileGlobItem translates one glob item into a regexp fragment: "*"
// becomes ".*", "?" becomes ".", every other rune is quoted literally.
func compileGlobItem(item string) string {
	var b strings.Builder
	for _, r := range item {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	return b.String()
}

type patternObserver[F any] struct {
	id uint64
	re *regexp.Regexp
	fn F
}

var observerIDs atomic.Uint64

func nextObserverID() uint64 { return observerIDs.Add(1) }

// observerSet holds the four observer kinds a Flow dispatches to, each
// filtered independently by a glob pattern matched against the flow or task
// name. Every registration returns a uint64 id that RemoveObserver accepts,
// so a caller that captured the flow inside a task closure can unregister a
// one-shot observer without tearing down the whole flow.
type observerSet struct {
	mu            sync.RWMutex
	flowRunning   []patternObserver[func(flowName string)]
	flowCompleted []patternObserver[func(flowName string, err error)]
	taskRunning   []patternObserver[func(flowName, taskName string)]
	taskCompleted []patternObserver[func(flowName, taskName string, err error)]
}

func newObserverSet() *observerSet { return &observerSet{} }

func (o *observerSet) ObserveFlowRunning(pattern string, fn func(flowName string)) uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	id := nextObserverID()
	o.flowRunning = append(o.flowRunning, patternObserver[func(string)]{id: id, re: compilePattern(pattern), fn: fn})
	return id
}

func (o *observerSet) ObserveFlowCompleted(pattern string, fn func(flowName string, err error)) uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	id := nextObserverID()
	o.flowCompleted = append(o.flowCompleted, patternObserver[func(string, error)]{id: id, re: compilePattern(pattern), fn: fn})
	return id
}

func (o *observerSet) ObserveTaskRunning(pattern string, fn func(flowName, taskName string)) uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	id := nextObserverID()
	o.taskRunning = append(o.taskRunning, patternObserver[func(string, string)]{id: id, re: compilePattern(pattern), fn: fn})
	return id
}

func (o *observerSet) ObserveTaskCompleted(pattern string, fn func(flowName, taskName string, err error)) uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	id := nextObserverID()
	o.taskCompleted = append(o.taskCompleted, patternObserver[func(string, string, error)]{id: id, re: compilePattern(pattern), fn: fn})
	return id
}

// RemoveObserver deletes the observer registered under id from whichever of
// the four maps it lives in, reporting whether one was found.
func (o *observerSet) RemoveObserver(id uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if i := indexByID(o.flowRunning, id); i >= 0 {
		o.flowRunning = append(o.flowRunning[:i], o.flowRunning[i+1:]...)
		return true
	}
	if i := indexByID(o.flowCompleted, id); i >= 0 {
		o.flowCompleted = append(o.flowCompleted[:i], o.flowCompleted[i+1:]...)
		return true
	}
	if i := indexByID(o.taskRunning, id); i >= 0 {
		o.taskRunning = append(o.taskRunning[:i], o.taskRunning[i+1:]...)
		return true
	}
	if i := indexByID(o.taskCompleted, id); i >= 0 {
		o.taskCompleted = append(o.taskCompleted[:i], o.taskCompleted[i+1:]...)
		return true
	}
	return false
}

// clear drops every registered observer, leaving the set as if freshly
// constructed by newObserverSet.
func (o *observerSet) clear() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.flowRunning = nil
	o.flowCompleted = nil
	o.taskRunning = nil
	o.taskCompleted = nil
}

func indexByID[F any](obs []patternObserver[F], id uint64) int {
	for i, ob := range obs {
		if ob.id == id {
			return i
		}
	}
	return -1
}

func (o *observerSet) notifyFlowRunning(flowName string) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	for _, ob := range o.flowRunning {
		if ob.re.MatchString(flowName) {
			ob.fn(flowName)
		}
	}
}

func (o *observerSet) notifyFlowCompleted(flowName string, err error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	for _, ob := range o.flowCompleted {
		if ob.re.MatchString(flowName) {
			ob.fn(flowName, err)
		}
	}
}

func (o *observerSet) notifyTaskRunning(flowName, taskName string) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	for _, ob := range o.taskRunning {
		if ob.re.MatchString(taskName) {
			ob.fn(flowName, taskName)
		}
	}
}

func (o *observerSet) notifyTaskCompleted(flowName, taskName string, err error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	for _, ob := range o.taskCompleted {
		if ob.re.MatchString(taskName) {
			ob.fn(flowName, taskName, err)
		}
	}
}
