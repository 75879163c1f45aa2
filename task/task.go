package task

import (
	"slices"
	"sync"

	"github.com/BaSui01/planflow/allocation"
	"github.com/BaSui01/planflow/aspect"
)

// Task is the narrow view of a plan task that aggregation, distribution and
// constraint checking consume.
type Task interface {
	ID() ID
	// CurrentResult returns the latest allocation result, nil if none yet.
	CurrentResult() *allocation.Result
	// ParentIDs returns the tasks this one was derived from.
	ParentIDs() []ID
	// PreferredValue returns the value the task would like for kind k.
	PreferredValue(k aspect.Kind) (float64, bool)
}

// BaseTask is a concurrency-safe Task implementation.
type BaseTask struct {
	id   ID
	verb string

	mu          sync.RWMutex
	result      *allocation.Result
	parents     []ID
	preferences map[aspect.Kind]float64
}

// NewBaseTask creates a task. An empty id is replaced by a fresh one.
func NewBaseTask(id ID, verb string, parents ...ID) *BaseTask {
	if id.IsZero() {
		id = NewID()
	}
	return &BaseTask{
		id:          id,
		verb:        verb,
		parents:     slices.Clone(parents),
		preferences: make(map[aspect.Kind]float64),
	}
}

func (t *BaseTask) ID() ID { return t.id }

// Verb names what the task asks for, e.g. "transport".
func (t *BaseTask) Verb() string { return t.verb }

func (t *BaseTask) CurrentResult() *allocation.Result {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.result
}

// SetResult replaces the current allocation result.
func (t *BaseTask) SetResult(r *allocation.Result) {
	t.mu.Lock()
	t.result = r
	t.mu.Unlock()
}

func (t *BaseTask) ParentIDs() []ID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.parents)
}

// AddParent appends a parent unless it is already present.
func (t *BaseTask) AddParent(id ID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !slices.Contains(t.parents, id) {
		t.parents = append(t.parents, id)
	}
}

// RemoveParent drops a parent and returns how many remain.
func (t *BaseTask) RemoveParent(id ID) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.parents = slices.DeleteFunc(t.parents, func(p ID) bool { return p == id })
	return len(t.parents)
}

func (t *BaseTask) PreferredValue(k aspect.Kind) (float64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.preferences[k]
	return v, ok
}

// SetPreference records the preferred value for kind k.
func (t *BaseTask) SetPreference(k aspect.Kind, v float64) {
	t.mu.Lock()
	t.preferences[k] = v
	t.mu.Unlock()
}
