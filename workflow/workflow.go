package workflow

import (
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/planflow/allocation"
	"github.com/BaSui01/planflow/task"
	"github.com/BaSui01/planflow/types"
)

// Workflow 一个被分解任务的子任务集合与约束集合
//
// 子任务与约束容器的所有修改和遍历都在 mu 下进行；聚合在锁内对子任务集合
// 做快照，然后在锁外计算。子任务通过 Board 按 ID 解析。
type Workflow struct {
	id     task.ID
	parent task.ID
	board  *task.Board
	logger *zap.Logger

	mu          sync.Mutex
	subtasks    []task.ID
	constraints []*Constraint
	aggregator  Aggregator
	propagating bool
	lastResult  *allocation.Result
	retracted   bool

	// 子任务快照缓存，结构版本变化时失效
	version      uint64
	cacheVersion uint64
	cache        []task.Task

	unsubscribe func()
}

// Option 配置 Workflow
type Option func(*Workflow)

// WithAggregator sets the active aggregator.
func WithAggregator(a Aggregator) Option {
	return func(w *Workflow) {
		if a != nil {
			w.aggregator = a
		}
	}
}

// WithPropagatingToSubtasks sets whether Retract cascades to subtasks.
func WithPropagatingToSubtasks(propagating bool) Option {
	return func(w *Workflow) { w.propagating = propagating }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(w *Workflow) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithID sets the workflow identity; by default a fresh one is generated.
func WithID(id task.ID) Option {
	return func(w *Workflow) {
		if !id.IsZero() {
			w.id = id
		}
	}
}

// New creates the workflow of the parent task. Subtasks removed from the
// board are dropped from the workflow automatically.
func New(parent task.ID, board *task.Board, opts ...Option) *Workflow {
	w := &Workflow{
		id:         task.NewID(),
		parent:     parent,
		board:      board,
		logger:     zap.NewNop(),
		aggregator: &DefaultAggregator{Epsilon: DefaultEpsilon},
		// 初始版本与缓存版本不同，第一次聚合时构建快照
		version: 1,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With(zap.String("component", "workflow"),
		zap.String("workflow_id", w.id.String()))

	if board != nil {
		w.unsubscribe = board.Subscribe(func(ev task.Event) {
			if ev.Type == task.EventRemoved {
				w.RemoveSubtask(ev.Object.ID())
			}
		})
	}
	return w
}

func (w *Workflow) log() *zap.Logger {
	if w == nil || w.logger == nil {
		return zap.NewNop()
	}
	return w.logger
}

// ID returns the workflow identity.
func (w *Workflow) ID() task.ID { return w.id }

// ParentTask returns the task this workflow expands.
func (w *Workflow) ParentTask() task.ID { return w.parent }

// AddSubtask appends a subtask. Adding the same task twice is an error.
func (w *Workflow) AddSubtask(id task.ID) error {
	if id.IsZero() {
		return types.NewError(types.ErrInvalidArgument, "subtask id is required")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.retracted {
		return types.NewError(types.ErrInvalidArgument, "workflow is retracted")
	}
	if slices.Contains(w.subtasks, id) {
		return types.Errorf(types.ErrAlreadyExists, "subtask %s already in workflow", id)
	}
	w.subtasks = append(w.subtasks, id)
	w.version++
	return nil
}

// RemoveSubtask drops a subtask and every constraint that refers to it.
func (w *Workflow) RemoveSubtask(id task.ID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	i := slices.Index(w.subtasks, id)
	if i < 0 {
		return false
	}
	w.subtasks = slices.Delete(w.subtasks, i, i+1)
	w.constraints = slices.DeleteFunc(w.constraints, func(c *Constraint) bool { return c.Involves(id) })
	w.version++
	w.logger.Debug("subtask removed", zap.String("task_id", id.String()))
	return true
}

// Subtasks returns the subtask identities in insertion order.
func (w *Workflow) Subtasks() []task.ID {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.subtasks)
}

// SubtaskCount returns the number of subtasks.
func (w *Workflow) SubtaskCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.subtasks)
}

// HasSubtask reports whether id belongs to the workflow.
func (w *Workflow) HasSubtask(id task.ID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Contains(w.subtasks, id)
}

// AddConstraint validates c and appends it. Every task the constraint names
// must already be a subtask.
func (w *Workflow) AddConstraint(c *Constraint) error {
	if c == nil {
		return types.NewError(types.ErrInvalidArgument, "constraint is required")
	}
	if err := c.Validate(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if !slices.Contains(w.subtasks, c.Constrained.Task) {
		return types.Errorf(types.ErrNotFound, "constrained task %s is not a subtask", c.Constrained.Task)
	}
	if !c.IsAbsolute() && !slices.Contains(w.subtasks, c.Constraining.TaskID()) {
		return types.Errorf(types.ErrNotFound, "constraining task %s is not a subtask", c.Constraining.TaskID())
	}
	if slices.Contains(w.constraints, c) {
		return types.NewError(types.ErrAlreadyExists, "constraint already in workflow")
	}
	w.constraints = append(w.constraints, c)
	return nil
}

// RemoveConstraint drops c.
func (w *Workflow) RemoveConstraint(c *Constraint) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	i := slices.Index(w.constraints, c)
	if i < 0 {
		return false
	}
	w.constraints = slices.Delete(w.constraints, i, i+1)
	return true
}

// Constraints returns the constraints in insertion order.
func (w *Workflow) Constraints() []*Constraint {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.constraints)
}

// ConstraintsOn returns the constraints that involve id.
func (w *Workflow) ConstraintsOn(id task.ID) []*Constraint {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []*Constraint
	for _, c := range w.constraints {
		if c.Involves(id) {
			out = append(out, c)
		}
	}
	return out
}

// PairConstraints returns the constraints between two tasks, in either
// direction.
func (w *Workflow) PairConstraints(a, b task.ID) []*Constraint {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []*Constraint
	for _, c := range w.constraints {
		if c.IsAbsolute() {
			continue
		}
		from, to := c.Constraining.TaskID(), c.Constrained.Task
		if (from == a && to == b) || (from == b && to == a) {
			out = append(out, c)
		}
	}
	return out
}

// ConstraintViolation reports whether any constraint is violated. It stops
// at the first one found.
func (w *Workflow) ConstraintViolation() bool {
	return w.NextPendingConstraint() != nil
}

// NextPendingConstraint returns the first violated constraint in insertion
// order, or nil.
func (w *Workflow) NextPendingConstraint() *Constraint {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, c := range w.constraints {
		if c.IsViolated(w.board) {
			return c
		}
	}
	return nil
}

// ViolatedConstraints returns every violated constraint in insertion order.
func (w *Workflow) ViolatedConstraints() []*Constraint {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []*Constraint
	for _, c := range w.constraints {
		if c.IsViolated(w.board) {
			out = append(out, c)
		}
	}
	return out
}

// SetAggregator replaces the active aggregator; nil restores the default.
func (w *Workflow) SetAggregator(a Aggregator) {
	if a == nil {
		a = &DefaultAggregator{Epsilon: DefaultEpsilon}
	}
	w.mu.Lock()
	w.aggregator = a
	w.mu.Unlock()
}

// Aggregator returns the active aggregator.
func (w *Workflow) Aggregator() Aggregator {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.aggregator
}

// SetPropagatingToSubtasks sets whether Retract cascades to subtasks.
func (w *Workflow) SetPropagatingToSubtasks(propagating bool) {
	w.mu.Lock()
	w.propagating = propagating
	w.mu.Unlock()
}

// IsPropagatingToSubtasks reports whether Retract cascades to subtasks.
func (w *Workflow) IsPropagatingToSubtasks() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.propagating
}

// LastResult returns the result of the previous aggregation.
func (w *Workflow) LastResult() *allocation.Result {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastResult
}

// AggregateAllocationResults rolls the current subtask results up with the
// active aggregator. It returns nil while some subtask has no result, and
// returns the previous aggregate itself when nothing changed.
func (w *Workflow) AggregateAllocationResults() *allocation.Result {
	w.mu.Lock()
	ids := slices.Clone(w.subtasks)
	tasks := w.snapshotLocked()
	agg := w.aggregator
	previous := w.lastResult
	w.mu.Unlock()

	results := make([]*allocation.Result, len(tasks))
	for i, t := range tasks {
		if t != nil {
			results[i] = t.CurrentResult()
		}
	}
	index, err := task.NewScoreTable(ids, results)
	if err != nil {
		w.logger.Error("failed to build score table", zap.Error(err))
		return nil
	}
	result := agg.Calculate(w, index, previous)

	w.mu.Lock()
	w.lastResult = result
	w.mu.Unlock()

	if result != nil && result != previous {
		w.logger.Debug("aggregate changed",
			zap.Int("subtasks", index.Len()),
			zap.Bool("success", result.IsSuccess()))
	}
	return result
}

// snapshotLocked resolves the subtask set in order; unresolved subtasks are
// nil. The slice is reused until the set changes structurally, and is only
// cached once every subtask resolved.
func (w *Workflow) snapshotLocked() []task.Task {
	if w.cacheVersion == w.version {
		return w.cache
	}
	tasks := make([]task.Task, len(w.subtasks))
	complete := true
	for i, id := range w.subtasks {
		if w.board != nil {
			if t, ok := w.board.Task(id); ok {
				tasks[i] = t
				continue
			}
		}
		complete = false
	}
	if complete {
		w.cache = tasks
		w.cacheVersion = w.version
	}
	return tasks
}

// Retract destroys the workflow. When propagating, every subtask is removed
// from the board. It returns the number of subtasks removed.
func (w *Workflow) Retract() int {
	w.mu.Lock()
	if w.retracted {
		w.mu.Unlock()
		return 0
	}
	w.retracted = true
	subtasks := slices.Clone(w.subtasks)
	propagating := w.propagating
	unsubscribe := w.unsubscribe
	w.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}

	removed := 0
	if propagating && w.board != nil {
		for _, id := range subtasks {
			if w.board.Remove(id) {
				removed++
			}
		}
	}
	w.logger.Info("workflow retracted",
		zap.Bool("propagating", propagating),
		zap.Int("subtasks_removed", removed))
	return removed
}
