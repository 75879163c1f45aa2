package composition

import (
	"slices"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/BaSui01/planflow/allocation"
	"github.com/BaSui01/planflow/task"
	"github.com/BaSui01/planflow/types"
)

// Composition 多个父任务合并为一个组合任务的簿记
//
// 组合任务的父任务集合始终等于各 Aggregation 的父任务集合。
// propagating 为 true 时，任一 Aggregation 被撤销都会一次性撤销全部
// Aggregation 与组合任务；为 false 时只逐个裁剪，父任务列表为空时
// 才撤销组合任务。
type Composition struct {
	id          task.ID
	board       *task.Board
	distributor Distributor
	propagating bool
	onCascade   func(removed int)
	logger      *zap.Logger

	combined *task.BaseTask

	mu           sync.Mutex
	aggregations []*Aggregation
	closed       bool

	// 级联清理只执行一次
	cleaning    atomic.Bool
	unsubscribe func()
}

// Option 配置 Composition
type Option func(*Composition)

// WithDistributor sets the distribution policy.
func WithDistributor(d Distributor) Option {
	return func(c *Composition) {
		if d != nil {
			c.distributor = d
		}
	}
}

// WithPropagating sets whether one rescinded parent tears down the whole
// composition.
func WithPropagating(propagating bool) Option {
	return func(c *Composition) { c.propagating = propagating }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Composition) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCascadeHook is called once per cascade with the number of records
// removed.
func WithCascadeHook(fn func(removed int)) Option {
	return func(c *Composition) { c.onCascade = fn }
}

// New combines parents into a synthetic task and publishes it together with
// one Aggregation per parent.
func New(board *task.Board, verb string, parents []task.ID, opts ...Option) (*Composition, error) {
	if board == nil {
		return nil, types.NewError(types.ErrInvalidArgument, "board is required")
	}
	if len(parents) == 0 {
		return nil, types.NewError(types.ErrInvalidArgument, "composition requires at least one parent")
	}
	for i, p := range parents {
		if p.IsZero() || slices.Contains(parents[:i], p) {
			return nil, types.Errorf(types.ErrInvalidArgument, "invalid or duplicate parent %q", p)
		}
	}

	c := &Composition{
		id:          task.NewID(),
		board:       board,
		distributor: DefaultDistributor{},
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.String("component", "composition"),
		zap.String("composition_id", c.id.String()))

	c.combined = task.NewBaseTask("", verb, parents...)
	c.aggregations = make([]*Aggregation, len(parents))
	for i, p := range parents {
		c.aggregations[i] = newAggregation(p, c.id)
	}

	if err := board.Publish(c.combined); err != nil {
		return nil, err
	}
	for i, a := range c.aggregations {
		if err := board.Publish(a); err != nil {
			for _, done := range c.aggregations[:i] {
				board.Remove(done.ID())
			}
			board.Remove(c.combined.ID())
			return nil, err
		}
	}
	c.unsubscribe = board.Subscribe(c.onBoardEvent)

	c.logger.Info("composition created",
		zap.String("combined_task", c.combined.ID().String()),
		zap.Int("parents", len(parents)),
		zap.Bool("propagating", c.propagating))
	return c, nil
}

// ID returns the composition identity.
func (c *Composition) ID() task.ID { return c.id }

// CombinedTask returns the synthetic multi-parent task.
func (c *Composition) CombinedTask() *task.BaseTask { return c.combined }

// IsPropagating reports the cascade mode.
func (c *Composition) IsPropagating() bool { return c.propagating }

// Aggregations returns the live records.
func (c *Composition) Aggregations() []*Aggregation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.aggregations)
}

// IsClosed reports whether the composition has been torn down.
func (c *Composition) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Rescind withdraws the Aggregation bound to parent.
func (c *Composition) Rescind(parent task.ID) bool {
	if a := c.aggregationFor(parent); a != nil {
		return c.board.Remove(a.ID())
	}
	return false
}

// CalculateDistribution splits the combined task's current result among the
// parents and records each parent's share. It returns nil while the combined
// task has no result or no parent is resolvable.
func (c *Composition) CalculateDistribution() *task.ScoreTable {
	aggs := c.Aggregations()
	aggregate := c.combined.CurrentResult()
	if aggregate == nil || len(aggs) == 0 {
		return nil
	}

	ids := make([]task.ID, len(aggs))
	for i, a := range aggs {
		ids[i] = a.parent
	}
	parents := c.board.Tasks(ids)

	table := c.distributor.Distribute(parents, aggregate)
	if table == nil {
		return nil
	}
	for _, a := range aggs {
		if share, ok := table.Result(a.parent); ok {
			a.setShare(share)
		}
	}
	return table
}

// Close stops listening to the board without removing anything.
func (c *Composition) Close() {
	c.mu.Lock()
	c.closed = true
	unsubscribe := c.unsubscribe
	c.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

func (c *Composition) aggregationFor(parent task.ID) *Aggregation {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, a := range c.aggregations {
		if a.parent == parent {
			return a
		}
	}
	return nil
}

func (c *Composition) onBoardEvent(ev task.Event) {
	if ev.Type != task.EventRemoved {
		return
	}
	switch obj := ev.Object.(type) {
	case *Aggregation:
		if obj.composition == c.id {
			c.aggregationRemoved(obj)
		}
	default:
		id := ev.Object.ID()
		if id == c.combined.ID() {
			c.combinedRemoved()
			return
		}
		// 父任务被撤销时撤销对应的 Aggregation
		if a := c.aggregationFor(id); a != nil {
			c.board.Remove(a.ID())
		}
	}
}

func (c *Composition) aggregationRemoved(a *Aggregation) {
	if !c.propagating {
		c.prune(a)
		return
	}

	if !c.cleaning.CompareAndSwap(false, true) {
		// 级联过程中的重入
		c.drop(a)
		return
	}

	c.mu.Lock()
	siblings := slices.DeleteFunc(slices.Clone(c.aggregations), func(s *Aggregation) bool { return s == a })
	c.aggregations = nil
	c.mu.Unlock()

	removed := 1
	for _, s := range siblings {
		if c.board.Remove(s.ID()) {
			removed++
		}
	}
	c.board.Remove(c.combined.ID())
	c.Close()

	c.logger.Info("composition cascaded",
		zap.String("rescinded_parent", a.parent.String()),
		zap.Int("aggregations_removed", removed))
	if c.onCascade != nil {
		c.onCascade(removed)
	}
}

// prune removes a single record and its parent back-reference, announcing
// the combined task's new parent set. The combined task is withdrawn once it
// has no parents left.
func (c *Composition) prune(a *Aggregation) {
	if !c.drop(a) {
		return
	}
	remaining := c.combined.RemoveParent(a.parent)
	c.logger.Debug("aggregation pruned",
		zap.String("parent", a.parent.String()),
		zap.Int("remaining_parents", remaining))
	if remaining == 0 {
		c.board.Remove(c.combined.ID())
		c.Close()
		return
	}
	if err := c.board.PublishChange(c.combined); err != nil {
		c.logger.Warn("failed to publish combined task change",
			zap.String("task_id", c.combined.ID().String()), zap.Error(err))
	}
}

func (c *Composition) drop(a *Aggregation) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := slices.Index(c.aggregations, a)
	if i < 0 {
		return false
	}
	c.aggregations = slices.Delete(c.aggregations, i, i+1)
	return true
}

// combinedRemoved handles the synthetic task disappearing from the board.
// Outside a cascade every remaining record is withdrawn with it.
func (c *Composition) combinedRemoved() {
	if !c.cleaning.CompareAndSwap(false, true) {
		return
	}
	c.mu.Lock()
	aggs := c.aggregations
	c.aggregations = nil
	c.mu.Unlock()
	for _, a := range aggs {
		c.board.Remove(a.ID())
	}
	c.Close()
	c.logger.Info("combined task withdrawn", zap.Int("aggregations_removed", len(aggs)))
}

// Shares returns the last recorded share per parent.
func (c *Composition) Shares() map[task.ID]*allocation.Result {
	out := make(map[task.ID]*allocation.Result)
	for _, a := range c.Aggregations() {
		if s := a.Share(); s != nil {
			out[a.parent] = s
		}
	}
	return out
}
