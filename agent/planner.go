package agent

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/planflow/allocation"
	"github.com/BaSui01/planflow/composition"
	"github.com/BaSui01/planflow/internal/metrics"
	"github.com/BaSui01/planflow/internal/telemetry"
	"github.com/BaSui01/planflow/store"
	"github.com/BaSui01/planflow/task"
	"github.com/BaSui01/planflow/types"
	"github.com/BaSui01/planflow/workflow"
)

// =============================================================================
// 🧠 规划器
// =============================================================================

// Planner 一个 agent 的规划周期
//
// Cycle 在 cycleMu 下串行执行；工作流与组合任务注册表由 mu 保护，
// 可以在周期进行中并发增删，新注册的对象从下一个周期开始生效。
type Planner struct {
	id      string
	board   *task.Board
	store   store.ResultStore
	driver  string
	metrics *metrics.Collector
	tracer  trace.Tracer
	logger  *zap.Logger

	mu           sync.Mutex
	policy       workflow.AggregatorPolicy
	epsilon      float64
	propagateWF  bool
	propagateCmp bool
	workflows    map[task.ID]*workflow.Workflow
	compositions map[task.ID]*composition.Composition
	// 每个工作流最近一次发布的聚合结果，按引用比较
	published map[task.ID]*allocation.Result
	// 每个 Aggregation 最近一次持久化的份额
	shares map[task.ID]*allocation.Result

	cycleMu sync.Mutex
	cycles  uint64
}

// PlannerOption 配置 Planner
type PlannerOption func(*Planner)

// WithStore persists republished aggregates and distribution shares.
func WithStore(s store.ResultStore, driver string) PlannerOption {
	return func(p *Planner) {
		p.store = s
		p.driver = driver
	}
}

// WithMetrics records cycle metrics.
func WithMetrics(c *metrics.Collector) PlannerOption {
	return func(p *Planner) { p.metrics = c }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) PlannerOption {
	return func(p *Planner) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) PlannerOption {
	return func(p *Planner) {
		if t != nil {
			p.tracer = t
		}
	}
}

// WithAggregatorPolicy sets the policy used for workflows added without an
// explicit aggregator.
func WithAggregatorPolicy(policy workflow.AggregatorPolicy, eps float64) PlannerOption {
	return func(p *Planner) {
		p.policy = policy
		p.epsilon = eps
	}
}

// WithPropagation sets the default cascade modes for new workflows and
// compositions.
func WithPropagation(subtasks, compositions bool) PlannerOption {
	return func(p *Planner) {
		p.propagateWF = subtasks
		p.propagateCmp = compositions
	}
}

// NewPlanner creates the planner of agent id on board. An empty id is
// replaced by a fresh one.
func NewPlanner(id string, board *task.Board, opts ...PlannerOption) (*Planner, error) {
	if board == nil {
		return nil, types.NewError(types.ErrInvalidArgument, "board is required")
	}
	if id == "" {
		id = uuid.NewString()
	}
	p := &Planner{
		id:           id,
		board:        board,
		tracer:       telemetry.Tracer(),
		logger:       zap.NewNop(),
		policy:       workflow.PolicyDefault,
		epsilon:      workflow.DefaultEpsilon,
		workflows:    make(map[task.ID]*workflow.Workflow),
		compositions: make(map[task.ID]*composition.Composition),
		published:    make(map[task.ID]*allocation.Result),
		shares:       make(map[task.ID]*allocation.Result),
	}
	for _, opt := range opts {
		opt(p)
	}
	if _, err := workflow.NewAggregator(p.policy, p.epsilon); err != nil {
		return nil, err
	}
	p.logger = p.logger.With(zap.String("component", "planner"), zap.String("agent_id", id))
	return p, nil
}

// ID returns the agent identity.
func (p *Planner) ID() string { return p.id }

// Board returns the blackboard the planner works on.
func (p *Planner) Board() *task.Board { return p.board }

// Cycles returns the number of completed cycles.
func (p *Planner) Cycles() uint64 {
	p.cycleMu.Lock()
	defer p.cycleMu.Unlock()
	return p.cycles
}

// =============================================================================
// 📋 工作流与组合任务注册
// =============================================================================

// AddWorkflow registers wf. Its parent task is published as a BaseTask when
// nothing with that ID is on the board yet.
func (p *Planner) AddWorkflow(wf *workflow.Workflow) error {
	if wf == nil {
		return types.NewError(types.ErrInvalidArgument, "workflow is required")
	}
	if !p.board.Contains(wf.ParentTask()) {
		if err := p.board.Publish(task.NewBaseTask(wf.ParentTask(), "expand")); err != nil &&
			!types.IsErrorCode(err, types.ErrAlreadyExists) {
			return fmt.Errorf("publish parent task: %w", err)
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.workflows[wf.ID()]; exists {
		return types.Errorf(types.ErrAlreadyExists, "workflow %s already registered", wf.ID())
	}
	p.workflows[wf.ID()] = wf
	p.logger.Info("workflow registered",
		zap.String("workflow_id", wf.ID().String()),
		zap.String("parent_task", wf.ParentTask().String()),
		zap.Int("subtasks", wf.SubtaskCount()))
	return nil
}

// NewWorkflow creates a workflow for parent with the planner's default
// aggregator and propagation mode, and registers it.
func (p *Planner) NewWorkflow(parent task.ID) (*workflow.Workflow, error) {
	agg, propagating, err := p.defaults()
	if err != nil {
		return nil, err
	}
	wf := workflow.New(parent, p.board,
		workflow.WithAggregator(agg),
		workflow.WithPropagatingToSubtasks(propagating),
		workflow.WithLogger(p.logger))
	if err := p.AddWorkflow(wf); err != nil {
		wf.Retract()
		return nil, err
	}
	return wf, nil
}

// LoadDefinition builds def onto the board and registers the workflow.
// A definition without an aggregator gets the planner's default.
func (p *Planner) LoadDefinition(def *workflow.Definition) (*workflow.Workflow, error) {
	if def == nil {
		return nil, types.NewError(types.ErrInvalidArgument, "definition is required")
	}
	var opts []workflow.Option
	if def.Aggregator == "" {
		agg, _, err := p.defaults()
		if err != nil {
			return nil, err
		}
		opts = append(opts, workflow.WithAggregator(agg))
	}
	wf, err := def.Build(p.board, p.logger, opts...)
	if err != nil {
		return nil, err
	}
	if err := p.AddWorkflow(wf); err != nil {
		wf.Retract()
		return nil, err
	}
	return wf, nil
}

// RemoveWorkflow retracts and unregisters the workflow and deletes its
// persisted aggregate. It returns the number of subtasks the retraction
// removed from the board.
func (p *Planner) RemoveWorkflow(ctx context.Context, id task.ID) (int, error) {
	p.mu.Lock()
	wf, ok := p.workflows[id]
	delete(p.workflows, id)
	delete(p.published, id)
	p.mu.Unlock()
	if !ok {
		return 0, types.Errorf(types.ErrNotFound, "workflow %s not registered", id)
	}

	removed := wf.Retract()
	if p.metrics != nil {
		p.metrics.RecordCascade("workflow", removed)
	}
	_, err := p.deleteRecord(ctx, wf.ParentTask().String())
	return removed, err
}

// Workflows returns the registered workflows ordered by ID.
func (p *Planner) Workflows() []*workflow.Workflow {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*workflow.Workflow, 0, len(p.workflows))
	for _, wf := range p.workflows {
		out = append(out, wf)
	}
	slices.SortFunc(out, func(a, b *workflow.Workflow) int { return compareIDs(a.ID(), b.ID()) })
	return out
}

// Compose combines parents into a composition with the planner's default
// cascade mode and registers it. Options given here take precedence.
func (p *Planner) Compose(verb string, parents []task.ID, opts ...composition.Option) (*composition.Composition, error) {
	p.mu.Lock()
	propagating := p.propagateCmp
	p.mu.Unlock()

	base := []composition.Option{
		composition.WithPropagating(propagating),
		composition.WithLogger(p.logger),
		composition.WithCascadeHook(func(removed int) {
			if p.metrics != nil {
				p.metrics.RecordCascade("composition", removed)
			}
		}),
	}
	c, err := composition.New(p.board, verb, parents, append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	p.AddComposition(c)
	return c, nil
}

// AddComposition registers an existing composition.
func (p *Planner) AddComposition(c *composition.Composition) {
	if c == nil {
		return
	}
	p.mu.Lock()
	p.compositions[c.ID()] = c
	p.mu.Unlock()
	p.logger.Info("composition registered",
		zap.String("composition_id", c.ID().String()),
		zap.Int("parents", len(c.Aggregations())))
}

// Compositions returns the registered compositions ordered by ID.
func (p *Planner) Compositions() []*composition.Composition {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*composition.Composition, 0, len(p.compositions))
	for _, c := range p.compositions {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b *composition.Composition) int { return compareIDs(a.ID(), b.ID()) })
	return out
}

// =============================================================================
// 🔧 运行时参数
// =============================================================================

// SetAggregatorPolicy changes the default policy and applies it to every
// registered workflow. Setting the current policy again is a no-op.
func (p *Planner) SetAggregatorPolicy(policy workflow.AggregatorPolicy, eps float64) error {
	agg, err := workflow.NewAggregator(policy, eps)
	if err != nil {
		return err
	}
	p.mu.Lock()
	if policy == p.policy && eps == p.epsilon {
		p.mu.Unlock()
		return nil
	}
	p.policy = policy
	p.epsilon = eps
	wfs := make([]*workflow.Workflow, 0, len(p.workflows))
	for _, wf := range p.workflows {
		wfs = append(wfs, wf)
	}
	p.mu.Unlock()

	for _, wf := range wfs {
		wf.SetAggregator(agg)
	}
	p.logger.Info("aggregator policy changed",
		zap.String("policy", string(policy)),
		zap.Float64("epsilon", eps),
		zap.Int("workflows", len(wfs)))
	return nil
}

// SetPropagation changes the default cascade modes for workflows and
// compositions created from now on.
func (p *Planner) SetPropagation(subtasks, compositions bool) {
	p.mu.Lock()
	p.propagateWF = subtasks
	p.propagateCmp = compositions
	p.mu.Unlock()
}

func (p *Planner) defaults() (workflow.Aggregator, bool, error) {
	p.mu.Lock()
	policy, eps, propagating := p.policy, p.epsilon, p.propagateWF
	p.mu.Unlock()
	agg, err := workflow.NewAggregator(policy, eps)
	return agg, propagating, err
}

// =============================================================================
// 🔄 规划周期
// =============================================================================

// Violation 一个被违反的约束及满足它所需的值
type Violation struct {
	Workflow   task.ID
	Constraint *workflow.Constraint
	// Required 是恰好满足约束的被约束值，HasRequired 为 false 时未知
	Required    float64
	HasRequired bool
	// Preferred 是被约束任务自身的偏好值
	Preferred    float64
	HasPreferred bool
}

// CycleReport 一次规划周期的结果
type CycleReport struct {
	AgentID string
	CycleID string
	// Republished 本周期聚合结果发生变化的工作流
	Republished []task.ID
	// Unchanged 聚合结果与上次相同的工作流数
	Unchanged int
	// Incomplete 仍有子任务没有结果的工作流
	Incomplete []task.ID
	Violations []Violation
	// Pending 被约束任务还没有结果的约束数
	Pending       int
	Distributions int
	Duration      time.Duration
}

// Cycle runs one planning cycle: it re-aggregates every workflow,
// republishes aggregates whose reference changed, collects violated
// constraints and distributes composition results to their parents.
// Store failures do not stop the cycle; they are joined into the error.
func (p *Planner) Cycle(ctx context.Context) (*CycleReport, error) {
	p.cycleMu.Lock()
	defer p.cycleMu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &CycleReport{AgentID: p.id, CycleID: uuid.NewString()}
	ctx = types.WithCycleID(types.WithAgentID(ctx, p.id), report.CycleID)
	ctx, span := p.tracer.Start(ctx, "planner.cycle", trace.WithAttributes(
		attribute.String("planflow.agent_id", p.id),
		attribute.String("planflow.cycle_id", report.CycleID),
	))
	defer span.End()

	start := time.Now()
	var errs []error
	errs = append(errs, p.aggregateWorkflows(ctx, report)...)
	errs = append(errs, p.distributeCompositions(ctx, report)...)
	report.Duration = time.Since(start)
	p.cycles++

	err := errors.Join(errs...)
	span.SetAttributes(
		attribute.Int("planflow.republished", len(report.Republished)),
		attribute.Int("planflow.violations", len(report.Violations)),
		attribute.Int("planflow.distributions", report.Distributions),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if p.metrics != nil {
		p.metrics.RecordCycle(p.id, err, report.Duration)
		p.metrics.SetConstraintState(p.id, len(report.Violations), report.Pending)
	}

	p.logger.Debug("cycle completed",
		zap.String("cycle_id", report.CycleID),
		zap.Int("republished", len(report.Republished)),
		zap.Int("unchanged", report.Unchanged),
		zap.Int("incomplete", len(report.Incomplete)),
		zap.Int("violations", len(report.Violations)),
		zap.Int("distributions", report.Distributions),
		zap.Duration("duration", report.Duration))
	return report, err
}

func (p *Planner) aggregateWorkflows(ctx context.Context, report *CycleReport) []error {
	var errs []error
	for _, wf := range p.Workflows() {
		if err := ctx.Err(); err != nil {
			return append(errs, err)
		}

		outcome := p.aggregate(ctx, wf, report, &errs)
		if p.metrics != nil {
			p.metrics.RecordAggregation(p.id, aggregatorName(wf.Aggregator()), outcome)
		}

		for _, c := range wf.ViolatedConstraints() {
			v := Violation{Workflow: wf.ID(), Constraint: c}
			if c.Evaluate(p.board) == workflow.StatusPending {
				report.Pending++
			}
			v.Required, v.HasRequired = c.RequiredValue(p.board)
			v.Preferred, v.HasPreferred = c.Constrained.PreferredValue(p.board)
			report.Violations = append(report.Violations, v)
		}
	}
	return errs
}

// aggregate 聚合一个工作流，引用变化时回写父任务并持久化
func (p *Planner) aggregate(ctx context.Context, wf *workflow.Workflow, report *CycleReport, errs *[]error) string {
	result := wf.AggregateAllocationResults()
	if result == nil {
		report.Incomplete = append(report.Incomplete, wf.ID())
		return metrics.OutcomePending
	}

	p.mu.Lock()
	previous, seen := p.published[wf.ID()]
	p.mu.Unlock()
	if seen && previous == result {
		report.Unchanged++
		return metrics.OutcomeUnchanged
	}

	if parent, ok := p.board.Get(wf.ParentTask()); ok {
		if sink, ok := parent.(resultSetter); ok {
			sink.SetResult(result)
			if err := p.board.PublishChange(parent); err != nil {
				p.logger.Warn("failed to publish parent change",
					zap.String("parent_task", wf.ParentTask().String()), zap.Error(err))
			}
		}
	}

	err := p.saveRecord(ctx, store.Record{
		Key:    wf.ParentTask().String(),
		Owner:  wf.ID().String(),
		Result: result,
	})
	if err != nil {
		*errs = append(*errs, fmt.Errorf("persist workflow %s: %w", wf.ID(), err))
	}

	p.mu.Lock()
	if _, live := p.workflows[wf.ID()]; live {
		p.published[wf.ID()] = result
	}
	p.mu.Unlock()

	report.Republished = append(report.Republished, wf.ID())
	p.logger.Debug("aggregate republished",
		zap.String("workflow_id", wf.ID().String()),
		zap.Bool("success", result.IsSuccess()),
		zap.Float32("confidence", result.Confidence()))
	return metrics.OutcomeChanged
}

func (p *Planner) distributeCompositions(ctx context.Context, report *CycleReport) []error {
	var errs []error
	for _, c := range p.Compositions() {
		if err := ctx.Err(); err != nil {
			return append(errs, err)
		}
		if c.IsClosed() || !p.board.Contains(c.CombinedTask().ID()) {
			p.forgetComposition(c)
			continue
		}

		table := c.CalculateDistribution()
		if table == nil {
			continue
		}
		report.Distributions++

		var cerr error
		for _, a := range c.Aggregations() {
			share := a.Share()
			p.mu.Lock()
			previous := p.shares[a.ID()]
			p.mu.Unlock()
			if share == nil || share.Equal(previous) {
				continue
			}
			err := p.saveRecord(ctx, store.Record{
				Key:    a.ID().String(),
				Owner:  c.ID().String(),
				Result: share,
			})
			if err != nil {
				cerr = errors.Join(cerr, fmt.Errorf("persist share %s: %w", a.ID(), err))
				continue
			}
			p.mu.Lock()
			p.shares[a.ID()] = share
			p.mu.Unlock()
		}
		if p.metrics != nil {
			p.metrics.RecordDistribution(p.id, cerr)
		}
		if cerr != nil {
			errs = append(errs, cerr)
		}
	}
	return errs
}

func (p *Planner) forgetComposition(c *composition.Composition) {
	p.mu.Lock()
	delete(p.compositions, c.ID())
	for _, a := range c.Aggregations() {
		delete(p.shares, a.ID())
	}
	p.mu.Unlock()
	p.logger.Info("composition released", zap.String("composition_id", c.ID().String()))
}

// =============================================================================
// 💾 存储
// =============================================================================

// Restore loads the persisted aggregate of every registered workflow whose
// parent task has no result yet. It returns how many were restored.
func (p *Planner) Restore(ctx context.Context) (int, error) {
	if p.store == nil {
		return 0, nil
	}
	restored := 0
	for _, wf := range p.Workflows() {
		parent, ok := p.board.Get(wf.ParentTask())
		if !ok {
			continue
		}
		sink, ok := parent.(resultTask)
		if !ok || sink.CurrentResult() != nil {
			continue
		}
		rec, err := p.loadRecord(ctx, wf.ParentTask().String())
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return restored, err
		}
		sink.SetResult(rec.Result)
		restored++
	}
	if restored > 0 {
		p.logger.Info("aggregates restored", zap.Int("count", restored))
	}
	return restored, nil
}

func (p *Planner) saveRecord(ctx context.Context, rec store.Record) error {
	if p.store == nil {
		return nil
	}
	start := time.Now()
	err := p.store.Save(ctx, rec)
	p.recordStoreOp("save", err, start)
	return err
}

func (p *Planner) loadRecord(ctx context.Context, key string) (store.Record, error) {
	start := time.Now()
	rec, err := p.store.Load(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		p.recordStoreOp("load", nil, start)
	} else {
		p.recordStoreOp("load", err, start)
	}
	return rec, err
}

func (p *Planner) deleteRecord(ctx context.Context, key string) (bool, error) {
	if p.store == nil {
		return false, nil
	}
	start := time.Now()
	existed, err := p.store.Delete(ctx, key)
	p.recordStoreOp("delete", err, start)
	return existed, err
}

func (p *Planner) recordStoreOp(op string, err error, start time.Time) {
	if p.metrics != nil {
		p.metrics.RecordStoreOp(p.driver, op, err, time.Since(start))
	}
	if err != nil {
		p.logger.Error("result store operation failed", zap.String("operation", op), zap.Error(err))
	}
}

// =============================================================================
// 🔧 辅助
// =============================================================================

type resultSetter interface {
	SetResult(*allocation.Result)
}

type resultTask interface {
	resultSetter
	CurrentResult() *allocation.Result
}

func aggregatorName(a workflow.Aggregator) string {
	switch a.(type) {
	case workflow.NoopAggregator, *workflow.NoopAggregator:
		return string(workflow.PolicyNoop)
	case *workflow.DefaultAggregator:
		return string(workflow.PolicyDefault)
	case *workflow.VectorAggregator:
		return string(workflow.PolicyVector)
	default:
		return "custom"
	}
}

func compareIDs(a, b task.ID) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
