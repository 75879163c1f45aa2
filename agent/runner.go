package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/BaSui01/planflow/config"
	"github.com/BaSui01/planflow/types"
	"github.com/BaSui01/planflow/workflow"
)

// =============================================================================
// 🏃 多 agent 运行器
// =============================================================================

// RunnerConfig 运行器参数，全部可热更新
type RunnerConfig struct {
	// 两次周期之间的间隔
	Interval time.Duration
	// 每个 agent 每秒最多执行的周期数
	Rate float64
	// 突发周期数
	Burst int
}

// DefaultRunnerConfig 返回默认运行器参数
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{Interval: time.Second, Rate: 10, Burst: 1}
}

// RunnerConfigFrom 从应用配置中提取运行器参数
func RunnerConfigFrom(c config.PlannerConfig) RunnerConfig {
	return RunnerConfig{Interval: c.CycleInterval, Rate: c.CycleRate, Burst: c.CycleBurst}
}

func (c RunnerConfig) validate() error {
	if c.Interval <= 0 {
		return types.NewError(types.ErrInvalidArgument, "cycle interval must be positive")
	}
	if c.Rate <= 0 || c.Burst < 1 {
		return types.NewError(types.ErrInvalidArgument, "cycle rate must be positive and burst at least 1")
	}
	return nil
}

// CycleHook 每个周期结束后调用，report 在周期失败前出错时为 nil
type CycleHook func(p *Planner, report *CycleReport, err error)

// Runner 并发运行多个 Planner，每个 agent 一个 goroutine
//
// 每个 agent 的周期由自己的限流器约束；限流参数与间隔可在运行中更新。
type Runner struct {
	logger *zap.Logger

	mu       sync.RWMutex
	config   RunnerConfig
	planners []*Planner
	limiters map[string]*rate.Limiter
	hooks    []CycleHook
	running  bool
	// 间隔变化时通知各循环重置定时器
	reset chan struct{}
}

// NewRunner 创建运行器
func NewRunner(cfg RunnerConfig, logger *zap.Logger) (*Runner, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		logger:   logger.With(zap.String("component", "runner")),
		config:   cfg,
		limiters: make(map[string]*rate.Limiter),
		reset:    make(chan struct{}),
	}, nil
}

// Add registers a planner. Planners must be added before Run.
func (r *Runner) Add(p *Planner) error {
	if p == nil {
		return types.NewError(types.ErrInvalidArgument, "planner is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return fmt.Errorf("runner already running")
	}
	if _, exists := r.limiters[p.ID()]; exists {
		return types.Errorf(types.ErrAlreadyExists, "planner %s already added", p.ID())
	}
	r.planners = append(r.planners, p)
	r.limiters[p.ID()] = rate.NewLimiter(rate.Limit(r.config.Rate), r.config.Burst)
	return nil
}

// OnCycle registers a hook called after every cycle of every planner.
func (r *Runner) OnCycle(h CycleHook) {
	r.mu.Lock()
	r.hooks = append(r.hooks, h)
	r.mu.Unlock()
}

// Planners returns the registered planners.
func (r *Runner) Planners() []*Planner {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Planner(nil), r.planners...)
}

// Config returns the current runner parameters.
func (r *Runner) Config() RunnerConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.config
}

// Run cycles every planner until ctx is done. A failed cycle is logged and
// retried on the next tick; Run returns nil on cancellation.
func (r *Runner) Run(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("runner already running")
	}
	if len(r.planners) == 0 {
		r.mu.Unlock()
		return types.NewError(types.ErrInvalidArgument, "no planners to run")
	}
	r.running = true
	planners := append([]*Planner(nil), r.planners...)
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	r.logger.Info("runner started", zap.Int("planners", len(planners)))
	g, gctx := errgroup.WithContext(ctx)
	for _, p := range planners {
		g.Go(func() error { return r.loop(gctx, p) })
	}
	err := g.Wait()
	r.logger.Info("runner stopped")
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func (r *Runner) loop(ctx context.Context, p *Planner) error {
	r.mu.RLock()
	limiter := r.limiters[p.ID()]
	r.mu.RUnlock()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.resetSignal():
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(r.Config().Interval)
			continue
		case <-timer.C:
		}

		if err := limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// 截止时间早于下一个令牌
			timer.Reset(r.Config().Interval)
			continue
		}
		report, err := p.Cycle(ctx)
		if err != nil && ctx.Err() == nil {
			r.logger.Warn("planning cycle failed", zap.String("agent_id", p.ID()), zap.Error(err))
		}
		r.notify(p, report, err)
		timer.Reset(r.Config().Interval)
	}
}

func (r *Runner) resetSignal() <-chan struct{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.reset
}

func (r *Runner) notify(p *Planner, report *CycleReport, err error) {
	r.mu.RLock()
	hooks := append([]CycleHook(nil), r.hooks...)
	r.mu.RUnlock()
	for _, h := range hooks {
		h(p, report, err)
	}
}

// RunOnce runs a single cycle of every planner concurrently and returns the
// reports in planner order.
func (r *Runner) RunOnce(ctx context.Context) ([]*CycleReport, error) {
	planners := r.Planners()
	reports := make([]*CycleReport, len(planners))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range planners {
		g.Go(func() error {
			report, err := p.Cycle(gctx)
			reports[i] = report
			r.notify(p, report, err)
			if err != nil {
				return fmt.Errorf("agent %s: %w", p.ID(), err)
			}
			return nil
		})
	}
	return reports, g.Wait()
}

// =============================================================================
// 🔥 热更新
// =============================================================================

// Apply updates the cycle pacing of every planner. Running loops pick up a
// new interval immediately.
func (r *Runner) Apply(cfg RunnerConfig) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	r.mu.Lock()
	old := r.config
	r.config = cfg
	for _, l := range r.limiters {
		l.SetLimit(rate.Limit(cfg.Rate))
		l.SetBurst(cfg.Burst)
	}
	var wake chan struct{}
	if cfg.Interval != old.Interval {
		wake = r.reset
		r.reset = make(chan struct{})
	}
	r.mu.Unlock()

	if wake != nil {
		close(wake)
	}
	r.logger.Info("runner config applied",
		zap.Duration("interval", cfg.Interval),
		zap.Float64("rate", cfg.Rate),
		zap.Int("burst", cfg.Burst))
	return nil
}

// ApplyPlannerConfig applies the hot-reloadable planner settings: pacing,
// aggregator policy and propagation defaults.
func (r *Runner) ApplyPlannerConfig(c config.PlannerConfig) error {
	var errs []error
	if err := r.Apply(RunnerConfigFrom(c)); err != nil {
		errs = append(errs, err)
	}
	policy, err := workflow.ParsePolicy(c.Aggregator)
	if err != nil {
		return errors.Join(append(errs, err)...)
	}
	for _, p := range r.Planners() {
		if err := p.SetAggregatorPolicy(policy, c.Epsilon); err != nil {
			errs = append(errs, err)
		}
		p.SetPropagation(c.PropagateToSubtasks, c.PropagateCompositions)
	}
	return errors.Join(errs...)
}

// Watch subscribes the runner to configuration reloads.
func (r *Runner) Watch(reloader *config.Reloader) {
	reloader.OnReload(func(_, next *config.Config, changes []config.ConfigChange) {
		if len(changes) == 0 {
			return
		}
		if err := r.ApplyPlannerConfig(next.Planner); err != nil {
			r.logger.Error("failed to apply reloaded planner config", zap.Error(err))
		}
	})
}
