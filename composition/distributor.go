package composition

import (
	"github.com/BaSui01/planflow/allocation"
	"github.com/BaSui01/planflow/aspect"
	"github.com/BaSui01/planflow/task"
)

// Distributor 分配策略接口
// 把组合任务的结果拆分给各个父任务，每个父任务一个结果
type Distributor interface {
	// Distribute returns one result per parent, or nil when there are no
	// parents or no aggregate yet.
	Distribute(parents []task.Task, aggregate *allocation.Result) *task.ScoreTable
}

// DistributorFunc 函数分配器
type DistributorFunc func(parents []task.Task, aggregate *allocation.Result) *task.ScoreTable

func (f DistributorFunc) Distribute(parents []task.Task, aggregate *allocation.Result) *task.ScoreTable {
	return f(parents, aggregate)
}

// DefaultDistributor 默认分配策略
//
// 每个父任务得到与聚合结果相同的结果，只是 cost 与 quantity 平均除以父任务数，
// 分期向量同样处理，辅助查询答案原样复制。
//
// 整数数量按浮点除法拆分，余数不会重新分配，例如 5 个单位拆给 2 个父任务
// 得到 2.5 与 2.5。
type DefaultDistributor struct{}

func (DefaultDistributor) Distribute(parents []task.Task, aggregate *allocation.Result) *task.ScoreTable {
	n := len(parents)
	if n == 0 || aggregate == nil {
		return nil
	}

	share, err := splitEvenly(aggregate, n)
	if err != nil {
		return nil
	}

	ids := make([]task.ID, n)
	results := make([]*allocation.Result, n)
	for i, p := range parents {
		ids[i] = p.ID()
		// Result 不可变，所有父任务共享同一个实例
		results[i] = share
	}
	table, err := task.NewScoreTable(ids, results)
	if err != nil {
		return nil
	}
	return table
}

func splitEvenly(r *allocation.Result, n int) (*allocation.Result, error) {
	divide := func(v aspect.Value) aspect.Value {
		if v.Kind == aspect.Cost || v.Kind == aspect.Quantity {
			v.Value /= float64(n)
		}
		return v
	}

	rollup, err := r.Rollup().Map(divide)
	if err != nil {
		return nil, err
	}
	opts := []allocation.Option{allocation.WithAuxiliaryAnswers(r.AuxiliaryAnswers())}

	if !r.IsPhased() {
		return allocation.New(r.IsSuccess(), r.Confidence(), rollup, opts...)
	}
	phases := r.Phases()
	for i, p := range phases {
		if phases[i], err = p.Map(divide); err != nil {
			return nil, err
		}
	}
	return allocation.NewPhased(r.IsSuccess(), r.Confidence(), rollup, phases, opts...)
}
