// =============================================================================
// 📦 分配结果测试数据
// =============================================================================
// 提供预置的分配结果与黑板，构造失败时 panic
//
// 使用方法:
//
//	r := fixtures.TimedResult(0, 10, 5)
//	board := fixtures.BoardWith(fixtures.Task("load", r))
// =============================================================================
package fixtures

import (
	"github.com/BaSui01/planflow/allocation"
	"github.com/BaSui01/planflow/aspect"
	"github.com/BaSui01/planflow/task"
)

// =============================================================================
// 🎯 分配结果
// =============================================================================

// TimedResult 返回包含开始时间、结束时间与成本的成功结果
func TimedResult(start, end, cost float64) *allocation.Result {
	return MustResult(true, 1, aspect.MustVector(
		aspect.Value{Kind: aspect.StartTime, Value: start},
		aspect.Value{Kind: aspect.EndTime, Value: end},
		aspect.Value{Kind: aspect.Cost, Value: cost},
	))
}

// FailedResult 返回带失败原因的失败结果
func FailedResult(reason string) *allocation.Result {
	return MustResult(false, 0, aspect.MustVector(
		aspect.Value{Kind: aspect.Cost, Value: 0},
	), allocation.WithAuxiliaryQuery(allocation.AuxFailureReason, reason))
}

// PhasedResult 返回按 phases 分期的结果，汇总为各期成本之和
func PhasedResult(costs ...float64) *allocation.Result {
	var total float64
	phases := make([]aspect.Vector, len(costs))
	for i, c := range costs {
		total += c
		phases[i] = aspect.MustVector(aspect.Value{Kind: aspect.Cost, Value: c})
	}
	rollup := aspect.MustVector(aspect.Value{Kind: aspect.Cost, Value: total})
	r, err := allocation.NewPhased(true, 1, rollup, phases)
	if err != nil {
		panic(err)
	}
	return r
}

// MustResult 包装 allocation.New，出错时 panic
func MustResult(success bool, confidence float32, rollup aspect.Vector, opts ...allocation.Option) *allocation.Result {
	r, err := allocation.New(success, confidence, rollup, opts...)
	if err != nil {
		panic(err)
	}
	return r
}

// =============================================================================
// 📋 任务与黑板
// =============================================================================

// Task 返回带结果的 BaseTask，r 为 nil 时任务没有结果
func Task(id task.ID, r *allocation.Result) *task.BaseTask {
	bt := task.NewBaseTask(id, "test")
	if r != nil {
		bt.SetResult(r)
	}
	return bt
}

// BoardWith 返回发布了 tasks 的黑板
func BoardWith(tasks ...*task.BaseTask) *task.Board {
	board := task.NewBoard(nil)
	for _, t := range tasks {
		if err := board.Publish(t); err != nil {
			panic(err)
		}
	}
	return board
}
