package workflow

import (
	"slices"

	"github.com/BaSui01/planflow/allocation"
	"github.com/BaSui01/planflow/aspect"
	"github.com/BaSui01/planflow/task"
)

// VectorAggregator 基于稀疏 AspectVector 的聚合策略
//
// 与 DefaultAggregator 的合并规则相同，但容忍子任务上报不同的 aspect 子集，
// typed_quantity 按资产分组求和，客户满意度只在上报了该项的子任务间取平均。
// 只有在开始与结束时间都存在且非零时才推导持续时间。
type VectorAggregator struct {
	Epsilon float64
}

type vectorKey struct {
	kind  aspect.Kind
	asset string
}

func (a *VectorAggregator) Calculate(wf *Workflow, index *task.ScoreTable, previous *allocation.Result) *allocation.Result {
	n := index.Len()
	if n == 0 {
		return nil
	}

	acc := make(map[vectorKey]float64)
	count := make(map[vectorKey]int)
	var order []vectorKey
	success := true
	var confidence float64
	var aux auxMerger

	for i := 0; i < n; i++ {
		r := index.ResultAt(i)
		if r == nil {
			return nil
		}
		success = success && r.IsSuccess()
		confidence += float64(r.Confidence())
		aux.add(r)

		for _, v := range r.Rollup().Values() {
			if v.Kind == aspect.Duration {
				continue
			}
			key := vectorKey{kind: v.Kind, asset: v.Asset}
			cur, ok := acc[key]
			if !ok {
				order = append(order, key)
				acc[key] = v.Value
				count[key] = 1
				continue
			}
			count[key]++
			switch ruleFor(v.Kind) {
			case ruleMin:
				acc[key] = min(cur, v.Value)
			case ruleMax:
				acc[key] = max(cur, v.Value)
			default:
				acc[key] = cur + v.Value
			}
		}
	}

	start, hasStart := acc[vectorKey{kind: aspect.StartTime}]
	end, hasEnd := acc[vectorKey{kind: aspect.EndTime}]
	if hasStart && hasEnd && start != 0 && end != 0 {
		key := vectorKey{kind: aspect.Duration}
		order = append(order, key)
		acc[key] = end - start
		count[key] = 1
	}

	// 按 kind 排序，同一 kind 内保持首次出现的顺序
	slices.SortStableFunc(order, func(x, y vectorKey) int { return int(x.kind) - int(y.kind) })

	values := make([]aspect.Value, 0, len(order))
	for _, key := range order {
		v := acc[key]
		if ruleFor(key.kind) == ruleAverage {
			v /= float64(count[key])
		}
		values = append(values, aspect.Value{Kind: key.kind, Value: v, Asset: key.asset})
	}

	return finish(wf, values, success, float32(confidence/float64(n)), &aux, previous, a.Epsilon)
}
