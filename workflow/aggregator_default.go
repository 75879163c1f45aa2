package workflow

import (
	"go.uber.org/zap"

	"github.com/BaSui01/planflow/allocation"
	"github.com/BaSui01/planflow/aspect"
	"github.com/BaSui01/planflow/task"
)

// combineRule 单个 aspect 的合并方式
type combineRule int

const (
	ruleSum combineRule = iota
	ruleMin
	ruleMax
	ruleAverage
	ruleDerived
	ruleSkip
)

// ruleFor returns how the default policy combines kind k across subtasks.
// Registered kinds are summed.
func ruleFor(k aspect.Kind) combineRule {
	switch k {
	case aspect.StartTime, aspect.Readiness:
		return ruleMin
	case aspect.EndTime, aspect.PODDate, aspect.Danger, aspect.Risk:
		return ruleMax
	case aspect.CustomerSatisfaction:
		return ruleAverage
	case aspect.Duration:
		return ruleDerived
	case aspect.TypedQuantity:
		return ruleSkip
	default:
		return ruleSum
	}
}

// DefaultAggregator 默认聚合策略
//
// 按 aspect 类型逐项合并：开始时间取最小，结束时间取最大，成本与数量类求和，
// 危险与风险取最大，客户满意度取平均；持续时间不读取子任务，
// 总是由 end_time - start_time 推导。带资产的 typed_quantity 由
// VectorAggregator 处理，这里忽略。
type DefaultAggregator struct {
	Epsilon float64
}

func (a *DefaultAggregator) Calculate(wf *Workflow, index *task.ScoreTable, previous *allocation.Result) *allocation.Result {
	n := index.Len()
	if n == 0 {
		return nil
	}

	kinds := aspect.KindCount()
	acc := make([]float64, kinds)
	seen := make([]bool, kinds)
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
			k := int(v.Kind)
			if k >= kinds {
				continue
			}
			rule := ruleFor(v.Kind)
			if rule == ruleDerived || rule == ruleSkip {
				continue
			}
			if !seen[k] {
				seen[k] = true
				acc[k] = v.Value
				continue
			}
			switch rule {
			case ruleMin:
				acc[k] = min(acc[k], v.Value)
			case ruleMax:
				acc[k] = max(acc[k], v.Value)
			default:
				acc[k] += v.Value
			}
		}
	}

	values := make([]aspect.Value, 0, kinds)
	for k := 0; k < kinds; k++ {
		kind := aspect.Kind(k)
		switch {
		case kind == aspect.Duration:
			if seen[aspect.StartTime] && seen[aspect.EndTime] {
				values = append(values, aspect.Value{Kind: kind, Value: acc[aspect.EndTime] - acc[aspect.StartTime]})
			}
		case !seen[k]:
		case ruleFor(kind) == ruleAverage:
			values = append(values, aspect.Value{Kind: kind, Value: acc[k] / float64(n)})
		default:
			values = append(values, aspect.Value{Kind: kind, Value: acc[k]})
		}
	}

	return finish(wf, values, success, float32(confidence/float64(n)), &aux, previous, a.Epsilon)
}

// finish builds the aggregate and returns previous instead when nothing
// changed.
func finish(wf *Workflow, values []aspect.Value, success bool, confidence float32,
	aux *auxMerger, previous *allocation.Result, eps float64) *allocation.Result {
	if eps <= 0 {
		eps = DefaultEpsilon
	}
	vec, err := aspect.NewVector(values...)
	if err != nil {
		wf.log().Warn("aggregate vector rejected", zap.Error(err))
		return nil
	}
	fresh, err := allocation.New(success, confidence, vec, allocation.WithAuxiliaryAnswers(aux.result()))
	if err != nil {
		wf.log().Warn("aggregate result rejected", zap.Error(err))
		return nil
	}
	if sameAsPrevious(previous, fresh, eps) {
		return previous
	}
	return fresh
}
