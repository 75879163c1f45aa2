package workflow

import (
	"maps"
	"math"
	"strings"

	"github.com/BaSui01/planflow/allocation"
	"github.com/BaSui01/planflow/task"
	"github.com/BaSui01/planflow/types"
)

// DefaultEpsilon 判断聚合结果是否变化时使用的容差
const DefaultEpsilon = 1e-4

// Aggregator 聚合器接口
// 将工作流中所有子任务的分配结果汇总为父任务的分配结果
type Aggregator interface {
	// Calculate returns the aggregate of the results in index. It returns
	// nil while the aggregate is not computable, and returns previous itself
	// when the aggregate did not change.
	Calculate(wf *Workflow, index *task.ScoreTable, previous *allocation.Result) *allocation.Result
}

// AggregatorFunc 函数聚合器
type AggregatorFunc func(wf *Workflow, index *task.ScoreTable, previous *allocation.Result) *allocation.Result

func (f AggregatorFunc) Calculate(wf *Workflow, index *task.ScoreTable, previous *allocation.Result) *allocation.Result {
	return f(wf, index, previous)
}

// AggregatorPolicy 聚合策略标签
type AggregatorPolicy string

const (
	PolicyNoop    AggregatorPolicy = "noop"
	PolicyDefault AggregatorPolicy = "default"
	PolicyVector  AggregatorPolicy = "vector"
)

// ParsePolicy resolves a policy name; the empty name is the default policy.
func ParsePolicy(name string) (AggregatorPolicy, error) {
	switch p := AggregatorPolicy(strings.ToLower(strings.TrimSpace(name))); p {
	case "":
		return PolicyDefault, nil
	case PolicyNoop, PolicyDefault, PolicyVector:
		return p, nil
	default:
		return "", types.Errorf(types.ErrInvalidArgument, "unknown aggregator policy %q", name)
	}
}

// NewAggregator returns the aggregator for a policy. eps <= 0 selects
// DefaultEpsilon.
func NewAggregator(policy AggregatorPolicy, eps float64) (Aggregator, error) {
	if eps <= 0 || math.IsNaN(eps) {
		eps = DefaultEpsilon
	}
	switch policy {
	case PolicyNoop:
		return NoopAggregator{}, nil
	case PolicyDefault, "":
		return &DefaultAggregator{Epsilon: eps}, nil
	case PolicyVector:
		return &VectorAggregator{Epsilon: eps}, nil
	default:
		return nil, types.Errorf(types.ErrInvalidArgument, "unknown aggregator policy %q", policy)
	}
}

// NoopAggregator 占位聚合器，总是返回 nil
type NoopAggregator struct{}

func (NoopAggregator) Calculate(*Workflow, *task.ScoreTable, *allocation.Result) *allocation.Result {
	return nil
}

// auxMerger 按查询类型合并辅助查询答案
// 未设置 -> 采用第一个值 -> 出现不同的值后永久置为无答案
type auxMerger struct {
	state   [allocation.AuxQueryCount]auxState
	answers [allocation.AuxQueryCount]string
}

type auxState uint8

const (
	auxUnset auxState = iota
	auxAdopted
	auxConflict
)

func (m *auxMerger) add(r *allocation.Result) {
	for q, a := range r.AuxiliaryAnswers() {
		switch m.state[q] {
		case auxUnset:
			m.state[q] = auxAdopted
			m.answers[q] = a
		case auxAdopted:
			if m.answers[q] != a {
				m.state[q] = auxConflict
				m.answers[q] = ""
			}
		}
	}
}

func (m *auxMerger) result() map[allocation.AuxQuery]string {
	out := make(map[allocation.AuxQuery]string)
	for q, s := range m.state {
		if s == auxAdopted {
			out[allocation.AuxQuery(q)] = m.answers[q]
		}
	}
	return out
}

// sameAsPrevious reports whether a freshly computed aggregate is
// indistinguishable from previous within eps.
func sameAsPrevious(previous, fresh *allocation.Result, eps float64) bool {
	if previous == nil || fresh == nil {
		return false
	}
	if previous.IsPhased() || previous.IsSuccess() != fresh.IsSuccess() {
		return false
	}
	if math.Abs(float64(previous.Confidence())-float64(fresh.Confidence())) > eps {
		return false
	}
	if !previous.Rollup().ApproxEqual(fresh.Rollup(), eps) {
		return false
	}
	return maps.Equal(previous.AuxiliaryAnswers(), fresh.AuxiliaryAnswers())
}
