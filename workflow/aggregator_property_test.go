package workflow

import (
	"math"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/BaSui01/planflow/allocation"
	"github.com/BaSui01/planflow/aspect"
	"github.com/BaSui01/planflow/task"
)

type span struct {
	Start  float64
	Length float64
	Cost   float64
}

func genSpans() gopter.Gen {
	return gen.SliceOfN(5, gen.Struct(reflect.TypeOf(span{}), map[string]gopter.Gen{
		"Start":  gen.Float64Range(0, 1000),
		"Length": gen.Float64Range(1, 100),
		"Cost":   gen.Float64Range(0, 50),
	}))
}

// Property: the default aggregate takes min start, max end, summed cost and
// derives the duration from them.
func TestProperty_DefaultAggregateRollup(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("start is min, end is max, cost is sum", prop.ForAll(
		func(spans []span) bool {
			results := make([]*allocation.Result, len(spans))
			minStart, maxEnd, cost := math.Inf(1), math.Inf(-1), 0.0
			for i, s := range spans {
				results[i] = newResult(t, true, 1, []kv{
					{aspect.StartTime, s.Start}, {aspect.EndTime, s.Start + s.Length}, {aspect.Cost, s.Cost},
				})
				minStart = math.Min(minStart, s.Start)
				maxEnd = math.Max(maxEnd, s.Start+s.Length)
				cost += s.Cost
			}

			wf, _, _ := newFixture(t, results...)
			r := wf.AggregateAllocationResults()
			if r == nil {
				t.Logf("aggregate is nil")
				return false
			}
			start, _ := r.Value(aspect.StartTime)
			end, _ := r.Value(aspect.EndTime)
			duration, _ := r.Value(aspect.Duration)
			total, _ := r.Value(aspect.Cost)
			return start == minStart && end == maxEnd &&
				math.Abs(duration-(maxEnd-minStart)) < 1e-9 &&
				math.Abs(total-cost) < 1e-6
		},
		genSpans(),
	))

	properties.TestingRun(t)
}

// Property: aggregating twice without changes returns the same reference.
func TestProperty_UnchangedAggregateIsSameReference(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("second aggregation returns previous", prop.ForAll(
		func(spans []span, vector bool) bool {
			results := make([]*allocation.Result, len(spans))
			for i, s := range spans {
				results[i] = newResult(t, true, 0.5, []kv{{aspect.StartTime, s.Start}, {aspect.Cost, s.Cost}})
			}
			wf, _, _ := newFixture(t, results...)
			if vector {
				wf.SetAggregator(&VectorAggregator{})
			}
			first := wf.AggregateAllocationResults()
			second := wf.AggregateAllocationResults()
			return first != nil && first == second
		},
		genSpans(),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

// Property: a coincident constraint is violated exactly when the values differ.
func TestProperty_CoincidentViolation(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("coincident violated iff constrained != constraining", prop.ForAll(
		func(constraining, constrained int) bool {
			board := task.NewBoard(nil)
			publish(t, board, "x", newResult(t, true, 1, []kv{{aspect.EndTime, float64(constrained)}}))
			c, err := NewAbsoluteConstraint(float64(constraining), aspect.EndTime, "x", aspect.EndTime, Coincident, 0)
			if err != nil {
				return false
			}
			return c.IsViolated(board) == (constraining != constrained)
		},
		gen.IntRange(0, 20),
		gen.IntRange(0, 20),
	))

	properties.TestingRun(t)
}
