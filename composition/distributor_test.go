package composition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/planflow/allocation"
	"github.com/BaSui01/planflow/aspect"
	"github.com/BaSui01/planflow/task"
)

func result(t *testing.T, values map[aspect.Kind]float64, opts ...allocation.Option) *allocation.Result {
	t.Helper()
	kinds := make([]aspect.Kind, 0, len(values))
	nums := make([]float64, 0, len(values))
	for k := aspect.Kind(0); int(k) < aspect.CoreKindCount; k++ {
		if v, ok := values[k]; ok {
			kinds = append(kinds, k)
			nums = append(nums, v)
		}
	}
	r, err := allocation.NewFromArrays(true, 0.9, kinds, nums, opts...)
	require.NoError(t, err)
	return r
}

func TestDefaultDistributor_SplitsCostAndQuantity(t *testing.T) {
	t.Parallel()

	parents := []task.Task{task.NewBaseTask("p1", ""), task.NewBaseTask("p2", "")}
	aggregate := result(t, map[aspect.Kind]float64{aspect.Cost: 10, aspect.Quantity: 4, aspect.Risk: 0.5},
		allocation.WithAuxiliaryQuery(allocation.AuxPortName, "Antwerp"))

	table := DefaultDistributor{}.Distribute(parents, aggregate)
	require.NotNil(t, table)
	require.Equal(t, 2, table.Len())

	for _, id := range []task.ID{"p1", "p2"} {
		r, ok := table.Result(id)
		require.True(t, ok)
		cost, _ := r.Value(aspect.Cost)
		qty, _ := r.Value(aspect.Quantity)
		risk, _ := r.Value(aspect.Risk)
		assert.Equal(t, 5.0, cost)
		assert.Equal(t, 2.0, qty)
		assert.Equal(t, 0.5, risk)
		assert.True(t, r.IsSuccess())
		assert.Equal(t, float32(0.9), r.Confidence())

		port, ok, _ := r.AuxiliaryQuery(allocation.AuxPortName)
		assert.True(t, ok)
		assert.Equal(t, "Antwerp", port)
	}
}

func TestDefaultDistributor_RemainderIsNotRedistributed(t *testing.T) {
	t.Parallel()

	parents := []task.Task{task.NewBaseTask("a", ""), task.NewBaseTask("b", "")}
	table := DefaultDistributor{}.Distribute(parents, result(t, map[aspect.Kind]float64{aspect.Quantity: 5}))
	require.NotNil(t, table)
	q, _ := table.ResultAt(0).Value(aspect.Quantity)
	assert.Equal(t, 2.5, q)
}

func TestDefaultDistributor_Phased(t *testing.T) {
	t.Parallel()

	rollup := aspect.MustVector(aspect.Value{Kind: aspect.Quantity, Value: 9}, aspect.Value{Kind: aspect.EndTime, Value: 3})
	phases := []aspect.Vector{
		aspect.MustVector(aspect.Value{Kind: aspect.Quantity, Value: 3}, aspect.Value{Kind: aspect.EndTime, Value: 1}),
		aspect.MustVector(aspect.Value{Kind: aspect.Quantity, Value: 6}, aspect.Value{Kind: aspect.EndTime, Value: 3}),
	}
	aggregate, err := allocation.NewPhased(true, 1, rollup, phases)
	require.NoError(t, err)

	parents := []task.Task{task.NewBaseTask("a", ""), task.NewBaseTask("b", ""), task.NewBaseTask("c", "")}
	table := DefaultDistributor{}.Distribute(parents, aggregate)
	require.NotNil(t, table)

	share := table.ResultAt(2)
	require.True(t, share.IsPhased())
	got := share.Phases()
	q0, _ := got[0].Get(aspect.Quantity)
	q1, _ := got[1].Get(aspect.Quantity)
	end1, _ := got[1].Get(aspect.EndTime)
	assert.Equal(t, 1.0, q0)
	assert.Equal(t, 2.0, q1)
	assert.Equal(t, 3.0, end1)
}

func TestDefaultDistributor_NotComputable(t *testing.T) {
	t.Parallel()

	assert.Nil(t, DefaultDistributor{}.Distribute(nil, result(t, map[aspect.Kind]float64{aspect.Cost: 1})))
	assert.Nil(t, DefaultDistributor{}.Distribute([]task.Task{task.NewBaseTask("a", "")}, nil))
}
