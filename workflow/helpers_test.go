package workflow

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BaSui01/planflow/allocation"
	"github.com/BaSui01/planflow/aspect"
	"github.com/BaSui01/planflow/task"
)

type kv struct {
	kind aspect.Kind
	v    float64
}

func newResult(t testing.TB, success bool, confidence float32, values []kv, opts ...allocation.Option) *allocation.Result {
	t.Helper()
	vals := make([]aspect.Value, len(values))
	for i, e := range values {
		vals[i] = aspect.Value{Kind: e.kind, Value: e.v}
	}
	vec, err := aspect.NewVector(vals...)
	require.NoError(t, err)
	r, err := allocation.New(success, confidence, vec, opts...)
	require.NoError(t, err)
	return r
}

func publish(t testing.TB, board *task.Board, id task.ID, r *allocation.Result) *task.BaseTask {
	t.Helper()
	bt := task.NewBaseTask(id, "test")
	bt.SetResult(r)
	require.NoError(t, board.Publish(bt))
	return bt
}

// newFixture publishes tasks with the given results and adds them to a fresh
// workflow in order.
func newFixture(t testing.TB, results ...*allocation.Result) (*Workflow, *task.Board, []*task.BaseTask) {
	t.Helper()
	board := task.NewBoard(nil)
	wf := New("parent", board)
	tasks := make([]*task.BaseTask, len(results))
	for i, r := range results {
		tasks[i] = publish(t, board, task.NewID(), r)
		require.NoError(t, wf.AddSubtask(tasks[i].ID()))
	}
	return wf, board, tasks
}
