package composition

import (
	"sync/atomic"

	"github.com/BaSui01/planflow/allocation"
	"github.com/BaSui01/planflow/task"
)

// Aggregation 组合记录：一个父任务与它在组合任务结果中的份额
type Aggregation struct {
	id          task.ID
	parent      task.ID
	composition task.ID
	share       atomic.Pointer[allocation.Result]
}

func newAggregation(parent, composition task.ID) *Aggregation {
	return &Aggregation{id: task.NewID(), parent: parent, composition: composition}
}

// ID returns the board identity of the record.
func (a *Aggregation) ID() task.ID { return a.id }

// ParentTask returns the parent task this record binds.
func (a *Aggregation) ParentTask() task.ID { return a.parent }

// CompositionID returns the owning composition.
func (a *Aggregation) CompositionID() task.ID { return a.composition }

// Share returns the parent's share of the last distribution, nil until the
// first distribution.
func (a *Aggregation) Share() *allocation.Result { return a.share.Load() }

func (a *Aggregation) setShare(r *allocation.Result) { a.share.Store(r) }
