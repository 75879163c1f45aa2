package workflow

import (
	"fmt"
	"math"

	"github.com/BaSui01/planflow/aspect"
	"github.com/BaSui01/planflow/task"
	"github.com/BaSui01/planflow/types"
)

// Order 约束的比较方向
// 时间型与非时间型约束共用同一组编码
type Order int

const (
	Before     Order = -1
	Coincident Order = 0
	After      Order = 1

	LessThan    = Before
	EqualTo     = Coincident
	GreaterThan = After
)

// Valid reports whether o is one of the three orders.
func (o Order) Valid() bool {
	return o >= Before && o <= After
}

func (o Order) String() string {
	switch o {
	case Before:
		return "before"
	case Coincident:
		return "coincident"
	case After:
		return "after"
	default:
		return fmt.Sprintf("order(%d)", int(o))
	}
}

// ParseOrder accepts both the temporal and the numeric spellings.
func ParseOrder(s string) (Order, error) {
	switch s {
	case "before", "less_than", "<":
		return Before, nil
	case "coincident", "equal_to", "=", "==":
		return Coincident, nil
	case "after", "greater_than", ">":
		return After, nil
	default:
		return 0, types.Errorf(types.ErrInvalidArgument, "unknown constraint order %q", s)
	}
}

// TaskResolver 将任务标识解析为任务，task.Board 实现了该接口
type TaskResolver interface {
	Task(id task.ID) (task.Task, bool)
}

// ConstraintEvent 约束一端的可度量事件
// 要么是某个任务分配结果中的某个 aspect，要么是一个绝对值
type ConstraintEvent interface {
	// Aspect returns the measured kind.
	Aspect() aspect.Kind
	// Value returns the measured value; ok is false while it is unknown.
	Value(r TaskResolver) (v float64, ok bool)
	// PreferredValue returns the value the event would like to take.
	PreferredValue(r TaskResolver) (v float64, ok bool)
	// TaskID returns the task the event belongs to, zero for absolute events.
	TaskID() task.ID
	// IsAbsolute reports whether the event is a fixed value.
	IsAbsolute() bool
}

// TaskEvent is the value of one aspect of a task's current allocation result.
type TaskEvent struct {
	Task task.ID
	Kind aspect.Kind
}

// NewTaskEvent creates an event bound to a task aspect.
func NewTaskEvent(id task.ID, kind aspect.Kind) TaskEvent {
	return TaskEvent{Task: id, Kind: kind}
}

func (e TaskEvent) Aspect() aspect.Kind { return e.Kind }
func (e TaskEvent) TaskID() task.ID     { return e.Task }
func (e TaskEvent) IsAbsolute() bool    { return false }

func (e TaskEvent) Value(r TaskResolver) (float64, bool) {
	if r == nil {
		return 0, false
	}
	t, ok := r.Task(e.Task)
	if !ok {
		return 0, false
	}
	res := t.CurrentResult()
	if res == nil || !res.IsDefined(e.Kind) {
		return 0, false
	}
	v, err := res.Value(e.Kind)
	if err != nil {
		return 0, false
	}
	return v, true
}

func (e TaskEvent) PreferredValue(r TaskResolver) (float64, bool) {
	if r == nil {
		return 0, false
	}
	t, ok := r.Task(e.Task)
	if !ok {
		return 0, false
	}
	return t.PreferredValue(e.Kind)
}

// AbsoluteEvent is a fixed value, known from the start.
type AbsoluteEvent struct {
	Kind   aspect.Kind
	Amount float64
}

// NewAbsoluteEvent creates a fixed-value event.
func NewAbsoluteEvent(kind aspect.Kind, v float64) AbsoluteEvent {
	return AbsoluteEvent{Kind: kind, Amount: v}
}

func (e AbsoluteEvent) Aspect() aspect.Kind                         { return e.Kind }
func (e AbsoluteEvent) TaskID() task.ID                             { return "" }
func (e AbsoluteEvent) IsAbsolute() bool                            { return true }
func (e AbsoluteEvent) Value(TaskResolver) (float64, bool)          { return e.Amount, true }
func (e AbsoluteEvent) PreferredValue(TaskResolver) (float64, bool) { return e.Amount, true }

// Status 约束当前的求值状态
type Status int

const (
	// StatusInapplicable: the constraining value is not known yet.
	StatusInapplicable Status = iota
	// StatusPending: the constrained value is not known yet.
	StatusPending
	StatusSatisfied
	StatusViolated
)

func (s Status) String() string {
	switch s {
	case StatusInapplicable:
		return "inapplicable"
	case StatusPending:
		return "pending"
	case StatusSatisfied:
		return "satisfied"
	case StatusViolated:
		return "violated"
	default:
		return "unknown"
	}
}

// Constraint relates a constrained event to a constraining event.
//
// With diff = constrained - constraining + offset the constraint is violated
// when diff > 0 for Before, diff < 0 for After and diff != 0 for Coincident.
type Constraint struct {
	Constraining ConstraintEvent
	Constrained  TaskEvent
	Order        Order
	Offset       float64
}

// NewConstraint relates two task aspects.
func NewConstraint(constraining task.ID, constrainingAspect aspect.Kind,
	constrained task.ID, constrainedAspect aspect.Kind, order Order, offset float64) (*Constraint, error) {
	c := &Constraint{
		Constraining: NewTaskEvent(constraining, constrainingAspect),
		Constrained:  NewTaskEvent(constrained, constrainedAspect),
		Order:        order,
		Offset:       offset,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// NewAbsoluteConstraint relates a task aspect to a fixed value.
func NewAbsoluteConstraint(value float64, constrainingAspect aspect.Kind,
	constrained task.ID, constrainedAspect aspect.Kind, order Order, offset float64) (*Constraint, error) {
	c := &Constraint{
		Constraining: NewAbsoluteEvent(constrainingAspect, value),
		Constrained:  NewTaskEvent(constrained, constrainedAspect),
		Order:        order,
		Offset:       offset,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// CompatibleAspects reports whether two aspects may be compared: they must be
// equal or both temporal.
func CompatibleAspects(a, b aspect.Kind) bool {
	return a == b || (a.IsTemporal() && b.IsTemporal())
}

// Validate checks the constraint is well formed.
func (c *Constraint) Validate() error {
	if c.Constraining == nil {
		return types.NewError(types.ErrInvalidArgument, "constraint has no constraining event")
	}
	if c.Constrained.Task.IsZero() {
		return types.NewError(types.ErrInvalidArgument, "constraint has no constrained task")
	}
	if !c.Constraining.IsAbsolute() && c.Constraining.TaskID().IsZero() {
		return types.NewError(types.ErrInvalidArgument, "constraining task event has no task")
	}
	if !c.Order.Valid() {
		return types.Errorf(types.ErrInvalidArgument, "invalid constraint order %d", int(c.Order))
	}
	if math.IsNaN(c.Offset) {
		return types.NewError(types.ErrInvalidAspectValue, "constraint offset is NaN")
	}
	if ev, ok := c.Constraining.(AbsoluteEvent); ok && math.IsNaN(ev.Amount) {
		return types.NewError(types.ErrInvalidAspectValue, "absolute constraint value is NaN")
	}
	from, to := c.Constraining.Aspect(), c.Constrained.Kind
	if !CompatibleAspects(from, to) {
		return types.Errorf(types.ErrIncompatibleAspects,
			"cannot constrain %s by %s", to, from)
	}
	return nil
}

// IsAbsolute reports whether the constraining side is a fixed value.
func (c *Constraint) IsAbsolute() bool { return c.Constraining.IsAbsolute() }

// IsTemporal reports whether both sides measure points in time.
func (c *Constraint) IsTemporal() bool {
	return c.Constraining.Aspect().IsTemporal() && c.Constrained.Kind.IsTemporal()
}

// Involves reports whether id is on either side of the constraint.
func (c *Constraint) Involves(id task.ID) bool {
	return c.Constrained.Task == id || (!c.IsAbsolute() && c.Constraining.TaskID() == id)
}

// Evaluate computes the current status of the constraint.
func (c *Constraint) Evaluate(r TaskResolver) Status {
	constraining, ok := c.Constraining.Value(r)
	if !ok {
		return StatusInapplicable
	}
	constrained, ok := c.Constrained.Value(r)
	if !ok {
		return StatusPending
	}
	if c.violates(constrained - constraining + c.Offset) {
		return StatusViolated
	}
	return StatusSatisfied
}

func (c *Constraint) violates(diff float64) bool {
	switch c.Order {
	case Before:
		return diff > 0
	case After:
		return diff < 0
	default:
		return diff != 0
	}
}

// IsViolated reports whether the constraint is violated or still waiting on
// its constrained value while the constraining value is known.
func (c *Constraint) IsViolated(r TaskResolver) bool {
	switch c.Evaluate(r) {
	case StatusPending, StatusViolated:
		return true
	default:
		return false
	}
}

// RequiredValue returns the constrained value that would exactly meet the
// constraint given the current constraining value.
func (c *Constraint) RequiredValue(r TaskResolver) (float64, bool) {
	v, ok := c.Constraining.Value(r)
	if !ok {
		return 0, false
	}
	return v - c.Offset, true
}

func (c *Constraint) String() string {
	from := "absolute"
	if !c.IsAbsolute() {
		from = c.Constraining.TaskID().String()
	}
	return fmt.Sprintf("%s.%s %s %s.%s%+g", c.Constrained.Task, c.Constrained.Kind,
		c.Order, from, c.Constraining.Aspect(), c.Offset)
}
