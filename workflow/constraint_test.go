package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/planflow/aspect"
	"github.com/BaSui01/planflow/task"
	"github.com/BaSui01/planflow/types"
)

func TestConstraint_CoincidentAbsolute(t *testing.T) {
	t.Parallel()

	board := task.NewBoard(nil)
	bt := publish(t, board, "t", newResult(t, true, 1, []kv{{aspect.EndTime, 100}}))

	c, err := NewAbsoluteConstraint(100, aspect.EndTime, "t", aspect.EndTime, Coincident, 0)
	require.NoError(t, err)
	assert.True(t, c.IsAbsolute())
	assert.Equal(t, StatusSatisfied, c.Evaluate(board))
	assert.False(t, c.IsViolated(board))

	bt.SetResult(newResult(t, true, 1, []kv{{aspect.EndTime, 101}}))
	assert.Equal(t, StatusViolated, c.Evaluate(board))
	assert.True(t, c.IsViolated(board))
}

func TestConstraint_OrderSemantics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		order        Order
		constrained  float64
		constraining float64
		offset       float64
		violated     bool
	}{
		{"before satisfied", Before, 10, 20, 0, false},
		{"before touching", Before, 20, 20, 0, false},
		{"before violated", Before, 25, 20, 0, true},
		{"before offset pushes over", Before, 18, 20, 5, true},
		{"after satisfied", After, 30, 20, 0, false},
		{"after violated", After, 10, 20, 0, true},
		{"after offset rescues", After, 18, 20, 5, false},
		{"coincident with offset", Coincident, 15, 20, 5, false},
		{"less than alias", LessThan, 3, 2, 0, true},
		{"greater than alias", GreaterThan, 3, 2, 0, false},
		{"equal to alias", EqualTo, 2, 2, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			board := task.NewBoard(nil)
			publish(t, board, "a", newResult(t, true, 1, []kv{{aspect.Cost, tt.constraining}}))
			publish(t, board, "b", newResult(t, true, 1, []kv{{aspect.Cost, tt.constrained}}))

			c, err := NewConstraint("a", aspect.Cost, "b", aspect.Cost, tt.order, tt.offset)
			require.NoError(t, err)
			assert.Equal(t, tt.violated, c.IsViolated(board))
		})
	}
}

func TestConstraint_UnknownValues(t *testing.T) {
	t.Parallel()

	board := task.NewBoard(nil)
	a := publish(t, board, "a", nil)
	publish(t, board, "b", nil)

	c, err := NewConstraint("a", aspect.EndTime, "b", aspect.StartTime, After, 0)
	require.NoError(t, err)

	// constraining unknown: never violated
	assert.Equal(t, StatusInapplicable, c.Evaluate(board))
	assert.False(t, c.IsViolated(board))

	// constraining known, constrained unknown: pending counts as violated
	a.SetResult(newResult(t, true, 1, []kv{{aspect.EndTime, 5}}))
	assert.Equal(t, StatusPending, c.Evaluate(board))
	assert.True(t, c.IsViolated(board))

	// a result that lacks the aspect is still unknown
	a.SetResult(newResult(t, true, 1, []kv{{aspect.Cost, 5}}))
	assert.Equal(t, StatusInapplicable, c.Evaluate(board))

	// unpublished tasks are unknown too
	board.Remove("a")
	assert.Equal(t, StatusInapplicable, c.Evaluate(board))
}

func TestConstraint_Validate(t *testing.T) {
	t.Parallel()

	_, err := NewConstraint("a", aspect.EndTime, "b", aspect.StartTime, Before, 0)
	assert.NoError(t, err, "start and end are both temporal")

	_, err = NewConstraint("a", aspect.Cost, "b", aspect.StartTime, Before, 0)
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrIncompatibleAspects))

	_, err = NewConstraint("a", aspect.Cost, "", aspect.Cost, Before, 0)
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidArgument))

	_, err = NewConstraint("a", aspect.Cost, "b", aspect.Cost, Order(7), 0)
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidArgument))

	_, err = NewConstraint("", aspect.Cost, "b", aspect.Cost, Before, 0)
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidArgument))
}

func TestConstraint_RequiredAndPreferredValue(t *testing.T) {
	t.Parallel()

	board := task.NewBoard(nil)
	publish(t, board, "a", newResult(t, true, 1, []kv{{aspect.EndTime, 50}}))
	b := publish(t, board, "b", nil)
	b.SetPreference(aspect.StartTime, 60)

	c, err := NewConstraint("a", aspect.EndTime, "b", aspect.StartTime, After, 5)
	require.NoError(t, err)

	req, ok := c.RequiredValue(board)
	require.True(t, ok)
	assert.Equal(t, 45.0, req)

	pref, ok := c.Constrained.PreferredValue(board)
	require.True(t, ok)
	assert.Equal(t, 60.0, pref)

	assert.True(t, c.Involves("a"))
	assert.True(t, c.Involves("b"))
	assert.False(t, c.Involves("c"))
	assert.True(t, c.IsTemporal())
	assert.Contains(t, c.String(), "after")
}

func TestParseOrder(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]Order{
		"before": Before, "less_than": Before, "after": After,
		"greater_than": After, "coincident": Coincident, "equal_to": Coincident,
	} {
		got, err := ParseOrder(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseOrder("sideways")
	assert.Error(t, err)
}
