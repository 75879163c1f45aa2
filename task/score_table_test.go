package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/planflow/allocation"
	"github.com/BaSui01/planflow/aspect"
	"github.com/BaSui01/planflow/types"
)

func TestNewScoreTable(t *testing.T) {
	t.Parallel()

	r, err := allocation.New(true, 1, aspect.Vector{})
	require.NoError(t, err)

	_, err = NewScoreTable([]ID{"a"}, nil)
	assert.True(t, types.IsErrorCode(err, types.ErrLengthMismatch))

	_, err = NewScoreTable([]ID{"a", "a"}, []*allocation.Result{r, r})
	assert.True(t, types.IsErrorCode(err, types.ErrAlreadyExists))

	st, err := NewScoreTable([]ID{"a", "b"}, []*allocation.Result{r, nil})
	require.NoError(t, err)
	assert.Equal(t, 2, st.Len())
	assert.Equal(t, ID("b"), st.IDAt(1))
	assert.Same(t, r, st.ResultAt(0))
	assert.Equal(t, 1, st.Index("b"))
	assert.Equal(t, -1, st.Index("z"))
	assert.False(t, st.Complete())

	got, ok := st.Result("b")
	assert.True(t, ok)
	assert.Nil(t, got)
	_, ok = st.Result("z")
	assert.False(t, ok)
}

func TestSnapshot(t *testing.T) {
	t.Parallel()

	r, err := allocation.New(true, 1, aspect.Vector{})
	require.NoError(t, err)

	a := NewBaseTask("a", "")
	a.SetResult(r)
	b := NewBaseTask("b", "")

	st := Snapshot([]Task{a, b, a})
	assert.Equal(t, 2, st.Len())
	assert.Equal(t, []ID{"a", "b"}, st.IDs())
	assert.False(t, st.Complete())

	b.SetResult(r)
	assert.False(t, st.Complete(), "snapshot is not live")
	assert.True(t, Snapshot([]Task{a, b}).Complete())

	var nilTable *ScoreTable
	assert.Equal(t, 0, nilTable.Len())
}
