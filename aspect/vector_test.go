package aspect

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/planflow/types"
)

func TestNewValue_RejectsNaN(t *testing.T) {
	t.Parallel()

	_, err := NewValue(Cost, math.NaN())
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidAspectValue))
}

func TestNewValue_RejectsInfinity(t *testing.T) {
	t.Parallel()

	for _, v := range []float64{math.Inf(1), math.Inf(-1)} {
		_, err := NewValue(EndTime, v)
		require.Error(t, err)
		assert.True(t, types.IsErrorCode(err, types.ErrInvalidAspectValue))

		_, err = NewTypedQuantity("truck", v)
		assert.True(t, types.IsErrorCode(err, types.ErrInvalidAspectValue))

		_, err = FromArrays([]Kind{Cost}, []float64{v})
		assert.Error(t, err)
	}
}

func TestNewValue_TypedQuantityNeedsAsset(t *testing.T) {
	t.Parallel()

	_, err := NewValue(TypedQuantity, 3)
	assert.Error(t, err)

	_, err = NewTypedQuantity("", 3)
	assert.Error(t, err)

	v, err := NewTypedQuantity("truck", 3)
	require.NoError(t, err)
	assert.Equal(t, "truck", v.Asset)
}

func TestNewVector_RejectsDuplicates(t *testing.T) {
	t.Parallel()

	_, err := NewVector(Value{Kind: Cost, Value: 1}, Value{Kind: Cost, Value: 2})
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.NewError(types.ErrDuplicateAspect, "")))

	// typed quantities repeat per asset
	v, err := NewVector(
		Value{Kind: TypedQuantity, Value: 1, Asset: "a"},
		Value{Kind: TypedQuantity, Value: 2, Asset: "b"},
	)
	require.NoError(t, err)
	assert.Equal(t, 2, v.Len())
}

func TestFromArrays(t *testing.T) {
	t.Parallel()

	_, err := FromArrays([]Kind{StartTime, EndTime}, []float64{1})
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrLengthMismatch))

	v, err := FromArrays([]Kind{StartTime, EndTime}, []float64{1, 5})
	require.NoError(t, err)
	got, ok := v.Get(EndTime)
	assert.True(t, ok)
	assert.Equal(t, 5.0, got)
}

func TestVector_SetAndCopies(t *testing.T) {
	t.Parallel()

	v := MustVector(Value{Kind: Cost, Value: 1})
	w, err := v.Set(Value{Kind: Cost, Value: 4})
	require.NoError(t, err)
	w, err = w.Set(Value{Kind: Risk, Value: 0.2})
	require.NoError(t, err)

	c, _ := v.Get(Cost)
	assert.Equal(t, 1.0, c, "original must be untouched")
	assert.Equal(t, []Kind{Cost, Risk}, w.Kinds())

	vals := w.Values()
	vals[0].Value = 99
	c, _ = w.Get(Cost)
	assert.Equal(t, 4.0, c)
}

func TestVector_EqualAndApprox(t *testing.T) {
	t.Parallel()

	a := MustVector(Value{Kind: Cost, Value: 1}, Value{Kind: Risk, Value: 0.5})
	b := MustVector(Value{Kind: Risk, Value: 0.50001}, Value{Kind: Cost, Value: 1})

	assert.False(t, a.Equal(b))
	assert.True(t, a.ApproxEqual(b, 1e-4))
	assert.False(t, a.ApproxEqual(b, 1e-6))
	assert.True(t, a.Equal(MustVector(Value{Kind: Cost, Value: 1}, Value{Kind: Risk, Value: 0.5})))
}

func TestKind_RegisterAndParse(t *testing.T) {
	k, err := RegisterKind("Fuel_Burn")
	require.NoError(t, err)
	assert.True(t, k.Valid())
	assert.GreaterOrEqual(t, int(k), CoreKindCount)

	again, err := RegisterKind("fuel_burn")
	require.NoError(t, err)
	assert.Equal(t, k, again)

	parsed, err := ParseKind("fuel_burn")
	require.NoError(t, err)
	assert.Equal(t, k, parsed)

	_, err = ParseKind("no_such_kind")
	assert.Error(t, err)

	assert.True(t, StartTime.IsTemporal())
	assert.True(t, EndTime.IsTemporal())
	assert.False(t, Duration.IsTemporal())
}

func TestKind_TextRoundTrip(t *testing.T) {
	t.Parallel()

	text, err := CustomerSatisfaction.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "customer_satisfaction", string(text))

	var k Kind
	require.NoError(t, k.UnmarshalText(text))
	assert.Equal(t, CustomerSatisfaction, k)
}
