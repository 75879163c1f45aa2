package aspect

import (
	"fmt"
	"math"

	"github.com/BaSui01/planflow/types"
)

// Value is a single (kind, value) measurement. Asset is only carried by
// TypedQuantity entries and names the asset the quantity refers to.
type Value struct {
	Kind  Kind
	Value float64
	Asset string
}

// NewValue creates a measurement for a non-typed kind.
func NewValue(kind Kind, v float64) (Value, error) {
	if kind == TypedQuantity {
		return Value{}, types.NewError(types.ErrInvalidArgument, "typed_quantity requires an asset, use NewTypedQuantity")
	}
	val := Value{Kind: kind, Value: v}
	if err := val.Validate(); err != nil {
		return Value{}, err
	}
	return val, nil
}

// NewTypedQuantity creates a TypedQuantity measurement bound to an asset.
func NewTypedQuantity(asset string, q float64) (Value, error) {
	if asset == "" {
		return Value{}, types.NewError(types.ErrInvalidArgument, "typed_quantity asset is required")
	}
	val := Value{Kind: TypedQuantity, Value: q, Asset: asset}
	if err := val.Validate(); err != nil {
		return Value{}, err
	}
	return val, nil
}

// Validate checks the value is a known kind and a finite number.
func (v Value) Validate() error {
	if !v.Kind.Valid() {
		return types.Errorf(types.ErrInvalidArgument, "unknown aspect kind %d", int(v.Kind))
	}
	if math.IsNaN(v.Value) {
		return types.Errorf(types.ErrInvalidAspectValue, "aspect %s value is NaN", v.Kind)
	}
	if math.IsInf(v.Value, 0) {
		return types.Errorf(types.ErrInvalidAspectValue, "aspect %s value %g is not finite", v.Kind, v.Value)
	}
	if v.Kind != TypedQuantity && v.Asset != "" {
		return types.Errorf(types.ErrInvalidArgument, "aspect %s cannot carry an asset", v.Kind)
	}
	return nil
}

// WithValue returns a copy of v holding a different number.
func (v Value) WithValue(f float64) Value {
	v.Value = f
	return v
}

func (v Value) String() string {
	if v.Asset != "" {
		return fmt.Sprintf("%s[%s]=%g", v.Kind, v.Asset, v.Value)
	}
	return fmt.Sprintf("%s=%g", v.Kind, v.Value)
}

type valueKey struct {
	kind  Kind
	asset string
}

func (v Value) key() valueKey {
	return valueKey{kind: v.Kind, asset: v.Asset}
}
