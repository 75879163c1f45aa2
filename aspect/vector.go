package aspect

import (
	"math"
	"strings"

	"github.com/BaSui01/planflow/types"
)

// Vector is an ordered set of measurements. Kinds are unique within a
// vector; TypedQuantity may repeat once per distinct asset.
//
// The zero Vector is empty and ready to use. Vectors are immutable: every
// accessor returns copies.
type Vector struct {
	values []Value
}

// NewVector validates the values and builds a vector preserving their order.
func NewVector(values ...Value) (Vector, error) {
	seen := make(map[valueKey]struct{}, len(values))
	out := make([]Value, len(values))
	for i, v := range values {
		if err := v.Validate(); err != nil {
			return Vector{}, err
		}
		if _, dup := seen[v.key()]; dup {
			return Vector{}, types.Errorf(types.ErrDuplicateAspect, "aspect %s appears more than once", v.Kind)
		}
		seen[v.key()] = struct{}{}
		out[i] = v
	}
	return Vector{values: out}, nil
}

// MustVector is NewVector for fixtures and constants; it panics on error.
func MustVector(values ...Value) Vector {
	v, err := NewVector(values...)
	if err != nil {
		panic(err)
	}
	return v
}

// FromArrays builds a vector from parallel kind and value arrays.
func FromArrays(kinds []Kind, values []float64) (Vector, error) {
	if len(kinds) != len(values) {
		return Vector{}, types.Errorf(types.ErrLengthMismatch,
			"aspect kinds (%d) and values (%d) differ in length", len(kinds), len(values))
	}
	vals := make([]Value, len(kinds))
	for i, k := range kinds {
		if k == TypedQuantity {
			return Vector{}, types.NewError(types.ErrInvalidArgument, "typed_quantity requires an asset")
		}
		vals[i] = Value{Kind: k, Value: values[i]}
	}
	return NewVector(vals...)
}

// Len returns the number of entries.
func (v Vector) Len() int { return len(v.values) }

// IsEmpty reports whether the vector has no entries.
func (v Vector) IsEmpty() bool { return len(v.values) == 0 }

// At returns the entry at position i.
func (v Vector) At(i int) Value { return v.values[i] }

// Values returns a copy of the entries.
func (v Vector) Values() []Value {
	out := make([]Value, len(v.values))
	copy(out, v.values)
	return out
}

// Kinds returns the kind of every entry in order.
func (v Vector) Kinds() []Kind {
	out := make([]Kind, len(v.values))
	for i, val := range v.values {
		out[i] = val.Kind
	}
	return out
}

// Index returns the position of the first entry of kind k, or -1.
func (v Vector) Index(k Kind) int {
	for i, val := range v.values {
		if val.Kind == k {
			return i
		}
	}
	return -1
}

// IndexOf returns the position of the entry for (k, asset), or -1.
func (v Vector) IndexOf(k Kind, asset string) int {
	for i, val := range v.values {
		if val.Kind == k && val.Asset == asset {
			return i
		}
	}
	return -1
}

// Has reports whether kind k is present.
func (v Vector) Has(k Kind) bool { return v.Index(k) >= 0 }

// Get returns the value of the first entry of kind k.
func (v Vector) Get(k Kind) (float64, bool) {
	if i := v.Index(k); i >= 0 {
		return v.values[i].Value, true
	}
	return 0, false
}

// Set returns a copy of v with the (kind, asset) entry replaced, or appended
// when absent.
func (v Vector) Set(val Value) (Vector, error) {
	if err := val.Validate(); err != nil {
		return Vector{}, err
	}
	out := v.Values()
	if i := v.IndexOf(val.Kind, val.Asset); i >= 0 {
		out[i] = val
	} else {
		out = append(out, val)
	}
	return Vector{values: out}, nil
}

// Map returns a copy of v with fn applied to every entry.
func (v Vector) Map(fn func(Value) Value) (Vector, error) {
	out := make([]Value, len(v.values))
	for i, val := range v.values {
		out[i] = fn(val)
	}
	return NewVector(out...)
}

// Equal is a structural comparison: same entries in the same order.
func (v Vector) Equal(o Vector) bool {
	if len(v.values) != len(o.values) {
		return false
	}
	for i := range v.values {
		if v.values[i] != o.values[i] {
			return false
		}
	}
	return true
}

// ApproxEqual compares entry sets regardless of order, with values allowed to
// differ by at most eps.
func (v Vector) ApproxEqual(o Vector, eps float64) bool {
	if len(v.values) != len(o.values) {
		return false
	}
	for _, val := range v.values {
		j := o.IndexOf(val.Kind, val.Asset)
		if j < 0 {
			return false
		}
		if math.Abs(val.Value-o.values[j].Value) > eps {
			return false
		}
	}
	return true
}

func (v Vector) String() string {
	parts := make([]string, len(v.values))
	for i, val := range v.values {
		parts[i] = val.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
