package allocation

import (
	"github.com/BaSui01/planflow/aspect"
	"github.com/BaSui01/planflow/types"
)

// Merge combines a dominant and a secondary result. Success is OR'd, the
// aspect sets are unioned with the dominant value winning on overlap, and
// the confidence is the mean weighted by aspect count. The merged result is
// never phased. Auxiliary answers follow the same dominance rule.
func Merge(dominant, secondary *Result) (*Result, error) {
	if dominant == nil || secondary == nil {
		return nil, types.NewError(types.ErrInvalidArgument, "merge requires two results")
	}

	values := dominant.rollup.Values()
	for _, v := range secondary.rollup.Values() {
		if dominant.rollup.IndexOf(v.Kind, v.Asset) < 0 {
			values = append(values, v)
		}
	}
	rollup, err := aspect.NewVector(values...)
	if err != nil {
		return nil, err
	}

	nd := float64(dominant.rollup.Len())
	ns := float64(secondary.rollup.Len())
	var confidence float64
	if nd+ns == 0 {
		confidence = (float64(dominant.confidence) + float64(secondary.confidence)) / 2
	} else {
		confidence = (float64(dominant.confidence)*nd + float64(secondary.confidence)*ns) / (nd + ns)
	}

	aux := dominant.aux
	for i, a := range secondary.aux {
		if aux[i] == nil && a != nil {
			aux[i] = a
		}
	}

	return build(dominant.success || secondary.success, float32(confidence), false, rollup, nil, []Option{withAux(aux)})
}
