package allocation

import (
	"fmt"
	"math"
	"strings"
	"sync/atomic"

	"github.com/BaSui01/planflow/aspect"
	"github.com/BaSui01/planflow/types"
)

// Sentinels usable with errors.Is.
var (
	ErrUndefinedAspect = types.NewError(types.ErrUndefinedAspect, "aspect not defined in result")
	ErrAuxQueryRange   = types.NewError(types.ErrAuxQueryRange, "auxiliary query out of range")
	ErrLengthMismatch  = types.NewError(types.ErrLengthMismatch, "length mismatch")
)

// Result is an immutable snapshot of the outcome of one allocation attempt.
//
// A phased result carries one vector per period plus a rollup; a non-phased
// result carries only the rollup. Results are safe for concurrent reads.
type Result struct {
	success    bool
	confidence float32
	phased     bool
	rollup     aspect.Vector
	phases     []aspect.Vector
	aux        auxAnswers

	// last (kind+1)<<32 | index looked up through Value
	memo atomic.Uint64
}

// Option configures optional parts of a Result at construction.
type Option func(*Result) error

// WithAuxiliaryQuery records an answer for q.
func WithAuxiliaryQuery(q AuxQuery, answer string) Option {
	return func(r *Result) error {
		if err := checkAuxQuery(q); err != nil {
			return err
		}
		r.aux[q] = strPtr(answer)
		return nil
	}
}

// WithAuxiliaryAnswers records every answer in the map.
func WithAuxiliaryAnswers(answers map[AuxQuery]string) Option {
	return func(r *Result) error {
		for q, a := range answers {
			if err := checkAuxQuery(q); err != nil {
				return err
			}
			r.aux[q] = strPtr(a)
		}
		return nil
	}
}

func withAux(aux auxAnswers) Option {
	return func(r *Result) error {
		r.aux = aux
		return nil
	}
}

// New creates a non-phased result from its rollup vector.
func New(success bool, confidence float32, rollup aspect.Vector, opts ...Option) (*Result, error) {
	return build(success, confidence, false, rollup, nil, opts)
}

// NewFromArrays creates a non-phased result from parallel kind and value arrays.
func NewFromArrays(success bool, confidence float32, kinds []aspect.Kind, values []float64, opts ...Option) (*Result, error) {
	rollup, err := aspect.FromArrays(kinds, values)
	if err != nil {
		return nil, err
	}
	return build(success, confidence, false, rollup, nil, opts)
}

// NewPhased creates a phased result. Every phase must measure exactly the
// entries of the rollup.
func NewPhased(success bool, confidence float32, rollup aspect.Vector, phases []aspect.Vector, opts ...Option) (*Result, error) {
	if len(phases) == 0 {
		return nil, types.NewError(types.ErrLengthMismatch, "phased result requires at least one phase")
	}
	for i, p := range phases {
		if err := matchesRollup(rollup, p); err != nil {
			return nil, fmt.Errorf("phase %d: %w", i, err)
		}
	}
	cp := make([]aspect.Vector, len(phases))
	copy(cp, phases)
	return build(success, confidence, true, rollup, cp, opts)
}

func matchesRollup(rollup, phase aspect.Vector) error {
	if phase.Len() != rollup.Len() {
		return types.Errorf(types.ErrLengthMismatch,
			"phase has %d aspects, rollup has %d", phase.Len(), rollup.Len())
	}
	for _, v := range rollup.Values() {
		if phase.IndexOf(v.Kind, v.Asset) < 0 {
			return types.Errorf(types.ErrLengthMismatch, "phase is missing aspect %s", v.Kind)
		}
	}
	return nil
}

func build(success bool, confidence float32, phased bool, rollup aspect.Vector, phases []aspect.Vector, opts []Option) (*Result, error) {
	if c := float64(confidence); math.IsNaN(c) || math.IsInf(c, 0) {
		return nil, types.Errorf(types.ErrInvalidArgument, "confidence %g is not a finite number", c)
	}
	r := &Result{
		success:    success,
		confidence: confidence,
		phased:     phased,
		rollup:     rollup,
		phases:     phases,
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// IsSuccess reports whether the allocation succeeded.
func (r *Result) IsSuccess() bool { return r.success }

// Confidence returns the confidence rating, conceptually in [0,1].
func (r *Result) Confidence() float32 { return r.confidence }

// IsPhased reports whether the result carries per-period vectors.
func (r *Result) IsPhased() bool { return r.phased }

// Rollup returns the summary vector.
func (r *Result) Rollup() aspect.Vector { return r.rollup }

// Kinds returns the kinds defined by the rollup.
func (r *Result) Kinds() []aspect.Kind { return r.rollup.Kinds() }

// Phases returns a copy of the per-period vectors; nil when not phased.
func (r *Result) Phases() []aspect.Vector {
	if !r.phased {
		return nil
	}
	out := make([]aspect.Vector, len(r.phases))
	copy(out, r.phases)
	return out
}

// PhaseCount returns the number of periods.
func (r *Result) PhaseCount() int { return len(r.phases) }

// IsDefined reports whether the rollup carries kind k.
func (r *Result) IsDefined(k aspect.Kind) bool { return r.rollup.Has(k) }

// Value returns the rollup value of kind k. It fails with ErrUndefinedAspect
// when k is absent; guard with IsDefined.
func (r *Result) Value(k aspect.Kind) (float64, error) {
	if m := r.memo.Load(); m != 0 && aspect.Kind(m>>32)-1 == k {
		return r.rollup.At(int(uint32(m))).Value, nil
	}
	i := r.rollup.Index(k)
	if i < 0 {
		return 0, types.Errorf(types.ErrUndefinedAspect, "aspect %s not defined in result", k)
	}
	r.memo.Store(uint64(k+1)<<32 | uint64(uint32(i)))
	return r.rollup.At(i).Value, nil
}

// ValueForAsset returns the rollup value of the (kind, asset) entry.
func (r *Result) ValueForAsset(k aspect.Kind, asset string) (float64, error) {
	i := r.rollup.IndexOf(k, asset)
	if i < 0 {
		return 0, types.Errorf(types.ErrUndefinedAspect, "aspect %s[%s] not defined in result", k, asset)
	}
	return r.rollup.At(i).Value, nil
}

// AuxiliaryQuery returns the stored answer for q. ok is false when no answer
// was recorded. q outside the fixed range is an error.
func (r *Result) AuxiliaryQuery(q AuxQuery) (answer string, ok bool, err error) {
	if err := checkAuxQuery(q); err != nil {
		return "", false, err
	}
	if a := r.aux[q]; a != nil {
		return *a, true, nil
	}
	return "", false, nil
}

// AuxiliaryAnswers returns a copy of every recorded answer.
func (r *Result) AuxiliaryAnswers() map[AuxQuery]string {
	out := make(map[AuxQuery]string)
	for i, a := range r.aux {
		if a != nil {
			out[AuxQuery(i)] = *a
		}
	}
	return out
}

// Equal is a deep structural comparison, phase order included.
func (r *Result) Equal(o *Result) bool {
	if r == o {
		return true
	}
	if r == nil || o == nil {
		return false
	}
	if r.success != o.success || r.confidence != o.confidence || r.phased != o.phased {
		return false
	}
	if !r.rollup.Equal(o.rollup) || len(r.phases) != len(o.phases) {
		return false
	}
	for i := range r.phases {
		if !r.phases[i].Equal(o.phases[i]) {
			return false
		}
	}
	return r.aux.equal(o.aux)
}

func (r *Result) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Result{success=%t confidence=%.3f rollup=%s", r.success, r.confidence, r.rollup)
	if r.phased {
		fmt.Fprintf(&b, " phases=%d", len(r.phases))
	}
	if answers := r.AuxiliaryAnswers(); len(answers) > 0 {
		fmt.Fprintf(&b, " aux=%d", len(answers))
	}
	b.WriteString("}")
	return b.String()
}
