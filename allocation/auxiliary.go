package allocation

import (
	"fmt"
	"strings"

	"github.com/BaSui01/planflow/types"
)

// AuxQuery is a side-channel question a provider may answer alongside the
// measured aspects of a result.
type AuxQuery int

const (
	AuxFailureReason AuxQuery = iota
	AuxPortName
	AuxPortLocation
	AuxUnitSourced
	AuxPOEDate
	AuxReadiness
	AuxOvertime

	auxQueryCount
)

// AuxQueryCount is the size of the fixed auxiliary query range.
const AuxQueryCount = int(auxQueryCount)

var auxQueryNames = [AuxQueryCount]string{
	AuxFailureReason: "failure_reason",
	AuxPortName:      "port_name",
	AuxPortLocation:  "port_location",
	AuxUnitSourced:   "unit_sourced",
	AuxPOEDate:       "poe_date",
	AuxReadiness:     "readiness",
	AuxOvertime:      "overtime",
}

// Valid reports whether q is inside the fixed range.
func (q AuxQuery) Valid() bool {
	return q >= 0 && q < auxQueryCount
}

func (q AuxQuery) String() string {
	if q.Valid() {
		return auxQueryNames[q]
	}
	return fmt.Sprintf("aux(%d)", int(q))
}

// ParseAuxQuery resolves a query by name.
func ParseAuxQuery(name string) (AuxQuery, error) {
	name = strings.TrimSpace(strings.ToLower(name))
	for i, n := range auxQueryNames {
		if n == name {
			return AuxQuery(i), nil
		}
	}
	return -1, types.Errorf(types.ErrAuxQueryRange, "unknown auxiliary query %q", name)
}

func checkAuxQuery(q AuxQuery) error {
	if !q.Valid() {
		return types.Errorf(types.ErrAuxQueryRange,
			"auxiliary query %d outside range [0,%d)", int(q), AuxQueryCount)
	}
	return nil
}

// auxAnswers stores one optional answer per query. nil means no answer.
type auxAnswers [AuxQueryCount]*string

func (a auxAnswers) equal(o auxAnswers) bool {
	for i := range a {
		switch {
		case a[i] == nil && o[i] == nil:
		case a[i] == nil || o[i] == nil:
			return false
		case *a[i] != *o[i]:
			return false
		}
	}
	return true
}

func strPtr(s string) *string { return &s }
