package aspect

import (
	"fmt"
	"strings"
	"sync"

	"github.com/BaSui01/planflow/types"
)

// Kind identifies a measurable dimension of an allocation outcome.
type Kind int

// Core kinds. The numbering is stable; persisted documents refer to kinds by
// name, never by number.
const (
	StartTime Kind = iota
	EndTime
	Duration
	Cost
	Danger
	Risk
	Quantity
	Interval
	TotalQuantity
	TotalShipments
	CustomerSatisfaction
	TypedQuantity
	Readiness
	PODDate

	coreKindCount
)

// CoreKindCount is the number of kinds known without registration.
const CoreKindCount = int(coreKindCount)

var (
	kindMu    sync.RWMutex
	kindNames = []string{
		StartTime:            "start_time",
		EndTime:              "end_time",
		Duration:             "duration",
		Cost:                 "cost",
		Danger:               "danger",
		Risk:                 "risk",
		Quantity:             "quantity",
		Interval:             "interval",
		TotalQuantity:        "total_quantity",
		TotalShipments:       "total_shipments",
		CustomerSatisfaction: "customer_satisfaction",
		TypedQuantity:        "typed_quantity",
		Readiness:            "readiness",
		PODDate:              "pod_date",
	}
)

// RegisterKind adds a custom kind to the set. Registering an existing name
// returns the kind already bound to it.
func RegisterKind(name string) (Kind, error) {
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "" {
		return -1, types.NewError(types.ErrInvalidArgument, "aspect kind name is required")
	}

	kindMu.Lock()
	defer kindMu.Unlock()

	for i, n := range kindNames {
		if n == name {
			return Kind(i), nil
		}
	}
	kindNames = append(kindNames, name)
	return Kind(len(kindNames) - 1), nil
}

// ParseKind resolves a kind by its registered name.
func ParseKind(name string) (Kind, error) {
	name = strings.TrimSpace(strings.ToLower(name))

	kindMu.RLock()
	defer kindMu.RUnlock()

	for i, n := range kindNames {
		if n == name {
			return Kind(i), nil
		}
	}
	return -1, types.Errorf(types.ErrInvalidArgument, "unknown aspect kind %q", name)
}

// KindCount returns the number of kinds currently known, core plus registered.
func KindCount() int {
	kindMu.RLock()
	defer kindMu.RUnlock()
	return len(kindNames)
}

// Valid reports whether k is a core or registered kind.
func (k Kind) Valid() bool {
	return k >= 0 && int(k) < KindCount()
}

// IsTemporal reports whether k is a point in time (start or end).
func (k Kind) IsTemporal() bool {
	return k == StartTime || k == EndTime
}

// String returns the registered name of the kind.
func (k Kind) String() string {
	kindMu.RLock()
	defer kindMu.RUnlock()
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, types.Errorf(types.ErrInvalidArgument, "unknown aspect kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind from its name.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
