package allocation

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/BaSui01/planflow/aspect"
	"github.com/BaSui01/planflow/types"
)

// DocumentVersion is the current version of the result wire document.
const DocumentVersion = 1

// Document is the versioned, graph-free representation of a Result. Every
// field round-trips: phase order is preserved and auxiliary answers stay
// sparse (absent queries are omitted, empty answers are kept).
type Document struct {
	Version    int               `json:"version" yaml:"version"`
	Success    bool              `json:"success" yaml:"success"`
	Confidence float32           `json:"confidence" yaml:"confidence"`
	Phased     bool              `json:"phased,omitempty" yaml:"phased,omitempty"`
	Rollup     []ValueDocument   `json:"rollup" yaml:"rollup"`
	Phases     [][]ValueDocument `json:"phases,omitempty" yaml:"phases,omitempty"`
	Auxiliary  map[string]string `json:"auxiliary,omitempty" yaml:"auxiliary,omitempty"`
}

// ValueDocument is one aspect entry; kinds travel by name.
type ValueDocument struct {
	Kind  string  `json:"kind" yaml:"kind"`
	Value float64 `json:"value" yaml:"value"`
	Asset string  `json:"asset,omitempty" yaml:"asset,omitempty"`
}

// ToDocument converts the result to its wire document.
func (r *Result) ToDocument() *Document {
	doc := &Document{
		Version:    DocumentVersion,
		Success:    r.success,
		Confidence: r.confidence,
		Phased:     r.phased,
		Rollup:     vectorToDocument(r.rollup),
	}
	if r.phased {
		doc.Phases = make([][]ValueDocument, len(r.phases))
		for i, p := range r.phases {
			doc.Phases[i] = vectorToDocument(p)
		}
	}
	if answers := r.AuxiliaryAnswers(); len(answers) > 0 {
		doc.Auxiliary = make(map[string]string, len(answers))
		for q, a := range answers {
			doc.Auxiliary[q.String()] = a
		}
	}
	return doc
}

// Result rebuilds the result, applying every construction check.
func (d *Document) Result() (*Result, error) {
	if d.Version != DocumentVersion {
		return nil, types.Errorf(types.ErrCodecVersion,
			"unsupported result document version %d (want %d)", d.Version, DocumentVersion)
	}

	rollup, err := documentToVector(d.Rollup)
	if err != nil {
		return nil, fmt.Errorf("rollup: %w", err)
	}

	answers := make(map[AuxQuery]string, len(d.Auxiliary))
	for name, a := range d.Auxiliary {
		q, err := ParseAuxQuery(name)
		if err != nil {
			return nil, err
		}
		answers[q] = a
	}
	opts := []Option{WithAuxiliaryAnswers(answers)}

	if !d.Phased {
		if len(d.Phases) > 0 {
			return nil, types.NewError(types.ErrLengthMismatch, "non-phased document carries phases")
		}
		return New(d.Success, d.Confidence, rollup, opts...)
	}

	phases := make([]aspect.Vector, len(d.Phases))
	for i, p := range d.Phases {
		if phases[i], err = documentToVector(p); err != nil {
			return nil, fmt.Errorf("phase %d: %w", i, err)
		}
	}
	return NewPhased(d.Success, d.Confidence, rollup, phases, opts...)
}

func vectorToDocument(v aspect.Vector) []ValueDocument {
	out := make([]ValueDocument, v.Len())
	for i, val := range v.Values() {
		out[i] = ValueDocument{Kind: val.Kind.String(), Value: val.Value, Asset: val.Asset}
	}
	return out
}

func documentToVector(docs []ValueDocument) (aspect.Vector, error) {
	values := make([]aspect.Value, len(docs))
	for i, d := range docs {
		k, err := aspect.ParseKind(d.Kind)
		if err != nil {
			return aspect.Vector{}, err
		}
		values[i] = aspect.Value{Kind: k, Value: d.Value, Asset: d.Asset}
	}
	return aspect.NewVector(values...)
}

// MarshalJSON encodes the result as a versioned document.
func (r *Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.ToDocument())
}

// UnmarshalJSON decodes a versioned document into r.
func (r *Result) UnmarshalJSON(data []byte) error {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to unmarshal allocation result: %w", err)
	}
	return r.assign(&doc)
}

// MarshalYAML encodes the result as a versioned document.
func (r *Result) MarshalYAML() (interface{}, error) {
	return r.ToDocument(), nil
}

// UnmarshalYAML decodes a versioned document into r.
func (r *Result) UnmarshalYAML(node *yaml.Node) error {
	var doc Document
	if err := node.Decode(&doc); err != nil {
		return fmt.Errorf("failed to unmarshal allocation result: %w", err)
	}
	return r.assign(&doc)
}

func (r *Result) assign(doc *Document) error {
	decoded, err := doc.Result()
	if err != nil {
		return err
	}
	r.success = decoded.success
	r.confidence = decoded.confidence
	r.phased = decoded.phased
	r.rollup = decoded.rollup
	r.phases = decoded.phases
	r.aux = decoded.aux
	r.memo.Store(0)
	return nil
}

// Encode serializes a result to JSON.
func Encode(r *Result) ([]byte, error) {
	if r == nil {
		return nil, types.NewError(types.ErrInvalidArgument, "cannot encode nil result")
	}
	return json.Marshal(r.ToDocument())
}

// Decode parses a JSON document produced by Encode.
func Decode(data []byte) (*Result, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal allocation result: %w", err)
	}
	return doc.Result()
}
