package workflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/BaSui01/planflow/allocation"
	"github.com/BaSui01/planflow/aspect"
	"github.com/BaSui01/planflow/task"
	"github.com/BaSui01/planflow/types"
)

// Definition 工作流的声明式描述，支持 JSON / YAML 导入导出
type Definition struct {
	Name        string                 `json:"name" yaml:"name"`
	Parent      string                 `json:"parent,omitempty" yaml:"parent,omitempty"`
	Aggregator  string                 `json:"aggregator,omitempty" yaml:"aggregator,omitempty"`
	Propagating bool                   `json:"propagating,omitempty" yaml:"propagating,omitempty"`
	Tasks       []TaskDefinition       `json:"tasks" yaml:"tasks"`
	Constraints []ConstraintDefinition `json:"constraints,omitempty" yaml:"constraints,omitempty"`
}

// TaskDefinition 子任务描述
type TaskDefinition struct {
	ID          string               `json:"id" yaml:"id"`
	Verb        string               `json:"verb,omitempty" yaml:"verb,omitempty"`
	Preferences map[string]float64   `json:"preferences,omitempty" yaml:"preferences,omitempty"`
	Result      *allocation.Document `json:"result,omitempty" yaml:"result,omitempty"`
}

// EventDefinition 约束一端的描述；Task 为空时表示绝对值 Value
type EventDefinition struct {
	Task   string   `json:"task,omitempty" yaml:"task,omitempty"`
	Aspect string   `json:"aspect" yaml:"aspect"`
	Value  *float64 `json:"value,omitempty" yaml:"value,omitempty"`
}

// ConstraintDefinition 约束描述
type ConstraintDefinition struct {
	Constrained  EventDefinition `json:"constrained" yaml:"constrained"`
	Constraining EventDefinition `json:"constraining" yaml:"constraining"`
	Order        string          `json:"order" yaml:"order"`
	Offset       float64         `json:"offset,omitempty" yaml:"offset,omitempty"`
}

// Validate checks the definition without building anything.
func (d *Definition) Validate() error {
	var errs []error
	if d.Name == "" {
		errs = append(errs, errors.New("workflow name is required"))
	}
	if _, err := ParsePolicy(d.Aggregator); err != nil {
		errs = append(errs, err)
	}
	if len(d.Tasks) == 0 {
		errs = append(errs, errors.New("workflow must have at least one task"))
	}

	ids := make(map[string]bool, len(d.Tasks))
	for i, t := range d.Tasks {
		if t.ID == "" {
			errs = append(errs, fmt.Errorf("task %d: id is required", i))
			continue
		}
		if ids[t.ID] {
			errs = append(errs, fmt.Errorf("task %s: duplicate id", t.ID))
		}
		ids[t.ID] = true
		for name := range t.Preferences {
			if _, err := aspect.ParseKind(name); err != nil {
				errs = append(errs, fmt.Errorf("task %s: %w", t.ID, err))
			}
		}
		if t.Result != nil {
			if _, err := resultOf(t.Result); err != nil {
				errs = append(errs, fmt.Errorf("task %s result: %w", t.ID, err))
			}
		}
	}

	for i, c := range d.Constraints {
		if _, err := c.build(ids); err != nil {
			errs = append(errs, fmt.Errorf("constraint %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

func resultOf(doc *allocation.Document) (*allocation.Result, error) {
	cp := *doc
	if cp.Version == 0 {
		cp.Version = allocation.DocumentVersion
	}
	return cp.Result()
}

func (c ConstraintDefinition) build(ids map[string]bool) (*Constraint, error) {
	if c.Constrained.Task == "" || !ids[c.Constrained.Task] {
		return nil, types.Errorf(types.ErrNotFound, "constrained task %q not defined", c.Constrained.Task)
	}
	order, err := ParseOrder(c.Order)
	if err != nil {
		return nil, err
	}
	constrainedAspect, err := aspect.ParseKind(c.Constrained.Aspect)
	if err != nil {
		return nil, err
	}
	constrainingAspect, err := aspect.ParseKind(c.Constraining.Aspect)
	if err != nil {
		return nil, err
	}

	if c.Constraining.Task == "" {
		if c.Constraining.Value == nil {
			return nil, types.NewError(types.ErrInvalidArgument, "absolute constraint needs a value")
		}
		return NewAbsoluteConstraint(*c.Constraining.Value, constrainingAspect,
			task.ID(c.Constrained.Task), constrainedAspect, order, c.Offset)
	}
	if !ids[c.Constraining.Task] {
		return nil, types.Errorf(types.ErrNotFound, "constraining task %q not defined", c.Constraining.Task)
	}
	return NewConstraint(task.ID(c.Constraining.Task), constrainingAspect,
		task.ID(c.Constrained.Task), constrainedAspect, order, c.Offset)
}

// Build publishes the tasks on board and returns the assembled workflow.
func (d *Definition) Build(board *task.Board, logger *zap.Logger, opts ...Option) (*Workflow, error) {
	if board == nil {
		return nil, types.NewError(types.ErrInvalidArgument, "board is required")
	}
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	policy, _ := ParsePolicy(d.Aggregator)
	agg, err := NewAggregator(policy, DefaultEpsilon)
	if err != nil {
		return nil, err
	}

	parent := task.ID(d.Parent)
	if parent.IsZero() {
		parent = task.NewID()
	}
	base := []Option{WithLogger(logger), WithAggregator(agg), WithPropagatingToSubtasks(d.Propagating)}
	wf := New(parent, board, append(base, opts...)...)

	ids := make(map[string]bool, len(d.Tasks))
	for _, td := range d.Tasks {
		bt := task.NewBaseTask(task.ID(td.ID), td.Verb, parent)
		for name, v := range td.Preferences {
			k, _ := aspect.ParseKind(name)
			bt.SetPreference(k, v)
		}
		if td.Result != nil {
			r, err := resultOf(td.Result)
			if err != nil {
				return nil, err
			}
			bt.SetResult(r)
		}
		if err := board.Publish(bt); err != nil {
			return nil, fmt.Errorf("publish task %s: %w", td.ID, err)
		}
		if err := wf.AddSubtask(bt.ID()); err != nil {
			return nil, err
		}
		ids[td.ID] = true
	}

	for i, cd := range d.Constraints {
		c, err := cd.build(ids)
		if err != nil {
			return nil, fmt.Errorf("constraint %d: %w", i, err)
		}
		if err := wf.AddConstraint(c); err != nil {
			return nil, fmt.Errorf("constraint %d: %w", i, err)
		}
	}
	return wf, nil
}

// ToJSON converts a Definition to JSON string
func (d *Definition) ToJSON() (string, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal to JSON: %w", err)
	}
	return string(data), nil
}

// ToYAML converts a Definition to YAML string
func (d *Definition) ToYAML() (string, error) {
	data, err := yaml.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("failed to marshal to YAML: %w", err)
	}
	return string(data), nil
}

// FromJSON creates a Definition from JSON string
func FromJSON(jsonStr string) (*Definition, error) {
	var def Definition
	if err := json.Unmarshal([]byte(jsonStr), &def); err != nil {
		return nil, fmt.Errorf("failed to unmarshal from JSON: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return &def, nil
}

// FromYAML creates a Definition from YAML string
func FromYAML(yamlStr string) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal([]byte(yamlStr), &def); err != nil {
		return nil, fmt.Errorf("failed to unmarshal from YAML: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return &def, nil
}

// LoadDefinitionFile loads a Definition from a .json, .yaml or .yml file.
func LoadDefinitionFile(filename string) (*Definition, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if isJSONFile(filename) {
		return FromJSON(string(data))
	}
	return FromYAML(string(data))
}

func isJSONFile(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".json")
}

// DefinitionOf exports a workflow and the current state of its subtasks.
// Constraints between tasks and absolute constraints are both exported.
func DefinitionOf(name string, wf *Workflow, board *task.Board) *Definition {
	def := &Definition{
		Name:        name,
		Parent:      wf.ParentTask().String(),
		Propagating: wf.IsPropagatingToSubtasks(),
	}
	switch wf.Aggregator().(type) {
	case NoopAggregator:
		def.Aggregator = string(PolicyNoop)
	case *VectorAggregator:
		def.Aggregator = string(PolicyVector)
	default:
		def.Aggregator = string(PolicyDefault)
	}

	for _, id := range wf.Subtasks() {
		td := TaskDefinition{ID: id.String()}
		if t, ok := board.Task(id); ok {
			if bt, ok := t.(*task.BaseTask); ok {
				td.Verb = bt.Verb()
			}
			td.Preferences = preferencesOf(t)
			if r := t.CurrentResult(); r != nil {
				td.Result = r.ToDocument()
			}
		}
		def.Tasks = append(def.Tasks, td)
	}

	for _, c := range wf.Constraints() {
		cd := ConstraintDefinition{
			Constrained:  EventDefinition{Task: c.Constrained.Task.String(), Aspect: c.Constrained.Kind.String()},
			Constraining: EventDefinition{Aspect: c.Constraining.Aspect().String()},
			Order:        c.Order.String(),
			Offset:       c.Offset,
		}
		if ev, ok := c.Constraining.(AbsoluteEvent); ok {
			v := ev.Amount
			cd.Constraining.Value = &v
		} else {
			cd.Constraining.Task = c.Constraining.TaskID().String()
		}
		def.Constraints = append(def.Constraints, cd)
	}
	return def
}

func preferencesOf(t task.Task) map[string]float64 {
	var out map[string]float64
	for k := 0; k < aspect.KindCount(); k++ {
		if v, ok := t.PreferredValue(aspect.Kind(k)); ok && !math.IsNaN(v) {
			if out == nil {
				out = make(map[string]float64)
			}
			out[aspect.Kind(k).String()] = v
		}
	}
	return out
}
