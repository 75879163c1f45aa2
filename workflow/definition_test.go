package workflow

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/planflow/aspect"
	"github.com/BaSui01/planflow/task"
)

const sampleYAML = `
name: resupply
parent: brigade-1
aggregator: default
propagating: true
tasks:
  - id: load
    verb: load
    result:
      success: true
      confidence: 1
      rollup:
        - {kind: start_time, value: 10}
        - {kind: end_time, value: 20}
        - {kind: cost, value: 5}
  - id: move
    verb: transport
    preferences:
      end_time: 30
    result:
      success: true
      confidence: 0.5
      rollup:
        - {kind: start_time, value: 15}
        - {kind: end_time, value: 25}
        - {kind: cost, value: 7}
      auxiliary:
        port_name: Rotterdam
constraints:
  - constrained: {task: move, aspect: start_time}
    constraining: {task: load, aspect: end_time}
    order: after
  - constrained: {task: move, aspect: end_time}
    constraining: {aspect: end_time, value: 40}
    order: before
`

func TestDefinition_FromYAMLAndBuild(t *testing.T) {
	t.Parallel()

	def, err := FromYAML(sampleYAML)
	require.NoError(t, err)
	assert.Equal(t, "resupply", def.Name)
	require.Len(t, def.Tasks, 2)

	board := task.NewBoard(nil)
	wf, err := def.Build(board, nil)
	require.NoError(t, err)

	assert.Equal(t, task.ID("brigade-1"), wf.ParentTask())
	assert.True(t, wf.IsPropagatingToSubtasks())
	assert.Equal(t, []task.ID{"load", "move"}, wf.Subtasks())
	require.Len(t, wf.Constraints(), 2)

	move, ok := board.Task("move")
	require.True(t, ok)
	pref, ok := move.PreferredValue(aspect.EndTime)
	assert.True(t, ok)
	assert.Equal(t, 30.0, pref)
	assert.Equal(t, []task.ID{"brigade-1"}, move.ParentIDs())

	// move starts at 15 but load ends at 20
	assert.True(t, wf.ConstraintViolation())
	assert.Equal(t, After, wf.NextPendingConstraint().Order)

	r := wf.AggregateAllocationResults()
	require.NotNil(t, r)
	assert.Equal(t, 12.0, value(t, r, aspect.Cost))
	assert.Equal(t, 15.0, value(t, r, aspect.Duration))
}

func TestDefinition_RoundTrip(t *testing.T) {
	t.Parallel()

	def, err := FromYAML(sampleYAML)
	require.NoError(t, err)
	board := task.NewBoard(nil)
	wf, err := def.Build(board, nil)
	require.NoError(t, err)

	exported := DefinitionOf("resupply", wf, board)
	jsonStr, err := exported.ToJSON()
	require.NoError(t, err)

	back, err := FromJSON(jsonStr)
	require.NoError(t, err)
	assert.Equal(t, exported, back)

	yamlStr, err := exported.ToYAML()
	require.NoError(t, err)
	fromYAML, err := FromYAML(yamlStr)
	require.NoError(t, err)
	assert.Equal(t, exported, fromYAML)

	rebuilt, err := fromYAML.Build(task.NewBoard(nil), nil)
	require.NoError(t, err)
	assert.Equal(t, wf.Subtasks(), rebuilt.Subtasks())
	assert.Len(t, rebuilt.Constraints(), 2)
}

func TestDefinition_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		yaml string
	}{
		{"no name", "tasks: [{id: a}]"},
		{"no tasks", "name: x"},
		{"duplicate task", "name: x\ntasks: [{id: a}, {id: a}]"},
		{"bad policy", "name: x\naggregator: median\ntasks: [{id: a}]"},
		{"bad preference", "name: x\ntasks: [{id: a, preferences: {weight: 1}}]"},
		{"unknown task", "name: x\ntasks: [{id: a}]\nconstraints: [{constrained: {task: b, aspect: cost}, constraining: {aspect: cost, value: 1}, order: before}]"},
		{"incompatible", "name: x\ntasks: [{id: a}, {id: b}]\nconstraints: [{constrained: {task: b, aspect: cost}, constraining: {task: a, aspect: risk}, order: before}]"},
		{"absolute without value", "name: x\ntasks: [{id: a}]\nconstraints: [{constrained: {task: a, aspect: cost}, constraining: {aspect: cost}, order: before}]"},
		{"bad order", "name: x\ntasks: [{id: a}]\nconstraints: [{constrained: {task: a, aspect: cost}, constraining: {aspect: cost, value: 1}, order: sideways}]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromYAML(tt.yaml)
			assert.Error(t, err)
		})
	}
}

func TestLoadDefinitionFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "plan.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(sampleYAML), 0o600))

	def, err := LoadDefinitionFile(yamlPath)
	require.NoError(t, err)
	jsonStr, err := def.ToJSON()
	require.NoError(t, err)

	jsonPath := filepath.Join(dir, "plan.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(jsonStr), 0o600))
	fromJSON, err := LoadDefinitionFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, def, fromJSON)

	_, err = LoadDefinitionFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
