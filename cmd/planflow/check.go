package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/BaSui01/planflow/allocation"
	"github.com/BaSui01/planflow/task"
	"github.com/BaSui01/planflow/workflow"
)

var errConstraintsViolated = errors.New("constraints violated")

var checkCmd = &cobra.Command{
	Use:   "check -f plan.yaml",
	Short: "Aggregate a workflow definition offline",
	Long: `Load a workflow definition (YAML or JSON), build it on an empty
blackboard and aggregate the results of its subtasks.

The aggregate and every violated constraint are printed. The exit code
indicates the result:
  0 - all constraints hold (the aggregate may still be incomplete)
  1 - the file could not be loaded or a constraint is violated

Examples:
  planflow check -f plan.yaml
  planflow check -f plan.json --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runCheck(cmd.OutOrStdout(), checkFile, checkJSON)
	},
}

var (
	checkFile string
	checkJSON bool
)

func init() {
	checkCmd.Flags().StringVarP(&checkFile, "file", "f", "", "Workflow definition file (.yaml, .yml or .json)")
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "Output the check result as JSON")
	_ = checkCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(checkCmd)
}

// CheckOutput check 命令的 JSON 输出
type CheckOutput struct {
	Name       string               `json:"name"`
	Parent     string               `json:"parent"`
	Aggregator string               `json:"aggregator"`
	Subtasks   int                  `json:"subtasks"`
	Complete   bool                 `json:"complete"`
	Aggregate  *allocation.Document `json:"aggregate,omitempty"`
	Violations []ViolationOutput    `json:"violations,omitempty"`
}

// ViolationOutput 一个被违反的约束
type ViolationOutput struct {
	Constraint string   `json:"constraint"`
	Pending    bool     `json:"pending"`
	Required   *float64 `json:"required,omitempty"`
	Preferred  *float64 `json:"preferred,omitempty"`
}

func runCheck(out io.Writer, path string, asJSON bool) error {
	def, err := workflow.LoadDefinitionFile(path)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}

	board := task.NewBoard(nil)
	wf, err := def.Build(board, nil)
	if err != nil {
		return fmt.Errorf("build %s: %w", def.Name, err)
	}
	defer wf.Retract()

	result := wf.AggregateAllocationResults()
	output := CheckOutput{
		Name:       def.Name,
		Parent:     wf.ParentTask().String(),
		Aggregator: aggregatorLabel(def.Aggregator),
		Subtasks:   wf.SubtaskCount(),
		Complete:   result != nil,
	}
	if result != nil {
		output.Aggregate = result.ToDocument()
	}
	for _, c := range wf.ViolatedConstraints() {
		v := ViolationOutput{
			Constraint: c.String(),
			Pending:    c.Evaluate(board) == workflow.StatusPending,
		}
		if required, ok := c.RequiredValue(board); ok {
			v.Required = &required
		}
		if preferred, ok := c.Constrained.PreferredValue(board); ok {
			v.Preferred = &preferred
		}
		output.Violations = append(output.Violations, v)
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(output); err != nil {
			return err
		}
	} else {
		printCheck(out, output, result)
	}

	if len(output.Violations) > 0 {
		return fmt.Errorf("%s: %d %w", def.Name, len(output.Violations), errConstraintsViolated)
	}
	return nil
}

func printCheck(out io.Writer, o CheckOutput, result *allocation.Result) {
	fmt.Fprintf(out, "Workflow:   %s\n", o.Name)
	fmt.Fprintf(out, "Parent:     %s\n", o.Parent)
	fmt.Fprintf(out, "Aggregator: %s\n", o.Aggregator)
	fmt.Fprintf(out, "Subtasks:   %d\n", o.Subtasks)
	if result == nil {
		fmt.Fprintln(out, "Aggregate:  incomplete")
	} else {
		fmt.Fprintf(out, "Aggregate:  %s\n", result)
	}

	if len(o.Violations) == 0 {
		fmt.Fprintln(out, "\n✓ all constraints satisfied")
		return
	}
	fmt.Fprintf(out, "\n✗ %d violated constraint(s):\n", len(o.Violations))
	for _, v := range o.Violations {
		fmt.Fprintf(out, "  - %s", v.Constraint)
		switch {
		case v.Pending:
			fmt.Fprint(out, " (pending)")
		case v.Required != nil:
			fmt.Fprintf(out, " (required %g)", *v.Required)
		}
		if v.Preferred != nil {
			fmt.Fprintf(out, " preferred %g", *v.Preferred)
		}
		fmt.Fprintln(out)
	}
}

func aggregatorLabel(name string) string {
	policy, err := workflow.ParsePolicy(name)
	if err != nil {
		return name
	}
	return string(policy)
}
