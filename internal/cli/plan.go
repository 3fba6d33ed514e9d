package cli

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/envelope/internal/engine"
	"github.com/roach88/envelope/internal/ir"
)

// PlanOptions holds flags for the plan command.
type PlanOptions struct {
	*RootOptions
	ConfigOptions
	Input string
}

// PlanOutput is the result of the plan command.
type PlanOutput struct {
	Strategy   string             `json:"strategy"`
	Arriving   int                `json:"arriving"`
	Existing   int                `json:"existing"`
	Partitions int                `json:"partitions"`
	Counts     map[string]int     `json:"counts"`
	Planned    []ir.PlannedRecord `json:"planned"`
}

// WriteText renders one line per planned record under a summary line.
func (p PlanOutput) WriteText(w io.Writer) error {
	fmt.Fprintf(w, "strategy=%s arriving=%d existing=%d partitions=%d\n",
		p.Strategy, p.Arriving, p.Existing, p.Partitions)
	for _, op := range slices.Sorted(maps.Keys(p.Counts)) {
		fmt.Fprintf(w, "  %s: %d\n", op, p.Counts[op])
	}
	for _, pr := range p.Planned {
		b, err := ir.MarshalCanonical(pr.Record())
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%-6s %s\n", pr.Operation(), b); err != nil {
			return err
		}
	}
	return nil
}

func newPlanOutput(b *engine.Batch) PlanOutput {
	counts := make(map[string]int)
	for op, n := range b.Counts() {
		counts[string(op)] = n
	}
	planned := b.Planned
	if planned == nil {
		planned = []ir.PlannedRecord{}
	}
	return PlanOutput{
		Strategy:   b.Strategy,
		Arriving:   b.Arriving,
		Existing:   b.Existing,
		Partitions: b.Partitions,
		Counts:     counts,
		Planned:    planned,
	}
}

// NewPlanCommand creates the plan command.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlanOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Plan a batch without writing it",
		Long: `Translate an input file into records and print the write plan the
configured strategy produces for them. Nothing is written.

Strategies that need existing records read them from the configured store.

Examples:
  envelope plan --config app.cue --input batch.txt
  envelope plan --config app.yaml --input - --format json < batch.jsonl
  envelope plan --config app.cue --input batch.txt --set planner=upsert`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(opts, cmd)
		},
	}

	opts.bind(cmd)
	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", `input file, one message per line ("-" for stdin) (required)`)
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runPlan(opts *PlanOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	logger := opts.logger(cmd.ErrOrStderr())

	cfg, err := opts.load()
	if err != nil {
		return f.Fail(ExitCommandError, "failed to load configuration", err)
	}
	c, err := engine.NewContext(cfg, engine.WithLogger(logger))
	if err != nil {
		return f.Fail(ExitCommandError, "invalid configuration", err)
	}
	defer c.Close()

	tr, err := c.Translator()
	if err != nil {
		return f.Fail(ExitCommandError, "invalid translator", err)
	}
	records, err := readRecords(opts.Input, cmd.InOrStdin(), tr)
	if err != nil {
		return f.Fail(ExitCommandError, "failed to read input", err)
	}
	f.VerboseLog("read %d record(s) from %s", len(records), opts.Input)

	p, err := c.Planner()
	if err != nil {
		return f.Fail(ExitCommandError, "invalid configuration", err)
	}
	if p.RequiresExistingRecords() {
		if err := c.OpenStore(cmd.Context()); err != nil {
			return f.Fail(ExitCommandError, "failed to open store", err)
		}
	}

	batch, err := engine.New(c).Plan(cmd.Context(), records)
	if err != nil {
		return f.Fail(ExitFailure, "planning failed", err)
	}
	return f.Success(newPlanOutput(batch))
}
