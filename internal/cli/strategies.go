package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/envelope/internal/planner"
	"github.com/roach88/envelope/internal/registry"
)

// StrategyInfo describes one registered strategy's contract.
type StrategyInfo struct {
	Name                  string   `json:"name"`
	RequiresExisting      bool     `json:"requires_existing"`
	RequiresKeyColocation bool     `json:"requires_key_colocation"`
	Emits                 []string `json:"emits"`
	Error                 string   `json:"error,omitempty"`
}

// StrategyList is the result of the strategies command.
type StrategyList []StrategyInfo

// WriteText renders the list as a table.
func (l StrategyList) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tEXISTING\tCOLOCATION\tEMITS")
	for _, s := range l {
		if s.Error != "" {
			fmt.Fprintf(tw, "%s\t-\t-\t(%s)\n", s.Name, s.Error)
			continue
		}
		fmt.Fprintf(tw, "%s\t%t\t%t\t%s\n", s.Name, s.RequiresExisting, s.RequiresKeyColocation, strings.Join(s.Emits, ","))
	}
	return tw.Flush()
}

// NewStrategiesCommand creates the strategies command.
func NewStrategiesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "strategies",
		Short: "List planning strategies and their contracts",
		Long: `List the registered planning strategies with the contract each one
declares: whether it needs existing records, whether same-key records must
be planned together, and which operation types it may emit.

Strategies are built with default options; one that needs options to
construct is listed with its construction error.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			reg := registry.New(registry.WithPlannerOptions(
				planner.WithLogger(rootOpts.logger(cmd.ErrOrStderr()))))
			return f.Success(describeStrategies(reg))
		},
	}
	return cmd
}

func describeStrategies(reg *registry.Registry) StrategyList {
	names := reg.Names()
	out := make(StrategyList, 0, len(names))
	for _, name := range names {
		info := StrategyInfo{Name: name, Emits: []string{}}
		p, err := reg.Build(name, planner.Config{registry.OptionPlanner: name})
		if err != nil {
			info.Error = err.Error()
			out = append(out, info)
			continue
		}
		info.RequiresExisting = p.RequiresExistingRecords()
		info.RequiresKeyColocation = p.RequiresKeyColocation()
		for _, op := range p.EmittedOperationTypes().Slice() {
			info.Emits = append(info.Emits, op.String())
		}
		out = append(out, info)
	}
	return out
}
