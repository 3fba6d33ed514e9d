package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/envelope/internal/config"
	"github.com/roach88/envelope/internal/engine"
	"github.com/roach88/envelope/internal/store"
)

// ApplyOptions holds flags for the apply command.
type ApplyOptions struct {
	*RootOptions
	ConfigOptions
	Input    string
	Database string
}

// ApplyOutput is the result of the apply command.
type ApplyOutput struct {
	Plan       PlanOutput   `json:"plan"`
	Written    store.Result `json:"written"`
	DurationMS int64        `json:"duration_ms"`
}

// WriteText renders the write counts and, when verbose, the plan.
func (a ApplyOutput) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "strategy=%s arriving=%d inserted=%d updated=%d deleted=%d upserted=%d skipped=%d (%dms)\n",
		a.Plan.Strategy, a.Plan.Arriving,
		a.Written.Inserted, a.Written.Updated, a.Written.Deleted, a.Written.Upserted, a.Written.Skipped,
		a.DurationMS)
	return err
}

// NewApplyCommand creates the apply command.
func NewApplyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ApplyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Plan a batch and write it to the store",
		Long: `Translate an input file into records, plan them with the configured
strategy, and apply the plan to the store in one transaction.

Operations the strategy does not declare are rejected before anything is
written.

Examples:
  envelope apply --config app.cue --input batch.txt
  envelope apply --config app.yaml --input batch.txt --db ./envelope.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(opts, cmd)
		},
	}

	opts.bind(cmd)
	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", `input file, one message per line ("-" for stdin) (required)`)
	_ = cmd.MarkFlagRequired("input")
	cmd.Flags().StringVar(&opts.Database, "db", "", "store DSN, overrides store.dsn")

	return cmd
}

func runApply(opts *ApplyOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	logger := opts.logger(cmd.ErrOrStderr())

	cfg, err := opts.load()
	if err != nil {
		return f.Fail(ExitCommandError, "failed to load configuration", err)
	}
	if opts.Database != "" {
		cfg[config.KeyStoreDSN] = opts.Database
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

	if err := c.OpenStore(cmd.Context()); err != nil {
		return f.Fail(ExitCommandError, "failed to open store", err)
	}
	f.VerboseLog("store %s table %s dataset %s", c.App.StoreDriver, c.App.StoreTable, c.App.Dataset)

	res, err := engine.New(c).Apply(cmd.Context(), records)
	if err != nil {
		return f.Fail(ExitFailure, "apply failed", err)
	}

	out := ApplyOutput{
		Plan:       newPlanOutput(res.Batch),
		Written:    res.Written,
		DurationMS: res.Duration.Milliseconds(),
	}
	if f.Format != "json" && f.Verbose {
		if err := out.Plan.WriteText(f.GetErrWriter()); err != nil {
			return err
		}
	}
	return f.Success(out)
}
