package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/envelope/internal/config"
	"github.com/roach88/envelope/internal/engine"
	"github.com/roach88/envelope/internal/ir"
)

// RecordsOptions holds flags for the records command.
type RecordsOptions struct {
	*RootOptions
	ConfigOptions
	Database string
	Limit    int
}

// RecordsResult holds the stored rows of a dataset.
type RecordsResult struct {
	Dataset string      `json:"dataset"`
	Total   int         `json:"total"`
	Records []ir.Record `json:"records"`
}

// WriteText renders one canonical JSON line per record.
func (r RecordsResult) WriteText(w io.Writer) error {
	for _, rec := range r.Records {
		b, err := ir.MarshalCanonical(rec)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\n", b)
	}
	_, err := fmt.Fprintf(w, "(%d of %d record(s) in %s)\n", len(r.Records), r.Total, r.Dataset)
	return err
}

// NewRecordsCommand creates the records command.
func NewRecordsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RecordsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "records",
		Short: "Print the stored records of the configured dataset",
		Long: `Print every record stored for the configured dataset, oldest write
first.

Examples:
  envelope records --config app.cue
  envelope records --config app.cue --db ./envelope.db --limit 20 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecords(opts, cmd)
		},
	}

	opts.bind(cmd)
	cmd.Flags().StringVar(&opts.Database, "db", "", "store DSN, overrides store.dsn")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "print at most this many records (0 = all)")

	return cmd
}

func runRecords(opts *RecordsOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	cfg, err := opts.load()
	if err != nil {
		return f.Fail(ExitCommandError, "failed to load configuration", err)
	}
	if opts.Database != "" {
		cfg[config.KeyStoreDSN] = opts.Database
	}
	c, err := engine.NewContext(cfg, engine.WithLogger(opts.logger(cmd.ErrOrStderr())))
	if err != nil {
		return f.Fail(ExitCommandError, "invalid configuration", err)
	}
	defer c.Close()

	if err := c.OpenStore(cmd.Context()); err != nil {
		return f.Fail(ExitCommandError, "failed to open store", err)
	}
	records, err := c.Store.Records(cmd.Context(), c.App.Dataset)
	if err != nil {
		return f.Fail(ExitCommandError, "failed to read records", err)
	}

	res := RecordsResult{Dataset: c.App.Dataset, Total: len(records), Records: records}
	if opts.Limit > 0 && len(res.Records) > opts.Limit {
		res.Records = res.Records[:opts.Limit]
	}
	return f.Success(res)
}
