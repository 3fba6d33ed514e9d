package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	SeqURL  string // optional Seq server receiving logs

	log      *slog.Logger
	closeLog func()
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Execute runs the envelope CLI and releases logging resources afterwards.
func Execute() error {
	cmd, opts := newRoot()
	defer opts.closeLogging()
	return cmd.Execute()
}

// NewRootCommand creates the root command for the envelope CLI.
func NewRootCommand() *cobra.Command {
	cmd, _ := newRoot()
	return cmd
}

func newRoot() (*cobra.Command, *RootOptions) {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "envelope",
		Short: "envelope - plan and apply CDC write batches",
		Long: `Plan change-data-capture batches into write operations and apply them.

A pluggable planning strategy decides, for each arriving record, whether it
is inserted, updated, upserted, deleted or skipped. The strategy is chosen
by configuration and resolved from a registry.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			opts.setupLogging(cmd.ErrOrStderr())
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.SeqURL, "seq-url", "", "also send logs to this Seq server")

	cmd.AddCommand(NewPlanCommand(opts))
	cmd.AddCommand(NewApplyCommand(opts))
	cmd.AddCommand(NewStreamCommand(opts))
	cmd.AddCommand(NewStrategiesCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewRecordsCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd, opts
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// logger returns the configured logger, or a stderr text logger when the
// root pre-run did not run (commands built on their own).
func (o *RootOptions) logger(w io.Writer) *slog.Logger {
	if o.log == nil {
		o.setupLogging(w)
	}
	return o.log
}

// formatter builds the output formatter for a command.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}
