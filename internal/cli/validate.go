package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/envelope/internal/engine"
	"github.com/roach88/envelope/internal/registry"
	"github.com/roach88/envelope/internal/translate"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid       bool     `json:"valid"`
	Strategy    string   `json:"strategy"`
	Translator  string   `json:"translator"`
	Fields      []string `json:"fields,omitempty"`
	KeyFields   []string `json:"key_fields"`
	Dataset     string   `json:"dataset"`
	Store       string   `json:"store"`
	Parallelism int      `json:"parallelism"`
}

// WriteText renders the resolved settings.
func (v ValidationResult) WriteText(w io.Writer) error {
	fmt.Fprintln(w, "✓ configuration is valid")
	fmt.Fprintf(w, "  strategy:    %s\n", v.Strategy)
	fmt.Fprintf(w, "  translator:  %s\n", v.Translator)
	if len(v.Fields) > 0 {
		fmt.Fprintf(w, "  fields:      %s\n", strings.Join(v.Fields, ", "))
	}
	fmt.Fprintf(w, "  key fields:  %s\n", strings.Join(v.KeyFields, ", "))
	fmt.Fprintf(w, "  dataset:     %s\n", v.Dataset)
	fmt.Fprintf(w, "  store:       %s\n", v.Store)
	_, err := fmt.Fprintf(w, "  parallelism: %d\n", v.Parallelism)
	return err
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConfigOptions{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration without planning",
		Long: `Load a configuration, build the record model and application
settings, and construct the configured strategy and translator. No input is
read and the store is not opened.

Exit codes:
  0 - Configuration is valid
  2 - Configuration could not be loaded or is invalid`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, opts, cmd)
		},
	}
	opts.bind(cmd)

	return cmd
}

func runValidate(rootOpts *RootOptions, opts *ConfigOptions, cmd *cobra.Command) error {
	f := rootOpts.formatter(cmd)

	cfg, err := opts.load()
	if err != nil {
		return f.Fail(ExitCommandError, "failed to load configuration", err)
	}
	f.VerboseLog("loaded %d option(s) from %s", len(cfg), opts.Config)

	c, err := engine.NewContext(cfg, engine.WithLogger(rootOpts.logger(cmd.ErrOrStderr())))
	if err != nil {
		return f.Fail(ExitCommandError, "invalid configuration", err)
	}
	defer c.Close()

	tr, err := c.Translator()
	if err != nil {
		return f.Fail(ExitCommandError, "invalid translator", err)
	}

	res := ValidationResult{
		Valid:       true,
		Strategy:    c.Config.String(registry.OptionPlanner, ""),
		Translator:  c.Config.String(translate.OptionTranslator, ""),
		KeyFields:   c.Model.KeyFieldNames(),
		Dataset:     c.App.Dataset,
		Store:       c.App.StoreDriver + " table " + c.App.StoreTable,
		Parallelism: c.App.Parallelism(),
	}
	for _, fld := range tr.Fields() {
		res.Fields = append(res.Fields, fld.Name+":"+string(fld.Type))
	}
	return f.Success(res)
}
