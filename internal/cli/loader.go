package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/envelope/internal/config"
	"github.com/roach88/envelope/internal/ir"
	"github.com/roach88/envelope/internal/planner"
	"github.com/roach88/envelope/internal/translate"
)

// maxLineBytes bounds one input message.
const maxLineBytes = 16 << 20

// ConfigOptions are the flags of commands that load a configuration.
type ConfigOptions struct {
	Config string   // .cue, .yaml/.yml file, or a CUE package directory
	Sets   []string // key=value overrides applied after loading
}

func (c *ConfigOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&c.Config, "config", "c", "", "configuration file or CUE directory (required)")
	_ = cmd.MarkFlagRequired("config")
	cmd.Flags().StringArrayVar(&c.Sets, "set", nil, "override a configuration key (key=value, repeatable)")
}

// load reads the configuration and applies the --set overrides. Input is
// read as JSON lines unless a translator is configured.
func (c *ConfigOptions) load() (planner.Config, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, err
	}
	for _, kv := range c.Sets {
		key, value, ok := strings.Cut(kv, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, &config.LoadError{Message: fmt.Sprintf("invalid --set %q: expected key=value", kv)}
		}
		cfg[key] = value
	}
	if _, ok := cfg[translate.OptionTranslator]; !ok {
		cfg[translate.OptionTranslator] = translate.NameJSON
	}
	return cfg, nil
}

// readRecords translates every non-blank line of path, or of stdin when
// path is "-", into a record.
func readRecords(path string, stdin io.Reader, tr translate.Translator) ([]ir.Record, error) {
	var r io.Reader = stdin
	name := "stdin"
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
		name = path
	}

	var records []ir.Record
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		rec, err := tr.Translate(nil, []byte(text))
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", name, line, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return records, nil
}
