package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// writeConfig writes a YAML configuration whose store is a sqlite file in
// the same temp dir. Extra lines are appended verbatim.
func writeConfig(t *testing.T, planner string, extra ...string) (path, dsn string) {
	t.Helper()
	dir := t.TempDir()
	dsn = filepath.Join(dir, "envelope.db")
	lines := []string{
		"planner: " + planner,
		"model.key.fields: [id]",
		fmt.Sprintf("store.dsn: %q", dsn),
		"store.dataset: orders",
	}
	lines = append(lines, extra...)
	path = filepath.Join(dir, "app.yaml")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path, dsn
}

func writeInput(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "batch.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

// execute runs cmd with args and returns what it wrote to stdout.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}
