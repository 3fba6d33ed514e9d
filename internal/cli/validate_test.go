package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCommand_Text(t *testing.T) {
	cfg, _ := writeConfig(t, "upsert")

	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ configuration is valid")
	assert.Contains(t, out, "strategy:    upsert")
	assert.Contains(t, out, "translator:  json")
	assert.Contains(t, out, "key fields:  id")
	assert.Contains(t, out, "dataset:     orders")
	assert.Contains(t, out, "store:       sqlite3 table records")
}

func TestValidateCommand_JSON(t *testing.T) {
	cfg, _ := writeConfig(t, "insert-only",
		"translator: delimited",
		"translator.field.names: [id, v]",
		"translator.field.types: [string, long]",
		"application.executors: 2",
		"application.executor.cores: 3",
	)

	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "json"}), "--config", cfg)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, "delimited", resp.Data.Translator)
	assert.Equal(t, []string{"id:string", "v:long"}, resp.Data.Fields)
	assert.Equal(t, 6, resp.Data.Parallelism)
}

func TestValidateCommand_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		extra   []string
		wantMsg string
	}{
		{"bad batch interval", []string{"application.batch.milliseconds: 0"}, "application.batch.milliseconds"},
		{"unknown translator", []string{"translator: xml"}, "invalid translator"},
		{"bad table name", []string{"store.table: \"drop table\""}, "store.table"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, _ := writeConfig(t, "insert-only", tt.extra...)

			_, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), "--config", cfg)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}
