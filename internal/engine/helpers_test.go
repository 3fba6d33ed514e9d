package engine

import (
	"context"
	"io"
	"log/slog"
	"maps"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/envelope/internal/planner"
	"github.com/roach88/envelope/internal/store"
	"github.com/roach88/envelope/internal/testutil"
)

var testTime = time.Date(2024, 5, 6, 7, 8, 9, 10_000_000, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func baseConfig(overrides planner.Config) planner.Config {
	cfg := planner.Config{
		"application.name": "test",
		"planner":          planner.NameInsertOnly,
		"model.key.fields": "id",
	}
	maps.Copy(cfg, overrides)
	return cfg
}

// createTestContext builds a Context over a fresh sqlite store with a fixed
// clock and sequential keys.
func createTestContext(t *testing.T, overrides planner.Config) *Context {
	t.Helper()
	s, err := store.Open(context.Background(), store.DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	c, err := NewContext(baseConfig(overrides),
		WithStore(s),
		WithLogger(discardLogger()),
		WithPlannerOptions(
			planner.WithClock(testutil.NewFakeClock(testTime)),
			planner.WithKeyGenerator(testutil.NewSequenceKeyGenerator("id")),
		))
	require.NoError(t, err)
	return c
}
