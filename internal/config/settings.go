package config

import (
	"fmt"
	"regexp"
	"time"

	"github.com/roach88/envelope/internal/ir"
	"github.com/roach88/envelope/internal/planner"
)

// Record model keys.
const (
	KeyModelKeyFields   = "model.key.fields"
	KeyModelLastUpdated = "model.last.updated.field"
	KeyModelTimestamp   = "model.timestamp.field"
)

// Application keys.
const (
	KeyApplicationName   = "application.name"
	KeyBatchMilliseconds = "application.batch.milliseconds"
	KeyExecutors         = "application.executors"
	KeyExecutorCores     = "application.executor.cores"
	KeyStoreDriver       = "store.driver"
	KeyStoreDSN          = "store.dsn"
	KeyStoreTable        = "store.table"
	KeyStoreDataset      = "store.dataset"
)

// Defaults applied when a key is absent.
const (
	DefaultApplicationName   = "envelope"
	DefaultBatchMilliseconds = 1000
	DefaultStoreDriver       = "sqlite3"
	DefaultStoreTable        = "records"
	DefaultSQLiteDSN         = "envelope.db"
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Application holds the process-level settings.
type Application struct {
	Name          string
	Batch         time.Duration
	Executors     int
	ExecutorCores int
	StoreDriver   string
	StoreDSN      string
	StoreTable    string
	Dataset       string
}

// Parallelism is the number of planning partitions run at once.
func (a Application) Parallelism() int {
	return a.Executors * a.ExecutorCores
}

// ApplicationSettings reads the application and store keys, applying
// defaults. Invalid values are INVALID_OPTION configuration errors.
func ApplicationSettings(cfg planner.Config) (Application, error) {
	app := Application{
		Name:        cfg.String(KeyApplicationName, DefaultApplicationName),
		StoreDriver: cfg.String(KeyStoreDriver, DefaultStoreDriver),
		StoreDSN:    cfg.String(KeyStoreDSN, ""),
		StoreTable:  cfg.String(KeyStoreTable, DefaultStoreTable),
	}
	app.Dataset = cfg.String(KeyStoreDataset, app.Name)

	batch, err := cfg.Int(KeyBatchMilliseconds, DefaultBatchMilliseconds)
	if err != nil {
		return Application{}, err
	}
	if batch <= 0 {
		return Application{}, invalid(KeyBatchMilliseconds, "must be positive, got %d", batch)
	}
	app.Batch = time.Duration(batch) * time.Millisecond

	if app.Executors, err = cfg.Int(KeyExecutors, 1); err != nil {
		return Application{}, err
	}
	if app.ExecutorCores, err = cfg.Int(KeyExecutorCores, 1); err != nil {
		return Application{}, err
	}
	if app.Executors < 1 || app.ExecutorCores < 1 {
		return Application{}, invalid(KeyExecutors, "executors and executor cores must be at least 1")
	}

	switch app.StoreDriver {
	case "sqlite3":
		if app.StoreDSN == "" {
			app.StoreDSN = DefaultSQLiteDSN
		}
	case "postgres", "mysql":
		if app.StoreDSN == "" {
			return Application{}, invalid(KeyStoreDSN, "required for driver %s", app.StoreDriver)
		}
	default:
		return Application{}, invalid(KeyStoreDriver, "unsupported driver %q", app.StoreDriver)
	}

	if !identifier.MatchString(app.StoreTable) {
		return Application{}, invalid(KeyStoreTable, "%q is not a plain SQL identifier", app.StoreTable)
	}
	if app.Dataset == "" {
		return Application{}, invalid(KeyStoreDataset, "must not be empty")
	}
	return app, nil
}

// Model derives the record model from the model.* keys.
func Model(cfg planner.Config) (*ir.RecordModel, error) {
	var opts []ir.ModelOption
	if f := cfg.String(KeyModelLastUpdated, ""); f != "" {
		opts = append(opts, ir.WithLastUpdatedField(f))
	}
	if f := cfg.String(KeyModelTimestamp, ""); f != "" {
		opts = append(opts, ir.WithTimestampField(f))
	}

	model, err := ir.NewRecordModel(cfg.List(KeyModelKeyFields), opts...)
	if err != nil {
		return nil, &planner.ConfigurationError{
			Code:    planner.ErrCodeInvalidModel,
			Option:  KeyModelKeyFields,
			Message: "record model is unusable",
			Err:     err,
		}
	}
	return model, nil
}

func invalid(option, format string, args ...any) *planner.ConfigurationError {
	return &planner.ConfigurationError{
		Code:    planner.ErrCodeInvalidOption,
		Option:  option,
		Message: fmt.Sprintf(format, args...),
	}
}
