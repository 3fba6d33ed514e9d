package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/envelope/internal/engine"
)

// StreamOptions holds flags for the stream command.
type StreamOptions struct {
	*RootOptions
	ConfigOptions
	Spool    string
	Schedule string
	MaxBatch int
	Quiet    time.Duration
}

// NewStreamCommand creates the stream command.
func NewStreamCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StreamOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "stream",
		Short: "Run micro-batches from a spool directory",
		Long: `Watch a spool directory for message files and apply them in
micro-batches until interrupted.

Each file holds one message per line. Records queue until the flush
schedule fires (every application.batch.milliseconds by default) and are
then planned and applied as one batch. Applied files are renamed with a
.done suffix, failed ones with .failed. Queued records are flushed on
shutdown.

Examples:
  envelope stream --config app.cue --spool ./spool
  envelope stream --config app.cue --spool ./spool --schedule "@every 30s" --max-batch 5000`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStream(opts, cmd)
		},
	}

	opts.bind(cmd)
	cmd.Flags().StringVar(&opts.Spool, "spool", "", "spool directory to watch (required)")
	_ = cmd.MarkFlagRequired("spool")
	cmd.Flags().StringVar(&opts.Schedule, "schedule", "", `flush schedule as a cron spec (default "@every <batch interval>")`)
	cmd.Flags().IntVar(&opts.MaxBatch, "max-batch", 0, "flush as soon as this many records are queued (0 = no limit)")
	cmd.Flags().DurationVar(&opts.Quiet, "quiet", engine.DefaultQuietPeriod, "wait this long after the last write before reading a file")

	return cmd
}

func runStream(opts *StreamOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	logger := opts.logger(cmd.ErrOrStderr())

	cfg, err := opts.load()
	if err != nil {
		return f.Fail(ExitCommandError, "failed to load configuration", err)
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

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := c.OpenStore(ctx); err != nil {
		return f.Fail(ExitCommandError, "failed to open store", err)
	}

	streamOpts := []engine.StreamOption{
		engine.WithQuietPeriod(opts.Quiet),
		engine.WithMaxBatch(opts.MaxBatch),
		engine.WithFlushHook(func(res *engine.BatchResult, err error) {
			if err != nil {
				f.VerboseLog("batch failed: %v", err)
				return
			}
			f.VerboseLog("batch: arriving=%d written=%d", res.Batch.Arriving, res.Written.Total())
		}),
	}
	if opts.Schedule != "" {
		streamOpts = append(streamOpts, engine.WithSchedule(opts.Schedule))
	}

	s, err := engine.NewStream(engine.New(c), tr, opts.Spool, streamOpts...)
	if err != nil {
		return f.Fail(ExitCommandError, "failed to start stream", err)
	}

	logger.Info("stream starting", "spool", opts.Spool, "dataset", c.App.Dataset)
	if f.Format != "json" {
		fmt.Fprintf(cmd.OutOrStdout(), "Watching %s. Press Ctrl-C to stop.\n", opts.Spool)
	}

	if err := s.Run(ctx); err != nil {
		return f.Fail(ExitFailure, "stream error", err)
	}

	logger.Info("stream stopped gracefully")
	if f.Format == "json" {
		return f.Success(map[string]string{"spool": opts.Spool, "state": "stopped"})
	}
	return nil
}
