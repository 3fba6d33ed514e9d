package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	slogseq "github.com/sokkalf/slog-seq"
)

// seqFlushInterval bounds how long a log event waits before it is sent.
const seqFlushInterval = 500 * time.Millisecond

// multiHandler forwards log records to multiple handlers.
type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range m.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}

// setupLogging installs a text logger on w, Debug when verbose, and fans
// out to Seq when a URL is set. The logger also becomes slog's default.
func (o *RootOptions) setupLogging(w io.Writer) {
	level := slog.LevelInfo
	if o.Verbose {
		level = slog.LevelDebug
	}
	var handler slog.Handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	o.closeLog = func() {}

	if o.SeqURL != "" {
		_, seqHandler := slogseq.NewLogger(o.SeqURL,
			slogseq.WithBatchSize(1),
			slogseq.WithFlushInterval(seqFlushInterval),
			slogseq.WithHandlerOptions(&slog.HandlerOptions{Level: level}),
		)
		if seqHandler != nil {
			handler = &multiHandler{handlers: []slog.Handler{handler, seqHandler}}
			o.closeLog = func() { seqHandler.Close() }
		}
	}

	o.log = slog.New(handler)
	slog.SetDefault(o.log)
}

// closeLogging flushes and closes the Seq sink, if any.
func (o *RootOptions) closeLogging() {
	if o.closeLog != nil {
		o.closeLog()
		o.closeLog = nil
	}
}
